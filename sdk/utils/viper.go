// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package utils

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/ini.v1"
)

// BenchSettings holds all logical keys of the benchmark driver. Tags:
// - vkey: Viper key
// - env: canonical env name (UPPER_SNAKE). If empty, derived from vkey
// - flag: command line flag name. If empty, no flag is defined
// - default: optional default
// - usage: flag help text
// - persist: "true" to write the key into the INI profile
// - secret: "true" if sensitive (never logged)
// - bind: "false" to NOT bind from env
// - prefixonly: "true" to bind PREFIX_ENV only
type BenchSettings struct {
	File              string        `vkey:"file"                env:"FILE"                flag:"file"                usage:"Path to the file (required)" prefixonly:"true"`
	MinioEndpoint     string        `vkey:"minio_endpoint"      env:"MINIO_ENDPOINT"      flag:"minio-endpoint"      usage:"MinIO endpoint"                  default:"http://localhost:9000"        persist:"true"`
	MinioBucket       string        `vkey:"minio_bucket"        env:"MINIO_BUCKET"        flag:"minio-bucket"        usage:"MinIO bucket name"               default:"test-bucket"                  persist:"true"`
	MinioAccessKey    string        `vkey:"minio_access_key"    env:"MINIO_ACCESS_KEY"    flag:"minio-access-key"    usage:"MinIO access key"                default:"minioadmin"                   persist:"true" secret:"true"`
	MinioSecretKey    string        `vkey:"minio_secret_key"    env:"MINIO_SECRET_KEY"    flag:"minio-secret-key"    usage:"MinIO secret key"                default:"minioadmin"                   persist:"true" secret:"true"`
	MinioRegion       string        `vkey:"minio_region"        env:"MINIO_REGION"        flag:"minio-region"        usage:"MinIO region"                    default:"us-east-1"                    persist:"true"`
	MinioObjectKey    string        `vkey:"minio_object_key"    env:"MINIO_OBJECT_KEY"    flag:"minio-object-key"    usage:"Object key of the uploaded file" default:"testfile"                     persist:"true"`
	MinioClient       string        `vkey:"minio_client"        env:"MINIO_CLIENT"        flag:"minio-client"        usage:"Object store client: aws|minio"  default:"aws"                          persist:"true"`
	MinioDownloadPath string        `vkey:"minio_download_path" env:"MINIO_DOWNLOAD_PATH" flag:"minio-download-path" usage:"Also time a download of the object to this path"`
	HTTPURL           string        `vkey:"http_url"            env:"HTTP_URL"            flag:"http-url"            usage:"HTTP upload URL"                 default:"http://127.0.0.1:9999/upload" persist:"true"`
	HTTPInsecure      bool          `vkey:"http_insecure"       env:"HTTP_INSECURE"       flag:"http-insecure"       usage:"Skip TLS certificate verification for the HTTP upload" persist:"true"`
	SCPUser           string        `vkey:"scp_user"            env:"SCP_USER"            flag:"scp-user"            usage:"SCP username"                    persist:"true"`
	SCPHost           string        `vkey:"scp_host"            env:"SCP_HOST"            flag:"scp-host"            usage:"SCP host"                        default:"localhost"                    persist:"true"`
	SCPRemotePath     string        `vkey:"scp_remote_path"     env:"SCP_REMOTE_PATH"     flag:"scp-remote-path"     usage:"Remote path for SCP upload"      default:"/tmp/"                        persist:"true"`
	SCPBinary         string        `vkey:"scp_binary"          env:"SCP_BINARY"          flag:"scp-binary"          usage:"Secure copy executable"          default:"scp"                          persist:"true"`
	SCPOptions        []string      `vkey:"scp_options"         env:"SCP_OPTIONS"         flag:"scp-option"          usage:"Extra scp argument, repeatable (e.g. \"-o BatchMode=yes\")" persist:"true"`
	Timeout           time.Duration `vkey:"timeout"             env:"TIMEOUT"             flag:"timeout"             usage:"Per-transfer timeout, 0 for none" default:"0s"                          persist:"true" prefixonly:"true"`
	ContinueOnError   bool          `vkey:"continue_on_error"   env:"CONTINUE_ON_ERROR"   flag:"continue-on-error"   usage:"Run every transport even after a failure" prefixonly:"true"`
	Output            string        `vkey:"output"              env:"OUTPUT"              flag:"output"              usage:"Output format: text|json|yaml"   default:"text" prefixonly:"true"`
	Progress          bool          `vkey:"progress"            env:"PROGRESS"            flag:"progress"            usage:"Show transfer progress on stderr" prefixonly:"true"`
	LogLevel          string        `vkey:"log_level"           env:"LOG_LEVEL"           flag:"log-level"           usage:"Log level: debug|info|warn|error" default:"info" prefixonly:"true"`
	LogFile           string        `vkey:"log_file"            env:"LOG_FILE"            flag:"log-file"            usage:"Also write logs to this rotating file" prefixonly:"true"`
	Config            string        `vkey:"config"              env:"CONFIG"              flag:"config"              usage:"INI file holding named profiles" prefixonly:"true"`
	Profile           string        `vkey:"profile"             env:"PROFILE"             flag:"profile"             usage:"Profile (INI section) to load"   prefixonly:"true"`
	SaveProfile       string        `vkey:"save_profile"                                  flag:"save-profile"        usage:"Persist the effective settings under this profile" bind:"false"`
}

// ReceiverSettings holds the keys of the upload receiver.
type ReceiverSettings struct {
	Addr         string `vkey:"addr"           env:"ADDR"           flag:"addr"           usage:"Listen address"                default:"0.0.0.0:9999" prefixonly:"true"`
	UploadDir    string `vkey:"upload_dir"     env:"UPLOAD_DIR"     flag:"upload-dir"     usage:"Directory receiving the files" default:"uploads" prefixonly:"true"`
	MaxBodyBytes int64  `vkey:"max_body_bytes" env:"MAX_BODY_BYTES" flag:"max-body-bytes" usage:"Largest accepted request body" default:"10737418240" prefixonly:"true"`
	LogLevel     string `vkey:"log_level"      env:"LOG_LEVEL"      flag:"log-level"      usage:"Log level: debug|info|warn|error" default:"info" prefixonly:"true"`
	LogFile      string `vkey:"log_file"       env:"LOG_FILE"       flag:"log-file"       usage:"Also write logs to this rotating file" prefixonly:"true"`
}

var durationType = reflect.TypeOf(time.Duration(0))

type settingField struct {
	index   int
	typ     reflect.Type
	key     string
	env     string
	flag    string
	def     string
	usage   string
	persist bool
	secret  bool
	bind    bool
	prefix  bool
}

func fieldsOf(settings any) []settingField {
	rt := reflect.TypeOf(settings)
	if rt.Kind() == reflect.Pointer {
		rt = rt.Elem()
	}
	var out []settingField
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		key := f.Tag.Get("vkey")
		if key == "" {
			continue
		}
		env := f.Tag.Get("env")
		if env == "" {
			env = strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		}
		out = append(out, settingField{
			index:   i,
			typ:     f.Type,
			key:     key,
			env:     env,
			flag:    f.Tag.Get("flag"),
			def:     f.Tag.Get("default"),
			usage:   f.Tag.Get("usage"),
			persist: f.Tag.Get("persist") == "true",
			secret:  f.Tag.Get("secret") == "true",
			bind:    f.Tag.Get("bind") != "false",
			prefix:  f.Tag.Get("prefixonly") == "true",
		})
	}
	return out
}

// RegisterFlags defines one flag per tagged field on fs and binds it to v.
// dynamic overrides the tag default for keys computed at runtime.
func RegisterFlags(v *viper.Viper, fs *pflag.FlagSet, settings any, dynamic map[string]string) error {
	for _, f := range fieldsOf(settings) {
		if f.flag == "" {
			continue
		}
		def := f.def
		if d, ok := dynamic[f.key]; ok {
			def = d
		}

		switch {
		case f.typ == durationType:
			d, err := parseDurationDefault(def)
			if err != nil {
				return fmt.Errorf("invalid default for %s: %w", f.key, err)
			}
			fs.Duration(f.flag, d, f.usage)
		case f.typ.Kind() == reflect.String:
			fs.String(f.flag, def, f.usage)
		case f.typ.Kind() == reflect.Bool:
			b := false
			if def != "" {
				var err error
				if b, err = strconv.ParseBool(def); err != nil {
					return fmt.Errorf("invalid default for %s: %w", f.key, err)
				}
			}
			fs.Bool(f.flag, b, f.usage)
		case f.typ.Kind() == reflect.Int64:
			var n int64
			if def != "" {
				var err error
				if n, err = strconv.ParseInt(def, 10, 64); err != nil {
					return fmt.Errorf("invalid default for %s: %w", f.key, err)
				}
			}
			fs.Int64(f.flag, n, f.usage)
		case f.typ.Kind() == reflect.Slice && f.typ.Elem().Kind() == reflect.String:
			var items []string
			if def != "" {
				items = strings.Split(def, ",")
			}
			fs.StringArray(f.flag, items, f.usage)
		default:
			return fmt.Errorf("unsupported setting type %s for %s", f.typ, f.key)
		}

		if err := v.BindPFlag(f.key, fs.Lookup(f.flag)); err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", f.flag, err)
		}
	}
	return nil
}

func parseDurationDefault(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}

// BindEnvFromStruct binds every field to PREFIX_ENV and ENV, in this order.
func BindEnvFromStruct(v *viper.Viper, prefix string, settings any) {
	for _, f := range fieldsOf(settings) {
		if !f.bind {
			continue
		}
		names := []string{f.env}
		if prefix != "" {
			names = []string{strings.ToUpper(prefix) + "_" + f.env}
			if !f.prefix {
				names = append(names, f.env)
			}
		}
		_ = v.BindEnv(append([]string{f.key}, names...)...)
	}
}

// Decode copies the effective values of v into the tagged struct pointed to by out.
func Decode(v *viper.Viper, out any) error {
	rv := reflect.ValueOf(out)
	if rv.Kind() != reflect.Pointer || rv.Elem().Kind() != reflect.Struct {
		return errors.New("decode target must be a pointer to struct")
	}
	rv = rv.Elem()

	for _, f := range fieldsOf(out) {
		field := rv.Field(f.index)
		switch {
		case f.typ == durationType:
			field.SetInt(int64(v.GetDuration(f.key)))
		case f.typ.Kind() == reflect.String:
			field.SetString(v.GetString(f.key))
		case f.typ.Kind() == reflect.Bool:
			field.SetBool(v.GetBool(f.key))
		case f.typ.Kind() == reflect.Int64:
			field.SetInt(v.GetInt64(f.key))
		case f.typ.Kind() == reflect.Slice && f.typ.Elem().Kind() == reflect.String:
			field.Set(reflect.ValueOf(v.GetStringSlice(f.key)))
		default:
			return fmt.Errorf("unsupported setting type %s for %s", f.typ, f.key)
		}
	}
	return nil
}

// SecretKeys lists the viper keys flagged secret:"true".
func SecretKeys(settings any) []string {
	var keys []string
	for _, f := range fieldsOf(settings) {
		if f.secret {
			keys = append(keys, f.key)
		}
	}
	return keys
}

// redacted replaces the value of secret keys in SettingsAttrs.
const redacted = "********"

// SettingsAttrs returns the effective value of every setting as slog key/value
// pairs, in declaration order. Non-empty secret values are masked.
func SettingsAttrs(v *viper.Viper, settings any) []any {
	secrets := SecretKeys(settings)
	attrs := make([]any, 0, 2*len(fieldsOf(settings)))
	for _, f := range fieldsOf(settings) {
		val := v.Get(f.key)
		if slices.Contains(secrets, f.key) && v.GetString(f.key) != "" {
			val = redacted
		}
		attrs = append(attrs, f.key, val)
	}
	return attrs
}

// resolveEnvName: --profile > "default"
func resolveEnvName(optionalEnv ...string) string {
	if len(optionalEnv) > 0 && optionalEnv[0] != "" && strings.ToLower(optionalEnv[0]) != "null" {
		return optionalEnv[0]
	}
	return "default"
}

// LoadProfile loads [DEFAULT] + [env] of the INI file into v as its config
// layer, so flags and env still override it. Without an explicit env the
// DEFAULT.current_environment section is used. A missing file is not an error
// unless a profile was asked for explicitly. Returns the section loaded.
func LoadProfile(v *viper.Viper, iniPath string, optionalEnv ...string) (string, error) {
	cfg, err := ini.Load(iniPath)
	if err != nil {
		if len(optionalEnv) > 0 && optionalEnv[0] != "" {
			return "", fmt.Errorf("failed to load profile file %s: %w", iniPath, err)
		}
		return "", nil
	}

	env := resolveEnvName(optionalEnv...)
	if env == "default" {
		if cur := cfg.Section("DEFAULT").Key(CurrentEnvironment).String(); cur != "" {
			env = cur
		}
	}

	def := cfg.Section("DEFAULT")
	selected := def
	if env != "default" {
		if !cfg.HasSection(env) {
			return "", fmt.Errorf("profile %q not found in %s", env, iniPath)
		}
		selected = cfg.Section(env)
	}

	merged := make(map[string]string)
	for _, k := range def.Keys() {
		merged[k.Name()] = k.Value()
	}
	if selected != def {
		for _, k := range selected.Keys() {
			merged[k.Name()] = k.Value()
		}
	}

	var buf bytes.Buffer
	for k, val := range merged {
		vSafe := strings.ReplaceAll(strings.ReplaceAll(val, `\`, `\\`), `"`, `\"`)
		_, _ = fmt.Fprintf(&buf, "%s = \"%s\"\n", k, vSafe)
	}
	v.SetConfigType("toml")
	if err := v.ReadConfig(&buf); err != nil {
		return "", fmt.Errorf("failed to load INI into viper: %w", err)
	}
	v.Set(CurrentEnvironment, env)
	return env, nil
}

// SaveProfile updates or creates the [env] section from the current values of v
// (persist:"true" fields only) and makes it the current environment.
func SaveProfile(v *viper.Viper, iniPath, env string, settings any) error {
	if env == "" {
		return errors.New("profile name is required")
	}

	cfg, err := ini.Load(iniPath)
	if err != nil {
		cfg = ini.Empty()
	}
	sec := cfg.Section(env)

	for _, f := range fieldsOf(settings) {
		if !f.persist {
			continue
		}
		var val string
		if f.typ.Kind() == reflect.Slice {
			val = strings.Join(v.GetStringSlice(f.key), " ")
		} else {
			val = v.GetString(f.key)
		}
		if val == "" {
			continue
		}
		sec.Key(f.key).SetValue(val)
	}

	cfg.Section("DEFAULT").Key(CurrentEnvironment).SetValue(env)
	sec.Key(UpdatedEnvKey).SetValue(time.Now().UTC().Format(time.RFC3339))
	if err := cfg.SaveTo(iniPath); err != nil {
		return fmt.Errorf("failed to save ini: %w", err)
	}
	// contiene le credenziali
	return os.Chmod(iniPath, 0o600)
}
