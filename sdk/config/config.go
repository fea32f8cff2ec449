// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package config

// Config complessiva passata all’SDK (niente viper/INI qui)
type Config struct {
	S3   S3Config
	HTTP HTTPConfig
	SCP  SCPConfig
}

// Object store clients selectable through S3Config.Client.
const (
	ClientAWS   = "aws"
	ClientMinio = "minio"
)

type S3Config struct {
	AccessKey   string
	SecretKey   string
	AccessToken string
	Region      string
	EndpointURL string
	Bucket      string
	ObjectKey   string
	Client      string
}

type HTTPConfig struct {
	URL       string
	FieldName string
	// Insecure disables TLS certificate verification.
	Insecure bool
}

type SCPConfig struct {
	User       string
	Host       string
	RemotePath string
	Binary     string
	Options    []string
}

// Destination renders user@host:path as expected by scp.
func (c SCPConfig) Destination() string {
	return c.User + "@" + c.Host + ":" + c.RemotePath
}
