// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package utils

import (
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// DefaultIniPath returns ~/.transferbench.ini, or ./.transferbench.ini without a home.
func DefaultIniPath() string {
	iniPath, err := os.UserHomeDir()
	if err != nil {
		iniPath = "."
	}
	return filepath.Join(iniPath, IniName)
}

// DefaultSCPUser is the login name of the current user, falling back to root.
func DefaultSCPUser() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		// DOMAIN\user su Windows
		if i := strings.LastIndex(u.Username, `\`); i >= 0 {
			return u.Username[i+1:]
		}
		return u.Username
	}
	if name := os.Getenv("USER"); name != "" {
		return name
	}
	return "root"
}

func TranslateFormat(format string) string {
	switch strings.ToLower(format) {
	case "json":
		return "json"
	case "yaml", "yml":
		return "yaml"
	default:
		return "short"
	}
}

func UUIDv4NoDash() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}
