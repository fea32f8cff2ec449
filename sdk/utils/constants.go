// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package utils

const (
	IniName            = ".transferbench.ini"
	CurrentEnvironment = "current_environment"
	UpdatedEnvKey      = "updated_environment"

	// Env prefixes accepted in front of every canonical env name.
	BenchEnvPrefix    = "TRANSFERBENCH"
	ReceiverEnvPrefix = "RECEIVER"

	// Viper keys read directly by the commands
	SCPUserKey = "scp_user"
	ConfigKey  = "config"
	ProfileKey = "profile"
)
