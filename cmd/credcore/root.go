// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credcore Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/credcore/credcore/internal/config"
	"github.com/credcore/credcore/internal/xdg"
)

// serviceName labels every log record.
const serviceName = "credcore"

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the credcore CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credcore",
		Short: "credcore - credential issuance and sessions",
		Long: `credcore registers users, verifies their passwords, and issues
cookie-carried sessions backed by PostgreSQL and Redis.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewConfigCmd())

	return cmd
}

// loadConfig loads the effective configuration for cmd. Without --config
// the XDG config file is used when present.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path := configFile
	if path == "" {
		found, err := xdg.FindConfigFile()
		if err != nil {
			return nil, err
		}
		path = found
	}
	return config.Load(path, cmd.Flags())
}
