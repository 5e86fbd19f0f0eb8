// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package main is the entry point for the coapd CLI.
//
// Usage:
//
//	coapd serve                    # Serve CoAP on MCOAP_PORT (5683)
//	coapd serve -m resources.yaml  # Serve the resources of a manifest
//	coapd validate -m resources.yaml
//	coapd discover                 # Browse for CoAP servers over mDNS
//	coapd version
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// Version information, set at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "coapd",
	Short: "A CoAP server with Observe and resource discovery",
	Long: `coapd serves CoAP (RFC 7252) resources over UDP, with Observe
(RFC 7641) subscriptions and /.well-known/core discovery (RFC 6690).

Resources come from a YAML manifest, from the built-in example sensors,
or both. Configuration is read from MCOAP_* environment variables and an
optional .env file.`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func main() {
	Execute()
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "coapd %s\n", version)
		fmt.Fprintf(out, "  commit: %s\n", commit)
		fmt.Fprintf(out, "  built:  %s\n", date)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// setupLogger creates a structured logger with the specified level and format.
func setupLogger(level, format string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: logLevel,
	}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
