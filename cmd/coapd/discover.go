// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/absmach/mcoap/pkg/mdns"
	"github.com/spf13/cobra"
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Browse the local network for CoAP servers",
	Long: `Browse the local network for _coap._udp services advertised over mDNS
and print the servers found.

Example:
  coapd discover --timeout 3s`,
	RunE: runDiscover,
}

func init() {
	rootCmd.AddCommand(discoverCmd)

	discoverCmd.Flags().DurationP("timeout", "t", mdns.DefaultScanTimeout, "how long to browse")
}

func runDiscover(cmd *cobra.Command, args []string) error {
	timeout, _ := cmd.Flags().GetDuration("timeout")

	peers, err := mdns.Scan(cmd.Context(), timeout)
	if err != nil {
		return err
	}
	printPeers(cmd.OutOrStdout(), peers, timeout)
	return nil
}

func printPeers(out io.Writer, peers []mdns.Peer, timeout time.Duration) {
	if len(peers) == 0 {
		fmt.Fprintf(out, "No CoAP servers found within %s\n", timeout)
		return
	}
	for _, p := range peers {
		fmt.Fprintf(out, "%s  coap://%s\n", p.Instance, p.Addr)
		if p.ServerID != "" {
			fmt.Fprintf(out, "  id:    %s\n", p.ServerID)
		}
		if len(p.Paths) > 0 {
			fmt.Fprintf(out, "  paths: %s\n", strings.Join(p.Paths, ", "))
		}
	}
}
