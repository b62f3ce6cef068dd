// Copyright (c) 2025 The fibtrie authors
// SPDX-License-Identifier: MIT

// Command fibtrie loads a route file into an in-memory FIB and lets
// you inspect it: dump the trie structure, resolve addresses against
// it, or serve the table metrics over HTTP.
//
// The route file has one route per line: a prefix in CIDR notation,
// optionally followed by a priority. Blank lines and # comments are
// ignored.
package main

import (
	"bufio"
	"fmt"
	"net/http"
	"net/netip"
	"os"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/netfab/fibtrie"
)

var (
	routeFile string
	logLevel  string
)

func main() {
	root := &cobra.Command{
		Use:           "fibtrie",
		Short:         "inspect an LPC-trie FIB built from a route file",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			lvl, err := logrus.ParseLevel(logLevel)
			if err != nil {
				return err
			}
			logrus.SetLevel(lvl)
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&routeFile, "routes", "r", "", "route file, one prefix per line")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "trace, debug, info, warn or error")

	root.AddCommand(dumpCmd(), lookupCmd(), serveCmd())

	if err := root.Execute(); err != nil {
		logrus.Fatal(err)
	}
}

func dumpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dump",
		Short: "print the trie structure and statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			tb, err := loadTable()
			if err != nil {
				return err
			}

			fmt.Print(tb)

			s := tb.Stats()
			fmt.Printf("\nroutes %d, leaves %d, tnodes %d, null ptrs %d\n",
				tb.Len(), s.Leaves, s.Tnodes, s.NullPointers)
			fmt.Printf("max depth %d, avg depth %.2f\n", s.MaxDepth, s.AvgDepth())
			return nil
		},
	}
}

func lookupCmd() *cobra.Command {
	var tos uint8

	cmd := &cobra.Command{
		Use:   "lookup addr...",
		Short: "resolve addresses against the table",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tb, err := loadTable()
			if err != nil {
				return err
			}

			for _, arg := range args {
				addr, err := netip.ParseAddr(arg)
				if err != nil {
					return err
				}

				r, err := tb.Lookup(addr, fibtrie.LookupOpts{TOS: tos})
				if err != nil {
					fmt.Printf("%-18s %v\n", addr, err)
					continue
				}
				fmt.Printf("%-18s %s %s prio=%d\n", addr, r.Prefix, r.Kind, r.Priority)
			}
			return nil
		},
	}
	cmd.Flags().Uint8Var(&tos, "tos", 0, "type of service filter")
	return cmd
}

func serveCmd() *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "serve the table metrics over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			tb, err := loadTable()
			if err != nil {
				return err
			}

			reg := prometheus.NewRegistry()
			if err := reg.Register(fibtrie.NewCollector(tb)); err != nil {
				return err
			}

			http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
			logrus.Infof("serving metrics on %s/metrics", listen)
			return http.ListenAndServe(listen, nil)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", ":9473", "listen address")
	return cmd
}

func loadTable() (*fibtrie.Table, error) {
	if routeFile == "" {
		return nil, fmt.Errorf("no route file given, see --routes")
	}

	f, err := os.Open(routeFile)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	tb := fibtrie.NewTable(254)
	info := fibtrie.NewFibInfo(fibtrie.ScopeUniverse, 0)

	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}

		pfx, err := netip.ParsePrefix(fields[0])
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", routeFile, line, err)
		}

		var prio uint64
		if len(fields) > 1 {
			if prio, err = strconv.ParseUint(fields[1], 10, 32); err != nil {
				return nil, fmt.Errorf("%s:%d: %w", routeFile, line, err)
			}
		}

		err = tb.Insert(fibtrie.Route{
			Prefix:   pfx.Masked(),
			Priority: uint32(prio),
			Kind:     fibtrie.KindUnicast,
			Info:     info,
		}, fibtrie.FlagCreate|fibtrie.FlagExclusive)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", routeFile, line, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	logrus.Debugf("loaded %d routes from %s", tb.Len(), routeFile)
	return tb, nil
}
