// Copyright 2024 Contributors to the Veraison project.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"crypto/ed25519"
	"fmt"
	"io"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/veraison/roughstamp/common"
	"github.com/veraison/roughstamp/config"
	"github.com/veraison/roughstamp/protocol"
	"github.com/veraison/roughstamp/verification"
	"go.uber.org/zap"
)

const envPrefix = "ROUGHSTAMP"

// app carries the state shared by the subcommands.  Every flag can also be
// set through the environment, e.g. --use-utc as ROUGHSTAMP_USE_UTC.
type app struct {
	v       *viper.Viper
	version protocol.Version
	log     *zap.Logger
	servers config.Servers
}

func newRootCmd() *cobra.Command {
	a := &app{
		v:       viper.New(),
		version: protocol.VersionClassic,
		log:     zap.NewNop(),
	}

	rootCmd := &cobra.Command{
		Use:           "roughstamp",
		Short:         "Time-stamp digests with a Roughtime server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// a missing .env file is fine
			_ = godotenv.Load()
			return a.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = a.log.Sync()
		},
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
		},
	}

	a.v.SetEnvPrefix(envPrefix)
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	flags := rootCmd.PersistentFlags()
	flags.BoolP("use-utc", "u", false, "print times in UTC rather than local time")
	flags.Var(&a.version, "version", "protocol version spoken by the server (classic|rfc)")
	flags.String("config", "", "YAML file listing known servers")
	flags.Duration("timeout", common.DefaultTimeout, "how long to wait for the server's response")
	flags.BoolP("verbose", "v", false, "verbose output")

	for _, name := range []string{"use-utc", "version", "config", "timeout", "verbose"} {
		_ = a.v.BindPFlag(name, flags.Lookup(name))
	}

	rootCmd.AddCommand(newStampCmd(a), newVerifyCmd(a))

	return rootCmd
}

func (a *app) init() error {
	log, err := common.NewLogger(a.v.GetBool("verbose"))
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	a.log = log

	if err := a.version.Set(a.v.GetString("version")); err != nil {
		return err
	}

	if path := a.v.GetString("config"); path != "" {
		servers, err := config.Load(path)
		if err != nil {
			return fmt.Errorf("loading server list: %w", err)
		}
		a.servers = servers
		a.log.Debug("server list loaded", zap.String("path", path), zap.Int("servers", len(servers)))
	}

	return nil
}

// target is a server, or a key, as resolved from the command line
type target struct {
	address     string
	trustAnchor ed25519.PublicKey
	version     protocol.Version
}

// resolve looks name up in the server list.  If it is not a configured server
// it is returned as is.  A non-empty pubKey overrides the configured key, and
// an explicit --version overrides the configured version.
func (a *app) resolve(name, pubKey string) (target, error) {
	t := target{address: name, version: a.version}

	if s, ok := a.servers.Lookup(name); ok {
		anchor, err := s.TrustAnchor()
		if err != nil {
			return t, err
		}

		t.address = s.Address
		t.trustAnchor = anchor
		if !a.v.IsSet("version") {
			t.version = s.Version
		}

		a.log.Debug("using configured server",
			zap.String("name", s.Name),
			zap.String("address", s.Address),
			zap.String("version", string(t.version)),
		)
	}

	if pubKey != "" {
		anchor, err := protocol.ParsePublicKey(pubKey)
		if err != nil {
			return t, err
		}
		t.trustAnchor = anchor
	}

	return t, nil
}

const (
	localLayout = "2006-01-02 15:04:05.999999 -07:00"
	utcLayout   = "2006-01-02 15:04:05.999999 UTC"
)

func (a *app) printResult(w io.Writer, res *verification.Result) {
	t := res.Time()

	var midpoint string
	if a.v.GetBool("use-utc") {
		midpoint = t.UTC().Format(utcLayout)
	} else {
		midpoint = t.Local().Format(localLayout)
	}

	if res.Verified {
		fmt.Fprintf(w, "midpoint=%s, radius=%d, verified=Yes\n", midpoint, res.Radius)
	} else {
		fmt.Fprintf(w, "midpoint=%s, radius=%d, verified=No (unauthenticated)\n", midpoint, res.Radius)
	}
}

func optionalArg(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}
