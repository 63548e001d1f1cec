// Copyright 2024 Contributors to the Veraison project.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/spf13/cobra"
	"github.com/veraison/roughstamp/protocol"
	"github.com/veraison/roughstamp/stamp"
)

func newVerifyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <expected_digest> <stamp_file> [pub_key]",
		Short: "Verify a timestamp",
		Long: `Verify that stamp_file time-stamps expected_digest.  pub_key is the
server's public key, hex or base64 encoded, or the name of a server from the
--config file.  Without it, the time is reported but not authenticated.`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			nonce, err := protocol.ParseDigest(args[0])
			if err != nil {
				return err
			}

			cfg := stamp.VerifyConfig{Nonce: nonce, Version: a.version}

			if key := optionalArg(args, 2); key != "" {
				var t target
				if _, ok := a.servers.Lookup(key); ok {
					t, err = a.resolve(key, "")
				} else {
					t, err = a.resolve("", key)
				}
				if err != nil {
					return err
				}
				cfg.TrustAnchor = t.trustAnchor
				cfg.Version = t.version
			}

			res, err := cfg.RunFile(args[1])
			if err != nil {
				return err
			}

			a.printResult(cmd.ErrOrStderr(), res)

			return nil
		},
	}
}
