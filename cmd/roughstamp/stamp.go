// Copyright 2024 Contributors to the Veraison project.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/spf13/cobra"
	"github.com/veraison/roughstamp/common"
	"github.com/veraison/roughstamp/protocol"
	"github.com/veraison/roughstamp/stamp"
	"go.uber.org/zap"
)

func newStampCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stamp <digest> <server> <stamp_file> [pub_key]",
		Short: "Create a timestamp",
		Long: `Create a timestamp for a hex encoded 32 byte digest and save the server's
response to stamp_file, which must not exist.  server is either host:port or
the name of a server from the --config file.  Without a public key, the time
is reported but not authenticated.`,
		Args: cobra.RangeArgs(3, 4),
		RunE: func(cmd *cobra.Command, args []string) error {
			nonce, err := protocol.ParseDigest(args[0])
			if err != nil {
				return err
			}

			t, err := a.resolve(args[1], optionalArg(args, 3))
			if err != nil {
				return err
			}

			client := common.NewClient()
			client.Timeout = a.v.GetDuration("timeout")
			client.Logger = a.log

			cfg := stamp.StampConfig{TrustAnchor: t.trustAnchor}

			if err := cfg.SetNonce(nonce); err != nil {
				return err
			}
			if err := cfg.SetServer(t.address); err != nil {
				return err
			}
			if err := cfg.SetVersion(t.version); err != nil {
				return err
			}
			if err := cfg.SetClient(client); err != nil {
				return err
			}

			st, err := cfg.Run(cmd.Context())
			if err != nil {
				return err
			}

			if err := stamp.WriteFile(args[2], st.Raw); err != nil {
				return err
			}

			a.log.Debug("stamp saved", zap.String("path", args[2]), zap.Int("size", len(st.Raw)))

			a.printResult(cmd.ErrOrStderr(), st.Result)

			return nil
		},
	}
}
