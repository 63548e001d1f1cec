// Copyright 2021 Contributors to the Veraison project.
// SPDX-License-Identifier: Apache-2.0

/*
Package roughstamp time-stamps data with Roughtime servers.

A 32 byte digest of the data is expanded into a 64 byte nonce and sent to a
time server.  The server's signed reply is the stamp: it binds the nonce to the
server's clock reading, and can be re-verified at any later time against the
server's long-term public key.

# Packages

  - wire: tag/value message codec
  - protocol: versions, constants, digest and key parsing
  - merkle: inclusion proofs over batches of nonces
  - verification: request building, response decoding and verification
  - common: UDP transport and logging
  - stamp: time-stamping exchange, stamp files and stamp store
  - config: YAML list of known servers
  - roughtimetest: a signing responder for tests

# Time-stamping

	nonce, err := protocol.ParseDigest(digestHex)
	if err != nil { ... }

	cfg := stamp.StampConfig{}
	if err := cfg.SetNonce(nonce); err != nil { ... }
	if err := cfg.SetServer("roughtime.int08h.com:2002"); err != nil { ... }
	if err := cfg.SetTrustAnchor(pubKey); err != nil { ... }

	st, err := cfg.Run(ctx)
	if err != nil { ... }

	if err := stamp.WriteFile("data.stamp", st.Raw); err != nil { ... }

Later, the stamp is verified against the same digest and key:

	vcfg := stamp.VerifyConfig{Nonce: nonce, TrustAnchor: anchor}

	res, err := vcfg.RunFile("data.stamp")

Without a trust anchor the midpoint is still returned, with Verified set to
false.

The roughstamp command in cmd/roughstamp wraps these steps.
*/
package roughstamp
