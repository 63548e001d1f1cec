// Copyright 2024 Contributors to the Veraison project.
// SPDX-License-Identifier: Apache-2.0

/*
Package stamp runs a time-stamping exchange against a time server and stores
the resulting stamps.

The user creates a StampConfig supplying the nonce (typically derived from a
document digest with protocol.ParseDigest), the server address and,
optionally, the server's long-term public key:

	nonce, err := protocol.ParseDigest(digestHex)
	if err != nil { ... }

	cfg := stamp.StampConfig{
		Nonce:   nonce,
		Server:  "roughtime.example:2002",
		Version: protocol.VersionClassic,
	}

	if err := cfg.SetTrustAnchor(pubKeyHex); err != nil { ... }

	s, err := cfg.Run(ctx)

On success s.Raw holds the response bytes.  A stamp is nothing more than
those bytes, written verbatim:

	err = stamp.WriteFile("document.stamp", s.Raw)

and later re-verified against the same digest:

	res, err := stamp.VerifyConfig{Nonce: nonce, TrustAnchor: pub}.RunFile("document.stamp")

Without a trust anchor the time is still reported, with Result.Verified set to
false.
*/
package stamp
