// Copyright 2024 Contributors to the Veraison project.
// SPDX-License-Identifier: Apache-2.0

/*
Package verification builds time requests and verifies the responses sent back
by a time server.

# Request

The request carries the caller's nonce and is padded to the minimum frame
size servers accept:

	req, err := verification.BuildRequest(nonce)

# Response

Decoding and verification are two separate steps.  NewResponseContext decodes
the response and its nested SREP, CERT and DELE messages, and fails with
ErrMalformedResponse if anything required is missing:

	ctx, err := verification.NewResponseContext(raw, protocol.VersionClassic, trustAnchor, nonce)
	if err != nil { ... }

ExtractTime then runs the verification pipeline:

	res, err := ctx.ExtractTime()

With a trust anchor, a nil error means that the delegation and the response
signatures verify, that the nonce is included under the signed Merkle root and
that the midpoint lies within the delegation window; res.Verified is true.  A
failure is reported as a *CheckError naming the failed check and wrapping one
of ErrSignatureInvalid, ErrMerkleMismatch or ErrTimeWindowViolation:

	var ce *verification.CheckError
	if errors.As(err, &ce) {
		fmt.Printf("%s failed, response may not be authentic", ce.Check)
	}

Without a trust anchor (observation mode) no check is run and res.Verified is
false.  The midpoint and radius are still returned, unchanged, but they are
just the server's claim and must be presented as such.
*/
package verification
