// Copyright 2024 Contributors to the Veraison project.
// SPDX-License-Identifier: Apache-2.0

package verification

import (
	"crypto/ed25519"
	"crypto/subtle"
	"fmt"
	"time"

	"github.com/veraison/roughstamp/merkle"
	"github.com/veraison/roughstamp/protocol"
	"github.com/veraison/roughstamp/wire"
)

// Result is the outcome of a verification pass.  Verified is false when no
// trust anchor was supplied, in which case Midpoint and Radius are the server's
// unauthenticated claim.
type Result struct {
	Verified bool
	// Midpoint is the server time in microseconds since the Unix epoch
	Midpoint uint64
	// Radius is the uncertainty around Midpoint, in microseconds
	Radius uint32
}

// Time returns the midpoint as a time.Time
func (o Result) Time() time.Time {
	return time.UnixMicro(int64(o.Midpoint))
}

// Uncertainty returns the radius as a time.Duration
func (o Result) Uncertainty() time.Duration {
	return time.Duration(o.Radius) * time.Microsecond
}

// ExtractTime returns the midpoint and radius carried by the response.  If a
// trust anchor is configured the following checks are run, in order, and the
// first failure is returned as a *CheckError:
//
//  1. the trust anchor signs the delegation (CERT.SIG over DELE)
//  2. the delegated key signs the response (SIG over SREP)
//  3. the nonce is included in the Merkle tree rooted at SREP.ROOT
//  4. the midpoint lies within [DELE.MINT, DELE.MAXT]
func (o *ResponseContext) ExtractTime() (*Result, error) {
	res := Result{
		Midpoint: o.midpoint,
		Radius:   o.radius,
	}

	if o.trustAnchor == nil {
		return &res, nil
	}

	if err := o.validateDele(); err != nil {
		return nil, err
	}

	if err := o.validateSrep(); err != nil {
		return nil, err
	}

	if err := o.validateMerkle(); err != nil {
		return nil, err
	}

	if err := o.validateMidpoint(); err != nil {
		return nil, err
	}

	res.Verified = true

	return &res, nil
}

func (o *ResponseContext) validateDele() error {
	dele := o.mustGet(o.cert, wire.TagDELE)
	sig := o.mustGet(o.cert, wire.TagSIG)

	if !verifySig(o.trustAnchor, protocol.CertificateContext, dele, sig) {
		return &CheckError{
			Check:  CheckDelegation,
			Err:    ErrSignatureInvalid,
			Detail: "signature on DELE does not verify, response may not be authentic",
		}
	}

	return nil
}

func (o *ResponseContext) validateSrep() error {
	pubk := o.mustGet(o.dele, wire.TagPUBK)
	srep := o.mustGet(o.msg, wire.TagSREP)
	sig := o.mustGet(o.msg, wire.TagSIG)

	if !verifySig(ed25519.PublicKey(pubk), protocol.SignedResponseContext, srep, sig) {
		return &CheckError{
			Check:  CheckResponse,
			Err:    ErrSignatureInvalid,
			Detail: "signature on SREP does not verify, response may not be authentic",
		}
	}

	return nil
}

func (o *ResponseContext) validateMerkle() error {
	path := o.mustGet(o.msg, wire.TagPATH)
	root := o.mustGet(o.srep, wire.TagROOT)

	computed, err := merkle.NewHasher(o.version).RootFromPath(o.index, o.nonce, path)
	if err != nil {
		return &CheckError{
			Check:  CheckMerkle,
			Err:    ErrMalformedResponse,
			Detail: err.Error(),
		}
	}

	if subtle.ConstantTimeCompare(computed, root) != 1 {
		return &CheckError{
			Check:  CheckMerkle,
			Err:    ErrMerkleMismatch,
			Detail: fmt.Sprintf("nonce is not present in the response's merkle tree (index %d)", o.index),
		}
	}

	return nil
}

func (o *ResponseContext) validateMidpoint() error {
	if o.midpoint < o.minT {
		return &CheckError{
			Check: CheckMidpoint,
			Err:   ErrTimeWindowViolation,
			Detail: fmt.Sprintf(
				"midpoint %d lies before delegation span (%d, %d)",
				o.midpoint, o.minT, o.maxT,
			),
		}
	}

	if o.midpoint > o.maxT {
		return &CheckError{
			Check: CheckMidpoint,
			Err:   ErrTimeWindowViolation,
			Detail: fmt.Sprintf(
				"midpoint %d lies after delegation span (%d, %d)",
				o.midpoint, o.minT, o.maxT,
			),
		}
	}

	return nil
}

func verifySig(pub ed25519.PublicKey, context string, data, sig []byte) bool {
	msg := make([]byte, 0, len(context)+len(data))
	msg = append(msg, context...)
	msg = append(msg, data...)

	return ed25519.Verify(pub, msg, sig)
}

// Verify decodes raw and runs ExtractTime on it
func Verify(
	raw []byte,
	version protocol.Version,
	trustAnchor ed25519.PublicKey,
	nonce []byte,
) (*Result, error) {
	ctx, err := NewResponseContext(raw, version, trustAnchor, nonce)
	if err != nil {
		return nil, err
	}

	return ctx.ExtractTime()
}
