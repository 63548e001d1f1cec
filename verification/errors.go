// Copyright 2024 Contributors to the Veraison project.
// SPDX-License-Identifier: Apache-2.0

package verification

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedResponse is wrapped when a required tag or sub-message is
	// missing or cannot be decoded
	ErrMalformedResponse = errors.New("malformed response")
	// ErrSignatureInvalid is wrapped when the DELE or SREP signature does not
	// verify
	ErrSignatureInvalid = errors.New("invalid signature")
	// ErrMerkleMismatch is wrapped when the nonce is not provably included
	// under the signed root
	ErrMerkleMismatch = errors.New("merkle root mismatch")
	// ErrTimeWindowViolation is wrapped when the midpoint lies outside the
	// delegation validity window
	ErrTimeWindowViolation = errors.New("midpoint outside delegation window")
)

// Check names a step of the verification pipeline
type Check string

const (
	CheckDelegation Check = "delegation signature"
	CheckResponse   Check = "response signature"
	CheckMerkle     Check = "merkle inclusion"
	CheckMidpoint   Check = "midpoint bound"
)

// CheckError reports which step of the verification pipeline failed.  Err is
// one of the package sentinel errors.
type CheckError struct {
	Check  Check
	Err    error
	Detail string
}

func (o *CheckError) Error() string {
	if o.Detail == "" {
		return fmt.Sprintf("%s check failed: %v", o.Check, o.Err)
	}
	return fmt.Sprintf("%s check failed: %v: %s", o.Check, o.Err, o.Detail)
}

func (o *CheckError) Unwrap() error {
	return o.Err
}
