// Copyright 2024 Contributors to the Veraison project.
// SPDX-License-Identifier: Apache-2.0

package protocol

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

const (
	// CertificateContext prefixes the DELE bytes signed by the long-term key
	CertificateContext = "RoughTime v1 delegation signature--\x00"
	// SignedResponseContext prefixes the SREP bytes signed by the delegated key
	SignedResponseContext = "RoughTime v1 response signature\x00"

	// MinRequestSize is the anti-amplification floor for request frames
	MinRequestSize = 1024

	DigestSize = 32
	NonceSize  = 2 * DigestSize
)

// ErrCallerInput is wrapped by errors caused by bad operator input: a digest
// of the wrong length, an unparseable public key, an unresolvable server.
var ErrCallerInput = errors.New("bad input")

// ExpandDigest stretches a 32 byte digest into a 64 byte nonce: the digest
// followed by its bytes in reverse order.
func ExpandDigest(digest [DigestSize]byte) [NonceSize]byte {
	var nonce [NonceSize]byte

	copy(nonce[:DigestSize], digest[:])
	for i, b := range digest {
		nonce[NonceSize-1-i] = b
	}

	return nonce
}

// ParseDigest decodes a hex encoded 32 byte digest and returns the nonce
// derived from it.
func ParseDigest(s string) ([]byte, error) {
	b, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("%w: malformed digest: %v", ErrCallerInput, err)
	}

	if len(b) != DigestSize {
		return nil, fmt.Errorf("%w: digest is %d bytes long, expecting %d", ErrCallerInput, len(b), DigestSize)
	}

	nonce := ExpandDigest([DigestSize]byte(b))

	return nonce[:], nil
}

// ParsePublicKey decodes a trust anchor supplied either as hex or as standard
// base64.
func ParsePublicKey(s string) (ed25519.PublicKey, error) {
	s = strings.TrimSpace(s)

	b, err := hex.DecodeString(s)
	if err != nil {
		b, err = base64.StdEncoding.DecodeString(s)
		if err != nil {
			return nil, fmt.Errorf("%w: public key is neither hex nor base64", ErrCallerInput)
		}
	}

	if len(b) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("%w: public key is %d bytes long, expecting %d", ErrCallerInput, len(b), ed25519.PublicKeySize)
	}

	return ed25519.PublicKey(b), nil
}
