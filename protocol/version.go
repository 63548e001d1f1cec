// Copyright 2024 Contributors to the Veraison project.
// SPDX-License-Identifier: Apache-2.0

package protocol

import (
	"crypto/sha512"
	"fmt"
	"hash"
)

// Version is the enumeration of the protocol variants understood by the
// client.  It selects the hash used for Merkle inclusion proofs and is always
// supplied by the caller.  It implements the pflag.Value interface.
type Version string

const (
	VersionClassic Version = "classic"
	VersionRFC     Version = "rfc"
)

// String representation of the Version
func (o *Version) String() string {
	return string(*o)
}

// Set the value of the Version
func (o *Version) Set(v string) error {
	switch v {
	case "classic", "google":
		*o = VersionClassic
	case "rfc", "ietf":
		*o = VersionRFC
	default:
		return fmt.Errorf("unexpected Version %q", v)
	}

	return nil
}

// Type returns the string representing the type name (used by pflag).
func (o *Version) Type() string {
	return "Version"
}

// Validate checks that o is one of the known versions
func (o Version) Validate() error {
	switch o {
	case VersionClassic, VersionRFC:
		return nil
	default:
		return fmt.Errorf("unexpected Version %q", string(o))
	}
}

// NewHash returns the hash function backing Merkle tree computations for the
// version.  The digest is truncated to HashSize bytes by the caller.
func (o Version) NewHash() hash.Hash {
	return sha512.New()
}

// HashSize is the length of a Merkle tree node: the full SHA-512 output for
// classic, the first 32 bytes of it for RFC.
func (o Version) HashSize() int {
	if o == VersionRFC {
		return 32
	}
	return sha512.Size
}
