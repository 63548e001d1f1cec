// Copyright 2024 Contributors to the Veraison project.
// SPDX-License-Identifier: Apache-2.0

// Package merkle computes the Merkle tree roots used by servers to sign a
// whole batch of nonces at once.  Leaves are hashed as H(0x00 || nonce) and
// interior nodes as H(0x01 || left || right), where H is selected by the
// protocol version.
package merkle

import (
	"crypto/subtle"
	"fmt"
	"hash"

	"github.com/veraison/roughstamp/protocol"
)

const (
	leafPrefix = 0x00
	nodePrefix = 0x01
)

// Hasher computes leaf and node hashes for a protocol version.  A Hasher
// reuses its underlying hash state and must not be shared between goroutines.
type Hasher struct {
	size int
	h    hash.Hash
}

// NewHasher returns a Hasher for the supplied version
func NewHasher(v protocol.Version) *Hasher {
	return &Hasher{
		size: v.HashSize(),
		h:    v.NewHash(),
	}
}

// Size is the length in bytes of every hash produced by the Hasher
func (o *Hasher) Size() int {
	return o.size
}

// Leaf hashes a leaf value
func (o *Hasher) Leaf(data []byte) []byte {
	o.h.Reset()
	o.h.Write([]byte{leafPrefix})
	o.h.Write(data)
	return o.sum()
}

// Node hashes two children into their parent
func (o *Hasher) Node(left, right []byte) []byte {
	o.h.Reset()
	o.h.Write([]byte{nodePrefix})
	o.h.Write(left)
	o.h.Write(right)
	return o.sum()
}

func (o *Hasher) sum() []byte {
	return o.h.Sum(nil)[:o.size]
}

// RootFromPath recomputes the tree root from a leaf, its index and the
// concatenated sibling hashes on the way up.  At every level the low bit of
// index says whether the running hash is the left (0) or right (1) child.
func (o *Hasher) RootFromPath(index uint32, leaf, path []byte) ([]byte, error) {
	if len(path)%o.size != 0 {
		return nil, fmt.Errorf("path length %d is not a multiple of the hash size %d", len(path), o.size)
	}

	h := o.Leaf(leaf)
	for off := 0; off < len(path); off += o.size {
		sibling := path[off : off+o.size]
		if index&1 == 0 {
			h = o.Node(h, sibling)
		} else {
			h = o.Node(sibling, h)
		}
		index >>= 1
	}

	return h, nil
}

// Check reports whether leaf at index, together with path, hashes up to root.
func (o *Hasher) Check(root []byte, index uint32, leaf, path []byte) (bool, error) {
	computed, err := o.RootFromPath(index, leaf, path)
	if err != nil {
		return false, err
	}

	return subtle.ConstantTimeCompare(computed, root) == 1, nil
}
