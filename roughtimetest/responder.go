// Copyright 2024 Contributors to the Veraison project.
// SPDX-License-Identifier: Apache-2.0

// Package roughtimetest provides a signing responder producing well-formed,
// validly signed responses for use in tests.
package roughtimetest

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/veraison/roughstamp/merkle"
	"github.com/veraison/roughstamp/protocol"
	"github.com/veraison/roughstamp/wire"
)

// Response holds the values a Responder is about to sign for one nonce.  It
// can be altered through Responder.Mutate to produce responses that are
// validly signed but wrong in some other respect.
type Response struct {
	Midpoint uint64
	Radius   uint32
	Root     []byte
	Index    uint32
	Path     []byte
	MinT     uint64
	MaxT     uint64
}

// Responder answers batches of nonces the way a time server does: it builds a
// Merkle tree over the nonces, signs the root with its online key and ships
// the online key's delegation signed by the root key.
type Responder struct {
	Version   protocol.Version
	RootKey   ed25519.PrivateKey
	OnlineKey ed25519.PrivateKey

	// delegation window of the online key, microseconds since the epoch
	MinT uint64
	MaxT uint64

	Radius uint32
	Now    func() time.Time

	Mutate func(*Response)
}

// NewResponder returns a Responder with fresh keys whose delegation is valid
// for an hour either side of the current time.
func NewResponder(v protocol.Version) (*Responder, error) {
	_, rootKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generating root key: %w", err)
	}

	_, onlineKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generating online key: %w", err)
	}

	now := time.Now()

	return &Responder{
		Version:   v,
		RootKey:   rootKey,
		OnlineKey: onlineKey,
		MinT:      uint64(now.Add(-time.Hour).UnixMicro()),
		MaxT:      uint64(now.Add(time.Hour).UnixMicro()),
		Radius:    1000000,
		Now:       time.Now,
	}, nil
}

// PublicKey returns the long-term public key, i.e. the trust anchor
func (o *Responder) PublicKey() ed25519.PublicKey {
	return o.RootKey.Public().(ed25519.PublicKey)
}

// Respond returns one encoded response per nonce, all sharing the same
// signed Merkle root.
func (o *Responder) Respond(nonces [][]byte) ([][]byte, error) {
	root, paths, err := merkle.NewHasher(o.Version).BuildTree(nonces)
	if err != nil {
		return nil, err
	}

	midpoint := uint64(o.Now().UnixMicro())

	out := make([][]byte, len(nonces))
	for i := range nonces {
		r := Response{
			Midpoint: midpoint,
			Radius:   o.Radius,
			Root:     root,
			Index:    uint32(i),
			Path:     paths[i],
			MinT:     o.MinT,
			MaxT:     o.MaxT,
		}

		if o.Mutate != nil {
			o.Mutate(&r)
		}

		if out[i], err = o.encode(r); err != nil {
			return nil, err
		}
	}

	return out, nil
}

// Handle answers a single encoded request.  It returns nil if the request
// cannot be understood, in which case a server stays silent.
func (o *Responder) Handle(req []byte) []byte {
	msg, err := wire.Decode(req)
	if err != nil {
		return nil
	}

	nonce, ok := msg.Get(wire.TagNONC)
	if !ok {
		return nil
	}

	res, err := o.Respond([][]byte{nonce})
	if err != nil {
		return nil
	}

	return res[0]
}

func (o *Responder) encode(r Response) ([]byte, error) {
	dele, err := encodeFields(
		field{wire.TagPUBK, o.OnlineKey.Public().(ed25519.PublicKey)},
		field{wire.TagMINT, le64(r.MinT)},
		field{wire.TagMAXT, le64(r.MaxT)},
	)
	if err != nil {
		return nil, err
	}

	cert, err := encodeFields(
		field{wire.TagSIG, sign(o.RootKey, protocol.CertificateContext, dele)},
		field{wire.TagDELE, dele},
	)
	if err != nil {
		return nil, err
	}

	srep, err := encodeFields(
		field{wire.TagRADI, le32(r.Radius)},
		field{wire.TagMIDP, le64(r.Midpoint)},
		field{wire.TagROOT, r.Root},
	)
	if err != nil {
		return nil, err
	}

	return encodeFields(
		field{wire.TagSIG, sign(o.OnlineKey, protocol.SignedResponseContext, srep)},
		field{wire.TagPATH, r.Path},
		field{wire.TagSREP, srep},
		field{wire.TagCERT, cert},
		field{wire.TagINDX, le32(r.Index)},
	)
}

// Rewrite returns a copy of the encoded message raw in which the value found
// by following path through nested messages is replaced by fn's result.  It
// is meant for corrupting responses after they have been signed.
func Rewrite(raw []byte, path []wire.Tag, fn func(v []byte) []byte) ([]byte, error) {
	if len(path) == 0 {
		return nil, errors.New("empty path")
	}

	msg, err := wire.Decode(raw)
	if err != nil {
		return nil, err
	}

	if _, ok := msg.Get(path[0]); !ok {
		return nil, fmt.Errorf("tag %s not found", path[0])
	}

	out := wire.NewMessage()
	for _, t := range msg.Tags() {
		v, _ := msg.Get(t)

		if t == path[0] {
			if len(path) == 1 {
				v = fn(append([]byte(nil), v...))
			} else if v, err = Rewrite(v, path[1:], fn); err != nil {
				return nil, fmt.Errorf("%s: %w", t, err)
			}
		}

		if err := out.Add(t, v); err != nil {
			return nil, err
		}
	}

	return out.Encode()
}

// FlipByte returns an fn for Rewrite that inverts the bits of the i-th byte
func FlipByte(i int) func([]byte) []byte {
	return func(v []byte) []byte {
		v[i] ^= 0xff
		return v
	}
}

// Remove returns a copy of raw without the value found by following path
func Remove(raw []byte, path []wire.Tag) ([]byte, error) {
	if len(path) == 0 {
		return nil, errors.New("empty path")
	}

	msg, err := wire.Decode(raw)
	if err != nil {
		return nil, err
	}

	out := wire.NewMessage()
	for _, t := range msg.Tags() {
		v, _ := msg.Get(t)

		if t == path[0] {
			if len(path) == 1 {
				continue
			}
			if v, err = Remove(v, path[1:]); err != nil {
				return nil, fmt.Errorf("%s: %w", t, err)
			}
		}

		if err := out.Add(t, v); err != nil {
			return nil, err
		}
	}

	return out.Encode()
}

type field struct {
	tag   wire.Tag
	value []byte
}

func encodeFields(fields ...field) ([]byte, error) {
	m := wire.NewMessage()
	for _, f := range fields {
		if err := m.Add(f.tag, f.value); err != nil {
			return nil, err
		}
	}
	return m.Encode()
}

func sign(key ed25519.PrivateKey, context string, data []byte) []byte {
	msg := append([]byte(context), data...)
	return ed25519.Sign(key, msg)
}

func le64(v uint64) []byte {
	return binary.LittleEndian.AppendUint64(nil, v)
}

func le32(v uint32) []byte {
	return binary.LittleEndian.AppendUint32(nil, v)
}
