// Copyright 2024 Contributors to the Veraison project.
// SPDX-License-Identifier: Apache-2.0

package verification

import (
	"crypto/ed25519"
	"encoding/binary"
	"fmt"

	"github.com/veraison/roughstamp/protocol"
	"github.com/veraison/roughstamp/wire"
)

// ResponseContext holds a decoded response together with everything needed
// to verify it.  It is built by NewResponseContext and is read-only
// afterwards.
type ResponseContext struct {
	version     protocol.Version
	trustAnchor ed25519.PublicKey
	nonce       []byte

	msg  *wire.Message
	srep *wire.Message
	cert *wire.Message
	dele *wire.Message

	midpoint uint64
	radius   uint32
	index    uint32
	minT     uint64
	maxT     uint64
}

// NewResponseContext decodes raw, the bytes received in reply to a request
// carrying nonce.  A nil trustAnchor selects observation mode: the time is
// reported but not authenticated.
//
// Decoding fails with ErrMalformedResponse if any required tag is missing at
// any nesting level, if a nested message does not decode, or if a fixed-width
// field has the wrong size.
func NewResponseContext(
	raw []byte,
	version protocol.Version,
	trustAnchor ed25519.PublicKey,
	nonce []byte,
) (*ResponseContext, error) {
	if err := version.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", protocol.ErrCallerInput, err)
	}

	if trustAnchor != nil && len(trustAnchor) != ed25519.PublicKeySize {
		return nil, fmt.Errorf(
			"%w: trust anchor is %d bytes long, expecting %d",
			protocol.ErrCallerInput, len(trustAnchor), ed25519.PublicKeySize,
		)
	}

	ctx := ResponseContext{
		version:     version,
		trustAnchor: trustAnchor,
		nonce:       nonce,
	}

	var err error

	if ctx.msg, err = wire.Decode(raw); err != nil {
		return nil, fmt.Errorf("%w: response: %v", ErrMalformedResponse, err)
	}

	if ctx.srep, err = decodeNested(ctx.msg, wire.TagSREP); err != nil {
		return nil, err
	}

	if ctx.cert, err = decodeNested(ctx.msg, wire.TagCERT); err != nil {
		return nil, err
	}

	if ctx.dele, err = decodeNested(ctx.cert, wire.TagDELE); err != nil {
		return nil, err
	}

	if err = ctx.checkRequired(); err != nil {
		return nil, err
	}

	ctx.midpoint = binary.LittleEndian.Uint64(ctx.mustGet(ctx.srep, wire.TagMIDP))
	ctx.radius = binary.LittleEndian.Uint32(ctx.mustGet(ctx.srep, wire.TagRADI))
	ctx.index = binary.LittleEndian.Uint32(ctx.mustGet(ctx.msg, wire.TagINDX))
	ctx.minT = binary.LittleEndian.Uint64(ctx.mustGet(ctx.dele, wire.TagMINT))
	ctx.maxT = binary.LittleEndian.Uint64(ctx.mustGet(ctx.dele, wire.TagMAXT))

	return &ctx, nil
}

// Version returns the protocol version the context was decoded for
func (o *ResponseContext) Version() protocol.Version {
	return o.version
}

// Index returns the position of the nonce among the leaves of the Merkle tree
func (o *ResponseContext) Index() uint32 {
	return o.index
}

// DelegationWindow returns the MINT and MAXT bounds of the delegated key
func (o *ResponseContext) DelegationWindow() (uint64, uint64) {
	return o.minT, o.maxT
}

func decodeNested(parent *wire.Message, tag wire.Tag) (*wire.Message, error) {
	b, ok := parent.Get(tag)
	if !ok {
		return nil, fmt.Errorf("%w: missing %s", ErrMalformedResponse, tag)
	}

	m, err := wire.Decode(b)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedResponse, tag, err)
	}

	return m, nil
}

type requiredField struct {
	where string
	tag   wire.Tag
	size  int // 0 means any size
}

func (o *ResponseContext) checkRequired() error {
	groups := []struct {
		msg    *wire.Message
		fields []requiredField
	}{
		{o.msg, []requiredField{
			{"response", wire.TagSIG, ed25519.SignatureSize},
			{"response", wire.TagPATH, 0},
			{"response", wire.TagINDX, 4},
		}},
		{o.srep, []requiredField{
			{"SREP", wire.TagRADI, 4},
			{"SREP", wire.TagMIDP, 8},
			{"SREP", wire.TagROOT, 0},
		}},
		{o.cert, []requiredField{
			{"CERT", wire.TagSIG, ed25519.SignatureSize},
		}},
		{o.dele, []requiredField{
			{"DELE", wire.TagPUBK, ed25519.PublicKeySize},
			{"DELE", wire.TagMINT, 8},
			{"DELE", wire.TagMAXT, 8},
		}},
	}

	for _, g := range groups {
		for _, f := range g.fields {
			v, ok := g.msg.Get(f.tag)
			if !ok {
				return fmt.Errorf("%w: missing %s in %s", ErrMalformedResponse, f.tag, f.where)
			}
			if f.size != 0 && len(v) != f.size {
				return fmt.Errorf(
					"%w: %s in %s is %d bytes long, expecting %d",
					ErrMalformedResponse, f.tag, f.where, len(v), f.size,
				)
			}
		}
	}

	return nil
}

// mustGet is only called for tags vetted by checkRequired
func (o *ResponseContext) mustGet(m *wire.Message, tag wire.Tag) []byte {
	v, _ := m.Get(tag)
	return v
}
