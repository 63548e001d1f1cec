// Copyright 2024 Contributors to the Veraison project.
// SPDX-License-Identifier: Apache-2.0

package verification

import (
	"fmt"

	"github.com/veraison/roughstamp/protocol"
	"github.com/veraison/roughstamp/wire"
)

// BuildRequest returns the encoded request frame carrying nonce.  The frame is
// padded with zeroes up to protocol.MinRequestSize.
func BuildRequest(nonce []byte) ([]byte, error) {
	// size the message with an empty PAD so that the PAD tag and its offset
	// are part of the measurement
	probe := wire.NewMessage()
	if err := addRequestFields(probe, nonce, nil); err != nil {
		return nil, err
	}

	padLen := protocol.MinRequestSize - probe.EncodedLen()
	if padLen < 0 {
		padLen = 0
	}

	msg := wire.NewMessage()
	if err := addRequestFields(msg, nonce, make([]byte, padLen)); err != nil {
		return nil, err
	}

	req, err := msg.Encode()
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	return req, nil
}

func addRequestFields(msg *wire.Message, nonce, padding []byte) error {
	if err := msg.Add(wire.TagNONC, nonce); err != nil {
		return err
	}
	return msg.Add(wire.TagPAD, padding)
}
