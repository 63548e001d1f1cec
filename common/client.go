// Copyright 2021 Contributors to the Veraison project.
// SPDX-License-Identifier: Apache-2.0

package common

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/veraison/roughstamp/protocol"
	"go.uber.org/zap"
)

// Client holds configuration data associated with the UDP exchange
type Client struct {
	Timeout    time.Duration // how long to wait for the response
	BufferSize int           // size of the receive buffer
	Logger     *zap.Logger
}

// NewClient instantiates a new Client
func NewClient() *Client {
	return &Client{
		Timeout:    DefaultTimeout,
		BufferSize: DefaultBufferSize,
		Logger:     zap.NewNop(),
	}
}

// Exchange sends req to the server at address and waits for a single
// response datagram.  The wait is bounded by the client Timeout and by ctx,
// whichever expires first.  There are no retries.
func (c Client) Exchange(ctx context.Context, address string, req []byte) ([]byte, error) {
	log := c.Logger
	if log == nil {
		log = zap.NewNop()
	}

	raddr, err := net.ResolveUDPAddr("udp", address)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot resolve server address %q: %v", protocol.ErrCallerInput, address, err)
	}

	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", raddr, err)
	}
	defer conn.Close()

	deadline := time.Now().Add(c.timeout())
	ctxBound := false
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
		ctxBound = true
	}

	if err = conn.SetDeadline(deadline); err != nil {
		return nil, fmt.Errorf("setting deadline: %w", err)
	}

	// unblock the read as soon as ctx is cancelled
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Now())
	})
	defer stop()

	log.Debug("sending request",
		zap.String("server", raddr.String()),
		zap.Int("bytes", len(req)),
	)

	if _, err = conn.Write(req); err != nil {
		return nil, fmt.Errorf("sending request to %s: %w", raddr, err)
	}

	buf := make([]byte, c.bufferSize())

	n, err := conn.Read(buf)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("waiting for response from %s: %w", raddr, ctx.Err())
		}

		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			if ctxBound {
				return nil, fmt.Errorf("waiting for response from %s: %w", raddr, context.DeadlineExceeded)
			}
			return nil, fmt.Errorf("no response from %s within %s: %w", raddr, c.timeout(), err)
		}

		return nil, fmt.Errorf("receiving response from %s: %w", raddr, err)
	}

	log.Debug("received response",
		zap.String("server", raddr.String()),
		zap.Int("bytes", n),
	)

	return buf[:n], nil
}

func (c Client) timeout() time.Duration {
	if c.Timeout <= 0 {
		return DefaultTimeout
	}
	return c.Timeout
}

func (c Client) bufferSize() int {
	if c.BufferSize <= 0 {
		return DefaultBufferSize
	}
	return c.BufferSize
}
