// Copyright 2024 Contributors to the Veraison project.
// SPDX-License-Identifier: Apache-2.0

package common

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/veraison/roughstamp/protocol"
	"go.uber.org/zap/zaptest"
)

func TestNewClient(t *testing.T) {
	c := NewClient()

	assert.Equal(t, DefaultTimeout, c.Timeout)
	assert.Equal(t, DefaultBufferSize, c.BufferSize)
	assert.NotNil(t, c.Logger)
}

func TestClient_Exchange_ok(t *testing.T) {
	addr, teardown := NewTestingUDPServer(func(req []byte) []byte {
		res := append([]byte("echo:"), req...)
		return res
	})
	defer teardown()

	c := NewClient()
	c.Logger = zaptest.NewLogger(t)

	res, err := c.Exchange(context.Background(), addr, []byte("ping"))
	require.NoError(t, err)
	assert.Equal(t, []byte("echo:ping"), res)
}

func TestClient_Exchange_truncates_to_buffer(t *testing.T) {
	addr, teardown := NewTestingUDPServer(func(req []byte) []byte {
		return make([]byte, 100)
	})
	defer teardown()

	c := Client{BufferSize: 10}

	res, err := c.Exchange(context.Background(), addr, []byte("ping"))
	require.NoError(t, err)
	assert.Len(t, res, 10)
}

func TestClient_Exchange_timeout(t *testing.T) {
	addr, teardown := NewTestingUDPServer(func(req []byte) []byte {
		return nil
	})
	defer teardown()

	c := Client{Timeout: 50 * time.Millisecond}

	_, err := c.Exchange(context.Background(), addr, []byte("ping"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no response from")
}

func TestClient_Exchange_context_cancelled(t *testing.T) {
	addr, teardown := NewTestingUDPServer(func(req []byte) []byte {
		return nil
	})
	defer teardown()

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	c := Client{Timeout: 10 * time.Second}

	start := time.Now()
	_, err := c.Exchange(ctx, addr, []byte("ping"))
	assert.True(t, errors.Is(err, context.Canceled), "%v", err)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestClient_Exchange_context_deadline(t *testing.T) {
	addr, teardown := NewTestingUDPServer(func(req []byte) []byte {
		return nil
	})
	defer teardown()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	c := Client{Timeout: 10 * time.Second}

	_, err := c.Exchange(ctx, addr, []byte("ping"))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClient_Exchange_bad_address(t *testing.T) {
	c := NewClient()

	_, err := c.Exchange(context.Background(), "no port here", []byte("ping"))
	assert.ErrorIs(t, err, protocol.ErrCallerInput)
}
