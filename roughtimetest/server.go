// Copyright 2024 Contributors to the Veraison project.
// SPDX-License-Identifier: Apache-2.0

package roughtimetest

import (
	"testing"

	"github.com/veraison/roughstamp/common"
)

// NewServer serves r over UDP on the loopback interface for the duration of
// the test and returns the server's address.
func NewServer(t testing.TB, r *Responder) string {
	t.Helper()

	addr, closer := common.NewTestingUDPServer(r.Handle)
	t.Cleanup(closer)

	return addr
}
