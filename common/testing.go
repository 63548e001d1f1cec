// Copyright 2021 Contributors to the Veraison project.
// SPDX-License-Identifier: Apache-2.0

package common

import (
	"net"
)

// NewTestingUDPServer starts a UDP server on the loopback interface that
// answers each datagram with whatever handler returns (nothing, if handler
// returns nil).  The server's address and its shutdown switch are returned.
func NewTestingUDPServer(handler func(req []byte) []byte) (addr string, closerFn func()) {
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		panic("common: failed to listen on a port: " + err.Error())
	}

	done := make(chan struct{})

	go func() {
		defer close(done)

		buf := make([]byte, 65536)
		for {
			n, peer, err := conn.ReadFrom(buf)
			if err != nil {
				return
			}

			req := append([]byte(nil), buf[:n]...)
			if res := handler(req); res != nil {
				_, _ = conn.WriteTo(res, peer)
			}
		}
	}()

	addr = conn.LocalAddr().String()
	closerFn = func() {
		conn.Close()
		<-done
	}

	return
}
