// Copyright 2024 Contributors to the Veraison project.
// SPDX-License-Identifier: Apache-2.0

package stamp

import (
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"
	"net"

	"github.com/veraison/roughstamp/common"
	"github.com/veraison/roughstamp/protocol"
	"github.com/veraison/roughstamp/verification"
	"go.uber.org/zap"
)

// StampConfig holds the configuration for a time-stamping exchange
type StampConfig struct {
	Nonce       []byte            // the nonce to be time-stamped
	Server      string            // host:port of the time server
	TrustAnchor ed25519.PublicKey // long-term key of the server; nil means no verification
	Version     protocol.Version  // protocol version spoken by the server
	Client      *common.Client    // UDP client configuration
}

// Stamp is the outcome of a successful exchange: the raw response, which is
// what gets persisted, and the time extracted from it.
type Stamp struct {
	Raw    []byte
	Result *verification.Result
}

// SetNonce sets the nonce supplied by the user
func (cfg *StampConfig) SetNonce(nonce []byte) error {
	if len(nonce) != protocol.NonceSize {
		return fmt.Errorf("%w: nonce must be %d bytes long, got %d", protocol.ErrCallerInput, protocol.NonceSize, len(nonce))
	}
	cfg.Nonce = nonce
	return nil
}

// SetServer sets the address of the time server
func (cfg *StampConfig) SetServer(addr string) error {
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return fmt.Errorf("%w: malformed server address: %v", protocol.ErrCallerInput, err)
	}
	cfg.Server = addr
	return nil
}

// SetTrustAnchor sets the server's long-term public key, hex or base64
// encoded
func (cfg *StampConfig) SetTrustAnchor(s string) error {
	pub, err := protocol.ParsePublicKey(s)
	if err != nil {
		return err
	}
	cfg.TrustAnchor = pub
	return nil
}

// SetVersion sets the protocol version
func (cfg *StampConfig) SetVersion(v protocol.Version) error {
	if err := v.Validate(); err != nil {
		return err
	}
	cfg.Version = v
	return nil
}

// SetClient sets the UDP client configuration
func (cfg *StampConfig) SetClient(client *common.Client) error {
	if client == nil {
		return errors.New("no client supplied")
	}
	cfg.Client = client
	return nil
}

// Run sends the request, waits for the response and verifies it.  If a trust
// anchor is configured, a response that fails any check is an error and no
// Stamp is returned.
func (cfg StampConfig) Run(ctx context.Context) (*Stamp, error) {
	if err := cfg.check(); err != nil {
		return nil, err
	}

	// Attach the default client if the user hasn't supplied one
	if cfg.Client == nil {
		cfg.Client = common.NewClient()
	}

	if cfg.Version == "" {
		cfg.Version = protocol.VersionClassic
	}

	log := cfg.Client.Logger
	if log == nil {
		log = zap.NewNop()
	}

	req, err := verification.BuildRequest(cfg.Nonce)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	raw, err := cfg.Client.Exchange(ctx, cfg.Server, req)
	if err != nil {
		return nil, fmt.Errorf("time-stamping exchange failed: %w", err)
	}

	res, err := verification.Verify(raw, cfg.Version, cfg.TrustAnchor, cfg.Nonce)
	if err != nil {
		return nil, fmt.Errorf("response from %s: %w", cfg.Server, err)
	}

	log.Debug("response processed",
		zap.String("server", cfg.Server),
		zap.Bool("verified", res.Verified),
		zap.Uint64("midpoint", res.Midpoint),
		zap.Uint32("radius", res.Radius),
	)

	return &Stamp{Raw: raw, Result: res}, nil
}

// check makes sure that the config object is in good shape
func (cfg StampConfig) check() error {
	if len(cfg.Nonce) == 0 {
		return errors.New("bad configuration: missing nonce")
	}

	if cfg.Server == "" {
		return errors.New("bad configuration: no server address")
	}

	if cfg.Version != "" {
		if err := cfg.Version.Validate(); err != nil {
			return fmt.Errorf("bad configuration: %w", err)
		}
	}

	// It's OK if we don't have a client or a trust anchor at this point in
	// time.  The default client is instantiated later, and a missing trust
	// anchor means the time is reported unverified.

	return nil
}

// VerifyConfig holds the context needed to re-verify a stored stamp
type VerifyConfig struct {
	Nonce       []byte            // the nonce the stamp is expected to cover
	TrustAnchor ed25519.PublicKey // nil means no verification
	Version     protocol.Version
}

// Run verifies the raw stamp bytes
func (cfg VerifyConfig) Run(raw []byte) (*verification.Result, error) {
	if len(cfg.Nonce) == 0 {
		return nil, errors.New("bad configuration: missing nonce")
	}

	v := cfg.Version
	if v == "" {
		v = protocol.VersionClassic
	}

	return verification.Verify(raw, v, cfg.TrustAnchor, cfg.Nonce)
}

// RunFile reads the stamp stored at path and verifies it
func (cfg VerifyConfig) RunFile(path string) (*verification.Result, error) {
	raw, err := ReadFile(path)
	if err != nil {
		return nil, err
	}

	return cfg.Run(raw)
}
