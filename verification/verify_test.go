// Copyright 2024 Contributors to the Veraison project.
// SPDX-License-Identifier: Apache-2.0

package verification

import (
	"bytes"
	"crypto/ed25519"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/veraison/roughstamp/protocol"
	"github.com/veraison/roughstamp/roughtimetest"
	"github.com/veraison/roughstamp/wire"
)

var testNow = time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)

func testNonces(n int) [][]byte {
	nonces := make([][]byte, n)
	for i := range nonces {
		var d [protocol.DigestSize]byte
		d[0] = byte(i)
		d[31] = 0x5a
		nonce := protocol.ExpandDigest(d)
		nonces[i] = nonce[:]
	}
	return nonces
}

func newTestResponder(t *testing.T, v protocol.Version) *roughtimetest.Responder {
	r, err := roughtimetest.NewResponder(v)
	require.NoError(t, err)

	r.Now = func() time.Time { return testNow }
	r.MinT = uint64(testNow.Add(-time.Minute).UnixMicro())
	r.MaxT = uint64(testNow.Add(time.Minute).UnixMicro())
	r.Radius = 250000

	return r
}

// respond returns the response for the nonce at index idx in a batch of n
func respond(t *testing.T, r *roughtimetest.Responder, n, idx int) ([]byte, []byte) {
	nonces := testNonces(n)

	res, err := r.Respond(nonces)
	require.NoError(t, err)

	return res[idx], nonces[idx]
}

func TestVerify_ok(t *testing.T) {
	for _, v := range []protocol.Version{protocol.VersionClassic, protocol.VersionRFC} {
		for _, n := range []int{1, 2, 5, 8} {
			r := newTestResponder(t, v)

			for idx := 0; idx < n; idx++ {
				raw, nonce := respond(t, r, n, idx)

				res, err := Verify(raw, v, r.PublicKey(), nonce)
				require.NoError(t, err, "version %s, batch %d, index %d", v, n, idx)

				assert.True(t, res.Verified)
				assert.Equal(t, uint64(testNow.UnixMicro()), res.Midpoint)
				assert.Equal(t, uint32(250000), res.Radius)
				assert.True(t, testNow.Equal(res.Time()))
				assert.Equal(t, 250*time.Millisecond, res.Uncertainty())
			}
		}
	}
}

func TestVerify_observation_mode(t *testing.T) {
	r := newTestResponder(t, protocol.VersionClassic)
	raw, nonce := respond(t, r, 3, 1)

	authenticated, err := Verify(raw, protocol.VersionClassic, r.PublicKey(), nonce)
	require.NoError(t, err)

	observed, err := Verify(raw, protocol.VersionClassic, nil, nonce)
	require.NoError(t, err)

	assert.False(t, observed.Verified)
	assert.Equal(t, authenticated.Midpoint, observed.Midpoint)
	assert.Equal(t, authenticated.Radius, observed.Radius)
}

func TestVerify_observation_mode_skips_checks(t *testing.T) {
	r := newTestResponder(t, protocol.VersionClassic)
	raw, nonce := respond(t, r, 1, 0)

	raw, err := roughtimetest.Rewrite(raw, []wire.Tag{wire.TagSIG}, roughtimetest.FlipByte(0))
	require.NoError(t, err)

	res, err := Verify(raw, protocol.VersionClassic, nil, nonce)
	require.NoError(t, err)
	assert.False(t, res.Verified)
}

func TestVerify_check_failures(t *testing.T) {
	tvs := []struct {
		desc     string
		path     []wire.Tag
		check    Check
		sentinel error
	}{
		{
			desc:     "response signature",
			path:     []wire.Tag{wire.TagSIG},
			check:    CheckResponse,
			sentinel: ErrSignatureInvalid,
		},
		{
			desc:     "delegation signature",
			path:     []wire.Tag{wire.TagCERT, wire.TagSIG},
			check:    CheckDelegation,
			sentinel: ErrSignatureInvalid,
		},
		{
			desc:     "delegated key",
			path:     []wire.Tag{wire.TagCERT, wire.TagDELE, wire.TagPUBK},
			check:    CheckDelegation,
			sentinel: ErrSignatureInvalid,
		},
		{
			desc:     "signed root",
			path:     []wire.Tag{wire.TagSREP, wire.TagROOT},
			check:    CheckResponse,
			sentinel: ErrSignatureInvalid,
		},
		{
			desc:     "merkle path",
			path:     []wire.Tag{wire.TagPATH},
			check:    CheckMerkle,
			sentinel: ErrMerkleMismatch,
		},
	}

	for _, tv := range tvs {
		t.Run(tv.desc, func(t *testing.T) {
			r := newTestResponder(t, protocol.VersionClassic)
			raw, nonce := respond(t, r, 4, 2)

			for _, i := range []int{0, 17, 31} {
				tampered, err := roughtimetest.Rewrite(raw, tv.path, roughtimetest.FlipByte(i))
				require.NoError(t, err)

				_, err = Verify(tampered, protocol.VersionClassic, r.PublicKey(), nonce)
				require.Error(t, err)

				var ce *CheckError
				require.True(t, errors.As(err, &ce), "%v", err)
				assert.Equal(t, tv.check, ce.Check)
				assert.ErrorIs(t, err, tv.sentinel)
			}
		})
	}
}

func TestVerify_wrong_trust_anchor(t *testing.T) {
	r := newTestResponder(t, protocol.VersionClassic)
	other := newTestResponder(t, protocol.VersionClassic)
	raw, nonce := respond(t, r, 1, 0)

	_, err := Verify(raw, protocol.VersionClassic, other.PublicKey(), nonce)
	assert.EqualError(
		t, err,
		"delegation signature check failed: invalid signature: signature on DELE does not verify, response may not be authentic",
	)
}

func TestVerify_validly_signed_wrong_root(t *testing.T) {
	r := newTestResponder(t, protocol.VersionRFC)
	r.Mutate = func(res *roughtimetest.Response) {
		res.Root = bytes.Clone(res.Root)
		res.Root[0] ^= 0x01
	}
	raw, nonce := respond(t, r, 2, 1)

	_, err := Verify(raw, protocol.VersionRFC, r.PublicKey(), nonce)
	assert.ErrorIs(t, err, ErrMerkleMismatch)
	assert.EqualError(
		t, err,
		"merkle inclusion check failed: merkle root mismatch: nonce is not present in the response's merkle tree (index 1)",
	)
}

func TestVerify_wrong_nonce(t *testing.T) {
	r := newTestResponder(t, protocol.VersionClassic)
	raw, _ := respond(t, r, 2, 0)
	other := testNonces(3)[2]

	_, err := Verify(raw, protocol.VersionClassic, r.PublicKey(), other)
	assert.ErrorIs(t, err, ErrMerkleMismatch)
}

func TestVerify_wrong_version(t *testing.T) {
	r := newTestResponder(t, protocol.VersionClassic)
	raw, nonce := respond(t, r, 2, 0)

	// a 64 byte classic sibling reads as two 32 byte RFC siblings
	_, err := Verify(raw, protocol.VersionRFC, r.PublicKey(), nonce)
	assert.ErrorIs(t, err, ErrMerkleMismatch)
}

func TestVerify_malformed_path(t *testing.T) {
	r := newTestResponder(t, protocol.VersionClassic)
	r.Mutate = func(res *roughtimetest.Response) {
		res.Path = append(res.Path, 0, 0, 0, 0)
	}
	raw, nonce := respond(t, r, 2, 0)

	_, err := Verify(raw, protocol.VersionClassic, r.PublicKey(), nonce)

	var ce *CheckError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, CheckMerkle, ce.Check)
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestVerify_midpoint_outside_window(t *testing.T) {
	tvs := []struct {
		desc     string
		midpoint time.Time
		expected string
	}{
		{
			desc:     "before",
			midpoint: testNow.Add(-time.Hour),
			expected: "lies before delegation span",
		},
		{
			desc:     "after",
			midpoint: testNow.Add(time.Hour),
			expected: "lies after delegation span",
		},
	}

	for _, tv := range tvs {
		t.Run(tv.desc, func(t *testing.T) {
			r := newTestResponder(t, protocol.VersionClassic)
			r.Now = func() time.Time { return tv.midpoint }
			raw, nonce := respond(t, r, 1, 0)

			_, err := Verify(raw, protocol.VersionClassic, r.PublicKey(), nonce)
			assert.ErrorIs(t, err, ErrTimeWindowViolation)
			assert.ErrorContains(t, err, tv.expected)

			var ce *CheckError
			require.True(t, errors.As(err, &ce))
			assert.Equal(t, CheckMidpoint, ce.Check)
		})
	}
}

func TestVerify_midpoint_window_is_inclusive(t *testing.T) {
	r := newTestResponder(t, protocol.VersionClassic)

	for _, bound := range []uint64{r.MinT, r.MaxT} {
		b := bound
		r.Mutate = func(res *roughtimetest.Response) { res.Midpoint = b }
		raw, nonce := respond(t, r, 1, 0)

		res, err := Verify(raw, protocol.VersionClassic, r.PublicKey(), nonce)
		require.NoError(t, err)
		assert.True(t, res.Verified)
		assert.Equal(t, b, res.Midpoint)
	}
}

func TestVerify_stamp_file_round_trip(t *testing.T) {
	r := newTestResponder(t, protocol.VersionClassic)
	raw, nonce := respond(t, r, 3, 2)

	direct, err := Verify(raw, protocol.VersionClassic, r.PublicKey(), nonce)
	require.NoError(t, err)

	fn := filepath.Join(t.TempDir(), "stamp")
	require.NoError(t, os.WriteFile(fn, raw, 0o600))
	stored, err := os.ReadFile(fn)
	require.NoError(t, err)

	reparsed, err := Verify(stored, protocol.VersionClassic, r.PublicKey(), nonce)
	require.NoError(t, err)
	assert.Equal(t, direct, reparsed)
}

func TestNewResponseContext_missing_tags(t *testing.T) {
	tvs := []struct {
		path     []wire.Tag
		expected string
	}{
		{[]wire.Tag{wire.TagSREP}, "malformed response: missing SREP"},
		{[]wire.Tag{wire.TagCERT}, "malformed response: missing CERT"},
		{[]wire.Tag{wire.TagCERT, wire.TagDELE}, "malformed response: missing DELE"},
		{[]wire.Tag{wire.TagSIG}, `malformed response: missing SIG\x00 in response`},
		{[]wire.Tag{wire.TagPATH}, "malformed response: missing PATH in response"},
		{[]wire.Tag{wire.TagINDX}, "malformed response: missing INDX in response"},
		{[]wire.Tag{wire.TagSREP, wire.TagMIDP}, "malformed response: missing MIDP in SREP"},
		{[]wire.Tag{wire.TagSREP, wire.TagRADI}, "malformed response: missing RADI in SREP"},
		{[]wire.Tag{wire.TagSREP, wire.TagROOT}, "malformed response: missing ROOT in SREP"},
		{[]wire.Tag{wire.TagCERT, wire.TagSIG}, `malformed response: missing SIG\x00 in CERT`},
		{[]wire.Tag{wire.TagCERT, wire.TagDELE, wire.TagPUBK}, "malformed response: missing PUBK in DELE"},
		{[]wire.Tag{wire.TagCERT, wire.TagDELE, wire.TagMINT}, "malformed response: missing MINT in DELE"},
		{[]wire.Tag{wire.TagCERT, wire.TagDELE, wire.TagMAXT}, "malformed response: missing MAXT in DELE"},
	}

	r := newTestResponder(t, protocol.VersionClassic)
	raw, nonce := respond(t, r, 2, 0)

	for _, tv := range tvs {
		t.Run(tv.expected, func(t *testing.T) {
			stripped, err := roughtimetest.Remove(raw, tv.path)
			require.NoError(t, err)

			// no trust anchor: decoding must fail even in observation mode
			_, err = NewResponseContext(stripped, protocol.VersionClassic, nil, nonce)
			assert.ErrorIs(t, err, ErrMalformedResponse)
			assert.EqualError(t, err, tv.expected)
		})
	}
}

func TestNewResponseContext_bad_field_width(t *testing.T) {
	r := newTestResponder(t, protocol.VersionClassic)
	raw, nonce := respond(t, r, 1, 0)

	tampered, err := roughtimetest.Rewrite(
		raw,
		[]wire.Tag{wire.TagSREP, wire.TagMIDP},
		func(v []byte) []byte { return v[:4] },
	)
	require.NoError(t, err)

	_, err = NewResponseContext(tampered, protocol.VersionClassic, nil, nonce)
	assert.EqualError(t, err, "malformed response: MIDP in SREP is 4 bytes long, expecting 8")
}

func TestNewResponseContext_undecodable(t *testing.T) {
	_, err := NewResponseContext([]byte{1, 2, 3}, protocol.VersionClassic, nil, nil)
	assert.ErrorIs(t, err, ErrMalformedResponse)

	r := newTestResponder(t, protocol.VersionClassic)
	raw, nonce := respond(t, r, 1, 0)

	tampered, err := roughtimetest.Rewrite(
		raw,
		[]wire.Tag{wire.TagCERT},
		func(v []byte) []byte { return []byte{0xff, 0xff, 0xff, 0xff} },
	)
	require.NoError(t, err)

	_, err = NewResponseContext(tampered, protocol.VersionClassic, nil, nonce)
	assert.ErrorIs(t, err, ErrMalformedResponse)
	assert.ErrorContains(t, err, "CERT: invalid message")
}

func TestNewResponseContext_caller_errors(t *testing.T) {
	r := newTestResponder(t, protocol.VersionClassic)
	raw, nonce := respond(t, r, 1, 0)

	_, err := NewResponseContext(raw, protocol.Version("draft"), nil, nonce)
	assert.ErrorIs(t, err, protocol.ErrCallerInput)

	_, err = NewResponseContext(raw, protocol.VersionClassic, ed25519.PublicKey{1, 2, 3}, nonce)
	assert.ErrorIs(t, err, protocol.ErrCallerInput)
}

func TestResponseContext_accessors(t *testing.T) {
	r := newTestResponder(t, protocol.VersionRFC)
	raw, nonce := respond(t, r, 4, 3)

	ctx, err := NewResponseContext(raw, protocol.VersionRFC, r.PublicKey(), nonce)
	require.NoError(t, err)

	assert.Equal(t, protocol.VersionRFC, ctx.Version())
	assert.Equal(t, uint32(3), ctx.Index())

	minT, maxT := ctx.DelegationWindow()
	assert.Equal(t, r.MinT, minT)
	assert.Equal(t, r.MaxT, maxT)
}
