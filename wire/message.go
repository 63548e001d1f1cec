// Copyright 2024 Contributors to the Veraison project.
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
)

// ErrInvalidMessage is wrapped by every error returned by Decode
var ErrInvalidMessage = errors.New("invalid message")

// Message is an ordered set of tag/value pairs.  Entries are kept sorted by
// tag so that Encode always produces the canonical wire layout:
//
//	uint32 number of tags (N)
//	uint32 offsets[N-1]   value offsets, relative to the start of the values
//	uint32 tags[N]        strictly increasing
//	byte   values[...]
//
// All integers are little-endian and every offset is a multiple of four.
type Message struct {
	tags   []Tag
	values [][]byte
}

// NewMessage returns an empty Message
func NewMessage() *Message {
	return &Message{}
}

// Add inserts the value under tag.  A tag may only be added once.
func (m *Message) Add(tag Tag, value []byte) error {
	i := sort.Search(len(m.tags), func(i int) bool { return m.tags[i] >= tag })
	if i < len(m.tags) && m.tags[i] == tag {
		return fmt.Errorf("duplicate tag %s", tag)
	}

	m.tags = append(m.tags, 0)
	copy(m.tags[i+1:], m.tags[i:])
	m.tags[i] = tag

	m.values = append(m.values, nil)
	copy(m.values[i+1:], m.values[i:])
	m.values[i] = value

	return nil
}

// Get returns the value stored under tag, if any
func (m *Message) Get(tag Tag) ([]byte, bool) {
	i := sort.Search(len(m.tags), func(i int) bool { return m.tags[i] >= tag })
	if i < len(m.tags) && m.tags[i] == tag {
		return m.values[i], true
	}
	return nil, false
}

// Len returns the number of entries
func (m *Message) Len() int {
	return len(m.tags)
}

// Tags returns the tags in wire order
func (m *Message) Tags() []Tag {
	return append([]Tag(nil), m.tags...)
}

// EncodedLen returns the size of the encoded message in bytes, header
// included.
func (m *Message) EncodedLen() int {
	n := len(m.tags)
	if n == 0 {
		return 4
	}

	size := 8 * n
	for _, v := range m.values {
		size += len(v)
	}

	return size
}

// Encode serializes the message.  Every value must have a length that is a
// multiple of four, otherwise the offsets would be misaligned.
func (m *Message) Encode() ([]byte, error) {
	n := len(m.tags)

	buf := make([]byte, 0, m.EncodedLen())
	buf = binary.LittleEndian.AppendUint32(buf, uint32(n))

	offset := 0
	for i, v := range m.values {
		if len(v)%4 != 0 {
			return nil, fmt.Errorf("value of tag %s has length %d, not a multiple of 4", m.tags[i], len(v))
		}
		if i > 0 {
			buf = binary.LittleEndian.AppendUint32(buf, uint32(offset))
		}
		offset += len(v)
	}

	for _, t := range m.tags {
		buf = binary.LittleEndian.AppendUint32(buf, uint32(t))
	}

	for _, v := range m.values {
		buf = append(buf, v...)
	}

	return buf, nil
}

// Decode parses an encoded message.  The returned Message owns copies of the
// values and does not alias b.
func Decode(b []byte) (*Message, error) {
	if len(b) < 4 {
		return nil, fmt.Errorf("%w: %d bytes is too short", ErrInvalidMessage, len(b))
	}

	if len(b)%4 != 0 {
		return nil, fmt.Errorf("%w: length %d is not a multiple of 4", ErrInvalidMessage, len(b))
	}

	n := uint64(binary.LittleEndian.Uint32(b))
	if n == 0 {
		if len(b) != 4 {
			return nil, fmt.Errorf("%w: trailing bytes after empty message", ErrInvalidMessage)
		}
		return NewMessage(), nil
	}

	// 4 bytes for N, 4 for every offset after the first, 4 for every tag
	hdr := 8 * n
	if hdr > uint64(len(b)) {
		return nil, fmt.Errorf("%w: header for %d tags exceeds message length %d", ErrInvalidMessage, n, len(b))
	}

	values := b[hdr:]
	offsetsAt := b[4:]
	tagsAt := b[4+4*(n-1):]

	m := &Message{
		tags:   make([]Tag, n),
		values: make([][]byte, n),
	}

	start := uint32(0)
	for i := uint64(0); i < n; i++ {
		tag := Tag(binary.LittleEndian.Uint32(tagsAt[4*i:]))
		if i > 0 && tag <= m.tags[i-1] {
			return nil, fmt.Errorf("%w: tag %s is not strictly increasing", ErrInvalidMessage, tag)
		}

		end := uint32(len(values))
		if i+1 < n {
			end = binary.LittleEndian.Uint32(offsetsAt[4*i:])
			if end%4 != 0 {
				return nil, fmt.Errorf("%w: offset %d is not aligned", ErrInvalidMessage, end)
			}
			if end < start || end > uint32(len(values)) {
				return nil, fmt.Errorf("%w: offset %d out of range", ErrInvalidMessage, end)
			}
		}

		m.tags[i] = tag
		m.values[i] = bytes.Clone(values[start:end])
		start = end
	}

	return m, nil
}
