// Copyright 2024 Contributors to the Veraison project.
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// Tag is a four byte message key. Its numeric value is the little-endian
// interpretation of the four bytes, which also defines the order in which tags
// appear on the wire.
type Tag uint32

func makeTag(s string) Tag {
	if len(s) != 4 {
		panic(fmt.Sprintf("tag %q is not four bytes long", s))
	}
	return Tag(binary.LittleEndian.Uint32([]byte(s)))
}

// Tags understood by the client
var (
	TagCERT = makeTag("CERT")
	TagDELE = makeTag("DELE")
	TagINDX = makeTag("INDX")
	TagMAXT = makeTag("MAXT")
	TagMIDP = makeTag("MIDP")
	TagMINT = makeTag("MINT")
	TagNONC = makeTag("NONC")
	TagPAD  = makeTag("PAD\xff")
	TagPATH = makeTag("PATH")
	TagPUBK = makeTag("PUBK")
	TagRADI = makeTag("RADI")
	TagROOT = makeTag("ROOT")
	TagSIG  = makeTag("SIG\x00")
	TagSREP = makeTag("SREP")
)

// Bytes returns the four wire bytes of the tag.
func (t Tag) Bytes() []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, uint32(t))
	return b
}

// String renders printable bytes as-is and everything else as a \x escape,
// e.g. "SIG\x00".
func (t Tag) String() string {
	var sb strings.Builder
	for _, c := range t.Bytes() {
		if c >= 0x20 && c < 0x7f {
			sb.WriteByte(c)
		} else {
			fmt.Fprintf(&sb, `\x%02x`, c)
		}
	}
	return sb.String()
}
