/*
DESCRIPTION
  golomb.go provides a writer for raw byte sequence payload syntax
  elements: fixed width bit fields, Exp-Golomb codes and RBSP trailing
  bits, as used by the H.264 and H.265 header writers.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>
  Trek Hopton <trek@ausocean.org>

LICENSE
  Copyright (C) 2025 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package codecutil provides utilities shared by the h264 and h265
// packages for writing NAL units and their raw byte sequence payloads.
package codecutil

import (
	"bytes"
	"math/bits"

	"github.com/icza/bitio"
)

// RBSPWriter writes raw byte sequence payload syntax elements to an
// in-memory buffer. Errors are sticky; they are reported once by Bytes.
type RBSPWriter struct {
	buf *bytes.Buffer
	bw  *bitio.Writer
}

// NewRBSPWriter returns an RBSPWriter ready for use.
func NewRBSPWriter() *RBSPWriter {
	b := new(bytes.Buffer)
	return &RBSPWriter{buf: b, bw: bitio.NewWriter(b)}
}

// WriteBits writes the n least significant bits of v, most significant
// bit first.
func (w *RBSPWriter) WriteBits(v uint64, n uint8) { w.bw.TryWriteBits(v, n) }

// WriteBool writes a single flag bit.
func (w *RBSPWriter) WriteBool(v bool) { w.bw.TryWriteBool(v) }

// WriteByte writes a byte-aligned or unaligned octet.
func (w *RBSPWriter) WriteByte(v byte) { w.bw.TryWriteBits(uint64(v), 8) }

// WriteBytes writes a run of octets.
func (w *RBSPWriter) WriteBytes(p []byte) {
	for _, b := range p {
		w.bw.TryWriteBits(uint64(b), 8)
	}
}

// WriteUE writes v as an unsigned Exp-Golomb code, ue(v) in the
// specifications' descriptor notation.
func (w *RBSPWriter) WriteUE(v uint32) {
	n := uint8(bits.Len32(v + 1))
	w.bw.TryWriteBits(uint64(v+1), 2*n-1)
}

// WriteSE writes v as a signed Exp-Golomb code, se(v).
func (w *RBSPWriter) WriteSE(v int32) {
	if v > 0 {
		w.WriteUE(uint32(2*v - 1))
		return
	}
	w.WriteUE(uint32(-2 * v))
}

// WriteTrailingBits writes the rbsp_stop_one_bit and zero-pads to the
// next byte boundary.
func (w *RBSPWriter) WriteTrailingBits() {
	w.bw.TryWriteBool(true)
	w.bw.TryAlign()
}

// Bytes byte-aligns the stream and returns the accumulated payload.
func (w *RBSPWriter) Bytes() ([]byte, error) {
	w.bw.TryAlign()
	if w.bw.TryError != nil {
		return nil, w.bw.TryError
	}
	return w.buf.Bytes(), nil
}
