/*
DESCRIPTION
  nal.go provides NAL unit framing helpers: start code emission and
  emulation prevention byte insertion.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>
  Dan Kortschak <dan@ausocean.org>

LICENSE
  Copyright (C) 2025 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package codecutil

// StartCode is the 4-byte Annex B start code prefix used ahead of every
// NAL unit emitted by the packed header writers.
var StartCode = []byte{0x00, 0x00, 0x00, 0x01}

// EmulationPrevention returns rbsp with emulation prevention three
// bytes inserted wherever the payload would otherwise contain a start
// code or an escape sequence.
func EmulationPrevention(rbsp []byte) []byte {
	out := make([]byte, 0, len(rbsp)+len(rbsp)/16)
	zeros := 0
	for _, b := range rbsp {
		if zeros == 2 && b <= 0x03 {
			out = append(out, 0x03)
			zeros = 0
		}
		if b == 0x00 {
			zeros++
		} else {
			zeros = 0
		}
		out = append(out, b)
	}
	return out
}

// NALUnit frames an RBSP as an Annex B NAL unit: start code, the given
// header bytes, then the emulation-prevented payload.
func NALUnit(header, rbsp []byte) []byte {
	out := make([]byte, 0, len(StartCode)+len(header)+len(rbsp)+8)
	out = append(out, StartCode...)
	out = append(out, header...)
	return append(out, EmulationPrevention(rbsp)...)
}
