/*
DESCRIPTION
  nal.go provides writing of the packed header NAL units emitted by the
  encoder itself: access unit delimiters and CEA-708 caption SEI.

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

package h265

import (
	"github.com/pkg/errors"

	"github.com/ausocean/vkvideo/codec/codecutil"
)

// SEI payload types used by the encoder.
const seiTypeUserDataRegistered = 4

// WriteNALUnit frames an RBSP as an Annex B NAL unit with the given
// nal_unit_type and temporal id.
func WriteNALUnit(nalType, temporalID uint8, rbsp []byte) []byte {
	header := []byte{nalType << 1, temporalID + 1}
	return codecutil.NALUnit(header, rbsp)
}

// WriteAUD returns an access unit delimiter NAL for the given
// pic_type: 0 for I, 1 for P, 2 for B access units.
func WriteAUD(picType uint8) ([]byte, error) {
	w := codecutil.NewRBSPWriter()
	w.WriteBits(uint64(picType), 3)
	w.WriteTrailingBits()
	rbsp, err := w.Bytes()
	if err != nil {
		return nil, errors.Wrap(err, "could not write AUD payload")
	}
	return WriteNALUnit(NALTypeAUD, 0, rbsp), nil
}

// WriteCEA708SEI returns a prefix SEI NAL carrying the given CEA-708
// cc_data triplets as registered user data.
func WriteCEA708SEI(ccData []byte) ([]byte, error) {
	payload, err := codecutil.CEA708Payload(ccData)
	if err != nil {
		return nil, err
	}
	rbsp, err := codecutil.SEIMessage(seiTypeUserDataRegistered, payload)
	if err != nil {
		return nil, errors.Wrap(err, "could not write SEI payload")
	}
	return WriteNALUnit(NALTypePrefixSEI, 0, rbsp), nil
}
