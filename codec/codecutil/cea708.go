/*
DESCRIPTION
  cea708.go provides construction of the registered user data body
  carrying CEA-708 closed captions per ATSC A/53, shared by the H.264
  and H.265 SEI writers.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2025 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package codecutil

import "github.com/pkg/errors"

// Registered user data constants for CEA-708 closed captions.
const (
	t35CountryCodeUSA  = 181
	t35ProviderATSC    = 0x0031
	atscUserDataTypeCC = 0x03
)

var atscIdentifier = []byte("GA94")

// CEA708Payload builds the itu_t_t35 registered user data body for the
// given cc_data triplets.
func CEA708Payload(ccData []byte) ([]byte, error) {
	if len(ccData) == 0 || len(ccData)%3 != 0 {
		return nil, errors.Errorf("invalid cc_data length %d", len(ccData))
	}
	ccCount := len(ccData) / 3
	if ccCount > 31 {
		return nil, errors.Errorf("cc_count %d exceeds field range", ccCount)
	}
	p := make([]byte, 0, 10+len(ccData))
	p = append(p, t35CountryCodeUSA)
	p = append(p, byte(t35ProviderATSC>>8), byte(t35ProviderATSC))
	p = append(p, atscIdentifier...)
	p = append(p, atscUserDataTypeCC)
	// process_em_data_flag, process_cc_data_flag set; additional_data_flag clear.
	p = append(p, 0xC0|byte(ccCount))
	p = append(p, 0xFF) // em_data
	p = append(p, ccData...)
	p = append(p, 0xFF) // marker_bits
	return p, nil
}

// SEIMessage wraps a single SEI payload as an RBSP: payload type and
// ff-escaped size, the payload, then trailing bits.
func SEIMessage(payloadType int, payload []byte) ([]byte, error) {
	w := NewRBSPWriter()
	t := payloadType
	for t >= 255 {
		w.WriteByte(0xFF)
		t -= 255
	}
	w.WriteByte(byte(t))
	size := len(payload)
	for size >= 255 {
		w.WriteByte(0xFF)
		size -= 255
	}
	w.WriteByte(byte(size))
	w.WriteBytes(payload)
	w.WriteTrailingBits()
	return w.Bytes()
}
