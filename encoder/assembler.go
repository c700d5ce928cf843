/*
DESCRIPTION
  assembler.go provides the bitstream assembler stitching the packed
  headers written on the CPU with the slice payload written by the GPU
  into the final compressed frame.

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

package encoder

import "fmt"

// assemble returns the complete compressed frame: an AUD when
// configured, the session parameter sets ahead of every sync point, a
// caption SEI when the frame carries caption data, then the GPU
// written slice bytes.
func (e *Encoder) assemble(f *FrameRecord, slice []byte) ([]byte, error) {
	var prefix []byte

	if e.cfg.AUD {
		aud, err := e.ops.writeAUD(f.SliceType)
		if err != nil {
			return nil, fmt.Errorf("could not write AUD: %w", err)
		}
		prefix = append(prefix, aud...)
	}

	if f.SyncPoint {
		prefix = append(prefix, e.headerBytes...)
	}

	if e.cfg.CCInsert && len(f.CCData) != 0 {
		sei, err := e.ops.writeSEI(f.CCData)
		if err != nil {
			return nil, fmt.Errorf("could not write caption SEI: %w", err)
		}
		prefix = append(prefix, sei...)
	}

	out := make([]byte, 0, len(prefix)+len(slice))
	out = append(out, prefix...)
	return append(out, slice...), nil
}
