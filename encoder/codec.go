/*
DESCRIPTION
  codec.go defines the codec operation set the generic encoder core is
  parameterized over. The h264 and h265 files provide the two
  implementations.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2025 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package encoder

import "github.com/ausocean/vkvideo/vulkan"

// codecOps is the codec specific capability set of the encoder core.
type codecOps interface {
	// name returns the codec name for logging.
	name() string

	// operation returns the video codec operation of the profile.
	operation() vulkan.VideoCodecOperation

	// profileIdc returns the codec standard profile identifier.
	profileIdc() uint32

	// stdHeaderName and stdHeaderVersion identify the codec standard
	// headers this build was written against.
	stdHeaderName() string
	stdHeaderVersion() vulkan.Version

	// levelName returns the selected level for logging.
	levelName() string

	// sessionParamsAddInfo returns the parameter set add structure
	// for the session parameters object.
	sessionParamsAddInfo() any

	// headersGetInfo selects the packed parameter sets to read back
	// from the session parameters object.
	headersGetInfo() *vulkan.VideoSessionParametersGetInfo

	// pictureInfo builds the codec picture structure for one encode
	// of the frame at index id with the chosen reference lists.
	pictureInfo(e *Encoder, id int, list0, list1 []int) any

	// referenceInfo builds the codec DPB slot structure for a frame.
	referenceInfo(f *FrameRecord) any

	// rcLayer builds the codec rate control layer structure.
	rcLayer() any

	// writeAUD returns an access unit delimiter for the slice type.
	writeAUD(t SliceType) ([]byte, error)

	// writeSEI returns a caption SEI NAL for the given CEA-708
	// triplets.
	writeSEI(cc []byte) ([]byte, error)
}

// audPicType maps a slice type to the AUD primary picture type of
// both codecs: 0 for I, 1 for P, 2 for B access units.
func audPicType(t SliceType) uint8 {
	switch t {
	case SliceP:
		return 1
	case SliceB:
		return 2
	default:
		return 0
	}
}
