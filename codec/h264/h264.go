/*
DESCRIPTION
  h264.go provides the H.264 constants and parameter set structures
  used to drive a Vulkan video encode session, following the layout of
  the codec standard headers.

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

// Package h264 provides H.264 level selection, parameter set
// construction and packed header writing for the Vulkan video encoder.
package h264

// MaxNumRefFrames is the size of the standard reference list arrays.
const MaxNumRefFrames = 16

// NoReferencePicture is the codec-sanctioned sentinel terminating the
// standard reference list arrays.
const NoReferencePicture = 0xFF

// Slice types as defined by table 7-6 in the specifications.
type SliceType uint8

const (
	SliceTypeP SliceType = 0
	SliceTypeB SliceType = 1
	SliceTypeI SliceType = 2
)

// Picture types used in per-picture encode info.
type PictureType uint8

const (
	PictureTypeP   PictureType = 0
	PictureTypeB   PictureType = 1
	PictureTypeI   PictureType = 2
	PictureTypeIDR PictureType = 5
)

// NAL unit types as defined by table 7-1 in the specifications.
const (
	NALTypeNonIDR = 1
	NALTypeIDR    = 5
	NALTypeSEI    = 6
	NALTypeSPS    = 7
	NALTypePPS    = 8
	NALTypeAUD    = 9
)

// Profiles, by profile_idc.
type ProfileIdc uint8

const (
	ProfileBaseline ProfileIdc = 66
	ProfileMain     ProfileIdc = 77
	ProfileExtended ProfileIdc = 88
	ProfileHigh     ProfileIdc = 100
	ProfileHigh10   ProfileIdc = 110
	ProfileHigh422  ProfileIdc = 122
	ProfileHigh444  ProfileIdc = 244
)

// Chroma formats as defined in section 6.2, table 6-1.
type ChromaFormatIdc uint8

const (
	ChromaMonochrome ChromaFormatIdc = 0
	Chroma420        ChromaFormatIdc = 1
	Chroma422        ChromaFormatIdc = 2
	Chroma444        ChromaFormatIdc = 3
)

// SPSFlags mirrors the flag block of the standard sequence parameter
// set structure.
type SPSFlags struct {
	ConstraintSet0            bool
	ConstraintSet1            bool
	ConstraintSet2            bool
	ConstraintSet3            bool
	Direct8x8Inference        bool
	FrameMbsOnly              bool
	DeltaPicOrderAlwaysZero   bool
	GapsInFrameNumValueAllowed bool
	FrameCropping             bool
	VuiParametersPresent      bool
}

// SPS is the standard sequence parameter set handed to the video
// session parameters object.
type SPS struct {
	Flags                       SPSFlags
	ProfileIdc                  ProfileIdc
	LevelIdc                    LevelIdc
	ChromaFormatIdc             ChromaFormatIdc
	ID                          uint8
	BitDepthLumaMinus8          uint8
	BitDepthChromaMinus8        uint8
	Log2MaxFrameNumMinus4       uint8
	PicOrderCntType             uint8
	Log2MaxPicOrderCntLsbMinus4 uint8
	MaxNumRefFrames             uint8
	PicWidthInMbsMinus1         uint32
	PicHeightInMapUnitsMinus1   uint32
	FrameCropLeftOffset         uint32
	FrameCropRightOffset        uint32
	FrameCropTopOffset          uint32
	FrameCropBottomOffset       uint32
}

// PPSFlags mirrors the flag block of the standard picture parameter
// set structure.
type PPSFlags struct {
	Transform8x8Mode               bool
	ConstrainedIntraPred           bool
	DeblockingFilterControlPresent bool
	WeightedPred                   bool
	EntropyCodingMode              bool
}

// PPS is the standard picture parameter set handed to the video
// session parameters object.
type PPS struct {
	Flags                          PPSFlags
	SPSID                          uint8
	ID                             uint8
	NumRefIdxL0DefaultActiveMinus1 uint8
	NumRefIdxL1DefaultActiveMinus1 uint8
	WeightedBipredIdc              uint8
	PicInitQpMinus26               int8
	ChromaQpIndexOffset            int8
	SecondChromaQpIndexOffset      int8
}

// ParamInfo carries the inputs needed to derive an SPS and PPS pair.
type ParamInfo struct {
	Profile           ProfileIdc
	Level             LevelIdc
	Width             uint32 // Luma samples.
	Height            uint32 // Luma samples.
	ChromaFormat      ChromaFormatIdc
	BitDepthLuma      uint8
	BitDepthChroma    uint8
	MaxNumRefFrames   uint8
	Log2MaxFrameNum   uint8
	Log2MaxPicOrderCnt uint8
	NumRefIdxL0       uint8
	NumRefIdxL1       uint8
}

// NewSPS derives a standard sequence parameter set from p.
func NewSPS(p ParamInfo) *SPS {
	mbW := (p.Width + 15) / 16
	mbH := (p.Height + 15) / 16
	s := &SPS{
		Flags: SPSFlags{
			Direct8x8Inference: true,
			FrameMbsOnly:       true,
		},
		ProfileIdc:                  p.Profile,
		LevelIdc:                    p.Level,
		ChromaFormatIdc:             p.ChromaFormat,
		BitDepthLumaMinus8:          p.BitDepthLuma - 8,
		BitDepthChromaMinus8:        p.BitDepthChroma - 8,
		Log2MaxFrameNumMinus4:       p.Log2MaxFrameNum - 4,
		PicOrderCntType:             0,
		Log2MaxPicOrderCntLsbMinus4: p.Log2MaxPicOrderCnt - 4,
		MaxNumRefFrames:             p.MaxNumRefFrames,
		PicWidthInMbsMinus1:         mbW - 1,
		PicHeightInMapUnitsMinus1:   mbH - 1,
	}
	if mbW*16 != p.Width || mbH*16 != p.Height {
		s.Flags.FrameCropping = true
		s.FrameCropRightOffset = (mbW*16 - p.Width) / 2
		s.FrameCropBottomOffset = (mbH*16 - p.Height) / 2
	}
	return s
}

// NewPPS derives a standard picture parameter set from p.
func NewPPS(p ParamInfo) *PPS {
	pps := &PPS{
		NumRefIdxL0DefaultActiveMinus1: defaultActiveMinus1(p.NumRefIdxL0),
		NumRefIdxL1DefaultActiveMinus1: defaultActiveMinus1(p.NumRefIdxL1),
	}
	if p.Profile >= ProfileMain {
		pps.Flags.EntropyCodingMode = true
	}
	if p.Profile >= ProfileHigh {
		pps.Flags.Transform8x8Mode = true
	}
	return pps
}

func defaultActiveMinus1(n uint8) uint8 {
	if n == 0 {
		return 0
	}
	return n - 1
}
