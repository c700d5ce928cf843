/*
DESCRIPTION
  h265.go provides the H.265 constants and parameter set structures
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

// Package h265 provides H.265 level selection, parameter set
// construction and packed header writing for the Vulkan video encoder.
package h265

// MaxNumRefFrames is the size of the standard reference list arrays.
const MaxNumRefFrames = 15

// NoReferencePicture is the codec-sanctioned sentinel terminating the
// standard reference list arrays.
const NoReferencePicture = 0xFF

// Slice types as defined by table 7-7 in the specifications.
type SliceType uint8

const (
	SliceTypeB SliceType = 0
	SliceTypeP SliceType = 1
	SliceTypeI SliceType = 2
)

// Picture types used in per-picture encode info.
type PictureType uint8

const (
	PictureTypeP   PictureType = 0
	PictureTypeB   PictureType = 1
	PictureTypeI   PictureType = 2
	PictureTypeIDR PictureType = 3
)

// NAL unit types as defined by table 7-1 in the specifications.
const (
	NALTypeTrailN    = 0
	NALTypeTrailR    = 1
	NALTypeIDRWRadl  = 19
	NALTypeIDRNLP    = 20
	NALTypeCRA       = 21
	NALTypeVPS       = 32
	NALTypeSPS       = 33
	NALTypePPS       = 34
	NALTypeAUD       = 35
	NALTypePrefixSEI = 39
)

// Profiles, by general_profile_idc.
type ProfileIdc uint8

const (
	ProfileMain   ProfileIdc = 1
	ProfileMain10 ProfileIdc = 2
	ProfileMainStillPicture ProfileIdc = 3
	ProfileRext   ProfileIdc = 4
)

// Chroma formats, chroma_format_idc.
type ChromaFormatIdc uint8

const (
	ChromaMonochrome ChromaFormatIdc = 0
	Chroma420        ChromaFormatIdc = 1
	Chroma422        ChromaFormatIdc = 2
	Chroma444        ChromaFormatIdc = 3
)

// ProfileTierLevel is the profile_tier_level syntax common to the VPS
// and SPS.
type ProfileTierLevel struct {
	ProfileIdc            ProfileIdc
	LevelIdc              LevelIdc
	TierFlag              bool
	ProgressiveSourceFlag bool
	FrameOnlyConstraint   bool
}

// VPS is the standard video parameter set handed to the video session
// parameters object.
type VPS struct {
	ID                        uint8
	MaxSubLayersMinus1        uint8
	TemporalIdNestingFlag     bool
	MaxDecPicBufferingMinus1  uint8
	MaxNumReorderPics         uint8
	ProfileTierLevel          ProfileTierLevel
}

// SPSFlags mirrors the flag block of the standard sequence parameter
// set structure.
type SPSFlags struct {
	ConformanceWindow          bool
	SampleAdaptiveOffsetEnabled bool
	SpsTemporalMvpEnabled      bool
	StrongIntraSmoothingEnabled bool
	AmpEnabled                 bool
}

// SPS is the standard sequence parameter set handed to the video
// session parameters object.
type SPS struct {
	Flags                           SPSFlags
	ID                              uint8
	VPSID                           uint8
	ChromaFormatIdc                 ChromaFormatIdc
	PicWidthInLumaSamples           uint32
	PicHeightInLumaSamples          uint32
	BitDepthLumaMinus8              uint8
	BitDepthChromaMinus8            uint8
	Log2MaxPicOrderCntLsbMinus4     uint8
	MaxDecPicBufferingMinus1        uint8
	Log2MinLumaCodingBlockSizeMinus3 uint8
	Log2DiffMaxMinLumaCodingBlockSize uint8
	ConfWinLeftOffset               uint32
	ConfWinRightOffset              uint32
	ConfWinTopOffset                uint32
	ConfWinBottomOffset             uint32
	ProfileTierLevel                ProfileTierLevel
}

// PPSFlags mirrors the flag block of the standard picture parameter
// set structure.
type PPSFlags struct {
	WeightedPred              bool
	WeightedBipred            bool
	TransformSkipEnabled      bool
	CuQpDeltaEnabled          bool
	LoopFilterAcrossSlices    bool
}

// PPS is the standard picture parameter set handed to the video
// session parameters object.
type PPS struct {
	Flags                     PPSFlags
	ID                        uint8
	SPSID                     uint8
	NumRefIdxL0DefaultActiveMinus1 uint8
	NumRefIdxL1DefaultActiveMinus1 uint8
	InitQpMinus26             int8
	CbQpOffset                int8
	CrQpOffset                int8
}

// The coding tree block geometry assumed by the parameter set
// constructors.
const (
	minCbLog2 = 3
	ctbLog2   = 5
)

// ParamInfo carries the inputs needed to derive a VPS, SPS and PPS.
type ParamInfo struct {
	Profile            ProfileIdc
	Level              LevelIdc
	Tier               bool
	Width              uint32 // Luma samples.
	Height             uint32 // Luma samples.
	ChromaFormat       ChromaFormatIdc
	BitDepthLuma       uint8
	BitDepthChroma     uint8
	MaxDecPicBuffering uint8
	MaxNumReorderPics  uint8
	Log2MaxPicOrderCnt uint8
	NumRefIdxL0        uint8
	NumRefIdxL1        uint8
}

func (p ParamInfo) profileTierLevel() ProfileTierLevel {
	return ProfileTierLevel{
		ProfileIdc:            p.Profile,
		LevelIdc:              p.Level,
		TierFlag:              p.Tier,
		ProgressiveSourceFlag: true,
		FrameOnlyConstraint:   true,
	}
}

// NewVPS derives a standard video parameter set from p.
func NewVPS(p ParamInfo) *VPS {
	return &VPS{
		TemporalIdNestingFlag:    true,
		MaxDecPicBufferingMinus1: p.MaxDecPicBuffering - 1,
		MaxNumReorderPics:        p.MaxNumReorderPics,
		ProfileTierLevel:         p.profileTierLevel(),
	}
}

// NewSPS derives a standard sequence parameter set from p. Dimensions
// are aligned up to the minimum coding block size with the remainder
// carried in the conformance window.
func NewSPS(p ParamInfo) *SPS {
	minCb := uint32(1) << minCbLog2
	alignedW := (p.Width + minCb - 1) &^ (minCb - 1)
	alignedH := (p.Height + minCb - 1) &^ (minCb - 1)
	s := &SPS{
		Flags: SPSFlags{
			SampleAdaptiveOffsetEnabled: true,
			SpsTemporalMvpEnabled:       true,
			StrongIntraSmoothingEnabled: true,
		},
		ChromaFormatIdc:                   p.ChromaFormat,
		PicWidthInLumaSamples:             alignedW,
		PicHeightInLumaSamples:            alignedH,
		BitDepthLumaMinus8:                p.BitDepthLuma - 8,
		BitDepthChromaMinus8:              p.BitDepthChroma - 8,
		Log2MaxPicOrderCntLsbMinus4:       p.Log2MaxPicOrderCnt - 4,
		MaxDecPicBufferingMinus1:          p.MaxDecPicBuffering - 1,
		Log2MinLumaCodingBlockSizeMinus3:  minCbLog2 - 3,
		Log2DiffMaxMinLumaCodingBlockSize: ctbLog2 - minCbLog2,
		ProfileTierLevel:                  p.profileTierLevel(),
	}
	if alignedW != p.Width || alignedH != p.Height {
		s.Flags.ConformanceWindow = true
		// Offsets are in chroma sample units for 4:2:0.
		s.ConfWinRightOffset = (alignedW - p.Width) / 2
		s.ConfWinBottomOffset = (alignedH - p.Height) / 2
	}
	return s
}

// NewPPS derives a standard picture parameter set from p.
func NewPPS(p ParamInfo) *PPS {
	pps := &PPS{
		Flags: PPSFlags{LoopFilterAcrossSlices: true},
	}
	if p.NumRefIdxL0 > 0 {
		pps.NumRefIdxL0DefaultActiveMinus1 = p.NumRefIdxL0 - 1
	}
	if p.NumRefIdxL1 > 0 {
		pps.NumRefIdxL1DefaultActiveMinus1 = p.NumRefIdxL1 - 1
	}
	return pps
}
