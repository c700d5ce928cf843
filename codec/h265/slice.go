/*
DESCRIPTION
  slice.go provides the per-picture encode structures handed to the
  GPU, and construction of the reference picture lists modification
  entries carried in slice segment headers.

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

package h265

// SliceSegmentHeaderFlags mirrors the flag block of the standard slice
// segment header.
type SliceSegmentHeaderFlags struct {
	FirstSliceSegmentInPic bool
	SliceSaoLumaFlag       bool
	SliceSaoChromaFlag     bool
	SliceTemporalMvpEnabled bool
	CabacInitFlag          bool
	DeblockingFilterDisabled bool
	CollocatedFromL0       bool
}

// SliceSegmentHeader is the standard slice segment header passed per
// NALU to the GPU.
type SliceSegmentHeader struct {
	Flags              SliceSegmentHeaderFlags
	SliceType          SliceType
	SliceSegmentAddress uint32
	SliceQpDelta       int8
	SliceBetaOffsetDiv2 int8
	SliceTcOffsetDiv2  int8
}

// ReferenceListsInfo carries the DPB slot indices of the active
// reference lists and the reference picture lists modification, the
// list_entry sequences a decoder applies to the initial lists.
type ReferenceListsInfo struct {
	RefPicListModificationFlagL0 bool
	RefPicListModificationFlagL1 bool
	NumRefIdxL0Active            uint8
	NumRefIdxL1Active            uint8
	RefPicList0                  [MaxNumRefFrames]uint8
	RefPicList1                  [MaxNumRefFrames]uint8
	ListEntryL0                  [MaxNumRefFrames]uint8
	ListEntryL1                  [MaxNumRefFrames]uint8
}

// PictureInfoFlags mirrors the flag block of the standard picture info.
type PictureInfoFlags struct {
	IsReference             bool
	IrapPicFlag             bool
	UsedForLongTermReference bool
	DiscardableFlag         bool
}

// PictureInfo is the standard per-picture encode info.
type PictureInfo struct {
	Flags          PictureInfoFlags
	PicType        PictureType
	SpsVideoParameterSetID uint8
	PpsSeqParameterSetID   uint8
	PpsPicParameterSetID   uint8
	PicOrderCntVal int32
	TemporalID     uint8
	RefLists       *ReferenceListsInfo
}

// ReferenceInfo is the standard reference info attached to a DPB slot.
type ReferenceInfo struct {
	PicType        PictureType
	PicOrderCntVal int32
	TemporalID     uint8
	UsedForLongTermReference bool
}

// NewReferenceLists returns a ReferenceListsInfo with both lists
// terminated by the no-reference sentinel and identity list entries.
func NewReferenceLists() *ReferenceListsInfo {
	l := new(ReferenceListsInfo)
	for i := range l.RefPicList0 {
		l.RefPicList0[i] = NoReferencePicture
		l.RefPicList1[i] = NoReferencePicture
		l.ListEntryL0[i] = uint8(i)
		l.ListEntryL1[i] = uint8(i)
	}
	return l
}

// ListEntries fills entries with the positions of want within the
// implicit initial list and reports whether any position differs from
// the identity, in which case a modification must be signalled.
func ListEntries(implicit, want []uint8, entries *[MaxNumRefFrames]uint8) bool {
	modified := false
	for i, w := range want {
		for j, im := range implicit {
			if im == w {
				entries[i] = uint8(j)
				if i != j {
					modified = true
				}
				break
			}
		}
	}
	return modified
}
