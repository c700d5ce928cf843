/*
DESCRIPTION
  slice.go provides the per-picture encode structures handed to the
  GPU, and construction of the reference picture list modification and
  memory management control operations carried in slice headers.

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

package h264

// Modification opcodes of the ref_pic_list_modification syntax,
// section 7.4.3.1 of the specifications.
const (
	ModificationSubtract = 0 // abs_diff_pic_num_minus1 subtracted.
	ModificationAdd      = 1 // abs_diff_pic_num_minus1 added.
	ModificationEnd      = 3 // End of operation list.
)

// Memory management control operations of the dec_ref_pic_marking
// syntax, section 7.4.3.3.
const (
	MarkingEnd              = 0 // End of operation list.
	MarkingUnusedShortTerm  = 1 // Mark a short-term picture unused.
)

// RefListModEntry is one operation of a ref_pic_list_modification list.
type RefListModEntry struct {
	ModificationOfPicNumsIdc uint8
	AbsDiffPicNumMinus1      uint16
}

// RefPicMarkingEntry is one operation of a dec_ref_pic_marking list.
type RefPicMarkingEntry struct {
	MemoryManagementControlOperation uint8
	DifferenceOfPicNumsMinus1        uint16
}

// WeightTable is the prediction weight table; the encoder emits it
// present with all flags zero.
type WeightTable struct {
	LumaLog2WeightDenom   uint8
	ChromaLog2WeightDenom uint8
	LumaWeightL0Flag      [MaxNumRefFrames]bool
	ChromaWeightL0Flag    [MaxNumRefFrames]bool
	LumaWeightL1Flag      [MaxNumRefFrames]bool
	ChromaWeightL1Flag    [MaxNumRefFrames]bool
}

// SliceHeaderFlags mirrors the flag block of the standard slice header.
type SliceHeaderFlags struct {
	DirectSpatialMvPred      bool
	NumRefIdxActiveOverride  bool
}

// SliceHeader is the standard slice header passed per NALU to the GPU.
type SliceHeader struct {
	Flags                      SliceHeaderFlags
	FirstMbInSlice             uint32
	SliceType                  SliceType
	SliceAlphaC0OffsetDiv2     int8
	SliceBetaOffsetDiv2        int8
	SliceQPDelta               int8
	CabacInitIdc               uint8
	DisableDeblockingFilterIdc uint8
	WeightTable                *WeightTable
}

// ReferenceListsInfo carries the DPB slot indices of the active
// reference lists and any explicit slice header operations.
type ReferenceListsInfo struct {
	NumRefIdxL0Active uint8
	NumRefIdxL1Active uint8
	RefPicList0       [MaxNumRefFrames]uint8
	RefPicList1       [MaxNumRefFrames]uint8
	RefList0Mods      []RefListModEntry
	RefList1Mods      []RefListModEntry
	RefPicMarkings    []RefPicMarkingEntry
}

// PictureInfoFlags mirrors the flag block of the standard picture info.
type PictureInfoFlags struct {
	IdrPicFlag                    bool
	IsReference                   bool
	NoOutputOfPriorPicsFlag       bool
	LongTermReferenceFlag         bool
	AdaptiveRefPicMarkingModeFlag bool
}

// PictureInfo is the standard per-picture encode info.
type PictureInfo struct {
	Flags          PictureInfoFlags
	SeqParamSetID  uint8
	PicParamSetID  uint8
	IdrPicID       uint16
	PrimaryPicType PictureType
	FrameNum       uint32
	PicOrderCnt    int32
	TemporalID     uint8
	RefLists       *ReferenceListsInfo
}

// ReferenceInfo is the standard reference info attached to a DPB slot.
type ReferenceInfo struct {
	PrimaryPicType PictureType
	FrameNum       uint32
	PicOrderCnt    int32
	TemporalID     uint8
	UsedForLongTermReference bool
}

// NewReferenceLists returns a ReferenceListsInfo with both lists
// terminated by the no-reference sentinel.
func NewReferenceLists() *ReferenceListsInfo {
	l := new(ReferenceListsInfo)
	for i := range l.RefPicList0 {
		l.RefPicList0[i] = NoReferencePicture
		l.RefPicList1[i] = NoReferencePicture
	}
	return l
}

// RefListModifications returns the operation list that transforms the
// implicit reference list order into want, both given as frame_num
// sequences, or nil if the orders already agree. The list is
// terminated by the end opcode.
func RefListModifications(currFrameNum, maxFrameNum uint32, implicit, want []uint32) []RefListModEntry {
	if len(implicit) == len(want) {
		same := true
		for i := range want {
			if implicit[i] != want[i] {
				same = false
				break
			}
		}
		if same {
			return nil
		}
	}

	var ops []RefListModEntry
	pred := int64(currFrameNum)
	for _, fn := range want {
		diff := int64(fn) - pred
		// Pic nums wrap modulo maxFrameNum; take the shorter direction.
		if diff > int64(maxFrameNum)/2 {
			diff -= int64(maxFrameNum)
		} else if diff < -int64(maxFrameNum)/2 {
			diff += int64(maxFrameNum)
		}
		if diff < 0 {
			ops = append(ops, RefListModEntry{
				ModificationOfPicNumsIdc: ModificationSubtract,
				AbsDiffPicNumMinus1:      uint16(-diff - 1),
			})
		} else {
			ops = append(ops, RefListModEntry{
				ModificationOfPicNumsIdc: ModificationAdd,
				AbsDiffPicNumMinus1:      uint16(diff - 1),
			})
		}
		pred = int64(fn)
	}
	return append(ops, RefListModEntry{ModificationOfPicNumsIdc: ModificationEnd})
}

// RefPicMarkings returns the memory management control operation list
// evicting the short-term reference with frame_num unused, terminated
// by the end opcode.
func RefPicMarkings(currFrameNum, unusedFrameNum, maxFrameNum uint32) []RefPicMarkingEntry {
	diff := (int64(currFrameNum) - int64(unusedFrameNum) + int64(maxFrameNum)) % int64(maxFrameNum)
	return []RefPicMarkingEntry{
		{
			MemoryManagementControlOperation: MarkingUnusedShortTerm,
			DifferenceOfPicNumsMinus1:        uint16(diff - 1),
		},
		{MemoryManagementControlOperation: MarkingEnd},
	}
}
