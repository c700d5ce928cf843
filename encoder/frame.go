/*
DESCRIPTION
  frame.go provides the frame record type and the arena that owns all
  frame records of an encoder instance. The reorder and reference lists
  hold stable arena indices rather than pointers.

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

import "github.com/ausocean/vkvideo/vulkan"

// SliceType is the codec independent slice classification of a frame.
type SliceType uint8

const (
	SliceI SliceType = iota
	SliceP
	SliceB
)

// String returns the conventional single letter name of the type.
func (t SliceType) String() string {
	switch t {
	case SliceI:
		return "I"
	case SliceP:
		return "P"
	case SliceB:
		return "B"
	}
	return "?"
}

// FrameRecord is a frame admitted to the encoder, from admission until
// its output has been emitted and no later frame references it.
type FrameRecord struct {
	// Input is the GPU-resident YUV image handed in at admission.
	Input *vulkan.FrameImage

	// Recon is the DPB image the encoder reconstructs into when the
	// frame is a reference; owned by the frame's DPB slot.
	Recon *vulkan.FrameImage

	// SystemFrameNumber is the monotonic admission counter.
	SystemFrameNumber uint64

	// FrameNum is the decoding order counter, incremented only for
	// reference frames and wrapping modulo max_frame_num.
	FrameNum uint32

	// Poc is the picture order count inside the group, twice the
	// group index modulo max_pic_order_cnt.
	Poc uint32

	// GopIndex is the ordinal position within the group; zero is the
	// IDR.
	GopIndex uint32

	SliceType       SliceType
	IsReference     bool
	PyramidLevel    int
	LeftRefPocDiff  int32
	RightRefPocDiff int32

	// UnusedReferencePicNum is -1, or the frame_num of a reference
	// this frame explicitly evicts through a slice header memory
	// management control operation.
	UnusedReferencePicNum int32

	// DpbSlotIndex is -1 until the DPB manager assigns a slot.
	DpbSlotIndex int32

	// ForceKeyframe upgrades the frame to an IDR at admission.
	ForceKeyframe bool

	// SyncPoint marks the frame as a stream sync point.
	SyncPoint bool

	// CCData holds CEA-708 caption triplets attached at admission.
	CCData []byte

	// Output is the assembled compressed frame, set after the GPU
	// operation completes.
	Output []byte

	// Emitted is set once Output has been handed downstream.
	Emitted bool
}

// frameArena owns every FrameRecord of an encoder instance, recycling
// records through a free list so indices stay stable for the lifetime
// of a frame.
type frameArena struct {
	frames []FrameRecord
	free   []int
}

func newFrameArena() *frameArena {
	return &frameArena{}
}

// alloc returns the index of a fresh frame record.
func (a *frameArena) alloc() int {
	var i int
	if n := len(a.free); n > 0 {
		i = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		a.frames = append(a.frames, FrameRecord{})
		i = len(a.frames) - 1
	}
	a.frames[i] = FrameRecord{
		UnusedReferencePicNum: -1,
		DpbSlotIndex:          -1,
	}
	return i
}

// get returns the record at index i.
func (a *frameArena) get(i int) *FrameRecord {
	return &a.frames[i]
}

// release returns the record at index i to the free list.
func (a *frameArena) release(i int) {
	a.frames[i] = FrameRecord{}
	a.free = append(a.free, i)
}
