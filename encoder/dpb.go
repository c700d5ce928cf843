/*
DESCRIPTION
  dpb.go provides the decoded picture buffer manager: the bounded
  reference set, slot assignment, eviction and construction of the
  forward and backward reference lists of each frame.

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

package encoder

import (
	"sort"

	"github.com/ausocean/utils/logging"

	"github.com/ausocean/vkvideo/vulkan"
)

// dpbSlot is one slot of the bounded reference picture store. The slot
// owns the reconstruction image; the view is a copy of the image's
// first plane view for descriptor use.
type dpbSlot struct {
	occupied bool
	frame    int
	image    *vulkan.FrameImage
	view     vulkan.ImageView
}

// dpbManager maintains the reference list and slot occupancy.
type dpbManager struct {
	log   logging.Logger
	arena *frameArena

	maxRefFrames int
	bPyramid     bool

	// refList holds reference frame indices in decode order; the head
	// is the oldest.
	refList []int

	slots       []dpbSlot
	currentSlot int

	// victim is the refList position chosen by prepare for removal at
	// admit time, or -1.
	victim int
}

func newDpbManager(arena *frameArena, log logging.Logger, maxRefFrames int, bPyramid bool, images []*vulkan.FrameImage) *dpbManager {
	d := &dpbManager{
		log:          log,
		arena:        arena,
		maxRefFrames: maxRefFrames,
		bPyramid:     bPyramid,
		slots:        make([]dpbSlot, len(images)),
		victim:       -1,
	}
	for i, img := range images {
		d.slots[i].image = img
		if len(img.Planes) > 0 {
			d.slots[i].view = img.Planes[0].View
		}
	}
	return d
}

// size returns the current reference count.
func (d *dpbManager) size() int { return len(d.refList) }

// refPocs returns the POCs of the current references.
func (d *dpbManager) refPocs() []uint32 {
	pocs := make([]uint32, len(d.refList))
	for i, id := range d.refList {
		pocs[i] = d.arena.get(id).Poc
	}
	return pocs
}

// slotImage returns the reconstruction image of slot i.
func (d *dpbManager) slotImage(i int32) *vulkan.FrameImage {
	return d.slots[i].image
}

// slotView returns the image view of slot i.
func (d *dpbManager) slotView(i int32) vulkan.ImageView {
	return d.slots[i].view
}

// reset empties the reference list and slot occupancy, returning the
// evicted frame indices.
func (d *dpbManager) reset() []int {
	evicted := append([]int(nil), d.refList...)
	d.refList = d.refList[:0]
	for i := range d.slots {
		d.slots[i].occupied = false
	}
	d.currentSlot = 0
	return evicted
}

// prepare readies the DPB for the frame at index id: building its
// forward and backward reference lists from the current reference set,
// assigning its slot, and, when the store is full and the frame is
// itself a reference, choosing the reference to evict. The evictee
// stays in the reference list until admit; the decoder drops it only
// after the current frame, so it remains referenceable and part of the
// implicit list order here. Frames evicted by a group reset are
// returned for release.
func (d *dpbManager) prepare(id int, refNumList0, refNumList1 int) (list0, list1, evicted []int) {
	f := d.arena.get(id)

	if f.GopIndex == 0 {
		evicted = append(evicted, d.reset()...)
	}

	if f.SliceType != SliceI {
		list0, list1 = d.buildLists(f, refNumList0, refNumList1)
	}

	d.victim = -1
	if f.IsReference {
		// A slot is always free here: occupancy never exceeds the
		// reference bound and the slot array holds one more.
		d.assignSlot(id)
		if d.maxRefFrames > 0 && len(d.refList) >= d.maxRefFrames {
			d.victim = d.pickVictim(f)
		}
	}
	return list0, list1, evicted
}

// admit appends the frame to the reference list once its descriptors
// have been built, removing the chosen evictee first. The evicted
// frame index is returned for release, if any. Only reference frames
// are admitted, and only while references are in use at all.
func (d *dpbManager) admit(id int) []int {
	f := d.arena.get(id)
	if d.maxRefFrames == 0 || !f.IsReference {
		return nil
	}
	var evicted []int
	if d.victim >= 0 {
		ev := d.refList[d.victim]
		evf := d.arena.get(ev)
		d.log.Debug("evicting reference", "frameNum", int(evf.FrameNum), "poc", int(evf.Poc))
		if evf.DpbSlotIndex >= 0 {
			d.slots[evf.DpbSlotIndex].occupied = false
			d.slots[evf.DpbSlotIndex].frame = 0
		}
		d.refList = append(d.refList[:d.victim], d.refList[d.victim+1:]...)
		d.victim = -1
		evicted = append(evicted, ev)
	}
	d.refList = append(d.refList, id)
	return evicted
}

// pickVictim chooses the reference to evict for cur. With a B pyramid
// and a B current frame the B reference with the lowest POC goes
// first, announced through a memory management control operation when
// it is not the list head; otherwise the eldest reference goes.
func (d *dpbManager) pickVictim(cur *FrameRecord) int {
	if len(d.refList) == 0 {
		return -1
	}
	victim := 0
	if d.bPyramid && cur.SliceType == SliceB {
		b := -1
		for i, id := range d.refList {
			f := d.arena.get(id)
			if f.SliceType != SliceB {
				continue
			}
			if b == -1 || f.Poc < d.arena.get(d.refList[b]).Poc {
				b = i
			}
		}
		if b >= 0 {
			victim = b
		}
	}
	if victim != 0 {
		// The implicit sliding window would drop the head; announce
		// the true evictee in the slice header.
		cur.UnusedReferencePicNum = int32(d.arena.get(d.refList[victim]).FrameNum)
	}
	return victim
}

// assignSlot scans cyclically from the current slot index for a free
// slot and installs the frame there.
func (d *dpbManager) assignSlot(id int) {
	f := d.arena.get(id)
	n := len(d.slots)
	for i := 0; i < n; i++ {
		s := (d.currentSlot + i) % n
		if d.slots[s].occupied {
			continue
		}
		d.slots[s].occupied = true
		d.slots[s].frame = id
		f.DpbSlotIndex = int32(s)
		f.Recon = d.slots[s].image
		d.currentSlot = (s + 1) % n
		return
	}
	// The caller keeps |refs| < slots; reaching here is a bug.
	d.log.Error("no free DPB slot", "refs", len(d.refList), "slots", n)
}

// buildLists constructs the forward and backward reference lists of f:
// past references by descending POC and future references by ascending
// POC, truncated to the configured caps.
func (d *dpbManager) buildLists(f *FrameRecord, cap0, cap1 int) (list0, list1 []int) {
	for _, id := range d.refList {
		r := d.arena.get(id)
		if r.Poc <= f.Poc {
			list0 = append(list0, id)
		} else {
			list1 = append(list1, id)
		}
	}
	sort.SliceStable(list0, func(i, j int) bool {
		return d.arena.get(list0[i]).Poc > d.arena.get(list0[j]).Poc
	})
	sort.SliceStable(list1, func(i, j int) bool {
		return d.arena.get(list1[i]).Poc < d.arena.get(list1[j]).Poc
	})
	if cap0 > 0 && len(list0) > cap0 {
		list0 = list0[:cap0]
	}
	if cap1 > 0 && len(list1) > cap1 {
		list1 = list1[:cap1]
	}
	return list0, list1
}

// implicitList0 returns the reference frame numbers in the decoder's
// implicit forward order, by descending frame_num from the current
// frame, truncated to n.
func (d *dpbManager) implicitList0(n int) []uint32 {
	ids := append([]int(nil), d.refList...)
	sort.SliceStable(ids, func(i, j int) bool {
		return d.arena.get(ids[i]).FrameNum > d.arena.get(ids[j]).FrameNum
	})
	if n > 0 && len(ids) > n {
		ids = ids[:n]
	}
	out := make([]uint32, len(ids))
	for i, id := range ids {
		out[i] = d.arena.get(id).FrameNum
	}
	return out
}

// implicitList1 is the backward analogue, by ascending frame_num.
func (d *dpbManager) implicitList1(n int) []uint32 {
	ids := append([]int(nil), d.refList...)
	sort.SliceStable(ids, func(i, j int) bool {
		return d.arena.get(ids[i]).FrameNum < d.arena.get(ids[j]).FrameNum
	})
	if n > 0 && len(ids) > n {
		ids = ids[:n]
	}
	out := make([]uint32, len(ids))
	for i, id := range ids {
		out[i] = d.arena.get(id).FrameNum
	}
	return out
}
