/*
DESCRIPTION
  reorder.go provides the reorder engine transforming frames from
  display order into decode order: B frames are buffered until their
  anchors have been emitted, groups are terminated cleanly on flush and
  frame numbers are assigned at pop time.

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

import "github.com/ausocean/utils/logging"

// reorderEngine buffers admitted frames and releases them in decode
// order.
type reorderEngine struct {
	log   logging.Logger
	arena *frameArena
	plan  *gopPlan

	// list holds buffered frame indices in display order.
	list []int

	// emitted records the POCs popped in the current group, gating
	// pyramid B frames on their anchors.
	emitted map[uint32]bool

	curFrameIndex uint32
	curFrameNum   uint32
	gopEnded      bool
	forceNewGop   bool
}

func newReorderEngine(arena *frameArena, plan *gopPlan, log logging.Logger) *reorderEngine {
	return &reorderEngine{log: log, arena: arena, plan: plan, emitted: make(map[uint32]bool)}
}

// startingNewGop reports whether the next push opens a new group.
func (r *reorderEngine) startingNewGop() bool {
	return r.forceNewGop || r.curFrameIndex == 0 || r.curFrameIndex >= r.plan.idrPeriod
}

// setPlan installs a new group plan; only valid at a group boundary.
// A boundary reached under the old plan still opens a new group on the
// next push.
func (r *reorderEngine) setPlan(plan *gopPlan) {
	if r.curFrameIndex >= r.plan.idrPeriod {
		r.forceNewGop = true
	}
	r.plan = plan
}

// push admits the frame at index id, attaching its planned group role.
// A frame flagged for a forced keyframe restarts the group. When eos
// is set the group is terminated cleanly: the last buffered B is
// promoted to P and the next push starts a new group.
func (r *reorderEngine) push(id int, eos bool) {
	f := r.arena.get(id)

	if r.forceNewGop || r.curFrameIndex >= r.plan.idrPeriod || (f.ForceKeyframe && r.curFrameIndex != 0) {
		r.terminate()
		r.curFrameIndex = 0
		r.curFrameNum = 0
		r.forceNewGop = false
		r.gopEnded = false
		r.emitted = make(map[uint32]bool)
	}

	e := r.plan.entries[r.curFrameIndex]
	f.GopIndex = r.curFrameIndex
	f.Poc = (2 * r.curFrameIndex) % r.plan.maxPicOrderCnt
	f.SliceType = e.SliceType
	f.IsReference = e.IsReference
	f.PyramidLevel = e.PyramidLevel
	f.LeftRefPocDiff = e.LeftRefPocDiff
	f.RightRefPocDiff = e.RightRefPocDiff

	if f.GopIndex == 0 {
		f.SliceType = SliceI
		f.IsReference = true
		f.SyncPoint = true
	} else if f.ForceKeyframe {
		// Unreachable after the restart above; kept for safety.
		f.SliceType = SliceI
		f.IsReference = true
		f.SyncPoint = true
	}

	r.list = append(r.list, id)
	r.curFrameIndex++

	if eos && r.curFrameIndex < r.plan.idrPeriod {
		r.terminate()
		r.forceNewGop = true
	}
}

// flush terminates the current group without admitting a frame. Once
// the caller has drained the buffered frames it must call finishFlush
// to reset the group counters.
func (r *reorderEngine) flush() {
	r.terminate()
	r.forceNewGop = true
}

// finishFlush resets the group counters after a flush has drained.
func (r *reorderEngine) finishFlush() {
	r.curFrameIndex = 0
	r.curFrameNum = 0
}

// terminate promotes the most recently buffered B to P so the group
// can drain, and unblocks the remaining B frames.
func (r *reorderEngine) terminate() {
	for i := len(r.list) - 1; i >= 0; i-- {
		f := r.arena.get(r.list[i])
		if f.SliceType == SliceB {
			f.SliceType = SliceP
			f.IsReference = true
			f.PyramidLevel = 0
			break
		}
	}
	if len(r.list) != 0 {
		r.gopEnded = true
	}
}

// pop returns the next frame in decode order, or false when no frame
// is ready. On pop the frame is assigned its frame_num, advancing the
// counter for reference frames.
func (r *reorderEngine) pop(dpb *dpbManager) (int, bool) {
	if len(r.list) == 0 {
		return 0, false
	}

	tail := r.arena.get(r.list[len(r.list)-1])
	if tail.SliceType != SliceB {
		return r.take(len(r.list) - 1), true
	}

	if r.plan.bPyramid {
		best := -1
		var bestF *FrameRecord
		for i, id := range r.list {
			f := r.arena.get(id)
			if f.SliceType != SliceB || !r.anchorsEmitted(f) {
				continue
			}
			if best == -1 ||
				f.PyramidLevel < bestF.PyramidLevel ||
				(f.PyramidLevel == bestF.PyramidLevel && f.Poc < bestF.Poc) {
				best = i
				bestF = f
			}
		}
		if best >= 0 {
			return r.take(best), true
		}
		if r.gopEnded {
			return r.take(0), true
		}
		return 0, false
	}

	// Simple B: release in display order once enough future anchors
	// are in the reference list.
	if r.gopEnded {
		return r.take(0), true
	}
	head := r.arena.get(r.list[0])
	future := 0
	for _, poc := range dpb.refPocs() {
		if poc > head.Poc {
			future++
		}
	}
	if uint32(future) >= r.plan.refNumList1 {
		return r.take(0), true
	}
	return 0, false
}

// anchorsEmitted reports whether both intended anchors of f have been
// popped in this group.
func (r *reorderEngine) anchorsEmitted(f *FrameRecord) bool {
	left := int64(f.Poc) + int64(f.LeftRefPocDiff)
	right := int64(f.Poc) + int64(f.RightRefPocDiff)
	return left >= 0 && right >= 0 &&
		r.emitted[uint32(left)] && r.emitted[uint32(right)]
}

// take removes position i from the list and assigns the frame number.
func (r *reorderEngine) take(i int) int {
	id := r.list[i]
	r.list = append(r.list[:i], r.list[i+1:]...)
	f := r.arena.get(id)
	r.emitted[f.Poc] = true
	f.FrameNum = r.curFrameNum
	if f.IsReference {
		r.curFrameNum = (r.curFrameNum + 1) % r.plan.maxFrameNum
	}
	if len(r.list) == 0 && r.forceNewGop {
		r.gopEnded = false
	}
	return id
}

// pending returns the number of buffered frames.
func (r *reorderEngine) pending() int { return len(r.list) }
