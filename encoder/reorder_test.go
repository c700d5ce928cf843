/*
DESCRIPTION
  reorder_test.go provides testing for the display to decode order
  transform.

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

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestReorderIPSequence(t *testing.T) {
	cfg := testConfig(t, "h264", 33, 0, false, 1)
	arena, ro, dpb, plan := testScheduler(t, &cfg)

	var sysNums []uint64
	var frameNums []uint32
	for i := 0; i < 33; i++ {
		for _, id := range pushAndDrain(arena, ro, dpb, plan, uint64(i), false) {
			f := arena.get(id)
			sysNums = append(sysNums, f.SystemFrameNumber)
			frameNums = append(frameNums, f.FrameNum)
		}
	}

	if len(sysNums) != 33 {
		t.Fatalf("unexpected emission count: got %d, want 33", len(sysNums))
	}
	for i := 0; i < 33; i++ {
		if sysNums[i] != uint64(i) {
			t.Fatalf("frames reordered unexpectedly: position %d got %d", i, sysNums[i])
		}
		if frameNums[i] != uint32(i) {
			t.Errorf("unexpected frame_num at %d: got %d, want %d", i, frameNums[i], i)
		}
	}
}

func TestReorderPyramid(t *testing.T) {
	cfg := testConfig(t, "h265", 8, 3, true, 3)
	arena, ro, dpb, plan := testScheduler(t, &cfg)

	var sysNums []uint64
	var types []SliceType
	var levels []int
	for i := 0; i < 8; i++ {
		for _, id := range pushAndDrain(arena, ro, dpb, plan, uint64(i), false) {
			f := arena.get(id)
			sysNums = append(sysNums, f.SystemFrameNumber)
			types = append(types, f.SliceType)
			levels = append(levels, f.PyramidLevel)
		}
	}

	wantOrder := []uint64{0, 4, 2, 1, 3, 7, 6, 5}
	if diff := cmp.Diff(wantOrder, sysNums); diff != "" {
		t.Fatalf("unexpected decode order (-want +got):\n%s", diff)
	}
	wantTypes := []SliceType{SliceI, SliceP, SliceB, SliceB, SliceB, SliceP, SliceB, SliceB}
	if diff := cmp.Diff(wantTypes, types); diff != "" {
		t.Errorf("unexpected slice types (-want +got):\n%s", diff)
	}
	wantLevels := []int{0, 0, 0, 1, 1, 0, 0, 1}
	if diff := cmp.Diff(wantLevels, levels); diff != "" {
		t.Errorf("unexpected pyramid levels (-want +got):\n%s", diff)
	}
}

func TestReorderBAnchorsPrecede(t *testing.T) {
	cfg := testConfig(t, "h265", 16, 2, false, 2)
	arena, ro, dpb, plan := testScheduler(t, &cfg)

	var order []int
	for i := 0; i < 16; i++ {
		order = append(order, pushAndDrain(arena, ro, dpb, plan, uint64(i), false)...)
	}
	ro.flush()
	order = append(order, drainScheduler(arena, ro, dpb, plan)...)

	emitted := make(map[uint32]bool)
	for _, id := range order {
		f := arena.get(id)
		if f.SliceType == SliceB {
			var past, future bool
			for poc := range emitted {
				if poc < f.Poc {
					past = true
				}
				if poc > f.Poc {
					future = true
				}
			}
			if !past || !future {
				t.Errorf("B frame poc %d emitted without both anchors", f.Poc)
			}
		}
		emitted[f.Poc] = true
	}
}

func TestReorderFlush(t *testing.T) {
	cfg := testConfig(t, "h265", 16, 3, true, 3)
	arena, ro, dpb, plan := testScheduler(t, &cfg)

	var order []int
	for i := 0; i < 7; i++ {
		order = append(order, pushAndDrain(arena, ro, dpb, plan, uint64(i), false)...)
	}
	if len(order) != 5 {
		t.Fatalf("expected 5 frames emitted before flush, got %d", len(order))
	}

	ro.flush()
	drained := drainScheduler(arena, ro, dpb, plan)
	ro.finishFlush()

	if got := len(order) + len(drained); got != 7 {
		t.Fatalf("expected all 7 frames after flush, got %d", got)
	}
	promoted := arena.get(drained[0])
	if promoted.SliceType != SliceP || !promoted.IsReference {
		t.Errorf("expected trailing B promoted to reference P, got %v ref=%t",
			promoted.SliceType, promoted.IsReference)
	}
	if ro.pending() != 0 {
		t.Errorf("expected empty reorder list, got %d pending", ro.pending())
	}
	if ro.curFrameIndex != 0 || ro.curFrameNum != 0 {
		t.Errorf("expected counters reset, got index %d num %d", ro.curFrameIndex, ro.curFrameNum)
	}
}

func TestReorderForceKeyframe(t *testing.T) {
	cfg := testConfig(t, "h264", 10, 0, false, 2)
	arena, ro, dpb, plan := testScheduler(t, &cfg)

	for i := 0; i < 5; i++ {
		pushAndDrain(arena, ro, dpb, plan, uint64(i), false)
	}
	popped := pushAndDrain(arena, ro, dpb, plan, 5, true)
	if len(popped) != 1 {
		t.Fatalf("expected one frame, got %d", len(popped))
	}
	f := arena.get(popped[0])
	if f.SliceType != SliceI || !f.IsReference || !f.SyncPoint || f.GopIndex != 0 {
		t.Errorf("forced keyframe not an IDR: type %v ref=%t sync=%t gopIndex=%d",
			f.SliceType, f.IsReference, f.SyncPoint, f.GopIndex)
	}
	if f.FrameNum != 0 {
		t.Errorf("expected frame_num reset, got %d", f.FrameNum)
	}
}
