/*
DESCRIPTION
  dpb_test.go provides testing for the decoded picture buffer manager:
  list construction, slot assignment and eviction policy.

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
	"testing"

	"github.com/ausocean/vkvideo/vulkan"
)

func testDpb(t *testing.T, maxRefs int, bpyr bool) (*frameArena, *dpbManager) {
	arena := newFrameArena()
	images := make([]*vulkan.FrameImage, maxRefs+1)
	for i := range images {
		images[i] = &vulkan.FrameImage{Image: vulkan.Image(i + 1)}
	}
	return arena, newDpbManager(arena, (*testLogger)(t), maxRefs, bpyr, images)
}

func addRef(arena *frameArena, dpb *dpbManager, t SliceType, frameNum, poc, gopIndex uint32) int {
	id := arena.alloc()
	f := arena.get(id)
	f.SliceType = t
	f.IsReference = true
	f.FrameNum = frameNum
	f.Poc = poc
	f.GopIndex = gopIndex
	dpb.prepare(id, 16, 16)
	dpb.admit(id)
	return id
}

func TestDpbFIFOEviction(t *testing.T) {
	arena, dpb := testDpb(t, 2, false)
	addRef(arena, dpb, SliceI, 0, 0, 0)
	addRef(arena, dpb, SliceP, 1, 2, 1)
	if dpb.size() != 2 {
		t.Fatalf("unexpected reference count: got %d, want 2", dpb.size())
	}
	id := addRef(arena, dpb, SliceP, 2, 4, 2)
	if dpb.size() != 2 {
		t.Fatalf("reference list exceeded bound: got %d", dpb.size())
	}
	f := arena.get(id)
	if f.UnusedReferencePicNum != -1 {
		t.Errorf("head eviction must be implicit, got announcement of %d", f.UnusedReferencePicNum)
	}
	pocs := dpb.refPocs()
	for _, poc := range pocs {
		if poc == 0 {
			t.Error("expected the eldest reference evicted")
		}
	}
}

func TestDpbPyramidEvictionAnnounced(t *testing.T) {
	arena, dpb := testDpb(t, 3, true)
	addRef(arena, dpb, SliceI, 0, 0, 0)
	addRef(arena, dpb, SliceP, 1, 8, 4)
	addRef(arena, dpb, SliceB, 2, 4, 2)

	// A fourth reference B evicts the lowest POC B reference, which is
	// not the list head, so the eviction must be announced.
	id := arena.alloc()
	f := arena.get(id)
	f.SliceType = SliceB
	f.IsReference = true
	f.FrameNum = 4
	f.Poc = 12
	f.GopIndex = 6
	dpb.prepare(id, 16, 16)
	dpb.admit(id)

	if f.UnusedReferencePicNum != 2 {
		t.Errorf("unexpected eviction announcement: got %d, want 2", f.UnusedReferencePicNum)
	}
	for _, poc := range dpb.refPocs() {
		if poc == 4 {
			t.Error("expected the B reference with lowest POC evicted")
		}
	}
}

func TestDpbListConstruction(t *testing.T) {
	arena, dpb := testDpb(t, 3, true)
	addRef(arena, dpb, SliceI, 0, 0, 0)
	addRef(arena, dpb, SliceP, 1, 8, 4)
	addRef(arena, dpb, SliceB, 2, 4, 2)

	id := arena.alloc()
	f := arena.get(id)
	f.SliceType = SliceB
	f.Poc = 6
	f.GopIndex = 3
	list0, list1, _ := dpb.prepare(id, 16, 16)

	if len(list0) != 2 || len(list1) != 1 {
		t.Fatalf("unexpected list sizes: got %d/%d, want 2/1", len(list0), len(list1))
	}
	if got := arena.get(list0[0]).Poc; got != 4 {
		t.Errorf("list0 must lead with the nearest past reference: got poc %d, want 4", got)
	}
	if got := arena.get(list0[1]).Poc; got != 0 {
		t.Errorf("unexpected second forward reference: got poc %d, want 0", got)
	}
	if got := arena.get(list1[0]).Poc; got != 8 {
		t.Errorf("list1 must lead with the nearest future reference: got poc %d, want 8", got)
	}
}

func TestDpbListTruncation(t *testing.T) {
	arena, dpb := testDpb(t, 4, false)
	addRef(arena, dpb, SliceI, 0, 0, 0)
	addRef(arena, dpb, SliceP, 1, 2, 1)
	addRef(arena, dpb, SliceP, 2, 4, 2)
	addRef(arena, dpb, SliceP, 3, 6, 3)

	id := arena.alloc()
	f := arena.get(id)
	f.SliceType = SliceP
	f.Poc = 8
	f.GopIndex = 4
	list0, _, _ := dpb.prepare(id, 2, 1)
	if len(list0) != 2 {
		t.Fatalf("expected truncation to 2, got %d", len(list0))
	}
	if arena.get(list0[0]).Poc != 6 || arena.get(list0[1]).Poc != 4 {
		t.Errorf("unexpected truncated list order: got %d,%d want 6,4",
			arena.get(list0[0]).Poc, arena.get(list0[1]).Poc)
	}
}

func TestDpbSlotAssignment(t *testing.T) {
	arena, dpb := testDpb(t, 3, false)
	a := addRef(arena, dpb, SliceI, 0, 0, 0)
	b := addRef(arena, dpb, SliceP, 1, 2, 1)
	c := addRef(arena, dpb, SliceP, 2, 4, 2)

	if arena.get(a).DpbSlotIndex != 0 || arena.get(b).DpbSlotIndex != 1 || arena.get(c).DpbSlotIndex != 2 {
		t.Fatalf("unexpected slot order: got %d,%d,%d",
			arena.get(a).DpbSlotIndex, arena.get(b).DpbSlotIndex, arena.get(c).DpbSlotIndex)
	}

	// The next reference evicts the head and the scan continues
	// cyclically from the last assignment.
	d := addRef(arena, dpb, SliceP, 3, 6, 3)
	if arena.get(d).DpbSlotIndex != 3 {
		t.Errorf("unexpected slot: got %d, want 3", arena.get(d).DpbSlotIndex)
	}
	e := addRef(arena, dpb, SliceP, 4, 8, 4)
	if arena.get(e).DpbSlotIndex != 0 {
		t.Errorf("expected wrap to freed slot 0, got %d", arena.get(e).DpbSlotIndex)
	}
}

func TestDpbImplicitLists(t *testing.T) {
	arena, dpb := testDpb(t, 3, false)
	addRef(arena, dpb, SliceI, 0, 0, 0)
	addRef(arena, dpb, SliceP, 1, 2, 1)
	addRef(arena, dpb, SliceP, 2, 4, 2)

	got := dpb.implicitList0(0)
	want := []uint32{2, 1, 0}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("unexpected implicit forward order: got %v, want %v", got, want)
		}
	}
	got = dpb.implicitList1(0)
	want = []uint32{0, 1, 2}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("unexpected implicit backward order: got %v, want %v", got, want)
		}
	}
}

func TestDpbReset(t *testing.T) {
	arena, dpb := testDpb(t, 3, false)
	addRef(arena, dpb, SliceI, 0, 0, 0)
	addRef(arena, dpb, SliceP, 1, 2, 1)

	id := arena.alloc()
	f := arena.get(id)
	f.SliceType = SliceI
	f.IsReference = true
	f.GopIndex = 0
	_, _, evicted := dpb.prepare(id, 16, 16)
	dpb.admit(id)

	if len(evicted) != 2 {
		t.Errorf("expected both prior references evicted, got %d", len(evicted))
	}
	if dpb.size() != 1 {
		t.Errorf("unexpected reference count after IDR: got %d, want 1", dpb.size())
	}
}
