/*
DESCRIPTION
  utils_test.go provides the test logger and pipeline helpers shared by
  the encoder package tests.

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

import (
	"fmt"
	"testing"

	"github.com/ausocean/utils/logging"

	"github.com/ausocean/vkvideo/encoder/config"
	"github.com/ausocean/vkvideo/vulkan"
)

// testLogger will allow logging to be done by the testing pkg.
type testLogger testing.T

func (tl *testLogger) Debug(msg string, args ...interface{})   { tl.Log(logging.Debug, msg, args...) }
func (tl *testLogger) Info(msg string, args ...interface{})    { tl.Log(logging.Info, msg, args...) }
func (tl *testLogger) Warning(msg string, args ...interface{}) { tl.Log(logging.Warning, msg, args...) }
func (tl *testLogger) Error(msg string, args ...interface{})   { tl.Log(logging.Error, msg, args...) }
func (tl *testLogger) Fatal(msg string, args ...interface{})   { tl.Log(logging.Fatal, msg, args...) }
func (tl *testLogger) SetLevel(lvl int8)                       {}
func (tl *testLogger) Log(lvl int8, msg string, args ...interface{}) {
	if len(args) == 0 {
		((*testing.T)(tl)).Log(msg)
		return
	}
	((*testing.T)(tl)).Log(msg + fmt.Sprint(args...))
}

// testConfig returns a validated config for the given shape.
func testConfig(t *testing.T, codec string, idr, nb uint, bpyr bool, refs uint) config.Config {
	cfg := config.DefaultConfig((*testLogger)(t), 176, 144)
	cfg.Codec = codec
	cfg.IdrPeriod = idr
	cfg.NumBFrames = nb
	cfg.BPyramid = bpyr
	cfg.RefFrames = refs
	if err := cfg.Validate(); err != nil {
		t.Fatalf("did not expect error from Validate: %v", err)
	}
	return cfg
}

// testScheduler builds the scheduling trio: arena, reorder engine and
// DPB manager over placeholder slot images.
func testScheduler(t *testing.T, cfg *config.Config) (*frameArena, *reorderEngine, *dpbManager, *gopPlan) {
	plan := planGOP(cfg, 16, 16)
	arena := newFrameArena()
	ro := newReorderEngine(arena, plan, (*testLogger)(t))
	images := make([]*vulkan.FrameImage, plan.numRefFrames+1)
	for i := range images {
		images[i] = &vulkan.FrameImage{Image: vulkan.Image(i + 1)}
	}
	dpb := newDpbManager(arena, (*testLogger)(t), int(plan.numRefFrames), plan.bPyramid, images)
	return arena, ro, dpb, plan
}

// pushAndDrain admits one frame and returns the frames that became
// ready, preparing and admitting each against the DPB as the encoder
// would.
func pushAndDrain(arena *frameArena, ro *reorderEngine, dpb *dpbManager, plan *gopPlan, sysNum uint64, forceKey bool) []int {
	id := arena.alloc()
	f := arena.get(id)
	f.SystemFrameNumber = sysNum
	f.ForceKeyframe = forceKey
	ro.push(id, false)
	return drainScheduler(arena, ro, dpb, plan)
}

func drainScheduler(arena *frameArena, ro *reorderEngine, dpb *dpbManager, plan *gopPlan) []int {
	var popped []int
	for {
		id, ok := ro.pop(dpb)
		if !ok {
			return popped
		}
		dpb.prepare(id, int(plan.refNumList0), int(plan.refNumList1))
		dpb.admit(id)
		popped = append(popped, id)
	}
}
