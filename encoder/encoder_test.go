/*
DESCRIPTION
  encoder_test.go provides end to end testing of the encode pipeline
  over the driver-free test backend.

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
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ausocean/vkvideo/codec/h264"
	"github.com/ausocean/vkvideo/codec/h265"
	"github.com/ausocean/vkvideo/encoder/config"
	"github.com/ausocean/vkvideo/vulkan/vktest"
)

// newTestEncoder builds a started encoder over a fresh test backend,
// collecting emissions into the returned slice.
func newTestEncoder(t *testing.T, cfg config.Config) (*Encoder, *vktest.Backend, *[]Output) {
	backend := vktest.New()
	var outputs []Output
	enc, err := New(cfg, backend, func(o Output) { outputs = append(outputs, o) })
	if err != nil {
		t.Fatalf("did not expect error from New: %v", err)
	}
	if err := enc.Start(); err != nil {
		t.Fatalf("did not expect error from Start: %v", err)
	}
	return enc, backend, &outputs
}

func pushFrames(t *testing.T, enc *Encoder, backend *vktest.Backend, n int) {
	for i := 0; i < n; i++ {
		if err := enc.Push(backend.NewFrameImage(), false, nil); err != nil {
			t.Fatalf("did not expect error from Push: %v", err)
		}
	}
}

func TestEncodeIntraOnlySingleFrame(t *testing.T) {
	cfg := testConfig(t, "h264", 1, 0, false, 0)
	enc, backend, outputs := newTestEncoder(t, cfg)
	defer enc.Stop()

	pushFrames(t, enc, backend, 1)

	if len(*outputs) != 1 {
		t.Fatalf("expected one output, got %d", len(*outputs))
	}
	out := (*outputs)[0]
	if out.Err != nil {
		t.Fatalf("did not expect frame error: %v", out.Err)
	}
	if !out.SyncPoint {
		t.Error("expected sync point on IDR")
	}
	if !bytes.HasPrefix(out.Data, backend.EncodedParams) {
		t.Error("expected parameter sets prefixed to the IDR")
	}
	if got, want := len(out.Data), len(backend.EncodedParams)+len(backend.Bitstream); got != want {
		t.Errorf("unexpected emitted byte count: got %d, want %d", got, want)
	}
}

func TestEncodePSequence(t *testing.T) {
	cfg := testConfig(t, "h264", 33, 0, false, 1)
	enc, backend, outputs := newTestEncoder(t, cfg)
	defer enc.Stop()

	pushFrames(t, enc, backend, 33)

	if len(*outputs) != 33 {
		t.Fatalf("expected 33 outputs, got %d", len(*outputs))
	}
	for i, out := range *outputs {
		if out.Err != nil {
			t.Fatalf("frame %d failed: %v", i, out.Err)
		}
		if out.SystemFrameNumber != uint64(i) {
			t.Fatalf("unexpected emission order at %d: got %d", i, out.SystemFrameNumber)
		}
		if out.SyncPoint != (i == 0) {
			t.Errorf("unexpected sync point flag at %d", i)
		}
	}
	// One encode per frame reached the GPU, and the in-order P run
	// needs no reference list modifications.
	if len(backend.Encodes) != 33 {
		t.Fatalf("expected 33 encode commands, got %d", len(backend.Encodes))
	}
	for i := 1; i < 33; i++ {
		info, ok := backend.Encodes[i].CodecInfo.(*h264.PictureEncodeInfo)
		if !ok {
			t.Fatalf("encode %d: unexpected codec info type", i)
		}
		if info.Std.FrameNum != uint32(i) {
			t.Errorf("encode %d: unexpected frame_num %d", i, info.Std.FrameNum)
		}
		rl := info.Std.RefLists
		if rl == nil || rl.NumRefIdxL0Active != 1 {
			t.Fatalf("encode %d: expected a single forward reference", i)
		}
		if len(rl.RefList0Mods) != 0 {
			t.Errorf("encode %d: unexpected reference list modification", i)
		}
	}
}

func TestEncodePyramidOrderAndLists(t *testing.T) {
	cfg := testConfig(t, "h265", 8, 3, true, 3)
	enc, backend, outputs := newTestEncoder(t, cfg)
	defer enc.Stop()

	pushFrames(t, enc, backend, 8)

	var order []uint64
	for _, out := range *outputs {
		if out.Err != nil {
			t.Fatalf("frame %d failed: %v", out.SystemFrameNumber, out.Err)
		}
		order = append(order, out.SystemFrameNumber)
	}
	want := []uint64{0, 4, 2, 1, 3, 7, 6, 5}
	if diff := cmp.Diff(want, order); diff != "" {
		t.Fatalf("unexpected decode order (-want +got):\n%s", diff)
	}

	// Every B encode carries a populated backward reference list.
	bIdx := []int{2, 3, 4, 6, 7}
	for _, i := range bIdx {
		info, ok := backend.Encodes[i].CodecInfo.(*h265.PictureEncodeInfo)
		if !ok {
			t.Fatalf("encode %d: unexpected codec info type", i)
		}
		if info.Std.RefLists == nil || info.Std.RefLists.NumRefIdxL1Active == 0 {
			t.Errorf("encode %d: B frame handed empty backward list", i)
		}
		if info.Std.PicType != h265.PictureTypeB {
			t.Errorf("encode %d: unexpected picture type %d", i, info.Std.PicType)
		}
	}
}

func TestEncodeForceKeyframe(t *testing.T) {
	cfg := testConfig(t, "h264", 10, 0, false, 2)
	enc, backend, outputs := newTestEncoder(t, cfg)
	defer enc.Stop()

	pushFrames(t, enc, backend, 5)
	if err := enc.Push(backend.NewFrameImage(), true, nil); err != nil {
		t.Fatalf("did not expect error from forced keyframe push: %v", err)
	}

	if len(*outputs) != 6 {
		t.Fatalf("expected 6 outputs, got %d", len(*outputs))
	}
	out := (*outputs)[5]
	if !out.SyncPoint {
		t.Error("expected sync point on forced keyframe")
	}
	if !bytes.HasPrefix(out.Data, backend.EncodedParams) {
		t.Error("expected parameter sets prefixed to the forced keyframe")
	}
	if enc.dpb.size() != 1 {
		t.Errorf("expected reference list cleared before forced keyframe, got %d", enc.dpb.size())
	}
}

func TestEncodeFlush(t *testing.T) {
	cfg := testConfig(t, "h265", 16, 3, true, 3)
	enc, backend, outputs := newTestEncoder(t, cfg)
	defer enc.Stop()

	pushFrames(t, enc, backend, 7)
	if err := enc.Flush(); err != nil {
		t.Fatalf("did not expect error from Flush: %v", err)
	}

	if len(*outputs) != 7 {
		t.Fatalf("expected all frames emitted after flush, got %d", len(*outputs))
	}
	if enc.Pending() != 0 {
		t.Errorf("expected no held frames, got %d", enc.Pending())
	}
	if enc.ro.curFrameIndex != 0 || enc.ro.curFrameNum != 0 {
		t.Errorf("expected group counters reset, got %d/%d", enc.ro.curFrameIndex, enc.ro.curFrameNum)
	}
}

func TestEncodeAdmittedEqualsEmitted(t *testing.T) {
	cfg := testConfig(t, "h265", 4, 1, false, 2)
	enc, backend, outputs := newTestEncoder(t, cfg)
	defer enc.Stop()

	const n = 10
	pushFrames(t, enc, backend, n)
	if err := enc.Flush(); err != nil {
		t.Fatalf("did not expect error from Flush: %v", err)
	}

	if len(*outputs) != n {
		t.Fatalf("expected %d outputs, got %d", n, len(*outputs))
	}
	seen := make(map[uint64]int)
	for _, out := range *outputs {
		seen[out.SystemFrameNumber]++
	}
	for i := uint64(0); i < n; i++ {
		if seen[i] != 1 {
			t.Errorf("frame %d emitted %d times", i, seen[i])
		}
	}
}

func TestEncodeAUDInsertion(t *testing.T) {
	cfg := testConfig(t, "h264", 4, 0, false, 1)
	cfg.AUD = true
	enc, backend, outputs := newTestEncoder(t, cfg)
	defer enc.Stop()

	pushFrames(t, enc, backend, 2)

	if len(*outputs) != 2 {
		t.Fatalf("expected 2 outputs, got %d", len(*outputs))
	}
	audI := []byte{0x00, 0x00, 0x00, 0x01, 0x09, 0x10}
	audP := []byte{0x00, 0x00, 0x00, 0x01, 0x09, 0x30}
	if !bytes.HasPrefix((*outputs)[0].Data, audI) {
		t.Error("expected I AUD ahead of the IDR")
	}
	if !bytes.HasPrefix((*outputs)[1].Data, audP) {
		t.Error("expected P AUD ahead of the P frame")
	}
}

func TestEncodeCaptionSEI(t *testing.T) {
	cfg := testConfig(t, "h264", 4, 0, false, 1)
	cfg.CCInsert = true
	enc, backend, outputs := newTestEncoder(t, cfg)
	defer enc.Stop()

	if err := enc.Push(backend.NewFrameImage(), false, []byte{0xFC, 0x80, 0x80}); err != nil {
		t.Fatalf("did not expect error from Push: %v", err)
	}
	if len(*outputs) != 1 {
		t.Fatalf("expected one output, got %d", len(*outputs))
	}
	data := (*outputs)[0].Data
	if !bytes.Contains(data, []byte{'G', 'A', '9', '4'}) {
		t.Error("expected ATSC identifier in caption SEI")
	}
}

func TestEncodeStopIdempotent(t *testing.T) {
	cfg := testConfig(t, "h264", 4, 0, false, 1)
	enc, backend, _ := newTestEncoder(t, cfg)

	pushFrames(t, enc, backend, 2)
	if err := enc.Stop(); err != nil {
		t.Fatalf("did not expect error from first Stop: %v", err)
	}
	if err := enc.Stop(); err != nil {
		t.Fatalf("did not expect error from second Stop: %v", err)
	}
	if backend.LiveSessions != 0 || backend.LiveParams != 0 || backend.LiveQueryPools != 0 || backend.LiveBuffers != 0 {
		t.Errorf("leaked driver objects: sessions=%d params=%d pools=%d buffers=%d",
			backend.LiveSessions, backend.LiveParams, backend.LiveQueryPools, backend.LiveBuffers)
	}
}

func TestEncodePushAfterStop(t *testing.T) {
	cfg := testConfig(t, "h264", 4, 0, false, 1)
	enc, backend, _ := newTestEncoder(t, cfg)
	enc.Stop()
	if err := enc.Push(backend.NewFrameImage(), false, nil); err != ErrNotStarted {
		t.Errorf("expected ErrNotStarted, got %v", err)
	}
}

func TestEncodeRefListBound(t *testing.T) {
	cfg := testConfig(t, "h264", 16, 0, false, 2)
	enc, backend, _ := newTestEncoder(t, cfg)
	defer enc.Stop()

	for i := 0; i < 16; i++ {
		if err := enc.Push(backend.NewFrameImage(), false, nil); err != nil {
			t.Fatalf("did not expect error from Push: %v", err)
		}
		if got := enc.dpb.size(); got > 2 {
			t.Fatalf("reference list exceeded configured bound: %d", got)
		}
	}
}

func TestEncodeUpdateAtGopBoundary(t *testing.T) {
	cfg := testConfig(t, "h264", 4, 0, false, 1)
	enc, backend, outputs := newTestEncoder(t, cfg)
	defer enc.Stop()

	pushFrames(t, enc, backend, 2)
	err := enc.Update(map[string]string{config.KeyIdrPeriod: "8"})
	if err != nil {
		t.Fatalf("did not expect error from Update: %v", err)
	}
	// The delta must not take effect mid group.
	pushFrames(t, enc, backend, 2)
	if enc.plan.idrPeriod != 4 {
		t.Fatalf("config delta applied mid group")
	}
	// The next group picks it up.
	pushFrames(t, enc, backend, 1)
	if enc.plan.idrPeriod != 8 {
		t.Errorf("config delta not applied at group boundary: idr period %d", enc.plan.idrPeriod)
	}
	if !(*outputs)[4].SyncPoint {
		t.Errorf("expected new group to open with a sync point")
	}
}

func TestEncodeRateControlFirstOp(t *testing.T) {
	cfg := testConfig(t, "h264", 4, 0, false, 1)
	cfg.RateControl = config.RateControlCBR
	cfg.AverageBitrate = 5000000
	enc, backend, _ := newTestEncoder(t, cfg)
	defer enc.Stop()

	pushFrames(t, enc, backend, 2)

	// Controls: one reset from the session flush, then the first
	// frame's combined reset and rate control (no quality level is
	// configured, so no quality control is sent).
	if len(backend.Controls) != 2 {
		t.Fatalf("expected 2 control commands, got %d", len(backend.Controls))
	}
	first := backend.Controls[1]
	if first.RateControl == nil || first.RateControl.Mode != 0x2 {
		t.Fatal("expected CBR rate control on first frame control")
	}
	l := first.RateControl.Layers
	if len(l) != 1 || l[0].AverageBitrate != 5000000 || l[0].MaxBitrate != 5000000 {
		t.Errorf("unexpected CBR layer: %+v", l)
	}

	// Subsequent frames carry rate control in begin coding only.
	last := backend.Begins[len(backend.Begins)-1]
	if last.RateControl == nil || last.RateControl.Mode != 0x2 {
		t.Error("expected rate control in later begin coding infos")
	}
}
