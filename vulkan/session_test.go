/*
DESCRIPTION
  session_test.go provides testing for the video session orchestrator:
  capability negotiation, header readback and teardown safety.

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

package vulkan_test

import (
	"bytes"
	"testing"

	"github.com/ausocean/vkvideo/vulkan"
	"github.com/ausocean/vkvideo/vulkan/vktest"
)

func testProfile() vulkan.VideoProfileInfo {
	return vulkan.VideoProfileInfo{
		VideoCodecOperation: vulkan.VideoCodecOperationEncodeH264,
		ChromaSubsampling:   vulkan.VideoChromaSubsampling420,
		LumaBitDepth:        vulkan.VideoComponentBitDepth8,
		ChromaBitDepth:      vulkan.VideoComponentBitDepth8,
	}
}

func testSessionConfig() vulkan.SessionConfig {
	return vulkan.SessionConfig{
		MaxCodedExtent:      vulkan.Extent2D{Width: 1280, Height: 720},
		MaxDpbSlots:         4,
		MaxActiveReferences: 3,
		StdHeaderName:       "VK_STD_vulkan_video_codec_h264_encode",
		StdHeaderVersion:    vulkan.Version{Major: 1, Minor: 0, Patch: 0},
	}
}

func TestSessionStartStop(t *testing.T) {
	b := vktest.New()
	rec := vulkan.NewRecorder(b, (*testLogger)(t))
	s := vulkan.NewSession(b, (*testLogger)(t))

	if err := s.Start(testProfile(), testSessionConfig(), rec); err != nil {
		t.Fatalf("did not expect error from Start: %v", err)
	}
	if !s.Started() {
		t.Fatal("session not marked started")
	}

	// The startup flush is a reset-only coding round.
	if len(b.Controls) != 1 || b.Controls[0].Flags != vulkan.VideoCodingControlReset {
		t.Errorf("unexpected startup control stream: %+v", b.Controls)
	}
	if len(b.Encodes) != 0 {
		t.Errorf("startup flush must not encode, got %d encodes", len(b.Encodes))
	}

	in, dpb := s.Formats()
	if in != vulkan.FormatG8B8R82Plane420Unorm || dpb != vulkan.FormatG8B8R82Plane420Unorm {
		t.Errorf("unexpected formats: %d/%d", in, dpb)
	}

	hdr, err := s.ReadSessionHeaders(&vulkan.VideoSessionParametersGetInfo{WriteStdSPS: true, WriteStdPPS: true})
	if err != nil {
		t.Fatalf("did not expect error from ReadSessionHeaders: %v", err)
	}
	if !bytes.Equal(hdr, b.EncodedParams) {
		t.Errorf("unexpected headers: got %#v, want %#v", hdr, b.EncodedParams)
	}

	s.Stop()
	s.Stop() // Stop is idempotent.
	rec.Stop()
	if b.LiveSessions != 0 || b.LiveParams != 0 || b.LiveQueryPools != 0 {
		t.Errorf("leaked driver objects: sessions=%d params=%d pools=%d",
			b.LiveSessions, b.LiveParams, b.LiveQueryPools)
	}
}

func TestSessionHeaderVersionMismatch(t *testing.T) {
	b := vktest.New()
	b.Caps.StdHeaderVersion.SpecVersion = vulkan.Version{Major: 1, Minor: 2, Patch: 0}
	rec := vulkan.NewRecorder(b, (*testLogger)(t))
	s := vulkan.NewSession(b, (*testLogger)(t))

	if err := s.Start(testProfile(), testSessionConfig(), rec); err == nil {
		t.Fatal("expected error for outdated standard headers")
	}
	s.Stop() // Safe after failed start.
	if b.LiveSessions != 0 || b.LiveParams != 0 {
		t.Errorf("leaked driver objects after failed start")
	}
}

func TestSessionNoRecognizedFormat(t *testing.T) {
	b := vktest.New()
	b.Formats = nil
	rec := vulkan.NewRecorder(b, (*testLogger)(t))
	s := vulkan.NewSession(b, (*testLogger)(t))

	if err := s.Start(testProfile(), testSessionConfig(), rec); err == nil {
		t.Fatal("expected error for empty format enumeration")
	}
	if s.Started() {
		t.Error("session must not be started after failure")
	}
	s.Stop()
}

func TestSessionDpbSlotBound(t *testing.T) {
	b := vktest.New()
	b.Caps.MaxDpbSlots = 2
	rec := vulkan.NewRecorder(b, (*testLogger)(t))
	s := vulkan.NewSession(b, (*testLogger)(t))

	cfg := testSessionConfig()
	cfg.MaxDpbSlots = 4
	if err := s.Start(testProfile(), cfg, rec); err == nil {
		t.Fatal("expected error for DPB slot demand above capability")
	}
}

func TestSessionReconfigure(t *testing.T) {
	b := vktest.New()
	rec := vulkan.NewRecorder(b, (*testLogger)(t))
	s := vulkan.NewSession(b, (*testLogger)(t))

	if err := s.Start(testProfile(), testSessionConfig(), rec); err != nil {
		t.Fatalf("did not expect error from Start: %v", err)
	}
	old := s.Parameters()
	if err := s.Reconfigure(nil); err != nil {
		t.Fatalf("did not expect error from Reconfigure: %v", err)
	}
	if s.Parameters() == old {
		t.Error("expected a fresh session parameters object")
	}
	if b.LiveParams != 1 {
		t.Errorf("expected the old parameters destroyed, live=%d", b.LiveParams)
	}
	s.Stop()
	rec.Stop()
}
