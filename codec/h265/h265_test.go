/*
DESCRIPTION
  h265_test.go provides testing for level and tier selection, parameter
  set derivation and the packed header writers.

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

import (
	"bytes"
	"testing"
)

func TestSelectLevel(t *testing.T) {
	tests := []struct {
		w, h, fpsN, fpsD uint32
		bitrate          uint64
		want             string
		wantHigh         bool
		wantErr          bool
	}{
		{176, 144, 15, 1, 64000, "1", false, false},
		{1920, 1080, 30, 1, 10000000, "4", false, false},
		{1920, 1080, 30, 1, 20000000, "4", true, false},
		{3840, 2160, 60, 1, 25000000, "5.1", false, false},
		{16384, 8192, 120, 1, 1000000, "", false, true},
	}
	for _, test := range tests {
		got, high, err := SelectLevel(test.w, test.h, test.fpsN, test.fpsD, test.bitrate)
		if test.wantErr {
			if err == nil {
				t.Errorf("expected error for %dx%d@%d", test.w, test.h, test.fpsN)
			}
			continue
		}
		if err != nil {
			t.Errorf("did not expect error for %dx%d@%d: %v", test.w, test.h, test.fpsN, err)
			continue
		}
		if got.Name != test.want || high != test.wantHigh {
			t.Errorf("unexpected selection for %dx%d@%d: got %s (high=%t), want %s (high=%t)",
				test.w, test.h, test.fpsN, got.Name, high, test.want, test.wantHigh)
		}
	}
}

func TestNewSPSConformanceWindow(t *testing.T) {
	sps := NewSPS(ParamInfo{
		Profile:            ProfileMain,
		Level:              Level4_0,
		Width:              1366,
		Height:             768,
		ChromaFormat:       Chroma420,
		BitDepthLuma:       8,
		BitDepthChroma:     8,
		MaxDecPicBuffering: 4,
		Log2MaxPicOrderCnt: 8,
	})
	if sps.PicWidthInLumaSamples != 1368 {
		t.Errorf("unexpected aligned width: got %d, want 1368", sps.PicWidthInLumaSamples)
	}
	if !sps.Flags.ConformanceWindow {
		t.Error("expected conformance window for unaligned width")
	}
	if sps.ConfWinRightOffset != 1 {
		t.Errorf("unexpected right offset: got %d, want 1", sps.ConfWinRightOffset)
	}
	if sps.Log2MaxPicOrderCntLsbMinus4 != 4 {
		t.Errorf("unexpected log2_max_pic_order_cnt_lsb_minus4: got %d, want 4", sps.Log2MaxPicOrderCntLsbMinus4)
	}
}

func TestWriteAUD(t *testing.T) {
	tests := []struct {
		picType uint8
		want    []byte
	}{
		{0, []byte{0x00, 0x00, 0x00, 0x01, 0x46, 0x01, 0x10}},
		{1, []byte{0x00, 0x00, 0x00, 0x01, 0x46, 0x01, 0x30}},
		{2, []byte{0x00, 0x00, 0x00, 0x01, 0x46, 0x01, 0x50}},
	}
	for _, test := range tests {
		got, err := WriteAUD(test.picType)
		if err != nil {
			t.Fatalf("did not expect error: %v", err)
		}
		if !bytes.Equal(got, test.want) {
			t.Errorf("unexpected AUD for pic type %d: got %#v, want %#v", test.picType, got, test.want)
		}
	}
}

func TestWriteCEA708SEIHeader(t *testing.T) {
	got, err := WriteCEA708SEI([]byte{0xFC, 0x80, 0x80})
	if err != nil {
		t.Fatalf("did not expect error: %v", err)
	}
	wantPrefix := []byte{0x00, 0x00, 0x00, 0x01, 0x4E, 0x01, 0x04}
	if !bytes.HasPrefix(got, wantPrefix) {
		t.Errorf("unexpected SEI prefix: got %#v, want prefix %#v", got[:7], wantPrefix)
	}
}

func TestListEntries(t *testing.T) {
	var entries [MaxNumRefFrames]uint8
	if mod := ListEntries([]uint8{3, 1}, []uint8{3, 1}, &entries); mod {
		t.Error("did not expect modification for identical order")
	}
	if mod := ListEntries([]uint8{3, 1}, []uint8{1, 3}, &entries); !mod {
		t.Error("expected modification for swapped order")
	}
	if entries[0] != 1 || entries[1] != 0 {
		t.Errorf("unexpected list entries: got [%d %d], want [1 0]", entries[0], entries[1])
	}
}
