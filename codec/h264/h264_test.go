/*
DESCRIPTION
  h264_test.go provides testing for level selection, parameter set
  derivation and the packed header writers.

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

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSelectLevel(t *testing.T) {
	tests := []struct {
		w, h, fpsN, fpsD uint32
		refs             uint32
		bitrate          uint64
		profile          ProfileIdc
		want             string
		wantErr          bool
	}{
		{176, 144, 15, 1, 1, 64000, ProfileBaseline, "1", false},
		{1280, 720, 30, 1, 3, 10000000, ProfileHigh, "3.1", false},
		{1920, 1080, 30, 1, 3, 20000000, ProfileHigh, "4", false},
		{3840, 2160, 60, 1, 4, 25000000, ProfileHigh, "5.2", false},
		{16384, 16384, 120, 1, 16, 800000000, ProfileHigh, "", true},
	}
	for _, test := range tests {
		got, err := SelectLevel(test.w, test.h, test.fpsN, test.fpsD, test.refs, test.bitrate, test.profile)
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
		if got.Name != test.want {
			t.Errorf("unexpected level for %dx%d@%d: got %s, want %s", test.w, test.h, test.fpsN, got.Name, test.want)
		}
	}
}

func TestNewSPSCropping(t *testing.T) {
	sps := NewSPS(ParamInfo{
		Profile:            ProfileHigh,
		Level:              Level4_0,
		Width:              1920,
		Height:             1080,
		ChromaFormat:       Chroma420,
		BitDepthLuma:       8,
		BitDepthChroma:     8,
		MaxNumRefFrames:    3,
		Log2MaxFrameNum:    6,
		Log2MaxPicOrderCnt: 7,
	})
	if sps.PicWidthInMbsMinus1 != 119 {
		t.Errorf("unexpected width in MBs: got %d, want 119", sps.PicWidthInMbsMinus1)
	}
	if sps.PicHeightInMapUnitsMinus1 != 67 {
		t.Errorf("unexpected height in map units: got %d, want 67", sps.PicHeightInMapUnitsMinus1)
	}
	if !sps.Flags.FrameCropping {
		t.Error("expected frame cropping for 1080 height")
	}
	if sps.FrameCropBottomOffset != 4 {
		t.Errorf("unexpected bottom crop: got %d, want 4", sps.FrameCropBottomOffset)
	}
	if sps.Log2MaxFrameNumMinus4 != 2 {
		t.Errorf("unexpected log2_max_frame_num_minus4: got %d, want 2", sps.Log2MaxFrameNumMinus4)
	}
}

func TestWriteAUD(t *testing.T) {
	tests := []struct {
		picType uint8
		want    []byte
	}{
		{0, []byte{0x00, 0x00, 0x00, 0x01, 0x09, 0x10}},
		{1, []byte{0x00, 0x00, 0x00, 0x01, 0x09, 0x30}},
		{2, []byte{0x00, 0x00, 0x00, 0x01, 0x09, 0x50}},
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

func TestWriteCEA708SEI(t *testing.T) {
	cc := []byte{0xFC, 0x80, 0x80}
	got, err := WriteCEA708SEI(cc)
	if err != nil {
		t.Fatalf("did not expect error: %v", err)
	}
	want := []byte{
		0x00, 0x00, 0x00, 0x01, // start code
		0x06,       // NAL header: SEI
		0x04,       // payload type: user data registered
		0x0E,       // payload size
		181,        // country code
		0x00, 0x31, // provider code
		'G', 'A', '9', '4',
		0x03,
		0xC1,
		0xFF,
		0xFC, 0x80, 0x80,
		0xFF,
		0x80, // rbsp trailing bits
	}
	if !bytes.Equal(got, want) {
		t.Errorf("unexpected SEI: got %#v, want %#v", got, want)
	}
}

func TestRefListModifications(t *testing.T) {
	tests := []struct {
		name         string
		curr, max    uint32
		implicit     []uint32
		want         []uint32
		wantMods     []RefListModEntry
	}{
		{
			name:     "no reorder",
			curr:     3,
			max:      64,
			implicit: []uint32{2, 1},
			want:     []uint32{2, 1},
			wantMods: nil,
		},
		{
			name:     "swap",
			curr:     2,
			max:      64,
			implicit: []uint32{1, 0},
			want:     []uint32{0, 1},
			wantMods: []RefListModEntry{
				{ModificationOfPicNumsIdc: ModificationSubtract, AbsDiffPicNumMinus1: 1},
				{ModificationOfPicNumsIdc: ModificationAdd, AbsDiffPicNumMinus1: 0},
				{ModificationOfPicNumsIdc: ModificationEnd},
			},
		},
		{
			name:     "single past ref",
			curr:     5,
			max:      64,
			implicit: []uint32{4},
			want:     []uint32{2},
			wantMods: []RefListModEntry{
				{ModificationOfPicNumsIdc: ModificationSubtract, AbsDiffPicNumMinus1: 2},
				{ModificationOfPicNumsIdc: ModificationEnd},
			},
		},
	}
	for _, test := range tests {
		got := RefListModifications(test.curr, test.max, test.implicit, test.want)
		if diff := cmp.Diff(test.wantMods, got); diff != "" {
			t.Errorf("%s: unexpected modifications (-want +got):\n%s", test.name, diff)
		}
	}
}

func TestRefPicMarkings(t *testing.T) {
	got := RefPicMarkings(4, 1, 64)
	want := []RefPicMarkingEntry{
		{MemoryManagementControlOperation: MarkingUnusedShortTerm, DifferenceOfPicNumsMinus1: 2},
		{MemoryManagementControlOperation: MarkingEnd},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("unexpected markings (-want +got):\n%s", diff)
	}
}

func TestNewReferenceListsSentinels(t *testing.T) {
	l := NewReferenceLists()
	for i := 0; i < MaxNumRefFrames; i++ {
		if l.RefPicList0[i] != NoReferencePicture || l.RefPicList1[i] != NoReferencePicture {
			t.Fatalf("list position %d not initialized to the no-reference sentinel", i)
		}
	}
}
