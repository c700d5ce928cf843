/*
DESCRIPTION
  levels.go provides the H.264 level table of annex A and selection of
  the lowest level satisfying a stream's resolution, frame rate, DPB
  size and bitrate.

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

package h264

import "github.com/pkg/errors"

// LevelIdc is the level_idc signalled in the SPS; level 1b shares
// level_idc 11 with level 1.1 and is distinguished by constraint_set3.
type LevelIdc uint8

const (
	Level1_0 LevelIdc = 10
	Level1b  LevelIdc = 9 // Signalled as 11 with constraint_set3.
	Level1_1 LevelIdc = 11
	Level1_2 LevelIdc = 12
	Level1_3 LevelIdc = 13
	Level2_0 LevelIdc = 20
	Level2_1 LevelIdc = 21
	Level2_2 LevelIdc = 22
	Level3_0 LevelIdc = 30
	Level3_1 LevelIdc = 31
	Level3_2 LevelIdc = 32
	Level4_0 LevelIdc = 40
	Level4_1 LevelIdc = 41
	Level4_2 LevelIdc = 42
	Level5_0 LevelIdc = 50
	Level5_1 LevelIdc = 51
	Level5_2 LevelIdc = 52
	Level6_0 LevelIdc = 60
	Level6_1 LevelIdc = 61
	Level6_2 LevelIdc = 62
)

// ErrUnsupportedLevel is returned by SelectLevel when no level of
// annex A accommodates the stream.
var ErrUnsupportedLevel = errors.New("h264: no level supports the stream parameters")

// Level is one row of table A-1 of the specifications. MaxBR is in
// units of cpbBrVclFactor bits per second.
type Level struct {
	Name      string
	Idc       LevelIdc
	MaxMBPS   uint64 // Max macroblock processing rate (MB/s).
	MaxFS     uint64 // Max frame size (MBs).
	MaxDpbMbs uint64 // Max decoded picture buffer size (MBs).
	MaxBR     uint64 // Max video bitrate (cpbBrVclFactor bits/s).
}

// Levels is table A-1 in ascending order.
var Levels = []Level{
	{"1", Level1_0, 1485, 99, 396, 64},
	{"1b", Level1b, 1485, 99, 396, 128},
	{"1.1", Level1_1, 3000, 396, 900, 192},
	{"1.2", Level1_2, 6000, 396, 2376, 384},
	{"1.3", Level1_3, 11880, 396, 2376, 768},
	{"2", Level2_0, 11880, 396, 2376, 2000},
	{"2.1", Level2_1, 19800, 792, 4752, 4000},
	{"2.2", Level2_2, 20250, 1620, 8100, 4000},
	{"3", Level3_0, 40500, 1620, 8100, 10000},
	{"3.1", Level3_1, 108000, 3600, 18000, 14000},
	{"3.2", Level3_2, 216000, 5120, 20480, 20000},
	{"4", Level4_0, 245760, 8192, 32768, 20000},
	{"4.1", Level4_1, 245760, 8192, 32768, 50000},
	{"4.2", Level4_2, 522240, 8704, 34816, 50000},
	{"5", Level5_0, 589824, 22080, 110400, 135000},
	{"5.1", Level5_1, 983040, 36864, 184320, 240000},
	{"5.2", Level5_2, 2073600, 36864, 184320, 240000},
	{"6", Level6_0, 4177920, 139264, 696320, 240000},
	{"6.1", Level6_1, 8355840, 139264, 696320, 480000},
	{"6.2", Level6_2, 16711680, 139264, 696320, 800000},
}

// cpbBrFactor returns the cpbBrVclFactor for the profile, per
// table A-2 of the specifications.
func cpbBrFactor(p ProfileIdc) uint64 {
	switch p {
	case ProfileHigh:
		return 1250
	case ProfileHigh10:
		return 3000
	case ProfileHigh422, ProfileHigh444:
		return 4000
	default:
		return 1200
	}
}

// SelectLevel scans the level table in ascending order and returns the
// first level accommodating the frame size, macroblock rate, DPB size
// and bitrate of the stream.
func SelectLevel(width, height, fpsNum, fpsDen uint32, refFrames uint32, bitrate uint64, profile ProfileIdc) (Level, error) {
	if fpsDen == 0 {
		fpsDen = 1
	}
	picSizeMbs := uint64((width+15)/16) * uint64((height+15)/16)
	mbps := (picSizeMbs*uint64(fpsNum) + uint64(fpsDen) - 1) / uint64(fpsDen)
	dpbMbs := picSizeMbs * uint64(refFrames)
	factor := cpbBrFactor(profile)

	for _, l := range Levels {
		if picSizeMbs <= l.MaxFS &&
			mbps <= l.MaxMBPS &&
			dpbMbs <= l.MaxDpbMbs &&
			bitrate <= l.MaxBR*factor {
			return l, nil
		}
	}
	return Level{}, ErrUnsupportedLevel
}
