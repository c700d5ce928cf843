/*
DESCRIPTION
  levels.go provides the H.265 level table of annex A and selection of
  the lowest level and tier satisfying a stream's luma sample counts
  and bitrate.

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

package h265

import "github.com/pkg/errors"

// LevelIdc is the general_level_idc signalled in the profile tier
// level syntax; thirty times the level number.
type LevelIdc uint8

const (
	Level1_0 LevelIdc = 30
	Level2_0 LevelIdc = 60
	Level2_1 LevelIdc = 63
	Level3_0 LevelIdc = 90
	Level3_1 LevelIdc = 93
	Level4_0 LevelIdc = 120
	Level4_1 LevelIdc = 123
	Level5_0 LevelIdc = 150
	Level5_1 LevelIdc = 153
	Level5_2 LevelIdc = 156
	Level6_0 LevelIdc = 180
	Level6_1 LevelIdc = 183
	Level6_2 LevelIdc = 186
)

// ErrUnsupportedLevel is returned by SelectLevel when no level of
// annex A accommodates the stream.
var ErrUnsupportedLevel = errors.New("h265: no level supports the stream parameters")

// Level is one row of tables A-8 and A-9 of the specifications.
// Bitrates are in units of 1000 bits per second; MaxBRHighTier is zero
// for levels with no high tier.
type Level struct {
	Name          string
	Idc           LevelIdc
	MaxLumaPs     uint64 // Max luma picture size (samples).
	MaxLumaSr     uint64 // Max luma sample rate (samples/s).
	MaxBRMainTier uint64
	MaxBRHighTier uint64
}

// Levels is the level table in ascending order.
var Levels = []Level{
	{"1", Level1_0, 36864, 552960, 128, 0},
	{"2", Level2_0, 122880, 3686400, 1500, 0},
	{"2.1", Level2_1, 245760, 7372800, 3000, 0},
	{"3", Level3_0, 552960, 16588800, 6000, 0},
	{"3.1", Level3_1, 983040, 33177600, 10000, 0},
	{"4", Level4_0, 2228224, 66846720, 12000, 30000},
	{"4.1", Level4_1, 2228224, 133693440, 20000, 50000},
	{"5", Level5_0, 8912896, 267386880, 25000, 100000},
	{"5.1", Level5_1, 8912896, 534773760, 40000, 160000},
	{"5.2", Level5_2, 8912896, 1069547520, 60000, 240000},
	{"6", Level6_0, 35651584, 1069547520, 60000, 240000},
	{"6.1", Level6_1, 35651584, 2139095040, 120000, 480000},
	{"6.2", Level6_2, 35651584, 4278190080, 240000, 800000},
}

// SelectLevel scans the level table in ascending order and returns the
// first level accommodating the stream's luma picture size and sample
// rate, along with the derived tier flag: high tier only when the
// bitrate exceeds the level's main tier limit and the level has a high
// tier entry.
func SelectLevel(width, height, fpsNum, fpsDen uint32, bitrate uint64) (Level, bool, error) {
	if fpsDen == 0 {
		fpsDen = 1
	}
	picSize := uint64(width) * uint64(height)
	lumaSr := (picSize*uint64(fpsNum) + uint64(fpsDen) - 1) / uint64(fpsDen)

	for _, l := range Levels {
		if picSize <= l.MaxLumaPs && lumaSr <= l.MaxLumaSr {
			high := bitrate > l.MaxBRMainTier*1000 && l.MaxBRHighTier != 0
			return l, high, nil
		}
	}
	return Level{}, false, ErrUnsupportedLevel
}
