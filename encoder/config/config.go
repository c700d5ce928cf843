/*
DESCRIPTION
  config.go provides the configuration settings for the Vulkan video
  encoder.

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

// Package config contains the configuration settings for the Vulkan
// video encoder.
package config

import (
	"errors"

	"github.com/ausocean/utils/logging"
)

// Codec selections.
const (
	CodecH264 = "h264"
	CodecH265 = "h265"
)

// Rate control modes.
const (
	RateControlDefault = iota
	RateControlDisabled
	RateControlCBR
	RateControlVBR
)

// Default configuration values.
const (
	defaultIdrPeriod      = 30
	defaultNumSlices      = 1
	defaultMinQP          = 1
	defaultMaxQP          = 51
	defaultQP             = 26
	defaultRefFrames      = 3
	defaultAverageBitrate = 10000000 // 10 Mbps.
	defaultFrameRateNum   = 30
	defaultFrameRateDen   = 1
	defaultBitDepth       = 8
)

// Field bounds.
const (
	MaxIdrPeriod = 1024
	MaxNumSlices = 200
	MaxQPValue   = 51
	MaxRefFrames = 15
)

// Config provides parameters relevant to an encoder instance. A new
// config must be passed to the constructor; default values for absent
// fields are installed by Validate.
type Config struct {
	// Codec selects the output codec, CodecH264 or CodecH265.
	Codec string

	// Profile names the codec profile. Valid values for H.264 are
	// "baseline", "main" and "high"; for H.265 "main" and "main10".
	// Empty selects a profile from the bit depth.
	Profile string

	// Level names the codec level, e.g. "4.1". Empty or "auto"
	// derives the level from resolution, frame rate and bitrate.
	Level string

	Width  uint // Input width in luma samples.
	Height uint // Input height in luma samples.

	// FrameRateNum and FrameRateDen give the input frame rate as a
	// rational.
	FrameRateNum uint
	FrameRateDen uint

	BitDepth uint // Luma and chroma sample bit depth, 8 or 10.

	// IdrPeriod is the distance in frames between IDR pictures. Zero
	// selects roughly one IDR per second from the frame rate.
	IdrPeriod uint

	// NumBFrames is the number of B frames between anchors. B frames
	// are supported for H.265 only and clamped to keep a non-B frame
	// at the group boundary.
	NumBFrames uint

	// BPyramid enables layered B references, letting some B frames
	// reference later B frames.
	BPyramid bool

	// NumIFrames is the number of additional I pictures inserted per
	// group beyond the opening IDR.
	NumIFrames uint

	// RefFrames is the decoded picture buffer depth.
	RefFrames uint

	// RefNumList0 and RefNumList1 cap the forward and backward
	// reference list sizes. Zero leaves the cap at the driver limit.
	RefNumList0 uint
	RefNumList1 uint

	// RateControl selects the rate control mode; one of the
	// RateControl enums above.
	RateControl int

	// AverageBitrate is the target bitrate in bits per second for the
	// CBR and VBR modes.
	AverageBitrate uint

	// QualityLevel is the implementation quality hint, bounded by the
	// driver's advertised maximum.
	QualityLevel uint

	MinQP uint // Rate control quantization floor.
	MaxQP uint // Rate control quantization ceiling.
	QPI   uint // I frame quantization (constant QP or initial).
	QPP   uint // P frame quantization.
	QPB   uint // B frame quantization.

	// NumSlices is the slice count per frame.
	NumSlices uint

	// AUD inserts an access unit delimiter ahead of every frame.
	AUD bool

	// CCInsert inserts CEA-708 caption SEI for frames carrying
	// caption metadata.
	CCInsert bool

	// Logger holds an implementation of the logging.Logger interface.
	// This must be set for the encoder to work correctly.
	Logger logging.Logger

	// LogLevel is the encoder logging verbosity level.
	LogLevel int8
}

// Errors returned by Validate.
var (
	ErrNoLogger        = errors.New("no logger set in config")
	ErrNoDimensions    = errors.New("width and height must be non-zero")
	ErrBadCodec        = errors.New("codec must be h264 or h265")
	ErrQPRangeInverted = errors.New("min-qp exceeds max-qp")
)

// Validate checks cfg for errors and installs defaults for absent
// fields, clamping out of range values where a sensible bound exists.
func (c *Config) Validate() error {
	if c.Logger == nil {
		return ErrNoLogger
	}
	switch c.Codec {
	case CodecH264, CodecH265:
	case "":
		c.Codec = CodecH264
	default:
		return ErrBadCodec
	}
	if c.Width == 0 || c.Height == 0 {
		return ErrNoDimensions
	}
	if c.FrameRateNum == 0 {
		c.FrameRateNum = defaultFrameRateNum
	}
	if c.FrameRateDen == 0 {
		c.FrameRateDen = defaultFrameRateDen
	}
	if c.BitDepth == 0 {
		c.BitDepth = defaultBitDepth
	}
	if c.IdrPeriod > MaxIdrPeriod {
		c.Logger.Info("idr-period out of range, clamping", "idrPeriod", int(c.IdrPeriod))
		c.IdrPeriod = MaxIdrPeriod
	}
	if c.NumSlices == 0 {
		c.NumSlices = defaultNumSlices
	}
	if c.NumSlices > MaxNumSlices {
		c.NumSlices = MaxNumSlices
	}
	if c.MaxQP == 0 {
		c.MaxQP = defaultMaxQP
	}
	for _, qp := range []*uint{&c.MinQP, &c.MaxQP, &c.QPI, &c.QPP, &c.QPB} {
		if *qp > MaxQPValue {
			*qp = MaxQPValue
		}
	}
	if c.MinQP > c.MaxQP {
		return ErrQPRangeInverted
	}
	if c.QPI == 0 {
		c.QPI = defaultQP
	}
	if c.QPP == 0 {
		c.QPP = defaultQP
	}
	if c.QPB == 0 {
		c.QPB = defaultQP
	}
	if c.RefFrames > MaxRefFrames {
		c.RefFrames = MaxRefFrames
	}
	if c.AverageBitrate == 0 {
		c.AverageBitrate = defaultAverageBitrate
	}
	if c.Codec == CodecH264 && c.NumBFrames != 0 {
		// B frame scheduling is implemented for H.265 only.
		c.Logger.Info("B frames unsupported for h264, disabling")
		c.NumBFrames = 0
		c.BPyramid = false
	}
	return nil
}

// DefaultConfig returns a Config with the documented defaults for the
// given logger and geometry, ready for Validate.
func DefaultConfig(l logging.Logger, width, height uint) Config {
	return Config{
		Width:          width,
		Height:         height,
		IdrPeriod:      defaultIdrPeriod,
		RefFrames:      defaultRefFrames,
		MinQP:          defaultMinQP,
		MaxQP:          defaultMaxQP,
		QPI:            defaultQP,
		QPP:            defaultQP,
		QPB:            defaultQP,
		NumSlices:      defaultNumSlices,
		AverageBitrate: defaultAverageBitrate,
		FrameRateNum:   defaultFrameRateNum,
		FrameRateDen:   defaultFrameRateDen,
		BitDepth:       defaultBitDepth,
		Logger:         l,
	}
}
