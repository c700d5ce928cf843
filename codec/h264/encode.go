/*
DESCRIPTION
  encode.go provides the codec specific structures chained onto the
  generic video session and encode descriptors.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2025 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package h264

// SessionParametersAddInfo carries the parameter sets installed into a
// video session parameters object.
type SessionParametersAddInfo struct {
	SPS []*SPS
	PPS []*PPS
}

// NaluSliceInfo describes one slice NALU of an encode operation.
// ConstantQp is honored when rate control is disabled.
type NaluSliceInfo struct {
	ConstantQp  int32
	SliceHeader *SliceHeader
}

// PictureEncodeInfo is the codec structure chained onto the generic
// encode descriptor.
type PictureEncodeInfo struct {
	Slices []NaluSliceInfo
	Std    *PictureInfo
}

// FrameQps carries per slice type quantization values.
type FrameQps struct {
	QpI int32
	QpP int32
	QpB int32
}

// RateControlLayerInfo is the codec structure chained onto a rate
// control layer.
type RateControlLayerInfo struct {
	UseMinQp        bool
	MinQp           FrameQps
	UseMaxQp        bool
	MaxQp           FrameQps
	UseMaxFrameSize bool
}
