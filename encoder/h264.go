/*
DESCRIPTION
  h264.go provides the H.264 value of the encoder's codec operation
  set: profile and level selection, parameter set construction and the
  per-picture standard structures.

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
	"fmt"

	"github.com/ausocean/vkvideo/codec/h264"
	"github.com/ausocean/vkvideo/encoder/config"
	"github.com/ausocean/vkvideo/vulkan"
)

// The codec standard headers this package was written against.
const (
	h264StdHeaderName = "VK_STD_vulkan_video_codec_h264_encode"
)

var h264StdHeaderVersion = vulkan.Version{Major: 1, Minor: 0, Patch: 0}

type h264Ops struct {
	cfg  *config.Config
	plan *gopPlan

	profile  h264.ProfileIdc
	level    h264.Level
	sps      *h264.SPS
	pps      *h264.PPS
	idrPicID uint16
}

func newH264Ops(cfg *config.Config, plan *gopPlan) (*h264Ops, error) {
	o := &h264Ops{cfg: cfg, plan: plan}

	switch cfg.Profile {
	case "baseline":
		o.profile = h264.ProfileBaseline
	case "main":
		o.profile = h264.ProfileMain
	case "high":
		o.profile = h264.ProfileHigh
	case "":
		if cfg.BitDepth > 8 {
			o.profile = h264.ProfileHigh10
		} else {
			o.profile = h264.ProfileHigh
		}
	default:
		return nil, fmt.Errorf("unknown h264 profile %q", cfg.Profile)
	}

	var err error
	o.level, err = h264SelectLevel(cfg, plan, o.profile)
	if err != nil {
		return nil, err
	}

	info := h264.ParamInfo{
		Profile:            o.profile,
		Level:              o.level.Idc,
		Width:              uint32(cfg.Width),
		Height:             uint32(cfg.Height),
		ChromaFormat:       h264.Chroma420,
		BitDepthLuma:       uint8(cfg.BitDepth),
		BitDepthChroma:     uint8(cfg.BitDepth),
		MaxNumRefFrames:    uint8(plan.numRefFrames),
		Log2MaxFrameNum:    uint8(plan.log2MaxFrameNum),
		Log2MaxPicOrderCnt: uint8(plan.log2MaxPicOrderCnt),
		NumRefIdxL0:        uint8(plan.refNumList0),
		NumRefIdxL1:        uint8(plan.refNumList1),
	}
	o.sps = h264.NewSPS(info)
	o.pps = h264.NewPPS(info)
	return o, nil
}

func h264SelectLevel(cfg *config.Config, plan *gopPlan, profile h264.ProfileIdc) (h264.Level, error) {
	if cfg.Level == "" || cfg.Level == "auto" {
		return h264.SelectLevel(
			uint32(cfg.Width), uint32(cfg.Height),
			uint32(cfg.FrameRateNum), uint32(cfg.FrameRateDen),
			plan.numRefFrames, uint64(cfg.AverageBitrate), profile)
	}
	for _, l := range h264.Levels {
		if l.Name == cfg.Level {
			return l, nil
		}
	}
	return h264.Level{}, fmt.Errorf("unknown h264 level %q", cfg.Level)
}

func (o *h264Ops) name() string { return "h264" }

func (o *h264Ops) operation() vulkan.VideoCodecOperation {
	return vulkan.VideoCodecOperationEncodeH264
}

func (o *h264Ops) profileIdc() uint32 { return uint32(o.profile) }

func (o *h264Ops) stdHeaderName() string { return h264StdHeaderName }

func (o *h264Ops) stdHeaderVersion() vulkan.Version { return h264StdHeaderVersion }

func (o *h264Ops) levelName() string { return o.level.Name }

func (o *h264Ops) sessionParamsAddInfo() any {
	return &h264.SessionParametersAddInfo{
		SPS: []*h264.SPS{o.sps},
		PPS: []*h264.PPS{o.pps},
	}
}

func (o *h264Ops) headersGetInfo() *vulkan.VideoSessionParametersGetInfo {
	return &vulkan.VideoSessionParametersGetInfo{
		WriteStdSPS: true,
		WriteStdPPS: true,
	}
}

func h264SliceType(t SliceType) h264.SliceType {
	switch t {
	case SliceP:
		return h264.SliceTypeP
	case SliceB:
		return h264.SliceTypeB
	default:
		return h264.SliceTypeI
	}
}

func h264PictureType(f *FrameRecord) h264.PictureType {
	if f.GopIndex == 0 {
		return h264.PictureTypeIDR
	}
	switch f.SliceType {
	case SliceP:
		return h264.PictureTypeP
	case SliceB:
		return h264.PictureTypeB
	default:
		return h264.PictureTypeI
	}
}

func (o *h264Ops) pictureInfo(e *Encoder, id int, list0, list1 []int) any {
	f := e.arena.get(id)
	std := &h264.PictureInfo{
		Flags: h264.PictureInfoFlags{
			IdrPicFlag:  f.GopIndex == 0,
			IsReference: f.IsReference,
		},
		PrimaryPicType: h264PictureType(f),
		FrameNum:       f.FrameNum,
		PicOrderCnt:    int32(f.Poc),
	}
	if std.Flags.IdrPicFlag {
		std.IdrPicID = o.idrPicID
		o.idrPicID++
	}

	if f.SliceType != SliceI {
		rl := h264.NewReferenceLists()
		want0 := make([]uint32, len(list0))
		for i, rid := range list0 {
			r := e.arena.get(rid)
			rl.RefPicList0[i] = uint8(r.DpbSlotIndex)
			want0[i] = r.FrameNum
		}
		rl.NumRefIdxL0Active = uint8(len(list0))
		want1 := make([]uint32, len(list1))
		for i, rid := range list1 {
			r := e.arena.get(rid)
			rl.RefPicList1[i] = uint8(r.DpbSlotIndex)
			want1[i] = r.FrameNum
		}
		rl.NumRefIdxL1Active = uint8(len(list1))

		rl.RefList0Mods = h264.RefListModifications(f.FrameNum, o.plan.maxFrameNum,
			e.dpb.implicitList0(len(list0)), want0)
		if len(list1) > 0 {
			rl.RefList1Mods = h264.RefListModifications(f.FrameNum, o.plan.maxFrameNum,
				e.dpb.implicitList1(len(list1)), want1)
		}

		if f.UnusedReferencePicNum >= 0 {
			std.Flags.AdaptiveRefPicMarkingModeFlag = true
			rl.RefPicMarkings = h264.RefPicMarkings(f.FrameNum,
				uint32(f.UnusedReferencePicNum), o.plan.maxFrameNum)
		}
		std.RefLists = rl
	}

	slices := make([]h264.NaluSliceInfo, o.cfg.NumSlices)
	for i := range slices {
		hdr := &h264.SliceHeader{
			SliceType:   h264SliceType(f.SliceType),
			WeightTable: &h264.WeightTable{},
		}
		slices[i] = h264.NaluSliceInfo{
			ConstantQp:  o.constantQp(f.SliceType),
			SliceHeader: hdr,
		}
	}
	return &h264.PictureEncodeInfo{Slices: slices, Std: std}
}

func (o *h264Ops) constantQp(t SliceType) int32 {
	if o.cfg.RateControl != config.RateControlDisabled {
		return 0
	}
	switch t {
	case SliceP:
		return int32(o.cfg.QPP)
	case SliceB:
		return int32(o.cfg.QPB)
	default:
		return int32(o.cfg.QPI)
	}
}

func (o *h264Ops) referenceInfo(f *FrameRecord) any {
	return &h264.ReferenceInfo{
		PrimaryPicType: h264PictureType(f),
		FrameNum:       f.FrameNum,
		PicOrderCnt:    int32(f.Poc),
	}
}

func (o *h264Ops) rcLayer() any {
	return &h264.RateControlLayerInfo{
		UseMinQp: o.cfg.MinQP > 0,
		MinQp:    h264.FrameQps{QpI: int32(o.cfg.MinQP), QpP: int32(o.cfg.MinQP), QpB: int32(o.cfg.MinQP)},
		UseMaxQp: o.cfg.MaxQP > 0,
		MaxQp:    h264.FrameQps{QpI: int32(o.cfg.MaxQP), QpP: int32(o.cfg.MaxQP), QpB: int32(o.cfg.MaxQP)},
	}
}

func (o *h264Ops) writeAUD(t SliceType) ([]byte, error) {
	return h264.WriteAUD(audPicType(t))
}

func (o *h264Ops) writeSEI(cc []byte) ([]byte, error) {
	return h264.WriteCEA708SEI(cc)
}
