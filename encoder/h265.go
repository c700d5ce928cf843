/*
DESCRIPTION
  h265.go provides the H.265 value of the encoder's codec operation
  set: profile, level and tier selection, parameter set construction
  and the per-picture standard structures.

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
	"sort"

	"github.com/ausocean/vkvideo/codec/h265"
	"github.com/ausocean/vkvideo/encoder/config"
	"github.com/ausocean/vkvideo/vulkan"
)

// The codec standard headers this package was written against.
const (
	h265StdHeaderName = "VK_STD_vulkan_video_codec_h265_encode"
)

var h265StdHeaderVersion = vulkan.Version{Major: 1, Minor: 0, Patch: 0}

type h265Ops struct {
	cfg  *config.Config
	plan *gopPlan

	profile h265.ProfileIdc
	level   h265.Level
	tier    bool
	vps     *h265.VPS
	sps     *h265.SPS
	pps     *h265.PPS
}

func newH265Ops(cfg *config.Config, plan *gopPlan) (*h265Ops, error) {
	o := &h265Ops{cfg: cfg, plan: plan}

	switch cfg.Profile {
	case "main":
		o.profile = h265.ProfileMain
	case "main10":
		o.profile = h265.ProfileMain10
	case "":
		if cfg.BitDepth > 8 {
			o.profile = h265.ProfileMain10
		} else {
			o.profile = h265.ProfileMain
		}
	default:
		return nil, fmt.Errorf("unknown h265 profile %q", cfg.Profile)
	}

	var err error
	o.level, o.tier, err = h265SelectLevel(cfg)
	if err != nil {
		return nil, err
	}

	info := h265.ParamInfo{
		Profile:            o.profile,
		Level:              o.level.Idc,
		Tier:               o.tier,
		Width:              uint32(cfg.Width),
		Height:             uint32(cfg.Height),
		ChromaFormat:       h265.Chroma420,
		BitDepthLuma:       uint8(cfg.BitDepth),
		BitDepthChroma:     uint8(cfg.BitDepth),
		MaxDecPicBuffering: uint8(plan.numRefFrames + 1),
		MaxNumReorderPics:  uint8(plan.numBFrames),
		Log2MaxPicOrderCnt: uint8(plan.log2MaxPicOrderCnt),
		NumRefIdxL0:        uint8(plan.refNumList0),
		NumRefIdxL1:        uint8(plan.refNumList1),
	}
	o.vps = h265.NewVPS(info)
	o.sps = h265.NewSPS(info)
	o.pps = h265.NewPPS(info)
	return o, nil
}

func h265SelectLevel(cfg *config.Config) (h265.Level, bool, error) {
	if cfg.Level == "" || cfg.Level == "auto" {
		return h265.SelectLevel(
			uint32(cfg.Width), uint32(cfg.Height),
			uint32(cfg.FrameRateNum), uint32(cfg.FrameRateDen),
			uint64(cfg.AverageBitrate))
	}
	for _, l := range h265.Levels {
		if l.Name == cfg.Level {
			high := uint64(cfg.AverageBitrate) > l.MaxBRMainTier*1000 && l.MaxBRHighTier != 0
			return l, high, nil
		}
	}
	return h265.Level{}, false, fmt.Errorf("unknown h265 level %q", cfg.Level)
}

func (o *h265Ops) name() string { return "h265" }

func (o *h265Ops) operation() vulkan.VideoCodecOperation {
	return vulkan.VideoCodecOperationEncodeH265
}

func (o *h265Ops) profileIdc() uint32 { return uint32(o.profile) }

func (o *h265Ops) stdHeaderName() string { return h265StdHeaderName }

func (o *h265Ops) stdHeaderVersion() vulkan.Version { return h265StdHeaderVersion }

func (o *h265Ops) levelName() string {
	if o.tier {
		return o.level.Name + " high"
	}
	return o.level.Name
}

func (o *h265Ops) sessionParamsAddInfo() any {
	return &h265.SessionParametersAddInfo{
		VPS: []*h265.VPS{o.vps},
		SPS: []*h265.SPS{o.sps},
		PPS: []*h265.PPS{o.pps},
	}
}

func (o *h265Ops) headersGetInfo() *vulkan.VideoSessionParametersGetInfo {
	return &vulkan.VideoSessionParametersGetInfo{
		WriteStdVPS: true,
		WriteStdSPS: true,
		WriteStdPPS: true,
	}
}

func h265SliceType(t SliceType) h265.SliceType {
	switch t {
	case SliceP:
		return h265.SliceTypeP
	case SliceB:
		return h265.SliceTypeB
	default:
		return h265.SliceTypeI
	}
}

func h265PictureType(f *FrameRecord) h265.PictureType {
	if f.GopIndex == 0 {
		return h265.PictureTypeIDR
	}
	switch f.SliceType {
	case SliceP:
		return h265.PictureTypeP
	case SliceB:
		return h265.PictureTypeB
	default:
		return h265.PictureTypeI
	}
}

// h265ImplicitSlots returns the reference slot indices in the
// decoder's implicit order: decode order sorted by frame number,
// descending for the forward list and ascending for the backward list.
func h265ImplicitSlots(e *Encoder, forward bool, n int) []uint8 {
	ids := append([]int(nil), e.dpb.refList...)
	sort.SliceStable(ids, func(i, j int) bool {
		if forward {
			return e.arena.get(ids[i]).FrameNum > e.arena.get(ids[j]).FrameNum
		}
		return e.arena.get(ids[i]).FrameNum < e.arena.get(ids[j]).FrameNum
	})
	if n > 0 && len(ids) > n {
		ids = ids[:n]
	}
	out := make([]uint8, len(ids))
	for i, id := range ids {
		out[i] = uint8(e.arena.get(id).DpbSlotIndex)
	}
	return out
}

func (o *h265Ops) pictureInfo(e *Encoder, id int, list0, list1 []int) any {
	f := e.arena.get(id)
	std := &h265.PictureInfo{
		Flags: h265.PictureInfoFlags{
			IsReference: f.IsReference,
			IrapPicFlag: f.GopIndex == 0,
		},
		PicType:        h265PictureType(f),
		PicOrderCntVal: int32(f.Poc),
	}

	if f.SliceType != SliceI {
		rl := h265.NewReferenceLists()
		want0 := make([]uint8, len(list0))
		for i, rid := range list0 {
			rl.RefPicList0[i] = uint8(e.arena.get(rid).DpbSlotIndex)
			want0[i] = rl.RefPicList0[i]
		}
		rl.NumRefIdxL0Active = uint8(len(list0))
		want1 := make([]uint8, len(list1))
		for i, rid := range list1 {
			rl.RefPicList1[i] = uint8(e.arena.get(rid).DpbSlotIndex)
			want1[i] = rl.RefPicList1[i]
		}
		rl.NumRefIdxL1Active = uint8(len(list1))

		rl.RefPicListModificationFlagL0 = h265.ListEntries(
			h265ImplicitSlots(e, true, len(list0)), want0, &rl.ListEntryL0)
		if len(list1) > 0 {
			rl.RefPicListModificationFlagL1 = h265.ListEntries(
				h265ImplicitSlots(e, false, len(list1)), want1, &rl.ListEntryL1)
		}
		std.RefLists = rl
	}

	slices := make([]h265.NaluSliceSegmentInfo, o.cfg.NumSlices)
	for i := range slices {
		hdr := &h265.SliceSegmentHeader{
			Flags: h265.SliceSegmentHeaderFlags{
				FirstSliceSegmentInPic: i == 0,
				SliceSaoLumaFlag:       true,
				SliceSaoChromaFlag:     true,
			},
			SliceType: h265SliceType(f.SliceType),
		}
		slices[i] = h265.NaluSliceSegmentInfo{
			ConstantQp:         o.constantQp(f.SliceType),
			SliceSegmentHeader: hdr,
		}
	}
	return &h265.PictureEncodeInfo{Slices: slices, Std: std}
}

func (o *h265Ops) constantQp(t SliceType) int32 {
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

func (o *h265Ops) referenceInfo(f *FrameRecord) any {
	return &h265.ReferenceInfo{
		PicType:        h265PictureType(f),
		PicOrderCntVal: int32(f.Poc),
	}
}

func (o *h265Ops) rcLayer() any {
	return &h265.RateControlLayerInfo{
		UseMinQp: o.cfg.MinQP > 0,
		MinQp:    h265.FrameQps{QpI: int32(o.cfg.MinQP), QpP: int32(o.cfg.MinQP), QpB: int32(o.cfg.MinQP)},
		UseMaxQp: o.cfg.MaxQP > 0,
		MaxQp:    h265.FrameQps{QpI: int32(o.cfg.MaxQP), QpP: int32(o.cfg.MaxQP), QpB: int32(o.cfg.MaxQP)},
	}
}

func (o *h265Ops) writeAUD(t SliceType) ([]byte, error) {
	return h265.WriteAUD(audPicType(t))
}

func (o *h265Ops) writeSEI(cc []byte) ([]byte, error) {
	return h265.WriteCEA708SEI(cc)
}
