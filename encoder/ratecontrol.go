/*
DESCRIPTION
  ratecontrol.go provides the thin shim translating the configured
  rate control mode into the structures handed to the GPU at begin
  coding time.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2025 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package encoder

import (
	"github.com/ausocean/vkvideo/encoder/config"
	"github.com/ausocean/vkvideo/vulkan"
)

// rateControlInfo builds the rate control structure for the session,
// or nil for the driver default mode.
func (e *Encoder) rateControlInfo() *vulkan.RateControlInfo {
	switch e.cfg.RateControl {
	case config.RateControlDisabled:
		return &vulkan.RateControlInfo{Mode: vulkan.RateControlModeDisabled}
	case config.RateControlCBR:
		avg := uint64(e.cfg.AverageBitrate)
		return &vulkan.RateControlInfo{
			Mode:   vulkan.RateControlModeCBR,
			Layers: []vulkan.RateControlLayerInfo{e.rcLayer(avg, avg)},
		}
	case config.RateControlVBR:
		avg := uint64(e.cfg.AverageBitrate)
		// Allow bursts of half again the average.
		return &vulkan.RateControlInfo{
			Mode:   vulkan.RateControlModeVBR,
			Layers: []vulkan.RateControlLayerInfo{e.rcLayer(avg, avg*3/2)},
		}
	default:
		return nil
	}
}

func (e *Encoder) rcLayer(avg, max uint64) vulkan.RateControlLayerInfo {
	return vulkan.RateControlLayerInfo{
		AverageBitrate:       avg,
		MaxBitrate:           max,
		FrameRateNumerator:   uint32(e.cfg.FrameRateNum),
		FrameRateDenominator: uint32(e.cfg.FrameRateDen),
		CodecLayerInfo:       e.ops.rcLayer(),
	}
}

// firstOpControl builds the control command applied ahead of the first
// encode of a session: state reset, the rate control mode and, when
// configured, the quality level.
func (e *Encoder) firstOpControl() *vulkan.VideoCodingControlInfo {
	ctl := &vulkan.VideoCodingControlInfo{
		Flags:       vulkan.VideoCodingControlReset | vulkan.VideoCodingControlRateControl,
		RateControl: e.rateControlInfo(),
	}
	if ctl.RateControl == nil {
		ctl.RateControl = &vulkan.RateControlInfo{Mode: vulkan.RateControlModeDefault}
	}
	if e.cfg.QualityLevel > 0 {
		ctl.Flags |= vulkan.VideoCodingControlQualityLevel
		ctl.QualityLevel = &vulkan.QualityLevelInfo{QualityLevel: uint32(e.cfg.QualityLevel)}
	}
	return ctl
}
