/*
DESCRIPTION
  vktest.go provides an in-memory Backend implementation for exercising
  the session, recorder and encoder layers without a GPU. It hands out
  monotonically increasing handles, records the command stream and
  serves canned capability, format and query feedback data.

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

// Package vktest provides a driver-free vulkan.Backend for testing.
package vktest

import (
	"sync"
	"time"

	"github.com/ausocean/vkvideo/vulkan"
)

// Backend is an in-memory vulkan.Backend. The zero value is not
// usable; construct with New.
type Backend struct {
	mu   sync.Mutex
	next uint64

	// Extensions enabled on the fake device.
	Extensions []string

	// Caps and EncodeCaps are returned by GetVideoCapabilities.
	Caps       vulkan.VideoCapabilities
	EncodeCaps vulkan.VideoEncodeCapabilities

	// Formats maps usage to the advertised format list.
	Formats map[vulkan.ImageUsage][]vulkan.VideoFormatProperties

	// EncodedParams is served by GetEncodedSessionParameters.
	EncodedParams []byte

	// Bitstream is the content of every bitstream buffer.
	Bitstream []byte

	// Feedback entries are served by GetQueryPoolResults in order;
	// when exhausted a complete status covering Bitstream is served.
	Feedback []vulkan.VideoEncodeFeedback
	feedbackAt int

	// SubmitErr, when set, fails the next queue submission.
	SubmitErr error

	// Recorded state.
	Commands   []string
	Begins     []vulkan.VideoBeginCodingInfo
	Controls   []vulkan.VideoCodingControlInfo
	Encodes    []vulkan.VideoEncodeInfo
	Submits    []vulkan.SubmitInfo
	Submit2s   []vulkan.SubmitInfo
	Barriers   [][]vulkan.ImageMemoryBarrier

	AllocatedCmdBufs int
	FreedCmdBufs     int
	CreatedFences    int
	DestroyedFences  int
	LiveSessions     int
	LiveParams       int
	LiveQueryPools   int
	LiveBuffers      int
}

// New returns a Backend with capabilities generous enough for the
// package tests: NV12 for input and DPB, 16 DPB slots and matching
// standard header versions.
func New() *Backend {
	nv12 := []vulkan.VideoFormatProperties{{Format: vulkan.FormatG8B8R82Plane420Unorm}}
	return &Backend{
		Extensions: []string{vulkan.ExtSynchronization2, vulkan.ExtTimelineSemaphore},
		Caps: vulkan.VideoCapabilities{
			MinBitstreamBufferOffsetAlignment: 1,
			MinBitstreamBufferSizeAlignment:   1,
			MinCodedExtent:                    vulkan.Extent2D{Width: 16, Height: 16},
			MaxCodedExtent:                    vulkan.Extent2D{Width: 4096, Height: 4096},
			MaxDpbSlots:                       16,
			MaxActiveReferencePictures:        16,
			StdHeaderVersion: vulkan.ExtensionProperties{
				SpecVersion: vulkan.Version{Major: 1, Minor: 0, Patch: 0},
			},
		},
		EncodeCaps: vulkan.VideoEncodeCapabilities{
			RateControlModes:            vulkan.RateControlModeCBR | vulkan.RateControlModeVBR | vulkan.RateControlModeDisabled,
			MaxRateControlLayers:        1,
			MaxBitrate:                  120000000,
			MaxQualityLevels:            2,
			MaxPPictureL0ReferenceCount: 16,
			MaxBPictureL0ReferenceCount: 16,
			MaxL1ReferenceCount:         16,
		},
		Formats: map[vulkan.ImageUsage][]vulkan.VideoFormatProperties{
			vulkan.ImageUsageVideoEncodeSrc: nv12,
			vulkan.ImageUsageVideoEncodeDpb: nv12,
		},
		EncodedParams: []byte{0x00, 0x00, 0x00, 0x01, 0x67, 0x42, 0x00, 0x1E, 0x00, 0x00, 0x00, 0x01, 0x68, 0xCE, 0x38, 0x80},
		Bitstream:     make([]byte, 512),
	}
}

func (b *Backend) handle() uint64 {
	b.next++
	return b.next
}

func (b *Backend) record(cmd string) {
	b.Commands = append(b.Commands, cmd)
}

// NewFrameImage returns a two-plane FrameImage with timeline
// semaphores, as CreateImage would provide.
func (b *Backend) NewFrameImage() *vulkan.FrameImage {
	f, _ := b.CreateImage(vulkan.FormatG8B8R82Plane420Unorm, vulkan.Extent2D{}, vulkan.ImageUsageVideoEncodeSrc)
	return f
}

func (b *Backend) CreateImage(format vulkan.Format, extent vulkan.Extent2D, usage vulkan.ImageUsage) (*vulkan.FrameImage, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	f := &vulkan.FrameImage{Image: vulkan.Image(b.handle())}
	for i := 0; i < 2; i++ {
		f.Planes = append(f.Planes, vulkan.Plane{
			View:             vulkan.ImageView(b.handle()),
			Semaphore:        vulkan.Semaphore(b.handle()),
			QueueFamilyIndex: vulkan.QueueFamilyIgnored,
		})
	}
	return f, nil
}

func (b *Backend) DestroyImage(f *vulkan.FrameImage) {}

func (b *Backend) HasDeviceExtension(name string) bool {
	for _, e := range b.Extensions {
		if e == name {
			return true
		}
	}
	return false
}

func (b *Backend) GetVideoCapabilities(profile vulkan.VideoProfileInfo) (vulkan.VideoCapabilities, vulkan.VideoEncodeCapabilities, error) {
	caps := b.Caps
	if caps.StdHeaderVersion.Name == "" {
		switch profile.VideoCodecOperation {
		case vulkan.VideoCodecOperationEncodeH265:
			caps.StdHeaderVersion.Name = "VK_STD_vulkan_video_codec_h265_encode"
		default:
			caps.StdHeaderVersion.Name = "VK_STD_vulkan_video_codec_h264_encode"
		}
	}
	return caps, b.EncodeCaps, nil
}

func (b *Backend) GetVideoFormatProperties(profile vulkan.VideoProfileInfo, usage vulkan.ImageUsage) ([]vulkan.VideoFormatProperties, error) {
	return b.Formats[usage], nil
}

func (b *Backend) CreateVideoSession(info *vulkan.VideoSessionCreateInfo) (vulkan.VideoSession, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.LiveSessions++
	return vulkan.VideoSession(b.handle()), nil
}

func (b *Backend) DestroyVideoSession(s vulkan.VideoSession) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.LiveSessions--
}

func (b *Backend) CreateVideoSessionParameters(info *vulkan.VideoSessionParametersCreateInfo) (vulkan.VideoSessionParameters, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.LiveParams++
	return vulkan.VideoSessionParameters(b.handle()), nil
}

func (b *Backend) DestroyVideoSessionParameters(p vulkan.VideoSessionParameters) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.LiveParams--
}

func (b *Backend) GetEncodedSessionParameters(info *vulkan.VideoSessionParametersGetInfo, buf []byte) (int, error) {
	if buf == nil {
		return len(b.EncodedParams), nil
	}
	return copy(buf, b.EncodedParams), nil
}

func (b *Backend) CreateBitstreamBuffer(size uint64) (vulkan.Buffer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.LiveBuffers++
	return vulkan.Buffer(b.handle()), nil
}

func (b *Backend) DestroyBuffer(buf vulkan.Buffer) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.LiveBuffers--
}

func (b *Backend) ReadBuffer(buf vulkan.Buffer, offset, size uint64) ([]byte, error) {
	end := offset + size
	if end > uint64(len(b.Bitstream)) {
		end = uint64(len(b.Bitstream))
	}
	if offset > end {
		offset = end
	}
	out := make([]byte, end-offset)
	copy(out, b.Bitstream[offset:end])
	return out, nil
}

func (b *Backend) AllocateCommandBuffer() (vulkan.CommandBuffer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.AllocatedCmdBufs++
	return vulkan.CommandBuffer(b.handle()), nil
}

func (b *Backend) FreeCommandBuffer(cb vulkan.CommandBuffer) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.FreedCmdBufs++
}

func (b *Backend) BeginCommandBuffer(cb vulkan.CommandBuffer) error {
	b.record("begin")
	return nil
}

func (b *Backend) EndCommandBuffer(cb vulkan.CommandBuffer) error {
	b.record("end")
	return nil
}

func (b *Backend) CmdPipelineBarrier2(cb vulkan.CommandBuffer, barriers []vulkan.ImageMemoryBarrier) {
	b.record("barrier2")
	b.Barriers = append(b.Barriers, append([]vulkan.ImageMemoryBarrier(nil), barriers...))
}

func (b *Backend) CmdPipelineBarrier(cb vulkan.CommandBuffer, src, dst vulkan.PipelineStage, barriers []vulkan.ImageMemoryBarrier) {
	b.record("barrier")
	b.Barriers = append(b.Barriers, append([]vulkan.ImageMemoryBarrier(nil), barriers...))
}

func (b *Backend) CmdBeginVideoCoding(cb vulkan.CommandBuffer, info *vulkan.VideoBeginCodingInfo) {
	b.record("beginCoding")
	b.Begins = append(b.Begins, *info)
}

func (b *Backend) CmdControlVideoCoding(cb vulkan.CommandBuffer, info *vulkan.VideoCodingControlInfo) {
	b.record("controlCoding")
	b.Controls = append(b.Controls, *info)
}

func (b *Backend) CmdEncodeVideo(cb vulkan.CommandBuffer, info *vulkan.VideoEncodeInfo) {
	b.record("encode")
	b.Encodes = append(b.Encodes, *info)
}

func (b *Backend) CmdEndVideoCoding(cb vulkan.CommandBuffer) {
	b.record("endCoding")
}

func (b *Backend) CreateQueryPool(t vulkan.QueryType, count uint32, profile vulkan.VideoProfileInfo) (vulkan.QueryPool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.LiveQueryPools++
	return vulkan.QueryPool(b.handle()), nil
}

func (b *Backend) DestroyQueryPool(p vulkan.QueryPool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.LiveQueryPools--
}

func (b *Backend) CmdResetQueryPool(cb vulkan.CommandBuffer, p vulkan.QueryPool, first, count uint32) {
	b.record("resetQuery")
}

func (b *Backend) CmdBeginQuery(cb vulkan.CommandBuffer, p vulkan.QueryPool, id uint32) {
	b.record("beginQuery")
}

func (b *Backend) CmdEndQuery(cb vulkan.CommandBuffer, p vulkan.QueryPool, id uint32) {
	b.record("endQuery")
}

func (b *Backend) GetQueryPoolResults(p vulkan.QueryPool, first, count uint32) ([]vulkan.VideoEncodeFeedback, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.feedbackAt < len(b.Feedback) {
		f := b.Feedback[b.feedbackAt]
		b.feedbackAt++
		return []vulkan.VideoEncodeFeedback{f}, nil
	}
	return []vulkan.VideoEncodeFeedback{{
		Offset: 0,
		Size:   uint32(len(b.Bitstream)),
		Status: vulkan.QueryResultStatusComplete,
	}}, nil
}

func (b *Backend) QueueSubmit2(info *vulkan.SubmitInfo, fence vulkan.Fence) error {
	if err := b.takeSubmitErr(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Submit2s = append(b.Submit2s, *info)
	return nil
}

func (b *Backend) QueueSubmit(info *vulkan.SubmitInfo, fence vulkan.Fence) error {
	if err := b.takeSubmitErr(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Submits = append(b.Submits, *info)
	return nil
}

func (b *Backend) takeSubmitErr() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	err := b.SubmitErr
	b.SubmitErr = nil
	return err
}

func (b *Backend) CreateFence() (vulkan.Fence, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.CreatedFences++
	return vulkan.Fence(b.handle()), nil
}

func (b *Backend) DestroyFence(f vulkan.Fence) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.DestroyedFences++
}

func (b *Backend) WaitForFences(fences []vulkan.Fence, all bool, timeout time.Duration) error {
	return nil
}
