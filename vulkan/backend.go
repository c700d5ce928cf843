/*
DESCRIPTION
  backend.go defines the Backend interface through which the encoder
  reaches the Vulkan driver, and a registry for driver bindings.

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

package vulkan

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// ErrTimeout is returned by Backend.WaitForFences when the timeout
// expires before all fences signal.
var ErrTimeout = errors.New("vulkan: wait timed out")

// Backend is the driver surface consumed by the session and recorder
// layers. A binding wraps a VkDevice and its video encode queue; all
// handles are scoped to that device.
type Backend interface {
	// HasDeviceExtension reports whether the device was created with
	// the named extension enabled.
	HasDeviceExtension(name string) bool

	// GetVideoCapabilities queries the video and encode capability
	// blocks for the profile.
	GetVideoCapabilities(profile VideoProfileInfo) (VideoCapabilities, VideoEncodeCapabilities, error)

	// GetVideoFormatProperties enumerates the image formats usable
	// with the profile for the given usage.
	GetVideoFormatProperties(profile VideoProfileInfo, usage ImageUsage) ([]VideoFormatProperties, error)

	// Session lifecycle.
	CreateVideoSession(info *VideoSessionCreateInfo) (VideoSession, error)
	DestroyVideoSession(s VideoSession)
	CreateVideoSessionParameters(info *VideoSessionParametersCreateInfo) (VideoSessionParameters, error)
	DestroyVideoSessionParameters(p VideoSessionParameters)

	// GetEncodedSessionParameters retrieves the driver-encoded
	// parameter set bytes. A nil buf returns the required size.
	GetEncodedSessionParameters(info *VideoSessionParametersGetInfo, buf []byte) (int, error)

	// Bitstream buffers.
	CreateBitstreamBuffer(size uint64) (Buffer, error)
	DestroyBuffer(b Buffer)
	ReadBuffer(b Buffer, offset, size uint64) ([]byte, error)

	// Images. CreateImage allocates a device-local image with one
	// Plane per format plane, each with a bound view and a timeline
	// semaphore when the device supports them.
	CreateImage(format Format, extent Extent2D, usage ImageUsage) (*FrameImage, error)
	DestroyImage(f *FrameImage)

	// Command buffers, allocated from the binding's video command pool.
	AllocateCommandBuffer() (CommandBuffer, error)
	FreeCommandBuffer(cb CommandBuffer)
	BeginCommandBuffer(cb CommandBuffer) error
	EndCommandBuffer(cb CommandBuffer) error

	// Barriers. CmdPipelineBarrier2 requires the synchronization2
	// extension; CmdPipelineBarrier is the legacy form with the stage
	// masks lowered by the caller.
	CmdPipelineBarrier2(cb CommandBuffer, barriers []ImageMemoryBarrier)
	CmdPipelineBarrier(cb CommandBuffer, src, dst PipelineStage, barriers []ImageMemoryBarrier)

	// Video coding scope.
	CmdBeginVideoCoding(cb CommandBuffer, info *VideoBeginCodingInfo)
	CmdControlVideoCoding(cb CommandBuffer, info *VideoCodingControlInfo)
	CmdEncodeVideo(cb CommandBuffer, info *VideoEncodeInfo)
	CmdEndVideoCoding(cb CommandBuffer)

	// Query pool.
	CreateQueryPool(t QueryType, count uint32, profile VideoProfileInfo) (QueryPool, error)
	DestroyQueryPool(p QueryPool)
	CmdResetQueryPool(cb CommandBuffer, p QueryPool, first, count uint32)
	CmdBeginQuery(cb CommandBuffer, p QueryPool, id uint32)
	CmdEndQuery(cb CommandBuffer, p QueryPool, id uint32)
	GetQueryPoolResults(p QueryPool, first, count uint32) ([]VideoEncodeFeedback, error)

	// Submission. QueueSubmit2 requires synchronization2; QueueSubmit
	// is the legacy path, with timeline values carried in the
	// semaphore infos when the timeline extension is present.
	QueueSubmit2(info *SubmitInfo, fence Fence) error
	QueueSubmit(info *SubmitInfo, fence Fence) error

	// Fences.
	CreateFence() (Fence, error)
	DestroyFence(f Fence)
	WaitForFences(fences []Fence, all bool, timeout time.Duration) error
}

var (
	backendsMu sync.RWMutex
	backends   = make(map[string]func() (Backend, error))
)

// RegisterBackend makes a driver binding available under the given
// name. It panics on a duplicate registration, mirroring database/sql.
func RegisterBackend(name string, open func() (Backend, error)) {
	backendsMu.Lock()
	defer backendsMu.Unlock()
	if _, dup := backends[name]; dup {
		panic("vulkan: RegisterBackend called twice for backend " + name)
	}
	backends[name] = open
}

// Backends returns the sorted names of the registered bindings.
func Backends() []string {
	backendsMu.RLock()
	defer backendsMu.RUnlock()
	var names []string
	for n := range backends {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// OpenBackend opens the named driver binding.
func OpenBackend(name string) (Backend, error) {
	backendsMu.RLock()
	open, ok := backends[name]
	backendsMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("vulkan: unknown backend %q (registered: %v)", name, Backends())
	}
	return open()
}
