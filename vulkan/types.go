/*
DESCRIPTION
  types.go provides plain Go mirrors of the Vulkan video structures and
  enumerants consumed by the session orchestration and operation
  recording layers. Values follow the Vulkan registry.

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

// Package vulkan provides the video session orchestration and GPU
// operation recording layers of the encoder. The driver itself is
// reached through the Backend interface; this package owns session
// lifecycle, synchronization and query bookkeeping on top of it.
package vulkan

// Opaque driver handles. A Backend implementation maps these to its
// own objects; the zero value is the null handle.
type (
	Image                  uint64
	ImageView              uint64
	Buffer                 uint64
	Semaphore              uint64
	Fence                  uint64
	CommandBuffer          uint64
	QueryPool              uint64
	VideoSession           uint64
	VideoSessionParameters uint64
)

// Extension names inspected at recorder construction.
const (
	ExtSynchronization2  = "VK_KHR_synchronization2"
	ExtTimelineSemaphore = "VK_KHR_timeline_semaphore"
)

// Extent2D is a two dimensional extent in pixels.
type Extent2D struct {
	Width  uint32
	Height uint32
}

// Offset2D is a two dimensional offset in pixels.
type Offset2D struct {
	X int32
	Y int32
}

// Format identifies an image pixel format. Values are Vulkan format
// enumerants; only the multi-planar YCbCr formats the encoder
// recognizes are named.
type Format uint32

const (
	FormatUndefined            Format = 0
	FormatG8B8R83Plane420Unorm Format = 1000156002 // I420
	FormatG8B8R82Plane420Unorm Format = 1000156003 // NV12
	FormatG10B10R102Plane420Unorm Format = 1000156010 // P010
)

// VideoCodecOperation selects the codec of a video profile.
type VideoCodecOperation uint32

const (
	VideoCodecOperationEncodeH264 VideoCodecOperation = 0x00010000
	VideoCodecOperationEncodeH265 VideoCodecOperation = 0x00020000
)

// VideoChromaSubsampling is the chroma subsampling of a video profile.
type VideoChromaSubsampling uint32

const (
	VideoChromaSubsamplingMonochrome VideoChromaSubsampling = 0x01
	VideoChromaSubsampling420        VideoChromaSubsampling = 0x02
	VideoChromaSubsampling422        VideoChromaSubsampling = 0x04
	VideoChromaSubsampling444        VideoChromaSubsampling = 0x08
)

// VideoComponentBitDepth is the sample bit depth of a video profile.
type VideoComponentBitDepth uint32

const (
	VideoComponentBitDepth8  VideoComponentBitDepth = 0x01
	VideoComponentBitDepth10 VideoComponentBitDepth = 0x04
	VideoComponentBitDepth12 VideoComponentBitDepth = 0x10
)

// VideoProfileInfo describes a video profile. StdProfileIdc carries
// the codec standard profile_idc chained to the profile.
type VideoProfileInfo struct {
	VideoCodecOperation VideoCodecOperation
	ChromaSubsampling   VideoChromaSubsampling
	LumaBitDepth        VideoComponentBitDepth
	ChromaBitDepth      VideoComponentBitDepth
	StdProfileIdc       uint32
}

// Version is a Vulkan style packed version, unpacked.
type Version struct {
	Major uint32
	Minor uint32
	Patch uint32
}

// AtLeast reports whether v is not older than o.
func (v Version) AtLeast(o Version) bool {
	if v.Major != o.Major {
		return v.Major > o.Major
	}
	if v.Minor != o.Minor {
		return v.Minor > o.Minor
	}
	return v.Patch >= o.Patch
}

// ExtensionProperties names a standard header extension and its
// specification version.
type ExtensionProperties struct {
	Name        string
	SpecVersion Version
}

// VideoCapabilities mirrors the driver's video capability query.
type VideoCapabilities struct {
	MinBitstreamBufferOffsetAlignment uint64
	MinBitstreamBufferSizeAlignment   uint64
	PictureAccessGranularity          Extent2D
	MinCodedExtent                    Extent2D
	MaxCodedExtent                    Extent2D
	MaxDpbSlots                       uint32
	MaxActiveReferencePictures        uint32
	StdHeaderVersion                  ExtensionProperties
}

// VideoEncodeCapabilities mirrors the encode specific capability block.
type VideoEncodeCapabilities struct {
	RateControlModes              RateControlMode
	MaxRateControlLayers          uint32
	MaxBitrate                    uint64
	MaxQualityLevels              uint32
	EncodeInputPictureGranularity Extent2D
	MaxPPictureL0ReferenceCount   uint32
	MaxBPictureL0ReferenceCount   uint32
	MaxL1ReferenceCount           uint32
}

// ImageUsage selects the video usage a format is enumerated for.
type ImageUsage uint32

const (
	ImageUsageVideoEncodeDst ImageUsage = 0x00002000
	ImageUsageVideoEncodeSrc ImageUsage = 0x00004000
	ImageUsageVideoEncodeDpb ImageUsage = 0x00008000
)

// VideoFormatProperties is one entry of the driver's video format
// enumeration.
type VideoFormatProperties struct {
	Format Format
}

// VideoSessionCreateInfo carries the parameters of session creation.
type VideoSessionCreateInfo struct {
	QueueFamilyIndex           uint32
	Profile                    VideoProfileInfo
	PictureFormat              Format
	MaxCodedExtent             Extent2D
	ReferencePictureFormat     Format
	MaxDpbSlots                uint32
	MaxActiveReferencePictures uint32
	StdHeaderVersion           ExtensionProperties
}

// VideoSessionParametersCreateInfo carries session parameters
// creation. AddInfo is the codec specific parameter set add structure:
// a *h264 or *h265 session parameters add info.
type VideoSessionParametersCreateInfo struct {
	Session VideoSession
	AddInfo any
}

// VideoSessionParametersGetInfo selects which encoded parameter sets
// to retrieve from the driver.
type VideoSessionParametersGetInfo struct {
	Parameters VideoSessionParameters
	WriteStdVPS bool
	WriteStdSPS bool
	WriteStdPPS bool
	StdVPSID    uint8
	StdSPSID    uint8
	StdPPSID    uint8
}

// ImageLayout is a Vulkan image layout.
type ImageLayout uint32

const (
	ImageLayoutUndefined      ImageLayout = 0
	ImageLayoutGeneral        ImageLayout = 1
	ImageLayoutVideoEncodeDst ImageLayout = 1000299000
	ImageLayoutVideoEncodeSrc ImageLayout = 1000299001
	ImageLayoutVideoEncodeDpb ImageLayout = 1000299002
)

// PipelineStage is a synchronization2 pipeline stage mask.
type PipelineStage uint64

const (
	PipelineStageNone        PipelineStage = 0
	PipelineStageTopOfPipe   PipelineStage = 0x00000001
	PipelineStageBottomOfPipe PipelineStage = 0x00002000
	PipelineStageTransfer    PipelineStage = 0x00001000
	PipelineStageAllCommands PipelineStage = 0x00010000
	PipelineStageVideoEncode PipelineStage = 0x08000000
)

// Access is a synchronization2 access mask.
type Access uint64

const (
	AccessNone             Access = 0
	AccessTransferRead     Access = 0x00000800
	AccessTransferWrite    Access = 0x00001000
	AccessMemoryRead       Access = 0x00008000
	AccessMemoryWrite      Access = 0x00010000
	AccessVideoEncodeRead  Access = 0x2000000000
	AccessVideoEncodeWrite Access = 0x4000000000
)

// QueueFamilyIgnored leaves barrier queue family ownership untouched.
const QueueFamilyIgnored = ^uint32(0)

// ImageMemoryBarrier is an image memory barrier in the two-mask
// synchronization2 form; the recorder lowers it for drivers without
// that extension.
type ImageMemoryBarrier struct {
	SrcStageMask  PipelineStage
	DstStageMask  PipelineStage
	SrcAccessMask Access
	DstAccessMask Access
	OldLayout     ImageLayout
	NewLayout     ImageLayout
	SrcQueueFamilyIndex uint32
	DstQueueFamilyIndex uint32
	Image         Image
	BaseArrayLayer uint32
	LayerCount     uint32
}

// SemaphoreSubmitInfo is one wait or signal operation of a submission.
type SemaphoreSubmitInfo struct {
	Semaphore Semaphore
	Value     uint64
	StageMask PipelineStage
}

// SubmitInfo is a queue submission; the recorder populates the arrays
// appropriate to the synchronization path in use.
type SubmitInfo struct {
	WaitSemaphores   []SemaphoreSubmitInfo
	CommandBuffers   []CommandBuffer
	SignalSemaphores []SemaphoreSubmitInfo
}

// VideoPictureResourceInfo binds an image view region to a coding
// operation.
type VideoPictureResourceInfo struct {
	CodedOffset      Offset2D
	CodedExtent      Extent2D
	BaseArrayLayer   uint32
	ImageViewBinding ImageView
}

// VideoReferenceSlotInfo describes one DPB slot of a coding scope.
// StdReferenceInfo is the codec specific DPB slot info: a
// *h264.ReferenceInfo or *h265.ReferenceInfo.
type VideoReferenceSlotInfo struct {
	SlotIndex        int32
	PictureResource  *VideoPictureResourceInfo
	StdReferenceInfo any
}

// VideoBeginCodingInfo begins a video coding scope.
type VideoBeginCodingInfo struct {
	Session        VideoSession
	Parameters     VideoSessionParameters
	ReferenceSlots []VideoReferenceSlotInfo
	RateControl    *RateControlInfo
}

// VideoCodingControlFlags selects the control operations applied by a
// control command.
type VideoCodingControlFlags uint32

const (
	VideoCodingControlReset        VideoCodingControlFlags = 0x1
	VideoCodingControlRateControl  VideoCodingControlFlags = 0x2
	VideoCodingControlQualityLevel VideoCodingControlFlags = 0x4
)

// VideoCodingControlInfo is a coding control command.
type VideoCodingControlInfo struct {
	Flags        VideoCodingControlFlags
	RateControl  *RateControlInfo
	QualityLevel *QualityLevelInfo
}

// RateControlMode is the video encode rate control mode.
type RateControlMode uint32

const (
	RateControlModeDefault  RateControlMode = 0
	RateControlModeDisabled RateControlMode = 0x1
	RateControlModeCBR      RateControlMode = 0x2
	RateControlModeVBR      RateControlMode = 0x4
)

// RateControlLayerInfo is one rate control layer. CodecLayerInfo is
// the codec specific layer structure carrying the QP bounds.
type RateControlLayerInfo struct {
	AverageBitrate        uint64
	MaxBitrate            uint64
	FrameRateNumerator    uint32
	FrameRateDenominator  uint32
	CodecLayerInfo        any
}

// RateControlInfo is the rate control state of a coding scope.
type RateControlInfo struct {
	Mode                          RateControlMode
	Layers                        []RateControlLayerInfo
	VirtualBufferSizeInMs         uint32
	InitialVirtualBufferSizeInMs  uint32
}

// QualityLevelInfo carries the encode quality level control.
type QualityLevelInfo struct {
	QualityLevel uint32
}

// VideoEncodeInfo is one encode command. CodecInfo is the codec
// specific picture info: a *h264.PictureInfo or *h265.PictureInfo
// alongside its slice entries.
type VideoEncodeInfo struct {
	DstBuffer          Buffer
	DstBufferOffset    uint64
	DstBufferRange     uint64
	SrcPictureResource VideoPictureResourceInfo
	SetupReferenceSlot *VideoReferenceSlotInfo
	ReferenceSlots     []VideoReferenceSlotInfo
	PrecedingExternallyEncodedBytes uint32
	CodecInfo          any
}

// QueryType selects a query pool type.
type QueryType uint32

const QueryTypeVideoEncodeFeedback QueryType = 1000299000

// QueryResultStatus is the status element of an encode feedback query.
type QueryResultStatus int32

const (
	QueryResultStatusError    QueryResultStatus = -1
	QueryResultStatusNotReady QueryResultStatus = 0
	QueryResultStatusComplete QueryResultStatus = 1
)

// VideoEncodeFeedback is the result tuple of one encode feedback
// query: byte offset and size of the written bitstream and the
// operation status.
type VideoEncodeFeedback struct {
	Offset uint32
	Size   uint32
	Status QueryResultStatus
}
