/*
DESCRIPTION
  encoder.go provides the encoder pipeline: frames are admitted in
  display order, scheduled by the group planner and reorder engine,
  given references by the DPB manager, encoded through the session and
  operation recorder and emitted in decode order.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>
  Trek Hopton <trek@ausocean.org>
  Dan Kortschak <dan@ausocean.org>

LICENSE
  Copyright (C) 2025 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package encoder provides a Vulkan backed H.264/H.265 video encoder:
// group of pictures scheduling, reference management and GPU session
// orchestration over an opaque driver backend.
package encoder

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ausocean/utils/logging"

	"github.com/ausocean/vkvideo/encoder/config"
	"github.com/ausocean/vkvideo/vulkan"
)

// Errors returned by the encoder.
var (
	ErrNotStarted     = errors.New("encoder: not started")
	ErrAlreadyStarted = errors.New("encoder: already started")
)

// The output staging buffer holds one compressed frame; a
// conservative single frame ceiling rounded up to the driver's
// alignment.
const outputBufferCeiling = 3 << 20

// Output is one emitted compressed frame, in decode order. A frame
// that failed to encode carries its error and empty data; the decode
// order of later frames is preserved.
type Output struct {
	SystemFrameNumber uint64
	Data              []byte
	PTS               time.Duration
	DTS               time.Duration
	Duration          time.Duration
	SyncPoint         bool
	Err               error
}

// EmitFunc receives emitted frames.
type EmitFunc func(Output)

// Encoder encodes raw GPU resident frames into an H.264 or H.265
// bitstream. Methods are safe for use from a single goroutine;
// internal state is additionally guarded for Update arriving from
// another.
type Encoder struct {
	cfg     config.Config
	log     logging.Logger
	backend vulkan.Backend
	emit    EmitFunc

	mu      sync.Mutex
	started bool

	ops   codecOps
	plan  *gopPlan
	arena *frameArena
	ro    *reorderEngine
	dpb   *dpbManager

	session    *vulkan.Session
	rec        *vulkan.Recorder
	caps       vulkan.VideoCapabilities
	encodeCaps vulkan.VideoEncodeCapabilities
	profile    vulkan.VideoProfileInfo

	outBuf      vulkan.Buffer
	outBufSize  uint64
	dpbImages   []*vulkan.FrameImage
	headerBytes []byte

	sysFrames   uint64
	decodeOrder uint64
	firstOp     bool
	pending     map[string]string
	frameDur    time.Duration
}

// New returns an encoder for cfg over the given driver backend. The
// emit function receives compressed frames in decode order.
func New(cfg config.Config, backend vulkan.Backend, emit EmitFunc) (*Encoder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("could not validate config: %w", err)
	}
	return &Encoder{
		cfg:     cfg,
		log:     cfg.Logger,
		backend: backend,
		emit:    emit,
	}, nil
}

func (e *Encoder) bitDepth() vulkan.VideoComponentBitDepth {
	if e.cfg.BitDepth == 10 {
		return vulkan.VideoComponentBitDepth10
	}
	return vulkan.VideoComponentBitDepth8
}

func (e *Encoder) codecOperation() vulkan.VideoCodecOperation {
	if e.cfg.Codec == config.CodecH265 {
		return vulkan.VideoCodecOperationEncodeH265
	}
	return vulkan.VideoCodecOperationEncodeH264
}

func roundUp(v, align uint64) uint64 {
	if align == 0 {
		return v
	}
	return (v + align - 1) / align * align
}

// maxRefLists derives the driver's reference list caps for planning.
func (e *Encoder) maxRefLists() (l0, l1 uint32) {
	l0 = e.encodeCaps.MaxPPictureL0ReferenceCount
	if e.cfg.NumBFrames > 0 && e.encodeCaps.MaxBPictureL0ReferenceCount < l0 {
		l0 = e.encodeCaps.MaxBPictureL0ReferenceCount
	}
	return l0, e.encodeCaps.MaxL1ReferenceCount
}

// Start brings up the GPU session and the scheduling state. It is an
// error to start a started encoder.
func (e *Encoder) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return ErrAlreadyStarted
	}

	e.profile = vulkan.VideoProfileInfo{
		VideoCodecOperation: e.codecOperation(),
		ChromaSubsampling:   vulkan.VideoChromaSubsampling420,
		LumaBitDepth:        e.bitDepth(),
		ChromaBitDepth:      e.bitDepth(),
	}

	var err error
	e.caps, e.encodeCaps, err = e.backend.GetVideoCapabilities(e.profile)
	if err != nil {
		return fmt.Errorf("could not query capabilities: %w", err)
	}
	ext := vulkan.Extent2D{Width: uint32(e.cfg.Width), Height: uint32(e.cfg.Height)}
	if ext.Width > e.caps.MaxCodedExtent.Width || ext.Height > e.caps.MaxCodedExtent.Height ||
		ext.Width < e.caps.MinCodedExtent.Width || ext.Height < e.caps.MinCodedExtent.Height {
		return fmt.Errorf("dimensions %dx%d outside driver range %dx%d..%dx%d",
			ext.Width, ext.Height,
			e.caps.MinCodedExtent.Width, e.caps.MinCodedExtent.Height,
			e.caps.MaxCodedExtent.Width, e.caps.MaxCodedExtent.Height)
	}

	l0, l1 := e.maxRefLists()
	e.plan = planGOP(&e.cfg, l0, l1)

	switch e.cfg.Codec {
	case config.CodecH265:
		e.ops, err = newH265Ops(&e.cfg, e.plan)
	default:
		e.ops, err = newH264Ops(&e.cfg, e.plan)
	}
	if err != nil {
		return fmt.Errorf("could not build codec parameters: %w", err)
	}
	e.profile.StdProfileIdc = e.ops.profileIdc()

	e.rec = vulkan.NewRecorder(e.backend, e.log)
	e.session = vulkan.NewSession(e.backend, e.log)

	slots := e.plan.numRefFrames + 1
	if slots > e.caps.MaxDpbSlots {
		slots = e.caps.MaxDpbSlots
	}
	activeRefs := e.plan.refNumList0 + e.plan.refNumList1
	if activeRefs > e.caps.MaxActiveReferencePictures {
		activeRefs = e.caps.MaxActiveReferencePictures
	}

	err = e.session.Start(e.profile, vulkan.SessionConfig{
		MaxCodedExtent:      ext,
		MaxDpbSlots:         slots,
		MaxActiveReferences: activeRefs,
		AddInfo:             e.ops.sessionParamsAddInfo(),
		StdHeaderName:       e.ops.stdHeaderName(),
		StdHeaderVersion:    e.ops.stdHeaderVersion(),
	}, e.rec)
	if err != nil {
		e.rec.Stop()
		return fmt.Errorf("could not start video session: %w", err)
	}

	e.headerBytes, err = e.session.ReadSessionHeaders(e.ops.headersGetInfo())
	if err != nil {
		e.session.Stop()
		e.rec.Stop()
		return fmt.Errorf("could not read session headers: %w", err)
	}

	e.outBufSize = roundUp(outputBufferCeiling, e.caps.MinBitstreamBufferSizeAlignment)
	e.outBuf, err = e.backend.CreateBitstreamBuffer(e.outBufSize)
	if err != nil {
		e.session.Stop()
		e.rec.Stop()
		return fmt.Errorf("could not create bitstream buffer: %w", err)
	}

	_, dpbFormat := e.session.Formats()
	e.dpbImages = e.dpbImages[:0]
	for i := uint32(0); i < slots; i++ {
		img, err := e.backend.CreateImage(dpbFormat, ext, vulkan.ImageUsageVideoEncodeDpb)
		if err != nil {
			e.destroyImages()
			e.backend.DestroyBuffer(e.outBuf)
			e.session.Stop()
			e.rec.Stop()
			return fmt.Errorf("could not create DPB image: %w", err)
		}
		e.dpbImages = append(e.dpbImages, img)
	}

	e.arena = newFrameArena()
	e.ro = newReorderEngine(e.arena, e.plan, e.log)
	refs := int(e.plan.numRefFrames)
	if refs > len(e.dpbImages)-1 {
		// The slot array was clamped by the driver; keep one slot
		// free for the frame being encoded.
		refs = len(e.dpbImages) - 1
	}
	e.dpb = newDpbManager(e.arena, e.log, refs, e.plan.bPyramid, e.dpbImages)

	e.sysFrames = 0
	e.decodeOrder = 0
	e.firstOp = true
	e.frameDur = time.Duration(uint64(time.Second) * uint64(e.cfg.FrameRateDen) / uint64(e.cfg.FrameRateNum))
	e.started = true
	e.log.Info("encoder started",
		"codec", e.ops.name(),
		"level", e.ops.levelName(),
		"idrPeriod", int(e.plan.idrPeriod),
		"numBFrames", int(e.plan.numBFrames),
		"bPyramid", e.plan.bPyramid,
		"refFrames", int(e.plan.numRefFrames))
	return nil
}

func (e *Encoder) destroyImages() {
	for _, img := range e.dpbImages {
		e.backend.DestroyImage(img)
	}
	e.dpbImages = nil
}

// Update stages configuration deltas. Deltas arriving while running
// are applied at the next group boundary; on a stopped encoder they
// apply immediately.
func (e *Encoder) Update(vars map[string]string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.started {
		return e.cfg.Update(vars)
	}
	if e.pending == nil {
		e.pending = make(map[string]string)
	}
	for k, v := range vars {
		e.pending[k] = v
	}
	e.log.Debug("staged config update", "keys", len(e.pending))
	return nil
}

// applyPending applies staged configuration deltas at a group
// boundary: the group table is replanned and the session parameters
// rebuilt. A resolution change is rejected; it requires a restart.
func (e *Encoder) applyPending() {
	vars := e.pending
	e.pending = nil
	w, h := e.cfg.Width, e.cfg.Height
	if err := e.cfg.Update(vars); err != nil {
		e.log.Error("could not apply config update", "error", err.Error())
		return
	}
	if e.cfg.Width != w || e.cfg.Height != h {
		e.log.Error("resolution change requires restart, ignoring")
		e.cfg.Width, e.cfg.Height = w, h
	}

	l0, l1 := e.maxRefLists()
	plan := planGOP(&e.cfg, l0, l1)
	var (
		ops codecOps
		err error
	)
	switch e.cfg.Codec {
	case config.CodecH265:
		ops, err = newH265Ops(&e.cfg, plan)
	default:
		ops, err = newH264Ops(&e.cfg, plan)
	}
	if err != nil {
		e.log.Error("could not rebuild codec parameters", "error", err.Error())
		return
	}
	if err := e.session.Reconfigure(ops.sessionParamsAddInfo()); err != nil {
		e.log.Error("could not reconfigure session", "error", err.Error())
		return
	}
	hdr, err := e.session.ReadSessionHeaders(ops.headersGetInfo())
	if err != nil {
		e.log.Error("could not reread session headers", "error", err.Error())
		return
	}
	e.headerBytes = hdr
	e.plan = plan
	e.ops = ops
	e.ro.setPlan(plan)
	refs := int(plan.numRefFrames)
	if refs >= len(e.dpbImages) {
		refs = len(e.dpbImages) - 1
	}
	e.dpb.maxRefFrames = refs
	e.dpb.bPyramid = plan.bPyramid
	e.log.Info("config update applied at group boundary")
}

// Push admits a frame in display order. A forced keyframe upgrades the
// frame to an IDR and restarts the group; cc carries optional CEA-708
// caption triplets. Any frames that become ready are encoded and
// emitted before Push returns.
func (e *Encoder) Push(img *vulkan.FrameImage, forceKey bool, cc []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.started {
		return ErrNotStarted
	}
	// A forced keyframe terminates the current group; any buffered
	// frames must leave before the new group opens.
	if e.ro.pending() > 0 && (forceKey || e.ro.curFrameIndex >= e.plan.idrPeriod) {
		e.ro.flush()
		e.drain()
	}
	if e.pending != nil && e.ro.startingNewGop() {
		e.applyPending()
	}
	id := e.arena.alloc()
	f := e.arena.get(id)
	f.Input = img
	f.SystemFrameNumber = e.sysFrames
	e.sysFrames++
	f.ForceKeyframe = forceKey
	f.CCData = cc
	e.ro.push(id, false)
	e.drain()
	return nil
}

// Flush drains the buffered frames, promoting the trailing B to P so
// the group terminates cleanly, and resets the group counters. The
// next frame pushed opens a new group.
func (e *Encoder) Flush() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.started {
		return ErrNotStarted
	}
	e.ro.flush()
	e.drain()
	e.ro.finishFlush()
	return nil
}

// Stop retires outstanding GPU work and tears the session down. It is
// idempotent.
func (e *Encoder) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.started {
		return nil
	}
	if err := e.rec.Wait(0); err != nil {
		e.log.Error("could not retire operations on stop", "error", err.Error())
	}
	e.backend.DestroyBuffer(e.outBuf)
	e.outBuf = 0
	e.destroyImages()
	e.session.Stop()
	e.rec.Stop()
	e.started = false
	e.log.Info("encoder stopped")
	return nil
}

// drain pops and encodes every frame the reorder engine has ready.
func (e *Encoder) drain() {
	for {
		id, ok := e.ro.pop(e.dpb)
		if !ok {
			return
		}
		e.encodeFrame(id)
	}
}

// encodeFrame runs one frame through the GPU and emits its output. A
// per frame failure emits an empty output carrying the error; the
// encoder continues with the next frame.
func (e *Encoder) encodeFrame(id int) {
	f := e.arena.get(id)
	data, evicted, err := e.encodeOne(id)

	out := Output{
		SystemFrameNumber: f.SystemFrameNumber,
		PTS:               time.Duration(f.SystemFrameNumber) * e.frameDur,
		DTS:               time.Duration(e.decodeOrder) * e.frameDur,
		Duration:          e.frameDur,
		SyncPoint:         f.SyncPoint,
	}
	e.decodeOrder++
	if err != nil {
		e.log.Error("frame encode failed",
			"systemFrameNumber", int(f.SystemFrameNumber), "error", err.Error())
		out.Err = err
	} else {
		f.Output = data
		out.Data = data
	}
	f.Emitted = true
	if e.emit != nil {
		e.emit(out)
	}

	for _, ev := range evicted {
		e.releaseIfDone(ev)
	}
	if !f.IsReference || e.dpb.maxRefFrames == 0 {
		e.releaseIfDone(id)
	}
}

// releaseIfDone returns a frame to the arena once emitted and out of
// the reference list.
func (e *Encoder) releaseIfDone(id int) {
	if e.arena.get(id).Emitted {
		e.arena.release(id)
	}
}

// encodeOne records, submits and waits one encode operation, returning
// the assembled output and any references evicted along the way.
func (e *Encoder) encodeOne(id int) ([]byte, []int, error) {
	f := e.arena.get(id)
	ext := vulkan.Extent2D{Width: uint32(e.cfg.Width), Height: uint32(e.cfg.Height)}

	list0, list1, evicted := e.dpb.prepare(id, int(e.plan.refNumList0), int(e.plan.refNumList1))
	codecInfo := e.ops.pictureInfo(e, id, list0, list1)
	evicted = append(evicted, e.dpb.admit(id)...)

	e.log.Debug("encoding frame",
		"systemFrameNumber", int(f.SystemFrameNumber),
		"sliceType", f.SliceType.String(),
		"frameNum", int(f.FrameNum),
		"poc", int(f.Poc),
		"list0", len(list0),
		"list1", len(list1))

	if err := e.rec.Begin(); err != nil {
		return nil, evicted, err
	}

	e.rec.AddFrameBarrier(f.Input, vulkan.PipelineStageVideoEncode,
		vulkan.AccessVideoEncodeRead, vulkan.ImageLayoutVideoEncodeSrc, vulkan.QueueFamilyIgnored)
	e.rec.AddDependencyFrame(f.Input, vulkan.PipelineStageVideoEncode, vulkan.PipelineStageVideoEncode)

	var refSlots []vulkan.VideoReferenceSlotInfo
	for _, rid := range append(append([]int(nil), list0...), list1...) {
		r := e.arena.get(rid)
		img := e.dpb.slotImage(r.DpbSlotIndex)
		e.rec.AddDependencyFrame(img, vulkan.PipelineStageVideoEncode, vulkan.PipelineStageVideoEncode)
		refSlots = append(refSlots, vulkan.VideoReferenceSlotInfo{
			SlotIndex: r.DpbSlotIndex,
			PictureResource: &vulkan.VideoPictureResourceInfo{
				CodedExtent:      ext,
				ImageViewBinding: e.dpb.slotView(r.DpbSlotIndex),
			},
			StdReferenceInfo: e.ops.referenceInfo(r),
		})
	}

	var setup *vulkan.VideoReferenceSlotInfo
	if f.IsReference && f.DpbSlotIndex >= 0 {
		img := e.dpb.slotImage(f.DpbSlotIndex)
		e.rec.AddFrameBarrier(img, vulkan.PipelineStageVideoEncode,
			vulkan.AccessVideoEncodeRead|vulkan.AccessVideoEncodeWrite,
			vulkan.ImageLayoutVideoEncodeDpb, vulkan.QueueFamilyIgnored)
		e.rec.AddDependencyFrame(img, vulkan.PipelineStageVideoEncode, vulkan.PipelineStageVideoEncode)
		setup = &vulkan.VideoReferenceSlotInfo{
			SlotIndex: f.DpbSlotIndex,
			PictureResource: &vulkan.VideoPictureResourceInfo{
				CodedExtent:      ext,
				ImageViewBinding: e.dpb.slotView(f.DpbSlotIndex),
			},
			StdReferenceInfo: e.ops.referenceInfo(f),
		}
	}

	begin := &vulkan.VideoBeginCodingInfo{
		Session:        e.session.Handle(),
		Parameters:     e.session.Parameters(),
		ReferenceSlots: refSlots,
	}
	if setup != nil {
		begin.ReferenceSlots = append(append([]vulkan.VideoReferenceSlotInfo(nil), refSlots...), *setup)
	}
	if !e.firstOp {
		begin.RateControl = e.rateControlInfo()
	}

	cb := e.rec.CommandBuffer()
	e.backend.CmdBeginVideoCoding(cb, begin)
	if e.firstOp {
		e.backend.CmdControlVideoCoding(cb, e.firstOpControl())
		e.firstOp = false
	}
	e.rec.BeginQuery(0)
	e.backend.CmdEncodeVideo(cb, &vulkan.VideoEncodeInfo{
		DstBuffer:       e.outBuf,
		DstBufferOffset: 0,
		DstBufferRange:  e.outBufSize,
		SrcPictureResource: vulkan.VideoPictureResourceInfo{
			CodedExtent:      ext,
			ImageViewBinding: f.Input.Planes[0].View,
		},
		SetupReferenceSlot: setup,
		ReferenceSlots:     refSlots,
		CodecInfo:          codecInfo,
	})
	e.rec.EndQuery(0)
	e.backend.CmdEndVideoCoding(cb)

	if err := e.rec.End(); err != nil {
		return nil, evicted, err
	}
	if err := e.rec.Wait(0); err != nil {
		return nil, evicted, err
	}

	fb, err := e.rec.RetrieveQuery(0)
	if err != nil {
		return nil, evicted, err
	}
	if fb.Status != vulkan.QueryResultStatusComplete {
		return nil, evicted, fmt.Errorf("encode feedback status %d", fb.Status)
	}

	slice, err := e.backend.ReadBuffer(e.outBuf, uint64(fb.Offset), uint64(fb.Size))
	if err != nil {
		return nil, evicted, fmt.Errorf("could not read bitstream: %w", err)
	}
	data, err := e.assemble(f, slice)
	if err != nil {
		return nil, evicted, err
	}
	return data, evicted, nil
}

// Headers returns the packed parameter sets fetched from the session,
// prefixed to every sync point.
func (e *Encoder) Headers() []byte { return e.headerBytes }

// Pending returns the number of buffered, not yet emitted frames.
func (e *Encoder) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.started {
		return 0
	}
	return e.ro.pending()
}
