/*
DESCRIPTION
  recorder.go provides the operation recorder: command buffer begin and
  end, image barriers, timeline semaphore dependencies, submission and
  deferred fence cleanup for one GPU operation at a time.

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

package vulkan

import (
	"fmt"
	"sync"
	"time"

	"github.com/ausocean/utils/logging"
)

// SyncMode selects the synchronization path used for submission,
// fixed at recorder construction from the device's extensions.
type SyncMode int

const (
	// SyncBinary submits with plain binary semaphores.
	SyncBinary SyncMode = iota
	// SyncTimeline submits with timeline semaphore value arrays.
	SyncTimeline
	// SyncSynchronization2 submits with the two-struct submit and
	// barrier forms.
	SyncSynchronization2
)

// Plane is the per-plane synchronization state of a frame image: its
// view, its timeline semaphore and the barrier state last installed.
type Plane struct {
	View             ImageView
	Semaphore        Semaphore
	SemaphoreValue   uint64
	Layout           ImageLayout
	StageMask        PipelineStage
	AccessMask       Access
	QueueFamilyIndex uint32
}

// FrameImage is a GPU image tracked by the recorder, with one Plane
// per format plane.
type FrameImage struct {
	Image  Image
	Planes []Plane
}

type postState struct {
	stage       PipelineStage
	access      Access
	layout      ImageLayout
	queueFamily uint32
}

type frameDep struct {
	frame      *FrameImage
	updated    bool
	semaphored bool
	post       postState
}

type trashEntry struct {
	fence  Fence
	cmdBuf CommandBuffer
}

// Recorder records and submits one GPU operation at a time. The
// command buffer is exclusively locked between Begin and End; Wait
// reclaims submitted command buffers once their fences signal.
type Recorder struct {
	backend Backend
	log     logging.Logger
	mode    SyncMode

	cmdMu    sync.Mutex // Held between Begin and End.
	submitMu sync.Mutex // Serializes queue submission.

	cmdBuf CommandBuffer

	waits   []SemaphoreSubmitInfo
	signals []SemaphoreSubmitInfo
	deps    map[Image]*frameDep
	trash   []trashEntry

	queryPool  QueryPool
	queryType  QueryType
	queryCount uint32
}

// NewRecorder returns a recorder over backend, choosing the richest
// synchronization path the device advertises.
func NewRecorder(backend Backend, log logging.Logger) *Recorder {
	mode := SyncBinary
	switch {
	case backend.HasDeviceExtension(ExtSynchronization2):
		mode = SyncSynchronization2
	case backend.HasDeviceExtension(ExtTimelineSemaphore):
		mode = SyncTimeline
	}
	log.Debug("operation recorder ready", "syncMode", int(mode))
	return &Recorder{
		backend: backend,
		log:     log,
		mode:    mode,
		deps:    make(map[Image]*frameDep),
	}
}

// Mode returns the synchronization path in use.
func (r *Recorder) Mode() SyncMode { return r.mode }

// Begin locks the command buffer and starts recording a new
// operation. If a prior operation is still in flight it is waited on
// first.
func (r *Recorder) Begin() error {
	r.cmdMu.Lock()
	if len(r.trash) != 0 {
		if err := r.waitTrash(0); err != nil {
			r.cmdMu.Unlock()
			return fmt.Errorf("could not retire prior operation: %w", err)
		}
	}
	cb, err := r.backend.AllocateCommandBuffer()
	if err != nil {
		r.cmdMu.Unlock()
		return fmt.Errorf("could not allocate command buffer: %w", err)
	}
	if err := r.backend.BeginCommandBuffer(cb); err != nil {
		r.backend.FreeCommandBuffer(cb)
		r.cmdMu.Unlock()
		return fmt.Errorf("could not begin command buffer: %w", err)
	}
	r.cmdBuf = cb
	if r.queryPool != 0 {
		r.backend.CmdResetQueryPool(cb, r.queryPool, 0, r.queryCount)
	}
	return nil
}

// CommandBuffer returns the command buffer of the operation being
// recorded. Valid only between Begin and End.
func (r *Recorder) CommandBuffer() CommandBuffer { return r.cmdBuf }

func (r *Recorder) dep(f *FrameImage) *frameDep {
	d, ok := r.deps[f.Image]
	if !ok || d.frame != f {
		d = &frameDep{frame: f}
		r.deps[f.Image] = d
	}
	return d
}

// UpdateFrame registers the post-submit barrier state of f so the
// recorder rewrites the frame's plane state after a successful submit.
func (r *Recorder) UpdateFrame(f *FrameImage, stage PipelineStage, access Access, layout ImageLayout, queueFamily uint32) {
	d := r.dep(f)
	d.updated = true
	d.post = postState{stage: stage, access: access, layout: layout, queueFamily: queueFamily}
}

// AddFrameBarrier records one image memory barrier per plane of f
// transitioning to the given state, and registers the post-submit
// update.
func (r *Recorder) AddFrameBarrier(f *FrameImage, dstStage PipelineStage, newAccess Access, newLayout ImageLayout, newQueueFamily uint32) {
	barriers := make([]ImageMemoryBarrier, 0, len(f.Planes))
	var srcStages PipelineStage
	for i := range f.Planes {
		p := &f.Planes[i]
		src := p.StageMask
		if src == PipelineStageNone {
			src = PipelineStageTopOfPipe
		}
		srcStages |= src
		dstQueue := newQueueFamily
		barriers = append(barriers, ImageMemoryBarrier{
			SrcStageMask:        src,
			DstStageMask:        dstStage,
			SrcAccessMask:       p.AccessMask,
			DstAccessMask:       newAccess,
			OldLayout:           p.Layout,
			NewLayout:           newLayout,
			SrcQueueFamilyIndex: p.QueueFamilyIndex,
			DstQueueFamilyIndex: dstQueue,
			Image:               f.Image,
			BaseArrayLayer:      uint32(i),
			LayerCount:          1,
		})
	}
	if r.mode == SyncSynchronization2 {
		r.backend.CmdPipelineBarrier2(r.cmdBuf, barriers)
	} else {
		r.backend.CmdPipelineBarrier(r.cmdBuf, srcStages, dstStage, barriers)
	}
	r.UpdateFrame(f, dstStage, newAccess, newLayout, newQueueFamily)
}

// AddDependencyFrame appends, for every plane of f carrying a timeline
// semaphore, a wait at the plane's current value and a signal at the
// next value, ordering this operation after the producers of f and
// ahead of its future consumers.
func (r *Recorder) AddDependencyFrame(f *FrameImage, waitStage, signalStage PipelineStage) {
	added := false
	for i := range f.Planes {
		p := &f.Planes[i]
		if p.Semaphore == 0 {
			continue
		}
		r.waits = append(r.waits, SemaphoreSubmitInfo{
			Semaphore: p.Semaphore,
			Value:     p.SemaphoreValue,
			StageMask: waitStage,
		})
		r.signals = append(r.signals, SemaphoreSubmitInfo{
			Semaphore: p.Semaphore,
			Value:     p.SemaphoreValue + 1,
			StageMask: signalStage,
		})
		added = true
	}
	if added {
		r.dep(f).semaphored = true
	}
}

// EnableQuery creates the recorder's query pool. The result element
// stride is fixed by the query type; only video encode feedback is
// used here.
func (r *Recorder) EnableQuery(t QueryType, count uint32, profile VideoProfileInfo) error {
	p, err := r.backend.CreateQueryPool(t, count, profile)
	if err != nil {
		return fmt.Errorf("could not create query pool: %w", err)
	}
	r.queryPool = p
	r.queryType = t
	r.queryCount = count
	return nil
}

// BeginQuery records the start of query id.
func (r *Recorder) BeginQuery(id uint32) {
	r.backend.CmdBeginQuery(r.cmdBuf, r.queryPool, id)
}

// EndQuery records the end of query id.
func (r *Recorder) EndQuery(id uint32) {
	r.backend.CmdEndQuery(r.cmdBuf, r.queryPool, id)
}

// RetrieveQuery returns the feedback tuple of query id. The offset and
// size are valid only when the status is complete.
func (r *Recorder) RetrieveQuery(id uint32) (VideoEncodeFeedback, error) {
	res, err := r.backend.GetQueryPoolResults(r.queryPool, id, 1)
	if err != nil {
		return VideoEncodeFeedback{}, fmt.Errorf("could not get query results: %w", err)
	}
	if len(res) == 0 {
		return VideoEncodeFeedback{}, fmt.Errorf("query %d returned no results", id)
	}
	return res[0], nil
}

// End finishes recording, submits the operation and releases the
// command buffer lock. After a successful submit the registered frame
// updates are applied: barrier post-states installed and timeline
// semaphore values advanced.
func (r *Recorder) End() error {
	defer r.cmdMu.Unlock()

	if err := r.backend.EndCommandBuffer(r.cmdBuf); err != nil {
		r.discardCurrent()
		return fmt.Errorf("could not end command buffer: %w", err)
	}

	fence, err := r.backend.CreateFence()
	if err != nil {
		r.discardCurrent()
		return fmt.Errorf("could not create fence: %w", err)
	}

	info := &SubmitInfo{
		WaitSemaphores:   r.waits,
		CommandBuffers:   []CommandBuffer{r.cmdBuf},
		SignalSemaphores: r.signals,
	}
	r.submitMu.Lock()
	if r.mode == SyncSynchronization2 {
		err = r.backend.QueueSubmit2(info, fence)
	} else {
		err = r.backend.QueueSubmit(info, fence)
	}
	r.submitMu.Unlock()
	if err != nil {
		r.backend.DestroyFence(fence)
		r.discardCurrent()
		return fmt.Errorf("could not submit operation: %w", err)
	}

	r.trash = append(r.trash, trashEntry{fence: fence, cmdBuf: r.cmdBuf})
	r.cmdBuf = 0

	for _, d := range r.deps {
		if d.updated {
			for i := range d.frame.Planes {
				p := &d.frame.Planes[i]
				p.StageMask = d.post.stage
				p.AccessMask = d.post.access
				p.Layout = d.post.layout
				p.QueueFamilyIndex = d.post.queueFamily
			}
			d.updated = false
		}
		if d.semaphored {
			for i := range d.frame.Planes {
				p := &d.frame.Planes[i]
				if p.Semaphore != 0 {
					p.SemaphoreValue++
				}
			}
			d.semaphored = false
		}
	}
	r.waits = nil
	r.signals = nil
	return nil
}

func (r *Recorder) discardCurrent() {
	r.backend.FreeCommandBuffer(r.cmdBuf)
	r.cmdBuf = 0
	r.waits = nil
	r.signals = nil
	for _, d := range r.deps {
		d.updated = false
		d.semaphored = false
	}
}

// Wait blocks until all submitted operations retire, then reclaims
// their fences and command buffers and discards the dependency table.
// A zero timeout waits indefinitely. On timeout the operations stay
// owned by the trash list and are reclaimed by a later Wait.
func (r *Recorder) Wait(timeout time.Duration) error {
	return r.waitTrash(timeout)
}

func (r *Recorder) waitTrash(timeout time.Duration) error {
	if len(r.trash) == 0 {
		return nil
	}
	fences := make([]Fence, len(r.trash))
	for i, t := range r.trash {
		fences[i] = t.fence
	}
	if timeout == 0 {
		timeout = time.Duration(1<<63 - 1)
	}
	if err := r.backend.WaitForFences(fences, true, timeout); err != nil {
		if err == ErrTimeout {
			r.log.Warning("operation wait timed out; deferring cleanup")
		}
		return err
	}
	for _, t := range r.trash {
		r.backend.DestroyFence(t.fence)
		r.backend.FreeCommandBuffer(t.cmdBuf)
	}
	r.trash = r.trash[:0]
	r.deps = make(map[Image]*frameDep)
	return nil
}

// Stop destroys the recorder's query pool after retiring outstanding
// operations.
func (r *Recorder) Stop() {
	if err := r.waitTrash(0); err != nil {
		r.log.Error("could not retire operations on stop", "error", err.Error())
	}
	if r.queryPool != 0 {
		r.backend.DestroyQueryPool(r.queryPool)
		r.queryPool = 0
	}
}
