/*
DESCRIPTION
  session.go provides the video session orchestrator: capability and
  format negotiation, session and session parameters lifecycle, and
  retrieval of the driver-encoded parameter set headers.

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

	"github.com/ausocean/utils/logging"
)

// ErrNotStarted is returned for operations requiring a started
// session.
var ErrNotStarted = errors.New("vulkan: session not started")

// SessionConfig carries the parameters of session creation beyond the
// profile itself.
type SessionConfig struct {
	MaxCodedExtent      Extent2D
	MaxDpbSlots         uint32
	MaxActiveReferences uint32

	// AddInfo is the codec specific parameter set add structure for
	// the session parameters object.
	AddInfo any

	// StdHeaderName and StdHeaderVersion identify the codec standard
	// headers this build was written against.
	StdHeaderName    string
	StdHeaderVersion Version
}

// Session owns a video session and its parameters object.
type Session struct {
	backend Backend
	log     logging.Logger

	profile    VideoProfileInfo
	caps       VideoCapabilities
	encodeCaps VideoEncodeCapabilities

	session VideoSession
	params  VideoSessionParameters

	inputFormat Format
	dpbFormat   Format

	started bool
}

// NewSession returns an unstarted session over backend.
func NewSession(backend Backend, log logging.Logger) *Session {
	return &Session{backend: backend, log: log}
}

// Started reports whether Start has completed successfully.
func (s *Session) Started() bool { return s.started }

// Capabilities returns the capability blocks captured by Start.
func (s *Session) Capabilities() (VideoCapabilities, VideoEncodeCapabilities) {
	return s.caps, s.encodeCaps
}

// Formats returns the negotiated input and DPB image formats.
func (s *Session) Formats() (input, dpb Format) { return s.inputFormat, s.dpbFormat }

// Parameters returns the session parameters object.
func (s *Session) Parameters() VideoSessionParameters { return s.params }

// Handle returns the video session handle.
func (s *Session) Handle() VideoSession { return s.session }

// recognizedFormats is the set of component layouts the encoder can
// feed and read back.
var recognizedFormats = map[Format]bool{
	FormatG8B8R82Plane420Unorm:    true,
	FormatG8B8R83Plane420Unorm:    true,
	FormatG10B10R102Plane420Unorm: true,
}

func (s *Session) selectFormat(usage ImageUsage) (Format, error) {
	props, err := s.backend.GetVideoFormatProperties(s.profile, usage)
	if err != nil {
		return FormatUndefined, fmt.Errorf("could not enumerate video formats: %w", err)
	}
	for _, p := range props {
		if recognizedFormats[p.Format] {
			return p.Format, nil
		}
	}
	return FormatUndefined, fmt.Errorf("no recognized video format for usage 0x%x", uint32(usage))
}

// Start queries capabilities for the profile, negotiates the input and
// DPB formats, creates the session and its parameters object, enables
// the recorder's encode feedback query pool and submits an empty
// coding round with the reset control flag to flush session state.
//
// On failure the partial state is torn down and Stop remains safe.
func (s *Session) Start(profile VideoProfileInfo, cfg SessionConfig, rec *Recorder) error {
	if s.started {
		return errors.New("vulkan: session already started")
	}
	s.profile = profile

	var err error
	s.caps, s.encodeCaps, err = s.backend.GetVideoCapabilities(profile)
	if err != nil {
		return fmt.Errorf("could not query video capabilities: %w", err)
	}

	drv := s.caps.StdHeaderVersion
	if drv.Name != "" && cfg.StdHeaderName != "" && drv.Name != cfg.StdHeaderName {
		return fmt.Errorf("standard header mismatch: driver %q, built against %q", drv.Name, cfg.StdHeaderName)
	}
	if !cfg.StdHeaderVersion.AtLeast(drv.SpecVersion) {
		return fmt.Errorf("standard headers too old: driver advertises %v, built against %v",
			drv.SpecVersion, cfg.StdHeaderVersion)
	}

	s.inputFormat, err = s.selectFormat(ImageUsageVideoEncodeSrc)
	if err != nil {
		return fmt.Errorf("input format selection: %w", err)
	}
	s.dpbFormat, err = s.selectFormat(ImageUsageVideoEncodeDpb)
	if err != nil {
		return fmt.Errorf("reference format selection: %w", err)
	}

	if cfg.MaxDpbSlots > s.caps.MaxDpbSlots {
		return fmt.Errorf("requested %d DPB slots, driver supports %d", cfg.MaxDpbSlots, s.caps.MaxDpbSlots)
	}

	s.session, err = s.backend.CreateVideoSession(&VideoSessionCreateInfo{
		Profile:                    profile,
		PictureFormat:              s.inputFormat,
		MaxCodedExtent:             cfg.MaxCodedExtent,
		ReferencePictureFormat:     s.dpbFormat,
		MaxDpbSlots:                cfg.MaxDpbSlots,
		MaxActiveReferencePictures: cfg.MaxActiveReferences,
		StdHeaderVersion: ExtensionProperties{
			Name:        cfg.StdHeaderName,
			SpecVersion: cfg.StdHeaderVersion,
		},
	})
	if err != nil {
		return fmt.Errorf("could not create video session: %w", err)
	}

	s.params, err = s.backend.CreateVideoSessionParameters(&VideoSessionParametersCreateInfo{
		Session: s.session,
		AddInfo: cfg.AddInfo,
	})
	if err != nil {
		s.backend.DestroyVideoSession(s.session)
		s.session = 0
		return fmt.Errorf("could not create session parameters: %w", err)
	}

	if err := rec.EnableQuery(QueryTypeVideoEncodeFeedback, 1, profile); err != nil {
		s.teardown()
		return err
	}

	if err := s.flush(rec); err != nil {
		s.teardown()
		return fmt.Errorf("could not flush session state: %w", err)
	}

	s.started = true
	s.log.Info("video session started",
		"inputFormat", int(s.inputFormat),
		"dpbFormat", int(s.dpbFormat),
		"maxDpbSlots", int(cfg.MaxDpbSlots))
	return nil
}

// flush submits an empty coding round carrying the reset control flag.
func (s *Session) flush(rec *Recorder) error {
	if err := rec.Begin(); err != nil {
		return err
	}
	cb := rec.CommandBuffer()
	s.backend.CmdBeginVideoCoding(cb, &VideoBeginCodingInfo{
		Session:    s.session,
		Parameters: s.params,
	})
	s.backend.CmdControlVideoCoding(cb, &VideoCodingControlInfo{Flags: VideoCodingControlReset})
	s.backend.CmdEndVideoCoding(cb)
	if err := rec.End(); err != nil {
		return err
	}
	return rec.Wait(0)
}

// Reconfigure rebuilds the session parameters object from a new add
// structure. The session itself is kept; a resolution change requires
// a full Stop and Start.
func (s *Session) Reconfigure(addInfo any) error {
	if !s.started {
		return ErrNotStarted
	}
	params, err := s.backend.CreateVideoSessionParameters(&VideoSessionParametersCreateInfo{
		Session: s.session,
		AddInfo: addInfo,
	})
	if err != nil {
		return fmt.Errorf("could not recreate session parameters: %w", err)
	}
	s.backend.DestroyVideoSessionParameters(s.params)
	s.params = params
	return nil
}

// ReadSessionHeaders retrieves the driver-encoded parameter sets
// selected by get using the two-call size then data protocol.
func (s *Session) ReadSessionHeaders(get *VideoSessionParametersGetInfo) ([]byte, error) {
	if !s.started {
		return nil, ErrNotStarted
	}
	get.Parameters = s.params
	n, err := s.backend.GetEncodedSessionParameters(get, nil)
	if err != nil {
		return nil, fmt.Errorf("could not size encoded parameters: %w", err)
	}
	buf := make([]byte, n)
	n, err = s.backend.GetEncodedSessionParameters(get, buf)
	if err != nil {
		return nil, fmt.Errorf("could not read encoded parameters: %w", err)
	}
	return buf[:n], nil
}

func (s *Session) teardown() {
	if s.params != 0 {
		s.backend.DestroyVideoSessionParameters(s.params)
		s.params = 0
	}
	if s.session != 0 {
		s.backend.DestroyVideoSession(s.session)
		s.session = 0
	}
}

// Stop destroys the session parameters and session. It is idempotent.
func (s *Session) Stop() {
	s.teardown()
	s.started = false
}
