// Package session serves live picking and sampling sessions over websockets.
package session

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"github.com/jmylchreest/swatch/internal/capture"
	"github.com/jmylchreest/swatch/internal/colour"
	"github.com/jmylchreest/swatch/internal/picker"
)

// DefaultColor is the colour a new session starts with.
const DefaultColor = "3366CC"

// ErrUnknownMessage is returned for message types the session does not handle.
var ErrUnknownMessage = errors.New("unknown message type")

// Session couples a picker and a capture workflow for one client. Handle must
// be called from a single goroutine; LoadImage and Close may be called from any.
type Session struct {
	id       string
	emit     func(Event)
	logger   hclog.Logger
	picker   *picker.Controller
	workflow *capture.Workflow

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a session using device for live capture. emit receives every
// outbound event and must not block; it may be called from any goroutine.
func New(device capture.Device, emit func(Event), logger hclog.Logger) (*Session, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	id := uuid.NewString()
	logger = logger.With("session", id)

	s := &Session{
		id:     id,
		emit:   emit,
		logger: logger,
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())

	ctrl, err := picker.New(DefaultColor, s.pickerChanged, picker.WithLogger(logger.Named("picker")))
	if err != nil {
		return nil, err
	}
	s.picker = ctrl

	s.workflow = capture.NewWorkflow(device, capture.Callbacks{
		OnCaptureError: func(r capture.Reason) {
			s.send(Event{Type: EventCaptureError, Reason: string(r)})
		},
		OnStateChange: func(st capture.State) {
			s.send(Event{Type: EventState, State: st.String()})
		},
	}, capture.WithLogger(logger.Named("capture")))

	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Hello returns the greeting sent when the client connects.
func (s *Session) Hello() Event {
	return Event{Type: EventHello, Session: s.id, Hex: s.picker.Hex(), State: s.workflow.State().String()}
}

// Workflow exposes the capture workflow.
func (s *Session) Workflow() *capture.Workflow {
	return s.workflow
}

// Picker exposes the picker controller. It must only be used from the goroutine calling Handle.
func (s *Session) Picker() *picker.Controller {
	return s.picker
}

// LoadImage replaces the sampling surface with an uploaded image.
func (s *Session) LoadImage(img image.Image) error {
	if err := s.workflow.LoadImage(img); err != nil {
		return fmt.Errorf("failed to load image: %w", err)
	}
	return nil
}

// Handle applies one client message.
func (s *Session) Handle(msg Message) error {
	switch msg.Type {
	case MsgPointer:
		return s.handlePointer(msg)

	case MsgExternal:
		if !colour.IsValidHex(msg.Hex) {
			return fmt.Errorf("%w: %q", colour.ErrInvalidFormat, msg.Hex)
		}
		s.picker.SetExternal(msg.Hex)
		return nil

	case MsgChannel:
		ch, err := picker.ParseChannel(msg.Channel)
		if err != nil {
			return err
		}
		if msg.Value == nil {
			return errors.New("channel message requires a value")
		}
		s.picker.SetChannel(ch, *msg.Value)
		return nil

	case MsgHexInput:
		if !s.picker.TypeHex(msg.Text) {
			s.logger.Trace("partial hex input", "text", msg.Text)
		}
		return nil

	case MsgHexEnd:
		s.picker.EndHexEdit()
		return nil

	case MsgCalibrate:
		return s.workflow.BeginCalibration()

	case MsgCancelCalibration:
		return s.workflow.CancelCalibration()

	case MsgResetCalibration:
		s.workflow.ResetCalibration()
		return nil

	case MsgStart:
		s.async(func(ctx context.Context) error { return s.workflow.StartStream(ctx) })
		return nil

	case MsgStop:
		s.workflow.Stop()
		return nil

	case MsgCapture:
		s.async(func(ctx context.Context) error { return s.workflow.CaptureStill(ctx) })
		return nil

	default:
		return fmt.Errorf("%w: %q", ErrUnknownMessage, msg.Type)
	}
}

func (s *Session) handlePointer(msg Message) error {
	phase, err := picker.ParsePhase(msg.Phase)
	if err != nil {
		return err
	}
	if msg.Rect == nil {
		return errors.New("pointer message requires a rect")
	}
	p := picker.Pointer{X: msg.X, Y: msg.Y, Phase: phase}

	switch msg.Target {
	case TargetImage:
		s.handleSample(s.workflow.Pointer(p, *msg.Rect))
	case TargetPlane, TargetAxis:
		region := picker.RegionPlane
		if msg.Target == TargetAxis {
			region = picker.RegionAxis
		}
		wasDragging := s.picker.Mode().Dragging()
		s.picker.Handle(region, p, *msg.Rect)
		if wasDragging && !s.picker.Mode().Dragging() {
			s.send(Event{Type: EventColor, Hex: s.picker.Hex(), Source: SourcePicker, Final: true})
		}
	default:
		return fmt.Errorf("unknown pointer target: %q", msg.Target)
	}
	return nil
}

func (s *Session) handleSample(out capture.Outcome) {
	switch out.Kind {
	case capture.OutcomePreview:
		s.send(Event{Type: EventColor, Hex: out.Hex, Source: SourceSample})
	case capture.OutcomeCalibrated:
		s.send(Event{Type: EventCalibrated, Hex: out.Hex, Degenerate: out.Degenerate})
	case capture.OutcomeCommitted:
		// The committed sample becomes the picker's external colour.
		s.picker.SetExternal(out.Hex)
		s.send(Event{Type: EventColor, Hex: out.Hex, Source: SourceSample, Final: true})
	}
}

func (s *Session) pickerChanged(hex string) {
	s.send(Event{Type: EventColor, Hex: hex, Source: SourcePicker})
}

// async runs a blocking workflow operation bound to the session lifetime.
func (s *Session) async(fn func(ctx context.Context) error) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := fn(s.ctx); err != nil && !errors.Is(err, capture.ErrCancelled) {
			s.logger.Debug("capture operation failed", "error", err)
			if !errors.Is(err, capture.ErrDeviceUnavailable) {
				s.send(Event{Type: EventError, Message: err.Error()})
			}
		}
	}()
}

func (s *Session) send(evt Event) {
	if s.emit != nil {
		s.emit(evt)
	}
}

// Close releases the device and waits for pending capture operations.
func (s *Session) Close() error {
	s.cancel()
	s.workflow.Stop()
	s.wg.Wait()
	return s.workflow.Close()
}
