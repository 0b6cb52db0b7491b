package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"github.com/jmylchreest/swatch/internal/colour"
	"github.com/jmylchreest/swatch/internal/picker"
	"github.com/jmylchreest/swatch/internal/sampler"
)

// State is the stage of a capture session.
type State int

const (
	// StateIdle holds no surface and no device.
	StateIdle State = iota
	// StateStreaming holds an open device.
	StateStreaming
	// StateCaptured holds a still frame or uploaded image.
	StateCaptured
	// StateCalibrating means the next pointer-up sets the white reference.
	StateCalibrating
	// StateSampling means pointer interaction previews and commits colours.
	StateSampling
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStreaming:
		return "streaming"
	case StateCaptured:
		return "captured"
	case StateCalibrating:
		return "calibrating"
	case StateSampling:
		return "sampling"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// hasSurface reports whether a surface is held in state s.
func (s State) hasSurface() bool {
	return s == StateCaptured || s == StateCalibrating || s == StateSampling
}

// Callbacks receive workflow events. Any of them may be nil. They are invoked
// without the workflow lock held, after the state change they describe.
type Callbacks struct {
	// OnColorChange fires for every preview and committed colour.
	OnColorChange func(hex string)
	// OnCommit fires once when a colour is committed.
	OnCommit func(hex string)
	// OnCaptureError fires when the device cannot be acquired or is lost.
	OnCaptureError func(reason Reason)
	// OnCalibrate fires when a white reference is captured.
	OnCalibrate func(reference colour.RGB, degenerate bool)
	// OnStateChange fires on every state transition.
	OnStateChange func(state State)
}

// OutcomeKind says what a pointer event produced.
type OutcomeKind int

const (
	// OutcomeIgnored means the event had no effect.
	OutcomeIgnored OutcomeKind = iota
	// OutcomeSuppressed means the pointer was outside the surface.
	OutcomeSuppressed
	// OutcomePreview means a preview colour was produced.
	OutcomePreview
	// OutcomeCalibrated means the white reference was set.
	OutcomeCalibrated
	// OutcomeCommitted means the colour was committed.
	OutcomeCommitted
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuppressed:
		return "suppressed"
	case OutcomePreview:
		return "preview"
	case OutcomeCalibrated:
		return "calibrated"
	case OutcomeCommitted:
		return "committed"
	default:
		return "ignored"
	}
}

// Outcome is the result of one pointer event.
type Outcome struct {
	Kind OutcomeKind
	// Raw is the uncorrected sampled pixel.
	Raw colour.RGBA
	// Colour is the corrected colour for previews and commits, or the reference for calibration.
	Colour colour.RGB
	// Hex is Colour in hex form.
	Hex string
	// Degenerate flags a near-black white reference.
	Degenerate bool
}

// Option configures a Workflow.
type Option func(*Workflow)

// WithLogger sets the workflow logger.
func WithLogger(logger hclog.Logger) Option {
	return func(w *Workflow) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// Workflow drives one capture session. Pointer and calibration operations are
// expected from a single goroutine; Stop and Close may be called from any.
type Workflow struct {
	device Device
	cb     Callbacks
	logger hclog.Logger

	mu        sync.Mutex
	state     State
	stream    Stream
	cancel    context.CancelFunc
	gen       uint64
	surface   *sampler.Sampler
	wb        colour.WhiteBalance
	sessionID string
	preview   string
	committed string
}

// NewWorkflow creates an idle workflow. device may be nil when only uploaded
// images are used.
func NewWorkflow(device Device, cb Callbacks, opts ...Option) *Workflow {
	w := &Workflow{
		device: device,
		cb:     cb,
		logger: hclog.NewNullLogger(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// State returns the current state.
func (w *Workflow) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// SessionID identifies the current surface. It changes whenever the image is replaced.
func (w *Workflow) SessionID() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.sessionID
}

// Reference returns the white reference, if one is set.
func (w *Workflow) Reference() (colour.RGB, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.wb.Reference()
}

// Preview returns the last preview colour.
func (w *Workflow) Preview() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.preview
}

// Committed returns the last committed colour.
func (w *Workflow) Committed() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.committed
}

// Surface returns the image being sampled, or nil.
func (w *Workflow) Surface() image.Image {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.surface == nil {
		return nil
	}
	return w.surface.Image()
}

// StartStream acquires the device. Any previous stream is released first and any
// surface and white reference are discarded. On failure OnCaptureError fires and
// the workflow stays idle. If Stop or another StartStream supersedes this call
// while the device is opening, the late handle is closed and ErrCancelled returned.
func (w *Workflow) StartStream(ctx context.Context) error {
	w.mu.Lock()
	old := w.detachLocked()
	w.dropSurfaceLocked()
	transitions := w.setStateLocked(StateIdle)
	gen := w.gen
	actx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	device := w.device
	w.mu.Unlock()

	w.closeStream(old)
	w.fireState(transitions)

	if device == nil {
		cancel()
		w.mu.Lock()
		if w.gen == gen {
			w.cancel = nil
		}
		w.mu.Unlock()
		err := &DeviceError{Reason: ReasonNoDevice}
		w.reportError(err)
		return err
	}

	w.logger.Debug("opening capture device")
	stream, err := device.Open(actx)
	cancel()

	w.mu.Lock()
	stale := w.gen != gen
	if !stale {
		w.cancel = nil
	}
	if err != nil {
		w.mu.Unlock()
		if stale {
			return fmt.Errorf("%w: %v", ErrCancelled, err)
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %v", ErrCancelled, err)
		}
		if !errors.Is(err, ErrDeviceUnavailable) {
			err = &DeviceError{Reason: ReasonOf(err), Err: err}
		}
		w.reportError(err)
		return err
	}
	if stale {
		w.mu.Unlock()
		w.logger.Debug("releasing device acquired after cancellation")
		w.closeStream(stream)
		return ErrCancelled
	}
	w.stream = stream
	transitions = w.setStateLocked(StateStreaming)
	w.mu.Unlock()

	w.fireState(transitions)
	return nil
}

// Stop releases the device and cancels any pending acquisition. It is safe to
// call in any state and from any goroutine.
func (w *Workflow) Stop() {
	w.mu.Lock()
	old := w.detachLocked()
	var transitions []State
	if w.state == StateStreaming {
		transitions = w.setStateLocked(StateIdle)
	}
	w.mu.Unlock()

	w.closeStream(old)
	w.fireState(transitions)
}

// CaptureStill grabs the current frame, releases the device and holds the frame
// as the sampling surface. The device is released on every path.
func (w *Workflow) CaptureStill(ctx context.Context) error {
	w.mu.Lock()
	if w.state != StateStreaming || w.stream == nil {
		state := w.state
		w.mu.Unlock()
		return fmt.Errorf("%w: cannot capture while %s", ErrInvalidState, state)
	}
	stream := w.stream
	w.stream = nil
	gen := w.gen
	w.mu.Unlock()

	img, err := stream.Frame(ctx)
	w.closeStream(stream)

	w.mu.Lock()
	if w.gen != gen || w.state != StateStreaming {
		w.mu.Unlock()
		return ErrCancelled
	}
	if err != nil || img == nil {
		transitions := w.setStateLocked(StateIdle)
		w.mu.Unlock()
		w.fireState(transitions)
		if err == nil {
			err = errors.New("device returned no frame")
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("failed to capture frame: %w", err)
		}
		derr := &DeviceError{Reason: ReasonOf(err), Err: err}
		w.reportError(derr)
		return fmt.Errorf("failed to capture frame: %w", derr)
	}
	transitions := w.loadLocked(img)
	w.mu.Unlock()

	w.fireState(transitions)
	return nil
}

// LoadImage replaces the surface with an uploaded image. Any stream is released
// and the white reference is discarded.
func (w *Workflow) LoadImage(img image.Image) error {
	if img == nil {
		return errors.New("image cannot be nil")
	}
	if b := img.Bounds(); b.Empty() {
		return fmt.Errorf("image has no pixels: %v", b)
	}

	w.mu.Lock()
	old := w.detachLocked()
	transitions := w.loadLocked(img)
	w.mu.Unlock()

	w.closeStream(old)
	w.fireState(transitions)
	return nil
}

// BeginCalibration makes the next pointer-up set the white reference.
func (w *Workflow) BeginCalibration() error {
	w.mu.Lock()
	if !w.state.hasSurface() {
		state := w.state
		w.mu.Unlock()
		return fmt.Errorf("%w: cannot calibrate while %s", ErrInvalidState, state)
	}
	transitions := w.setStateLocked(StateCalibrating)
	w.mu.Unlock()

	w.fireState(transitions)
	return nil
}

// CancelCalibration leaves calibration mode and discards the white reference.
func (w *Workflow) CancelCalibration() error {
	w.mu.Lock()
	if w.state != StateCalibrating {
		state := w.state
		w.mu.Unlock()
		return fmt.Errorf("%w: not calibrating (%s)", ErrInvalidState, state)
	}
	w.wb.Reset()
	transitions := w.setStateLocked(StateSampling)
	w.mu.Unlock()

	w.fireState(transitions)
	return nil
}

// ResetCalibration discards the white reference.
func (w *Workflow) ResetCalibration() {
	w.mu.Lock()
	w.wb.Reset()
	var transitions []State
	if w.state == StateCalibrating {
		transitions = w.setStateLocked(StateSampling)
	}
	w.mu.Unlock()

	w.fireState(transitions)
}

// Pointer handles one pointer sample on the surface rendered at display.
//
// Down and move preview the corrected colour, or the raw colour while
// calibrating. Up while calibrating sets the white reference and commits
// nothing. Up while sampling commits the corrected colour and ends the session.
// Points outside the surface suppress the preview. Leave is always ignored.
func (w *Workflow) Pointer(p picker.Pointer, display sampler.Rect) Outcome {
	if p.Phase == picker.PhaseLeave {
		return Outcome{}
	}

	w.mu.Lock()
	if !w.state.hasSurface() || w.surface == nil {
		w.mu.Unlock()
		return Outcome{}
	}

	raw, err := w.surface.Sample(p.Point(), display)
	if err != nil {
		w.mu.Unlock()
		w.logger.Trace("pointer outside surface", "x", p.X, "y", p.Y, "error", err)
		return Outcome{Kind: OutcomeSuppressed}
	}

	var (
		out         Outcome
		transitions []State
		preview     string
		committed   string
		calibrated  bool
	)
	out.Raw = raw

	switch {
	case w.state == StateCalibrating && p.Phase == picker.PhaseUp:
		ref := raw.RGB()
		w.wb.Set(ref)
		out.Kind = OutcomeCalibrated
		out.Colour = ref
		out.Hex = ref.Hex()
		out.Degenerate = colour.IsDegenerateReference(ref)
		calibrated = true
		transitions = w.setStateLocked(StateSampling)

	case w.state == StateCalibrating:
		out.Kind = OutcomePreview
		out.Colour = raw.RGB()
		out.Hex = raw.Hex()
		preview = w.setPreviewLocked(out.Hex)

	case p.Phase == picker.PhaseUp:
		out.Kind = OutcomeCommitted
		out.Colour = w.wb.Apply(raw.RGB())
		out.Hex = out.Colour.Hex()
		w.committed = out.Hex
		committed = out.Hex
		w.dropSurfaceLocked()
		transitions = w.setStateLocked(StateIdle)

	default:
		if w.state == StateCaptured {
			transitions = w.setStateLocked(StateSampling)
		}
		out.Kind = OutcomePreview
		out.Colour = w.wb.Apply(raw.RGB())
		out.Hex = out.Colour.Hex()
		preview = w.setPreviewLocked(out.Hex)
	}
	w.mu.Unlock()

	w.fireState(transitions)
	if calibrated {
		if out.Degenerate {
			w.logger.Warn("white reference is near black; correction will be unstable", "reference", out.Hex)
		} else {
			w.logger.Debug("white reference set", "reference", out.Hex)
		}
		if w.cb.OnCalibrate != nil {
			w.cb.OnCalibrate(raw.RGB(), out.Degenerate)
		}
	}
	if preview != "" && w.cb.OnColorChange != nil {
		w.cb.OnColorChange(preview)
	}
	if committed != "" {
		w.logger.Info("colour committed", "hex", committed)
		if w.cb.OnColorChange != nil {
			w.cb.OnColorChange(committed)
		}
		if w.cb.OnCommit != nil {
			w.cb.OnCommit(committed)
		}
	}
	return out
}

// Close releases the device and drops the surface.
func (w *Workflow) Close() error {
	w.mu.Lock()
	old := w.detachLocked()
	w.dropSurfaceLocked()
	transitions := w.setStateLocked(StateIdle)
	w.mu.Unlock()

	w.fireState(transitions)
	if old != nil {
		if err := old.Close(); err != nil {
			return fmt.Errorf("failed to release capture device: %w", err)
		}
	}
	return nil
}

// loadLocked installs img as the surface of a fresh session.
func (w *Workflow) loadLocked(img image.Image) []State {
	w.surface = sampler.New(img)
	w.wb.Reset()
	w.sessionID = uuid.NewString()
	w.preview = ""
	b := img.Bounds()
	w.logger.Debug("surface loaded", "session", w.sessionID, "width", b.Dx(), "height", b.Dy())
	return w.setStateLocked(StateCaptured)
}

// detachLocked cancels any pending acquisition, invalidates in-flight
// operations and returns the open stream, if any, for the caller to close.
func (w *Workflow) detachLocked() Stream {
	w.gen++
	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
	s := w.stream
	w.stream = nil
	return s
}

func (w *Workflow) dropSurfaceLocked() {
	w.surface = nil
	w.wb.Reset()
	w.preview = ""
}

func (w *Workflow) setPreviewLocked(hex string) string {
	if hex == w.preview {
		return ""
	}
	w.preview = hex
	return hex
}

func (w *Workflow) setStateLocked(s State) []State {
	if w.state == s {
		return nil
	}
	w.logger.Trace("state change", "from", w.state, "to", s)
	w.state = s
	return []State{s}
}

func (w *Workflow) fireState(states []State) {
	if w.cb.OnStateChange == nil {
		return
	}
	for _, s := range states {
		w.cb.OnStateChange(s)
	}
}

func (w *Workflow) closeStream(s Stream) {
	if s == nil {
		return
	}
	if err := s.Close(); err != nil {
		w.logger.Warn("failed to release capture device", "error", err)
	}
}

func (w *Workflow) reportError(err error) {
	reason := ReasonOf(err)
	w.logger.Warn("capture device unavailable", "reason", reason, "error", err)
	if w.cb.OnCaptureError != nil {
		w.cb.OnCaptureError(reason)
	}
}
