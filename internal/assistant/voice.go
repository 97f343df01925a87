package assistant

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ashureev/taskflow/internal/notify"
)

// DefaultVoiceDelay is the simulated time spent processing a voice command.
const DefaultVoiceDelay = 1000 * time.Millisecond

// VoiceState is the lifecycle state of a voice widget.
type VoiceState string

const (
	VoiceClosed     VoiceState = "closed"
	VoiceIdle       VoiceState = "open-idle"
	VoiceListening  VoiceState = "listening"
	VoiceProcessing VoiceState = "processing"
)

// RecognitionOptions are passed to the recognizer when listening starts.
type RecognitionOptions struct {
	Lang           string `json:"lang"`
	Continuous     bool   `json:"continuous"`
	InterimResults bool   `json:"interim_results"`
}

// DefaultRecognitionOptions requests a single final en-US result.
var DefaultRecognitionOptions = RecognitionOptions{Lang: "en-US"}

// Recognizer is a speech recognition engine. Results and errors are fed back
// through Voice.HandleResult and Voice.HandleError.
type Recognizer interface {
	Supported() bool
	Start(ctx context.Context, opts RecognitionOptions) error
	Stop()
}

// Utterance is text to be spoken with presentation parameters.
type Utterance struct {
	Text   string  `json:"text"`
	Rate   float64 `json:"rate"`
	Pitch  float64 `json:"pitch"`
	Volume float64 `json:"volume"`
}

// NewUtterance returns text with the assistant's speaking voice settings.
func NewUtterance(text string) Utterance {
	return Utterance{Text: text, Rate: 0.8, Pitch: 1, Volume: 0.8}
}

// Synthesizer speaks utterances. Speak must not block.
type Synthesizer interface {
	Speak(u Utterance)
}

// VoiceSnapshot is a point-in-time copy of a voice widget.
type VoiceSnapshot struct {
	State      VoiceState `json:"state"`
	Transcript string     `json:"transcript"`
	Response   string     `json:"response"`
}

// VoiceConfig configures a Voice widget.
type VoiceConfig struct {
	Delay       time.Duration
	Rules       *RuleSet
	Recognizer  Recognizer
	Synthesizer Synthesizer
	Notifier    notify.Notifier
	OnChange    func(VoiceSnapshot)
}

// Voice is the voice assistant widget. Only one recognition session runs at
// a time. Callbacks and capability calls happen with the widget lock held and
// must not call back into the Voice.
type Voice struct {
	mu         sync.Mutex
	state      VoiceState
	transcript string
	response   string
	gen        uint64
	cancel     context.CancelFunc

	cfg VoiceConfig
	wg  sync.WaitGroup
}

// NewVoice creates a closed voice widget. Recognizer and Synthesizer are
// required.
func NewVoice(cfg VoiceConfig) *Voice {
	if cfg.Rules == nil {
		cfg.Rules = VoiceRules
	}
	if cfg.Notifier == nil {
		cfg.Notifier = notify.Discard
	}
	return &Voice{state: VoiceClosed, cfg: cfg}
}

// Open shows the widget. Opening an open widget does nothing.
func (v *Voice) Open() {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.state != VoiceClosed {
		return
	}
	v.gen++
	v.state = VoiceIdle
	v.changedLocked()
}

// Close hides the widget, stops recognition and drops any pending response.
func (v *Voice) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.state == VoiceClosed {
		return
	}
	if v.state == VoiceListening {
		v.cfg.Recognizer.Stop()
	}
	v.gen++
	if v.cancel != nil {
		v.cancel()
		v.cancel = nil
	}
	v.state = VoiceClosed
	v.transcript = ""
	v.response = ""
	v.changedLocked()
}

// StartListening begins a recognition session from the idle state.
func (v *Voice) StartListening(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	switch v.state {
	case VoiceClosed:
		return ErrWidgetClosed
	case VoiceListening, VoiceProcessing:
		return ErrBusy
	}

	if !v.cfg.Recognizer.Supported() {
		v.cfg.Notifier.Notify(notify.Failure("Not Supported", "Speech recognition is not supported in this browser."))
		return ErrUnsupported
	}
	if err := v.cfg.Recognizer.Start(ctx, DefaultRecognitionOptions); err != nil {
		slog.Warn("Failed to start speech recognition", "error", err)
		v.cfg.Notifier.Notify(notify.Failure("Recognition Error", "Failed to recognize speech. Please try again."))
		return err
	}

	v.state = VoiceListening
	v.transcript = ""
	v.response = ""
	v.changedLocked()
	return nil
}

// StopListening ends the recognition session without a result.
func (v *Voice) StopListening() {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.state != VoiceListening {
		return
	}
	v.cfg.Recognizer.Stop()
	v.state = VoiceIdle
	v.changedLocked()
}

// HandleResult accepts the final transcript of the current recognition
// session and starts processing it.
func (v *Voice) HandleResult(ctx context.Context, transcript string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.state != VoiceListening {
		return ErrNotListening
	}
	v.transcript = transcript
	v.state = VoiceProcessing
	v.changedLocked()

	cycleCtx, cancel := context.WithCancel(ctx)
	v.cancel = cancel
	gen := v.gen

	v.wg.Add(1)
	go v.process(cycleCtx, cancel, gen, transcript)
	return nil
}

// HandleError reports a recognition failure and returns to idle.
func (v *Voice) HandleError(code string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.state != VoiceListening {
		return ErrNotListening
	}
	slog.Warn("Speech recognition error", "code", code)
	v.state = VoiceIdle
	v.cfg.Notifier.Notify(notify.Failure("Recognition Error", "Failed to recognize speech. Please try again."))
	v.changedLocked()
	return nil
}

func (v *Voice) process(ctx context.Context, cancel context.CancelFunc, gen uint64, transcript string) {
	defer v.wg.Done()
	defer cancel()

	timer := time.NewTimer(v.cfg.Delay)
	defer timer.Stop()

	var err error
	select {
	case <-ctx.Done():
		err = ctx.Err()
	case <-timer.C:
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if gen != v.gen || v.state != VoiceProcessing {
		slog.Debug("Discarding late voice response", "generation", gen)
		return
	}
	v.cancel = nil
	v.state = VoiceIdle

	if err != nil {
		slog.Warn("Voice processing aborted", "error", err)
		v.cfg.Notifier.Notify(notify.Failure("Processing Error", "Failed to process voice command."))
		v.changedLocked()
		return
	}

	v.response = v.cfg.Rules.Respond(transcript)
	v.cfg.Synthesizer.Speak(NewUtterance(v.response))
	v.changedLocked()
}

// Snapshot returns a copy of the current widget state.
func (v *Voice) Snapshot() VoiceSnapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.snapshotLocked()
}

// Wait blocks until no processing cycle is running.
func (v *Voice) Wait() {
	v.wg.Wait()
}

func (v *Voice) snapshotLocked() VoiceSnapshot {
	return VoiceSnapshot{State: v.state, Transcript: v.transcript, Response: v.response}
}

func (v *Voice) changedLocked() {
	if v.cfg.OnChange != nil {
		v.cfg.OnChange(v.snapshotLocked())
	}
}
