package live

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ashureev/taskflow/internal/assistant"
	"github.com/ashureev/taskflow/internal/dashboard"
	"github.com/ashureev/taskflow/internal/domain"
	"github.com/ashureev/taskflow/internal/notify"
)

// outboxSize bounds the frames queued for the writer goroutine.
const outboxSize = 256

// PageConfig configures the widgets of a page.
type PageConfig struct {
	ChatDelay  time.Duration
	VoiceDelay time.Duration
	Now        func() time.Time
}

// Page is the server-side state of one open dashboard page. Inbound messages
// are handled one at a time by the connection's read loop; everything the
// page emits goes through Outbox.
type Page struct {
	id     string
	userID string
	now    func() time.Time

	out       chan outbound
	done      chan struct{}
	closeOnce sync.Once
	speech    atomic.Bool

	dash  *dashboard.Dashboard
	chat  *assistant.Chat
	voice *assistant.Voice
}

// NewPage creates the page state for user.
func NewPage(id string, user domain.User, store dashboard.TaskStore, cfg PageConfig) *Page {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	p := &Page{
		id:     id,
		userID: user.UserID,
		now:    cfg.Now,
		out:    make(chan outbound, outboxSize),
		done:   make(chan struct{}),
	}

	toasts := notify.NotifierFunc(func(n notify.Notification) { p.send(msgToast, n) })

	p.dash = dashboard.New(user, store, toasts)
	p.chat = assistant.NewChat(assistant.ChatConfig{
		Delay:     cfg.ChatDelay,
		Notifier:  toasts,
		OnChange:  func(s assistant.ChatSnapshot) { p.send(msgChatState, s) },
		OnMessage: func(m domain.Message) { p.send(msgChatMessage, m) },
		Now:       cfg.Now,
	})
	p.voice = assistant.NewVoice(assistant.VoiceConfig{
		Delay:       cfg.VoiceDelay,
		Recognizer:  pageRecognizer{p},
		Synthesizer: pageSynthesizer{p},
		Notifier:    toasts,
		OnChange:    func(s assistant.VoiceSnapshot) { p.send(msgVoiceState, s) },
	})
	return p
}

// Outbox returns the frames to write to the page, in order.
func (p *Page) Outbox() <-chan outbound {
	return p.out
}

// Done is closed once the page has shut down.
func (p *Page) Done() <-chan struct{} {
	return p.done
}

// send queues a frame without blocking. Frames are dropped when the page has
// shut down or the writer has fallen too far behind.
func (p *Page) send(typ string, data interface{}) {
	select {
	case <-p.done:
		return
	default:
	}
	select {
	case p.out <- outbound{Type: typ, Data: data}:
	default:
		slog.Warn("Live page outbox full, dropping frame", "user_id", p.userID, "page_id", p.id, "type", typ)
	}
}

func (p *Page) sendError(err error) {
	p.send(msgError, errorPayload{Message: err.Error()})
}

func (p *Page) pushView() {
	p.send(msgDashboardView, p.dash.View(p.now()))
}

// Start publishes the initial widget states, then loads the dashboard. The
// first dashboard view is the last frame of the initial burst.
func (p *Page) Start(ctx context.Context) {
	p.send(msgChatState, p.chat.Snapshot())
	p.send(msgVoiceState, p.voice.Snapshot())
	_ = p.dash.Load(ctx)
	p.pushView()
}

// Shutdown closes both widgets, waits for their response cycles and stops
// emitting frames. It is safe to call more than once.
func (p *Page) Shutdown() {
	p.closeOnce.Do(func() {
		p.chat.Close()
		p.voice.Close()
		p.chat.Wait()
		p.voice.Wait()
		close(p.done)
	})
}

var errUnknownMessage = errors.New("unknown message type")

// Handle applies one inbound message. Failures that the page should see are
// reported as error frames; persistence failures also produce a toast.
func (p *Page) Handle(ctx context.Context, msg inbound) {
	if err := p.dispatch(ctx, msg); err != nil {
		slog.Debug("Live page message failed", "user_id", p.userID, "type", msg.Type, "error", err)
		p.sendError(err)
	}
}

//nolint:gocyclo // One case per message type.
func (p *Page) dispatch(ctx context.Context, msg inbound) error {
	switch msg.Type {
	case msgHello:
		p.speech.Store(msg.SpeechRecognition)
		return nil
	case msgPing:
		p.send(msgPong, nil)
		return nil

	case msgDashboardLoad:
		err := p.dash.Load(ctx)
		p.pushView()
		return err
	case msgDashboardFilter:
		f, err := domain.ParseTaskFilter(string(msg.Filter))
		if err != nil {
			return err
		}
		p.dash.SetFilter(f)
		p.pushView()
		return nil
	case msgTaskCreate:
		if msg.Task == nil {
			return fmt.Errorf("%s: missing task", msg.Type)
		}
		_, err := p.dash.CreateTask(ctx, *msg.Task)
		return p.afterMutation(err)
	case msgTaskUpdate:
		if msg.Changes == nil || msg.Changes.IsEmpty() {
			return fmt.Errorf("%s: no fields to update", msg.Type)
		}
		return p.afterMutation(p.dash.UpdateTask(ctx, msg.ID, *msg.Changes))
	case msgTaskComplete:
		return p.afterMutation(p.dash.SetCompleted(ctx, msg.ID, msg.Completed))
	case msgTaskProgress:
		return p.afterMutation(p.dash.ToggleInProgress(ctx, msg.ID))
	case msgTaskDelete:
		return p.afterMutation(p.dash.DeleteTask(ctx, msg.ID))

	case msgChatOpen:
		p.chat.Open()
		return nil
	case msgChatClose:
		p.chat.Close()
		return nil
	case msgChatSend:
		return p.chat.Submit(ctx, msg.Content)

	case msgVoiceOpen:
		p.voice.Open()
		return nil
	case msgVoiceClose:
		p.voice.Close()
		return nil
	case msgVoiceStart:
		return p.voice.StartListening(ctx)
	case msgVoiceStop:
		p.voice.StopListening()
		return nil
	case msgVoiceResult:
		return p.voice.HandleResult(ctx, msg.Transcript)
	case msgVoiceError:
		return p.voice.HandleError(msg.Code)
	}
	return fmt.Errorf("%w: %q", errUnknownMessage, msg.Type)
}

// afterMutation pushes the new view on success. On failure the dashboard has
// already sent a toast and its state is unchanged, so there is nothing to add.
func (p *Page) afterMutation(err error) error {
	if err != nil {
		if errors.Is(err, dashboard.ErrUnknownTask) {
			return err
		}
		return nil
	}
	p.pushView()
	return nil
}

// pageRecognizer asks the page to run speech recognition in the browser.
type pageRecognizer struct{ p *Page }

func (r pageRecognizer) Supported() bool { return r.p.speech.Load() }

func (r pageRecognizer) Start(ctx context.Context, opts assistant.RecognitionOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.p.send(msgVoiceRecognize, opts)
	return nil
}

func (r pageRecognizer) Stop() { r.p.send(msgVoiceRecStop, nil) }

// pageSynthesizer asks the page to speak.
type pageSynthesizer struct{ p *Page }

func (s pageSynthesizer) Speak(u assistant.Utterance) { s.p.send(msgVoiceSpeak, u) }
