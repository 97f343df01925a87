package assistant

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ashureev/taskflow/internal/domain"
	"github.com/ashureev/taskflow/internal/notify"
	"github.com/google/uuid"
)

// DefaultChatDelay is the simulated time the assistant spends "typing".
const DefaultChatDelay = 1500 * time.Millisecond

// ChatState is the lifecycle state of a chat widget.
type ChatState string

const (
	ChatClosed   ChatState = "closed"
	ChatIdle     ChatState = "open-idle"
	ChatAwaiting ChatState = "open-awaiting-response"
)

// ChatSnapshot is a point-in-time copy of a chat widget.
type ChatSnapshot struct {
	State    ChatState        `json:"state"`
	Typing   bool             `json:"typing"`
	Messages []domain.Message `json:"messages"`
}

// ChatConfig configures a Chat. Zero values select defaults, except Delay
// which is used as given.
type ChatConfig struct {
	Delay    time.Duration
	Rules    *RuleSet
	Notifier notify.Notifier
	// OnChange is called with a snapshot after every state change.
	OnChange func(ChatSnapshot)
	// OnMessage is called for every message appended to the transcript.
	OnMessage func(domain.Message)
	Now       func() time.Time
	NewID     func() string
}

// Chat is the text assistant widget. At most one response cycle is in
// flight at a time. Callbacks run with the widget lock held and must not
// call back into the Chat.
type Chat struct {
	mu       sync.Mutex
	state    ChatState
	messages []domain.Message
	gen      uint64
	cancel   context.CancelFunc

	cfg ChatConfig
	wg  sync.WaitGroup
}

// NewChat creates a closed chat widget.
func NewChat(cfg ChatConfig) *Chat {
	if cfg.Rules == nil {
		cfg.Rules = ChatRules
	}
	if cfg.Notifier == nil {
		cfg.Notifier = notify.Discard
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.NewID == nil {
		cfg.NewID = uuid.NewString
	}
	return &Chat{state: ChatClosed, cfg: cfg}
}

// Open shows the widget with a fresh transcript holding only the greeting.
// Opening an open widget does nothing.
func (c *Chat) Open() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != ChatClosed {
		return
	}
	c.gen++
	c.state = ChatIdle
	c.messages = []domain.Message{c.newMessage(Greeting, domain.SenderBot)}
	c.changedLocked()
}

// Close hides the widget and discards the transcript. A response still in
// flight is dropped.
func (c *Chat) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == ChatClosed {
		return
	}
	c.gen++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.state = ChatClosed
	c.messages = nil
	c.changedLocked()
}

// Submit appends the user's message and starts a response cycle. The bot
// reply is appended after the configured delay unless ctx ends first.
func (c *Chat) Submit(ctx context.Context, input string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case c.state == ChatClosed:
		return ErrWidgetClosed
	case strings.TrimSpace(input) == "":
		return ErrEmptyInput
	case c.state == ChatAwaiting:
		return ErrBusy
	}

	msg := c.newMessage(input, domain.SenderUser)
	c.messages = append(c.messages, msg)
	c.state = ChatAwaiting
	if c.cfg.OnMessage != nil {
		c.cfg.OnMessage(msg)
	}
	c.changedLocked()

	cycleCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	gen := c.gen

	c.wg.Add(1)
	go c.respond(cycleCtx, cancel, gen, input)
	return nil
}

func (c *Chat) respond(ctx context.Context, cancel context.CancelFunc, gen uint64, input string) {
	defer c.wg.Done()
	defer cancel()

	timer := time.NewTimer(c.cfg.Delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		c.finish(gen, "", ctx.Err())
	case <-timer.C:
		c.finish(gen, c.cfg.Rules.Respond(input), nil)
	}
}

func (c *Chat) finish(gen uint64, reply string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.gen || c.state != ChatAwaiting {
		slog.Debug("Discarding late chat response", "generation", gen)
		return
	}
	c.cancel = nil
	c.state = ChatIdle

	if err != nil {
		slog.Warn("Chat response cycle aborted", "error", err)
		c.cfg.Notifier.Notify(notify.Failure("Error", "Failed to get AI response. Please try again."))
		c.changedLocked()
		return
	}

	msg := c.newMessage(reply, domain.SenderBot)
	c.messages = append(c.messages, msg)
	if c.cfg.OnMessage != nil {
		c.cfg.OnMessage(msg)
	}
	c.changedLocked()
}

// Snapshot returns a copy of the current widget state.
func (c *Chat) Snapshot() ChatSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Wait blocks until no response cycle is running.
func (c *Chat) Wait() {
	c.wg.Wait()
}

func (c *Chat) snapshotLocked() ChatSnapshot {
	msgs := make([]domain.Message, len(c.messages))
	copy(msgs, c.messages)
	return ChatSnapshot{
		State:    c.state,
		Typing:   c.state == ChatAwaiting,
		Messages: msgs,
	}
}

func (c *Chat) changedLocked() {
	if c.cfg.OnChange != nil {
		c.cfg.OnChange(c.snapshotLocked())
	}
}

func (c *Chat) newMessage(content string, sender domain.Sender) domain.Message {
	return domain.Message{
		ID:        c.cfg.NewID(),
		Content:   content,
		Sender:    sender,
		Timestamp: c.cfg.Now(),
	}
}
