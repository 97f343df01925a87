package live

import (
	"github.com/ashureev/taskflow/internal/domain"
)

// Client to server message types.
const (
	msgHello           = "hello"
	msgDashboardLoad   = "dashboard.load"
	msgDashboardFilter = "dashboard.filter"
	msgTaskCreate      = "task.create"
	msgTaskUpdate      = "task.update"
	msgTaskComplete    = "task.complete"
	msgTaskProgress    = "task.progress"
	msgTaskDelete      = "task.delete"
	msgChatOpen        = "chat.open"
	msgChatClose       = "chat.close"
	msgChatSend        = "chat.send"
	msgVoiceOpen       = "voice.open"
	msgVoiceClose      = "voice.close"
	msgVoiceStart      = "voice.start"
	msgVoiceStop       = "voice.stop"
	msgVoiceResult     = "voice.result"
	msgVoiceError      = "voice.error"
	msgPing            = "ping"
)

// Server to client message types.
const (
	msgDashboardView  = "dashboard.view"
	msgChatState      = "chat.state"
	msgChatMessage    = "chat.message"
	msgVoiceState     = "voice.state"
	msgVoiceRecognize = "voice.recognize"
	msgVoiceRecStop   = "voice.recognize_stop"
	msgVoiceSpeak     = "voice.speak"
	msgToast          = "toast"
	msgPong           = "pong"
	msgError          = "error"
)

// inbound is a message sent by the page. Only the fields relevant to Type
// are set.
type inbound struct {
	Type string `json:"type"`

	SpeechRecognition bool `json:"speech_recognition,omitempty"`

	Filter    domain.TaskFilter  `json:"filter,omitempty"`
	ID        string             `json:"id,omitempty"`
	Task      *domain.NewTask    `json:"task,omitempty"`
	Changes   *domain.TaskUpdate `json:"changes,omitempty"`
	Completed bool               `json:"completed,omitempty"`

	Content    string `json:"content,omitempty"`
	Transcript string `json:"transcript,omitempty"`
	Code       string `json:"code,omitempty"`
}

// outbound is a message sent to the page with its payload under "data".
type outbound struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

type errorPayload struct {
	Message string `json:"message"`
}
