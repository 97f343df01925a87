// Package notify defines the transient, non-blocking notifications (toasts)
// shown to a user when an action succeeds or fails.
package notify

import "sync"

// Variant selects how a notification is rendered.
type Variant string

const (
	VariantDefault     Variant = "default"
	VariantDestructive Variant = "destructive"
)

// Notification is a single toast.
type Notification struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Variant     Variant `json:"variant"`
}

// Notifier delivers notifications to the user. Implementations must not block.
type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notification)

// Notify calls f(n).
func (f NotifierFunc) Notify(n Notification) { f(n) }

// Discard drops every notification.
var Discard Notifier = NotifierFunc(func(Notification) {})

// Success builds a default-variant notification.
func Success(description string) Notification {
	return Notification{Title: "Success", Description: description, Variant: VariantDefault}
}

// Failure builds a destructive notification.
func Failure(title, description string) Notification {
	return Notification{Title: title, Description: description, Variant: VariantDestructive}
}

// Recorder collects notifications in memory.
type Recorder struct {
	mu    sync.Mutex
	items []Notification
}

// Notify appends n.
func (r *Recorder) Notify(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, n)
}

// All returns a copy of the recorded notifications.
func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notification, len(r.items))
	copy(out, r.items)
	return out
}

// Last returns the most recent notification and whether one exists.
func (r *Recorder) Last() (Notification, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.items) == 0 {
		return Notification{}, false
	}
	return r.items[len(r.items)-1], true
}
