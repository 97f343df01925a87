package assistant

import "errors"

var (
	// ErrEmptyInput is returned when a blank message is submitted.
	ErrEmptyInput = errors.New("input is empty")
	// ErrWidgetClosed is returned for actions that need an open widget.
	ErrWidgetClosed = errors.New("widget is closed")
	// ErrBusy is returned while a response cycle is in flight.
	ErrBusy = errors.New("widget is busy")
	// ErrUnsupported is returned when speech recognition is unavailable.
	ErrUnsupported = errors.New("speech recognition not supported")
	// ErrNotListening is returned when a recognition event arrives outside
	// the listening state.
	ErrNotListening = errors.New("not listening")
)
