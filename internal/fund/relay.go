package fund

import (
	"encoding/json"
	"slices"
)

// EventName is the name of an event posted by the hosted checkout.
type EventName string

const (
	EventSuccess        EventName = "success"
	EventExit           EventName = "exit"
	EventError          EventName = "error"
	EventTransitionView EventName = "transition_view"
	EventRequestOpenURL EventName = "request_open_url"
)

// Terminal reports whether the event decides the outcome of a checkout.
func (e EventName) Terminal() bool {
	return e == EventSuccess || e == EventError
}

// PopupMessage is a cross-window message received from the checkout popup.
// PopupID names the popup it came from; an empty id matches any popup.
type PopupMessage struct {
	PopupID string          `json:"popup_id,omitempty"`
	Event   EventName       `json:"eventName"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// MessageChannel delivers popup messages to registered handlers.
type MessageChannel interface {
	Subscribe(handler func(PopupMessage)) (cancel func())
}

// Relay is a MessageChannel that dispatches on the caller's goroutine. The
// owner of the session posts messages to it from the UI loop.
type Relay struct {
	handlers map[uint64]func(PopupMessage)
	next     uint64
}

func NewRelay() *Relay {
	return &Relay{handlers: map[uint64]func(PopupMessage){}}
}

func (r *Relay) Subscribe(handler func(PopupMessage)) func() {
	id := r.next
	r.next++
	r.handlers[id] = handler
	return func() { delete(r.handlers, id) }
}

// Post hands msg to every current handler in registration order.
func (r *Relay) Post(msg PopupMessage) {
	ids := make([]uint64, 0, len(r.handlers))
	for id := range r.handlers {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		if h, ok := r.handlers[id]; ok {
			h(msg)
		}
	}
}

// Len returns the number of registered handlers.
func (r *Relay) Len() int { return len(r.handlers) }
