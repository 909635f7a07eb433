package bridge

import (
	"encoding/json"
	"strings"

	"github.com/simonvc/fundcard/internal/fund"
)

type EventKind string

const (
	// EventOpened is sent when the checkout window is up.
	EventOpened EventKind = "opened"
	// EventMessage carries a message posted by the checkout window.
	EventMessage EventKind = "message"
	// EventClosed is sent when the window is gone. Err is set when it
	// never opened.
	EventClosed EventKind = "closed"
)

// Event is popup activity reported by the browser.
type Event struct {
	Kind    EventKind
	PopupID string
	Message fund.PopupMessage
	Err     error

	popup *popup
}

// Dispatch applies ev on the session owner's goroutine. Messages are posted
// to relay; a close becomes visible through the popup's handle so the next
// supervisor poll settles it.
func Dispatch(ev Event, relay *fund.Relay) {
	switch ev.Kind {
	case EventMessage:
		relay.Post(ev.Message)
	case EventClosed:
		if ev.popup != nil {
			ev.popup.settled.Store(true)
		}
	}
}

// frame is the websocket protocol between the popup page and the bridge.
type frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

const (
	frameOpened  = "opened"
	frameBlocked = "blocked"
	frameMessage = "message"
	frameClosed  = "closed"
	frameClose   = "close"
)

type onrampMessage struct {
	EventName string          `json:"eventName"`
	Data      json.RawMessage `json:"data"`
	Error     json.RawMessage `json:"error"`
}

type onrampErrorData struct {
	ErrorCode    string `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
	DebugMessage string `json:"debugMessage"`
}

// parseMessage decodes the data of a window message posted by the hosted
// checkout. Checkout posts either an object or that object serialised as a
// string. Messages without an event name are not checkout events.
func parseMessage(raw json.RawMessage) (fund.PopupMessage, bool) {
	data := []byte(raw)
	var s string
	if json.Unmarshal(data, &s) == nil {
		data = []byte(s)
	}
	var m onrampMessage
	if err := json.Unmarshal(data, &m); err != nil || m.EventName == "" {
		return fund.PopupMessage{}, false
	}
	msg := fund.PopupMessage{
		Event: fund.EventName(strings.ToLower(m.EventName)),
		Data:  m.Data,
	}
	if msg.Event == fund.EventError {
		msg.Error = errorReason(m)
	}
	return msg, true
}

func errorReason(m onrampMessage) string {
	var s string
	if len(m.Error) > 0 && json.Unmarshal(m.Error, &s) == nil && s != "" {
		return s
	}
	var d onrampErrorData
	for _, raw := range []json.RawMessage{m.Error, m.Data} {
		if len(raw) == 0 || json.Unmarshal(raw, &d) != nil {
			continue
		}
		switch {
		case d.ErrorMessage != "":
			return d.ErrorMessage
		case d.DebugMessage != "":
			return d.DebugMessage
		case d.ErrorCode != "":
			return d.ErrorCode
		}
	}
	return ""
}
