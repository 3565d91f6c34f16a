package server

import (
	"fmt"

	"github.com/lotas/tabcounter/internal/types"
)

// Incoming message types.
const (
	TypeHello          = "hello"
	TypeEvent          = "event"
	TypeUpdateSettings = "updateSettings"
	TypeInstalled      = "installed"
)

// Installed is the payload of an installed message.
type Installed struct {
	Reason    string
	Temporary bool
}

// ParseHello returns the capabilities from a hello message. A hello without
// capabilities reports none.
func ParseHello(msg IncomingMsg) (Capabilities, error) {
	if msg.Type != TypeHello {
		return Capabilities{}, fmt.Errorf("not a hello message: %q", msg.Type)
	}
	if msg.Capabilities == nil {
		return Capabilities{}, nil
	}
	return *msg.Capabilities, nil
}

// ParseEvent returns the event class of an event message.
func ParseEvent(msg IncomingMsg) (types.EventClass, error) {
	if msg.Type != TypeEvent {
		return 0, fmt.Errorf("not an event message: %q", msg.Type)
	}
	c, ok := types.ParseEventClass(msg.Event)
	if !ok {
		return 0, fmt.Errorf("unknown event %q", msg.Event)
	}
	return c, nil
}

// ParseInstalled returns the payload of an installed message.
func ParseInstalled(msg IncomingMsg) (Installed, error) {
	if msg.Type != TypeInstalled {
		return Installed{}, fmt.Errorf("not an installed message: %q", msg.Type)
	}
	if msg.Reason == "" {
		return Installed{}, fmt.Errorf("installed message without reason")
	}
	return Installed{Reason: msg.Reason, Temporary: msg.Temporary}, nil
}

// IsUpdateSettings reports whether msg is the settings-changed signal, in
// either the typed or the legacy {"updateSettings": true} form.
func IsUpdateSettings(msg IncomingMsg) bool {
	return msg.Type == TypeUpdateSettings || (msg.Type == "" && msg.UpdateSettings)
}
