package dashboard

import (
	"encoding/json"
	"log"

	"remind/internal/service"
)

// Bridge forwards service events to the WebSocket server as dashboard
// messages.
type Bridge struct {
	server *Server
	logger *log.Logger
}

// NewBridge creates a bridge onto the given server.
func NewBridge(server *Server, logger *log.Logger) *Bridge {
	if logger == nil {
		logger = log.Default()
	}
	return &Bridge{server: server, logger: logger}
}

// Sink returns the EventSink to hand to the service.
func (b *Bridge) Sink() service.EventSink {
	return b.handle
}

func (b *Bridge) handle(e service.Event) {
	msgType, ok := messageType(e.Kind)
	if !ok {
		b.logger.Printf("Dropping event of unknown kind %q", e.Kind)
		return
	}

	data, err := json.Marshal(e.Payload)
	if err != nil {
		b.logger.Printf("Failed to marshal event payload: %v", err)
		return
	}

	b.server.Broadcast(Message{
		Type:      msgType,
		Timestamp: e.At,
		Data:      data,
	})
}

func messageType(kind service.EventKind) (MessageType, bool) {
	switch kind {
	case service.EventReminderUpdate:
		return MessageTypeReminderUpdate, true
	case service.EventSyncComplete:
		return MessageTypeSyncComplete, true
	case service.EventNotificationFired:
		return MessageTypeNotificationFired, true
	case service.EventStats:
		return MessageTypeStats, true
	default:
		return "", false
	}
}
