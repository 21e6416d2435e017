package notify

import (
	"github.com/google/uuid"
	"github.com/okanehq/okane-backend/internal/domain"
	"github.com/okanehq/okane-backend/internal/websocket"
)

// WebSocketDispatcher delivers notifications over the websocket hub. Delivery
// is best-effort: a user with no open sockets simply misses the message.
type WebSocketDispatcher struct {
	publisher websocket.EventPublisher
}

// NewWebSocketDispatcher creates a new WebSocketDispatcher
func NewWebSocketDispatcher(publisher websocket.EventPublisher) *WebSocketDispatcher {
	return &WebSocketDispatcher{publisher: publisher}
}

var _ domain.Dispatcher = (*WebSocketDispatcher)(nil)

// Notify publishes the notification to all of the user's connected clients
func (d *WebSocketDispatcher) Notify(userID uuid.UUID, n domain.Notification) error {
	d.publisher.Publish(userID, websocket.NotificationCreated(n))
	return nil
}

// NoOpDispatcher swallows notifications (for testing or when the hub is disabled)
type NoOpDispatcher struct{}

// Notify does nothing
func (NoOpDispatcher) Notify(userID uuid.UUID, n domain.Notification) error {
	return nil
}
