package notify

import (
	"fmt"
	"time"
)

// Event types pushed over the realtime channel.
const (
	EventRequestReceived   = "requestReceived"
	EventSearchStarted     = "searchStarted"
	EventDriverFound       = "driverFound"
	EventBookingConfirmed  = "bookingConfirmed"
	EventSearchComplete    = "searchComplete"
	EventDriversNotFound   = "driversNotFoundOnTime"
	EventDriverAssigned    = "driverAssigned"
	EventDriverArrived     = "driverArrived"
	EventRideStarted       = "rideStarted"
	EventRideEnded         = "rideEnded"
	EventPaymentReceived   = "paymentReceived"
	EventPaymentChanged    = "paymentChanged"
	EventBookingCancelled  = "bookingCancelled"
	EventStopAdded         = "stopAdded"
	EventDestinationMoved  = "dropOffLocationUpdated"
	EventLocationUpdated   = "locationUpdated"
	EventDriverReleased    = "driverReleased"
	EventApplicationStatus = "applicationStatus"
)

// Notification is the payload pushed to a connected client.
type Notification struct {
	Type           string                 `json:"type"`
	NotificationID string                 `json:"notification_id"`
	Message        string                 `json:"message"`
	Data           map[string]interface{} `json:"data,omitempty"`
}

// New builds a notification with a per-recipient unique id.
func New(eventType, recipientID, message string) Notification {
	return Notification{
		Type:           eventType,
		NotificationID: fmt.Sprintf("%s-%d", recipientID, time.Now().UnixNano()),
		Message:        message,
	}
}

// WithData attaches a payload map and returns the notification.
func (n Notification) WithData(data map[string]interface{}) Notification {
	n.Data = data
	return n
}

// Notifier pushes an event to a specific user if currently connected.
// Delivery is best-effort and non-blocking; there is no delivery
// guarantee and no error to handle.
type Notifier interface {
	Notify(userID string, n Notification)
}

// HubSender is the subset of the websocket hub the notifier needs.
type HubSender interface {
	SendToUser(userID string, message interface{})
}

// HubNotifier adapts the websocket hub to the Notifier interface.
type HubNotifier struct {
	hub HubSender
}

// NewHubNotifier creates a notifier backed by the websocket hub.
func NewHubNotifier(hub HubSender) *HubNotifier {
	return &HubNotifier{hub: hub}
}

// Notify implements Notifier.
func (h *HubNotifier) Notify(userID string, n Notification) {
	h.hub.SendToUser(userID, n)
}
