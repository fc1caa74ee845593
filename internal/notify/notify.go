// Package notify shows desktop notifications for track changes.
package notify

// Urgency is the freedesktop notification urgency level.
type Urgency byte

const (
	UrgencyLow      Urgency = 0
	UrgencyNormal   Urgency = 1
	UrgencyCritical Urgency = 2
)

const appName = "Wavestream"

// Notification is a single desktop notification.
type Notification struct {
	Title      string
	Body       string
	Icon       string // icon name or image path
	Timeout    int32  // ms, -1 = server default, 0 = never expire
	ReplacesID uint32 // id of a notification to replace, 0 for a new one
	Urgency    Urgency
}

// Notifier sends desktop notifications.
type Notifier interface {
	// Notify shows n and returns its id. A disabled notifier returns 0.
	Notify(n Notification) (uint32, error)
	Close(id uint32) error
}

// nopNotifier is used when no notification service is reachable.
type nopNotifier struct{}

func (nopNotifier) Notify(Notification) (uint32, error) { return 0, nil }
func (nopNotifier) Close(uint32) error                  { return nil }
