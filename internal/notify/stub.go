//go:build !linux

package notify

// New returns a notifier that does nothing.
func New() (Notifier, error) {
	return nopNotifier{}, nil
}
