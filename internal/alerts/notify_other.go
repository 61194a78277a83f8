//go:build !linux && !darwin

package alerts

// noopNotifier drops all notifications on platforms without a supported
// desktop notification mechanism.
type noopNotifier struct{}

// NewPlatformNotifier returns a no-op notifier on unsupported platforms.
func NewPlatformNotifier(enabled bool) Notifier {
	return noopNotifier{}
}

func (noopNotifier) Notify(Alert) {}
