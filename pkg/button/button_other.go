//go:build !linux

package button

import "log/slog"

// Button is a mock for development machines without GPIO.
type Button struct{}

// Watch is a no-op off the kiosk hardware.
func Watch(chipName string, pin int, press func()) (*Button, error) {
	if pin >= 0 {
		slog.Info("no GPIO on this platform, capture button disabled", "chip", chipName, "pin", pin)
	}
	return &Button{}, nil
}

// Close is a no-op off the kiosk hardware.
func (b *Button) Close() {}
