//go:build linux

// Package button watches the arcade button wired to the kiosk GPIO header.
package button

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

const debounce = 250 * time.Millisecond

// Button is a single input line that fires a callback on press. The line is
// pulled up and the switch shorts it to ground, so a press is a falling
// edge.
type Button struct {
	mu       sync.Mutex
	line     *gpiocdev.Line
	lastFire time.Time
}

// Watch requests pin on chipName and invokes press for each debounced
// press. Pass a negative pin to run without a physical button.
func Watch(chipName string, pin int, press func()) (*Button, error) {
	if pin < 0 {
		return &Button{}, nil
	}

	b := &Button{}
	line, err := gpiocdev.RequestLine(chipName, pin,
		gpiocdev.AsInput,
		gpiocdev.WithPullUp,
		gpiocdev.WithFallingEdge,
		gpiocdev.WithEventHandler(func(evt gpiocdev.LineEvent) {
			b.handle(press)
		}))
	if err != nil {
		return nil, fmt.Errorf("requesting button line %s:%d: %w", chipName, pin, err)
	}
	b.line = line
	slog.Info("watching capture button", "chip", chipName, "pin", pin)
	return b, nil
}

// handle drops edges that arrive inside the debounce window. Arcade
// switches bounce for a few milliseconds and visitors mash the button.
func (b *Button) handle(press func()) {
	b.mu.Lock()
	now := time.Now()
	if now.Sub(b.lastFire) < debounce {
		b.mu.Unlock()
		return
	}
	b.lastFire = now
	b.mu.Unlock()

	press()
}

// Close releases the GPIO line.
func (b *Button) Close() {
	if b.line != nil {
		b.line.Close()
	}
}
