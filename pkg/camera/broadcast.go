package camera

import (
	"sync"
)

// Broadcaster fans one frame stream out to every subscribed preview viewer.
// A single reader loop publishes; the device is never read once per viewer.
type Broadcaster struct {
	mu     sync.Mutex
	subs   map[int]chan Frame
	nextID int
	buffer int
}

// NewBroadcaster creates a broadcaster whose subscriber channels buffer the
// given number of frames. A viewer that falls behind loses frames, it never
// stalls the reader loop or other viewers.
func NewBroadcaster(buffer int) *Broadcaster {
	if buffer < 1 {
		buffer = 1
	}
	return &Broadcaster{
		subs:   make(map[int]chan Frame),
		buffer: buffer,
	}
}

// Subscribe registers a viewer. The returned function removes the
// subscription and closes the channel; it is safe to call more than once.
func (b *Broadcaster) Subscribe() (<-chan Frame, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan Frame, b.buffer)
	b.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if sub, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(sub)
			}
		})
	}
	return ch, cancel
}

// Publish delivers a frame to every current subscriber without blocking.
func (b *Broadcaster) Publish(f Frame) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- f:
		default:
			// Viewer is not keeping up, drop the frame for it.
		}
	}
}

// Subscribers returns the current viewer count.
func (b *Broadcaster) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
