package audio

import "sync"

// Buffer is the FIFO between the capture callback and the processing loop.
// Push never waits for the consumer; when a bounded buffer is full the oldest
// frame is discarded so the newest audio is always kept.
type Buffer struct {
	mu       sync.Mutex
	frames   []Frame
	head     int
	size     int
	capacity int
	dropped  uint64
}

// NewBuffer creates a buffer holding at most capacity frames.
// A capacity of zero or less grows without bound.
func NewBuffer(capacity int) *Buffer {
	b := &Buffer{capacity: capacity}
	if capacity > 0 {
		b.frames = make([]Frame, capacity)
	}
	return b
}

// Push appends a frame and reports whether an older frame was dropped to make room.
func (b *Buffer) Push(frame Frame) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.capacity <= 0 {
		b.frames = append(b.frames, frame)
		b.size++
		return false
	}

	dropped := false
	if b.size == b.capacity {
		b.frames[b.head] = Frame{}
		b.head = (b.head + 1) % b.capacity
		b.size--
		b.dropped++
		dropped = true
	}

	tail := (b.head + b.size) % b.capacity
	b.frames[tail] = frame
	b.size++
	return dropped
}

// TryPop removes and returns the oldest frame without waiting.
func (b *Buffer) TryPop() (Frame, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.size == 0 {
		return Frame{}, false
	}

	if b.capacity <= 0 {
		frame := b.frames[0]
		b.frames[0] = Frame{}
		b.frames = b.frames[1:]
		b.size--
		return frame, true
	}

	frame := b.frames[b.head]
	b.frames[b.head] = Frame{}
	b.head = (b.head + 1) % b.capacity
	b.size--
	return frame, true
}

// Len returns the number of queued frames.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size
}

// Dropped returns how many frames were discarded on overflow.
func (b *Buffer) Dropped() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}

// Clear discards every queued frame.
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.capacity <= 0 {
		b.frames = nil
	} else {
		for i := range b.frames {
			b.frames[i] = Frame{}
		}
	}
	b.head = 0
	b.size = 0
}
