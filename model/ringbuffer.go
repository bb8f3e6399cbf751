package model

import "sync"

// RingBuffer keeps a fixed-capacity, time-ordered window of price points.
// Add evicts the oldest point once the buffer is full. Reads hand out copies,
// so they stay safe while appends continue on other goroutines.
type RingBuffer struct {
	mu     sync.RWMutex
	data   []PricePoint
	size   int
	cursor int
	count  int
}

// NewRingBuffer creates a buffer holding at most size points.
func NewRingBuffer(size int) *RingBuffer {
	if size <= 0 {
		size = 1
	}
	return &RingBuffer{
		data: make([]PricePoint, size),
		size: size,
	}
}

// Add appends a point, evicting the oldest one when the buffer is full.
func (rb *RingBuffer) Add(point PricePoint) {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	if rb.count < rb.size {
		rb.count++
	}
	rb.data[rb.cursor] = point
	rb.cursor = (rb.cursor + 1) % rb.size
}

// Count returns the number of buffered points.
func (rb *RingBuffer) Count() int {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.count
}

// Cap returns the buffer capacity.
func (rb *RingBuffer) Cap() int {
	return rb.size
}

// Points returns a copy of the buffered points, oldest first. Readers never
// observe a mutation mid-iteration.
func (rb *RingBuffer) Points() []PricePoint {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	out := make([]PricePoint, rb.count)
	if rb.count < rb.size {
		copy(out, rb.data[:rb.count])
		return out
	}
	n := copy(out, rb.data[rb.cursor:])
	copy(out[n:], rb.data[:rb.cursor])
	return out
}

// Values returns the buffered price values as a series, oldest first.
func (rb *RingBuffer) Values() Series[float64] {
	points := rb.Points()
	out := make(Series[float64], len(points))
	for i, point := range points {
		out[i] = point.Value
	}
	return out
}

// Last returns the point n positions back from the newest entry.
func (rb *RingBuffer) Last(n int) (PricePoint, bool) {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	if n < 0 || n >= rb.count {
		return PricePoint{}, false
	}
	index := (rb.cursor - 1 - n + rb.size) % rb.size
	return rb.data[index], true
}
