// Package sampler buffers per-tick edge counts between the fast sampling
// loop and the slower decode loop.
//
// History is single-writer/single-reader: only the sampler goroutine calls
// Append and only the decode loop drains a Reader. Slots and the write
// sequence are atomics, so no lock is held on the sampling path.
package sampler

import "sync/atomic"

// DefaultCapacity holds 30 seconds of 20ms ticks, twice the decode interval.
const DefaultCapacity = 1500

// History is a fixed-capacity circular buffer of edge counts.
type History struct {
	slots []atomic.Int32
	// written is the total number of samples ever appended. The writer
	// cursor is written % len(slots).
	written atomic.Uint64
}

// NewHistory creates a history with the given number of slots.
func NewHistory(capacity int) *History {
	if capacity < 2 {
		capacity = 2
	}
	return &History{slots: make([]atomic.Int32, capacity)}
}

// Capacity returns the number of slots.
func (h *History) Capacity() int {
	return len(h.slots)
}

// Append stores count at the writer cursor and advances the cursor,
// wrapping from the last slot to 0.
func (h *History) Append(count int) {
	n := h.written.Load()
	h.slots[n%uint64(len(h.slots))].Store(int32(count))
	h.written.Store(n + 1)
}

// Cursor returns the writer cursor: the index of the next slot to be
// overwritten.
func (h *History) Cursor() int {
	return int(h.written.Load() % uint64(len(h.slots)))
}

// Written returns the total number of samples appended since creation.
func (h *History) Written() uint64 {
	return h.written.Load()
}

func (h *History) at(seq uint64) int {
	return int(h.slots[seq%uint64(len(h.slots))].Load())
}

// Reader is the decode side's persistent position in a History.
type Reader struct {
	h   *History
	seq uint64
}

// NewReader returns a reader positioned at the current writer cursor, so
// samples written before the reader existed are not decoded.
func (h *History) NewReader() *Reader {
	return &Reader{h: h, seq: h.Written()}
}

// Cursor returns the reader cursor as a slot index.
func (r *Reader) Cursor() int {
	return int(r.seq % uint64(len(r.h.slots)))
}

// Pending returns the number of unread samples.
func (r *Reader) Pending() int {
	return int(r.h.Written() - r.seq)
}

// DrainResult summarises one drain pass.
type DrainResult struct {
	Read    int    // samples passed to the callback
	Overrun bool   // the writer lapped the reader before this pass
	Skipped uint64 // samples lost to the overrun
}

// Drain captures the writer position as the end of the pass and calls fn
// for every sample from the reader cursor up to, not including, that end.
// A pass that starts with the reader caught up performs no iterations.
//
// If the writer has filled the whole ring since the previous pass, the
// oldest slots are no longer trustworthy: the reader jumps forward to keep
// only the newest half of the ring and reports the overrun.
func (r *Reader) Drain(fn func(count int)) DrainResult {
	var res DrainResult
	end := r.h.Written()
	capacity := uint64(len(r.h.slots))

	if end-r.seq >= capacity {
		resume := end - capacity/2
		res.Overrun = true
		res.Skipped = resume - r.seq
		r.seq = resume
	}

	for r.seq != end {
		fn(r.h.at(r.seq))
		r.seq++
		res.Read++
	}
	return res
}
