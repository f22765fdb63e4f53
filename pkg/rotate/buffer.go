package rotate

import (
	"fmt"
	"sync"
	"time"

	"github.com/freenet-go/nodelog/pkg/metrics"
)

// LineOverhead approximates the per-record memory overhead charged against
// a BoundedLogBuffer's byte budget, on top of the record's own length.
const LineOverhead = 60

// Record is one immutable, newline-terminated formatted log line.
type Record []byte

// BoundedLogBuffer is a multi-producer, single-consumer bounded queue with
// byte accounting and drop-on-overflow semantics. Producers never block
// beyond acquiring the internal lock; overflow is absorbed by evicting the
// oldest records and injecting a synthetic marker so operators see loss.
type BoundedLogBuffer struct {
	mu   sync.Mutex
	cond *sync.Cond

	queue []Record
	bytes int64

	maxCount       int
	maxBytes       int64
	writeThreshold int64

	closed         bool
	closedFinished bool
}

// NewBoundedLogBuffer returns an empty buffer with the given capacity limits.
func NewBoundedLogBuffer(maxCount int, maxBytes int64) *BoundedLogBuffer {
	b := &BoundedLogBuffer{
		maxCount:       maxCount,
		maxBytes:       maxBytes,
		writeThreshold: maxBytes / 4,
	}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// SetMaxCount updates the record-count limit. Safe from any thread.
func (b *BoundedLogBuffer) SetMaxCount(n int) {
	b.mu.Lock()
	b.maxCount = n
	b.mu.Unlock()
}

// SetMaxBytes updates the byte-budget limit and recomputes the write
// threshold. Safe from any thread.
func (b *BoundedLogBuffer) SetMaxBytes(n int64) {
	b.mu.Lock()
	b.maxBytes = n
	b.writeThreshold = n / 4
	b.mu.Unlock()
}

// Stats reports the current record count and accounted byte total, for
// metrics export.
func (b *BoundedLogBuffer) Stats() (count int, bytes int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queue), b.bytes
}

// pushLocked appends record if the count limit allows it, charging its
// accounted size. Caller must hold b.mu.
func (b *BoundedLogBuffer) pushLocked(r Record) bool {
	if len(b.queue) >= b.maxCount {
		return false
	}
	b.queue = append(b.queue, r)
	b.bytes += int64(len(r)) + LineOverhead
	return true
}

// popFrontLocked removes and returns the oldest record, decrementing bytes.
// Caller must hold b.mu and must only call this on a non-empty queue.
func (b *BoundedLogBuffer) popFrontLocked() Record {
	r := b.queue[0]
	b.queue = b.queue[1:]
	b.bytes -= int64(len(r)) + LineOverhead
	if b.bytes < 0 {
		b.bytes = 0
	}
	return r
}

func choppedMarker(n int, bytesInMemory int64) Record {
	return Record(fmt.Sprintf("GRRR: ERROR: Logging too fast, chopped %d entries, %d bytes in memory\n", n, bytesInMemory))
}

// Enqueue submits one already-formatted record. It never blocks beyond the
// internal lock and never returns an error: under overload it drops the
// oldest records and injects a marker instead.
func (b *BoundedLogBuffer) Enqueue(record Record) {
	b.mu.Lock()
	defer b.mu.Unlock()

	wasEmpty := len(b.queue) == 0
	dropped := false

	if !b.pushLocked(record) {
		dropped = true
		// Count is saturated: drop the two oldest and announce the loss.
		for i := 0; i < 2 && len(b.queue) > 0; i++ {
			b.popFrontLocked()
		}
		for {
			if b.pushLocked(choppedMarker(2, b.bytes)) {
				break
			}
			if len(b.queue) == 0 {
				break
			}
			b.popFrontLocked()
		}
		b.pushLocked(record)
	}

	maxCountSoft := (b.maxCount * 9) / 10
	maxBytesSoft := (b.maxBytes * 9) / 10
	if b.bytes > b.maxBytes {
		evicted := 0
		// Stop at one record left even if it alone still exceeds the soft
		// bound: a single oversized record can never be evicted down to
		// satisfy bytes <= 0.9*maxBytes, and the newest record is never the
		// one sacrificed to make room for itself.
		for len(b.queue) > 1 && (len(b.queue) > maxCountSoft || b.bytes > maxBytesSoft) {
			b.popFrontLocked()
			evicted++
		}
		if evicted > 0 {
			dropped = true
			marker := choppedMarker(evicted, b.bytes)
			if !b.pushLocked(marker) {
				if len(b.queue) > 0 {
					b.popFrontLocked()
				}
				b.pushLocked(marker)
			}
		}
	}

	metrics.RecordEnqueue(len(b.queue), b.bytes, dropped)

	if wasEmpty {
		b.cond.Broadcast()
	}
}

// Drain atomically removes and returns the oldest record, or reports false
// if the buffer is empty.
func (b *BoundedLogBuffer) Drain() (Record, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.queue) == 0 {
		return nil, false
	}
	return b.popFrontLocked(), true
}

// RequestClose flips the closed flag and wakes any waiters. Idempotent.
func (b *BoundedLogBuffer) RequestClose() {
	b.mu.Lock()
	b.closed = true
	b.cond.Broadcast()
	b.mu.Unlock()
}

// Closed reports whether RequestClose has been called.
func (b *BoundedLogBuffer) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// MarkClosedFinished records that the WriterLoop has finished draining and
// wakes any thread parked in AwaitClosedFinished.
func (b *BoundedLogBuffer) MarkClosedFinished() {
	b.mu.Lock()
	b.closedFinished = true
	b.cond.Broadcast()
	b.mu.Unlock()
}

// AwaitClosedFinished implements CloserSignal: it blocks until the writer
// reports closedFinished or deadline elapses, whichever comes first, and
// reports whether the drain completed.
func (b *BoundedLogBuffer) AwaitClosedFinished(deadline time.Duration) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	b.cond.Broadcast()

	cutoff := time.Now().Add(deadline)
	for !b.closedFinished {
		remaining := cutoff.Sub(time.Now())
		if remaining <= 0 {
			return false
		}
		b.waitTimeoutLocked(remaining)
	}
	return true
}

// waitTimeoutLocked parks on the condition variable for at most d, then
// reacquires b.mu. Caller must hold b.mu; it is released and reacquired by
// this call the same way cond.Wait does.
func (b *BoundedLogBuffer) waitTimeoutLocked(d time.Duration) {
	timer := time.AfterFunc(d, func() {
		b.mu.Lock()
		b.cond.Broadcast()
		b.mu.Unlock()
	})
	b.cond.Wait()
	timer.Stop()
}

// WaitForRecord implements the wait protocol described for the writer loop:
// it blocks (holding the internal lock, releasing it only while parked on
// the condition) until a record is available, a flush timeout elapses
// (whether or not records are still queued below the write threshold), or
// the buffer is closed with nothing left to drain.
func (b *BoundedLogBuffer) WaitForRecord(flushDelay time.Duration) (record Record, ok, timeoutFlush, died bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	armed := false
	var armedAt time.Time

	rec, got := b.tryDrain()
	for !got {
		if b.closed {
			died = true
			return nil, false, false, true
		}

		now := time.Now()
		infinite := !armed
		var maxWait time.Time
		if !infinite {
			maxWait = armedAt.Add(flushDelay)
		}

		if infinite || now.Before(maxWait) {
			waitDur := 500 * time.Millisecond
			if !infinite {
				if rem := maxWait.Sub(now); rem < waitDur {
					waitDur = rem
				}
			}
			b.waitTimeoutLocked(waitDur)
			now = time.Now()

			if b.bytes < b.writeThreshold {
				if b.bytes > 0 && infinite {
					armed = true
					armedAt = now
				}
				if b.closed {
					rec, got = b.tryDrain()
				}
				// else: purely time-gated, loop back around.
			} else {
				rec, got = b.tryDrain()
			}
		}

		if !got {
			if !armed {
				armed = true
				armedAt = now
			}
			if !now.Before(armedAt.Add(flushDelay)) {
				timeoutFlush = true
				armed = false
				return nil, false, true, false
			}
		}
	}

	return rec, true, false, false
}

func (b *BoundedLogBuffer) tryDrain() (Record, bool) {
	if len(b.queue) == 0 {
		return nil, false
	}
	return b.popFrontLocked(), true
}
