package rotate_test

import (
	"strings"
	"testing"
	"time"

	"github.com/freenet-go/nodelog/pkg/rotate"
)

func TestBoundedLogBufferEnqueueDrain(t *testing.T) {
	b := rotate.NewBoundedLogBuffer(100, 1<<20)

	b.Enqueue(rotate.Record("first\n"))
	b.Enqueue(rotate.Record("second\n"))

	count, bytes := b.Stats()
	if count != 2 {
		t.Fatalf("Stats() count = %d, want 2", count)
	}
	if bytes <= 0 {
		t.Fatalf("Stats() bytes = %d, want > 0", bytes)
	}

	rec, ok := b.Drain()
	if !ok || string(rec) != "first\n" {
		t.Fatalf("Drain() = (%q, %v), want (\"first\\n\", true)", rec, ok)
	}

	rec, ok = b.Drain()
	if !ok || string(rec) != "second\n" {
		t.Fatalf("Drain() = (%q, %v), want (\"second\\n\", true)", rec, ok)
	}

	if _, ok := b.Drain(); ok {
		t.Fatal("Drain() on an empty buffer should report false")
	}
}

func TestBoundedLogBufferDropOnCountOverflow(t *testing.T) {
	b := rotate.NewBoundedLogBuffer(2, 1<<20)

	b.Enqueue(rotate.Record("a\n"))
	b.Enqueue(rotate.Record("b\n"))
	// The buffer is now saturated at maxCount=2; this push forces a
	// drop-with-marker instead of silently failing.
	b.Enqueue(rotate.Record("c\n"))

	var drained []string
	for {
		rec, ok := b.Drain()
		if !ok {
			break
		}
		drained = append(drained, string(rec))
	}

	foundMarker := false
	foundC := false
	for _, line := range drained {
		if strings.Contains(line, "chopped") {
			foundMarker = true
		}
		if line == "c\n" {
			foundC = true
		}
	}
	if !foundMarker {
		t.Errorf("expected a chopped-entries marker among drained records, got %v", drained)
	}
	if !foundC {
		t.Errorf("the newly enqueued record should survive the drop, got %v", drained)
	}
}

func TestBoundedLogBufferSingleRecordExceedingMaxBytes(t *testing.T) {
	b := rotate.NewBoundedLogBuffer(100, 10)

	huge := strings.Repeat("x", 1000) + "\n"
	b.Enqueue(rotate.Record(huge))

	// A single record larger than the whole byte budget must still be kept:
	// eviction only removes records already in the queue, never the one
	// just pushed.
	rec, ok := b.Drain()
	if !ok {
		t.Fatal("the oversized record should still be enqueued and drainable")
	}
	if string(rec) != huge {
		t.Errorf("drained record does not match what was enqueued")
	}
}

func TestBoundedLogBufferSetters(t *testing.T) {
	b := rotate.NewBoundedLogBuffer(10, 1000)
	b.SetMaxCount(5)
	b.SetMaxBytes(500)

	for i := 0; i < 5; i++ {
		b.Enqueue(rotate.Record("x\n"))
	}
	count, _ := b.Stats()
	if count > 5 {
		t.Errorf("Stats() count = %d, should respect the updated maxCount of 5", count)
	}
}

func TestBoundedLogBufferWaitForRecordDelivers(t *testing.T) {
	b := rotate.NewBoundedLogBuffer(100, 1<<20)
	b.Enqueue(rotate.Record("hello\n"))

	rec, ok, timeoutFlush, died := b.WaitForRecord(time.Second)
	if died || timeoutFlush || !ok {
		t.Fatalf("WaitForRecord() = (%q, %v, %v, %v), want a delivered record", rec, ok, timeoutFlush, died)
	}
	if string(rec) != "hello\n" {
		t.Errorf("WaitForRecord() record = %q, want %q", rec, "hello\n")
	}
}

func TestBoundedLogBufferWaitForRecordDiesOnClose(t *testing.T) {
	b := rotate.NewBoundedLogBuffer(100, 1<<20)
	b.RequestClose()

	_, ok, timeoutFlush, died := b.WaitForRecord(time.Second)
	if !died || ok || timeoutFlush {
		t.Fatalf("WaitForRecord() on a closed, empty buffer should report died=true, got ok=%v timeoutFlush=%v died=%v", ok, timeoutFlush, died)
	}
}

func TestBoundedLogBufferAwaitClosedFinished(t *testing.T) {
	b := rotate.NewBoundedLogBuffer(100, 1<<20)

	go func() {
		time.Sleep(10 * time.Millisecond)
		b.MarkClosedFinished()
	}()

	if !b.AwaitClosedFinished(time.Second) {
		t.Fatal("AwaitClosedFinished should report true once MarkClosedFinished is called within the deadline")
	}
}

func TestBoundedLogBufferAwaitClosedFinishedDeadline(t *testing.T) {
	b := rotate.NewBoundedLogBuffer(100, 1<<20)

	if b.AwaitClosedFinished(10 * time.Millisecond) {
		t.Fatal("AwaitClosedFinished should report false if the deadline elapses first")
	}
	if !b.Closed() {
		t.Error("AwaitClosedFinished should mark the buffer closed even if the deadline elapses")
	}
}
