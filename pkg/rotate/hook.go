package rotate

import (
	"io"
	"path/filepath"
	"regexp"
	"sync"
	"time"
)

// closerDeadline is the bounded drain window CloserSignal enforces on Close.
const closerDeadline = 10 * time.Second

// HookConfig collects the knobs a caller configures once at construction.
type HookConfig struct {
	LogDir       string
	BaseName     string // empty disables persistence entirely
	Interval     string // e.g. "5MINUTE", "HOUR", "1WEEK"
	BuildNumber  int
	MaxListCount int
	MaxListBytes int64
	MaxArchiveBytes int64
	EnableMirror bool
	FlushDelay   time.Duration
}

// Hook is the producer-facing entry point: an asynchronous, rotating,
// compressed file logger. Construct with NewHook, call Start once, and feed
// it with Enqueue; call Close to drain and shut down.
type Hook struct {
	buffer    *BoundedLogBuffer
	archive   *ArchiveIndex
	clock     *RotationClock
	codec     *FileNameCodec
	switchReq *SwitchRequest
	writer    *WriterLoop

	startOnce sync.Once
	wg        sync.WaitGroup
}

// NewHook validates cfg and wires up the components described in §2–§4.
// The only error it can return is ErrInvalidInterval.
func NewHook(cfg HookConfig) (*Hook, error) {
	clock, err := ParseInterval(cfg.Interval)
	if err != nil {
		return nil, err
	}

	base := filepath.Join(cfg.LogDir, cfg.BaseName)
	codec := NewFileNameCodec(base, cfg.BuildNumber)
	buffer := NewBoundedLogBuffer(cfg.MaxListCount, cfg.MaxListBytes)
	archive := NewArchiveIndex(cfg.MaxArchiveBytes)
	switchReq := NewSwitchRequest()

	writer := NewWriterLoop(WriterLoopConfig{
		Clock:           clock,
		Codec:           codec,
		Buffer:          buffer,
		Archive:         archive,
		SwitchReq:       switchReq,
		BuildNumber:     cfg.BuildNumber,
		EnableMirror:    cfg.EnableMirror,
		FlushDelay:      cfg.FlushDelay,
		RotationEnabled: cfg.BaseName != "",
	})

	return &Hook{
		buffer:    buffer,
		archive:   archive,
		clock:     clock,
		codec:     codec,
		switchReq: switchReq,
		writer:    writer,
	}, nil
}

// Start launches the WriterLoop goroutine. Calling it more than once has no
// further effect.
func (h *Hook) Start() {
	h.startOnce.Do(func() {
		h.wg.Add(1)
		go func() {
			defer h.wg.Done()
			h.writer.Run()
		}()
	})
}

// Enqueue submits one already-formatted, newline-terminated record. It
// never blocks beyond the buffer's internal lock and never fails: overload
// is absorbed by BoundedLogBuffer's drop-with-marker policy.
func (h *Hook) Enqueue(record []byte) {
	h.buffer.Enqueue(Record(record))
}

// Close requests shutdown and blocks up to a 10 second deadline for the
// writer to drain the buffer, matching CloserSignal. It is safe to call
// more than once. Reports whether the drain completed before the deadline.
func (h *Hook) Close() bool {
	finished := h.buffer.AwaitClosedFinished(closerDeadline)
	if finished {
		h.wg.Wait()
	}
	return finished
}

// SetMaxListBytes updates the buffer's byte budget. Safe from any thread.
func (h *Hook) SetMaxListBytes(n int64) {
	h.buffer.SetMaxBytes(n)
}

// SetMaxListCount updates the buffer's record-count budget. Safe from any
// thread.
func (h *Hook) SetMaxListCount(n int) {
	h.buffer.SetMaxCount(n)
}

// SetMaxBacklogNotBusy updates the flush-timeout window. Safe from any
// thread.
func (h *Hook) SetMaxBacklogNotBusy(d time.Duration) {
	h.writer.SetFlushDelay(d)
}

// SetMaxOldLogsSize updates the archive's byte quota and schedules a
// background trim. Safe from any thread, never blocks.
func (h *Hook) SetMaxOldLogsSize(n int64) {
	h.archive.SetMaxArchiveBytes(n)
}

// SwitchBaseFilename requests a base-path change at the next rotation
// check. Pair with WaitForSwitch to block until it has taken effect.
func (h *Hook) SwitchBaseFilename(path string) {
	h.switchReq.Request(path)
}

// WaitForSwitch blocks until a pending SwitchBaseFilename request completes.
func (h *Hook) WaitForSwitch() {
	h.switchReq.WaitForSwitch()
}

// DeleteAllOldLogFiles drains the archive, deleting every rotated file.
func (h *Hook) DeleteAllOldLogFiles() {
	h.archive.DeleteAll()
}

// ListAvailableLogs reports every archived file, oldest first.
func (h *Hook) ListAvailableLogs() []LogFileInfo {
	return ListAvailableLogs(h.archive)
}

// SendLogByContainedDate streams the decompressed contents of every
// archived file spanning t to dst, optionally filtered by pattern and
// optionally re-compressed.
func (h *Hook) SendLogByContainedDate(t time.Time, dst io.Writer, compressOutput bool, pattern *regexp.Regexp) error {
	return SendLogByContainedDate(h.archive, t, dst, compressOutput, pattern)
}

// Stats reports live buffer occupancy and archive size, for metrics export.
func (h *Hook) Stats() (bufferCount int, bufferBytes, archiveBytes int64, currentLogFile string) {
	bufferCount, bufferBytes = h.buffer.Stats()
	archiveBytes = h.archive.TotalBytes()
	currentLogFile = h.writer.CurrentLogFile()
	return
}
