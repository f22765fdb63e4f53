package rotate

import (
	"os"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/freenet-go/nodelog/pkg/metrics"
	"github.com/freenet-go/nodelog/util"
)

// WriterLoop is the single dedicated goroutine that drains a
// BoundedLogBuffer into a rotating, gzip-compressed primary log file and an
// optional uncompressed mirror, handling rotation, retry and the shutdown
// handshake. It is owned exclusively by the goroutine it runs in; every
// field below is touched only from Run (or from construction, before Run
// starts) except flushDelayNanos, which producers may update live through
// SetFlushDelay.
type WriterLoop struct {
	clock     *RotationClock
	codec     *FileNameCodec
	buffer    *BoundedLogBuffer
	archive   *ArchiveIndex
	switchReq *SwitchRequest

	build           int
	minutePrecision bool
	enableMirror    bool
	flushDelayNanos atomic.Int64
	rotationEnabled bool

	currentLogFile string
	currentStart   time.Time
	currentEnd     time.Time

	primarySink *Sink
	mirrorSink  *Sink

	sessionID string
}

// WriterLoopConfig collects WriterLoop's construction-time parameters.
type WriterLoopConfig struct {
	Clock        *RotationClock
	Codec        *FileNameCodec
	Buffer       *BoundedLogBuffer
	Archive      *ArchiveIndex
	SwitchReq    *SwitchRequest
	BuildNumber  int
	EnableMirror bool
	FlushDelay   time.Duration
	// RotationEnabled mirrors the spec's "only if baseFilename is set":
	// when false, the loop drains the buffer but never opens or rotates
	// files.
	RotationEnabled bool
}

// NewWriterLoop constructs a WriterLoop from cfg.
func NewWriterLoop(cfg WriterLoopConfig) *WriterLoop {
	w := &WriterLoop{
		clock:           cfg.Clock,
		codec:           cfg.Codec,
		buffer:          cfg.Buffer,
		archive:         cfg.Archive,
		switchReq:       cfg.SwitchReq,
		build:           cfg.BuildNumber,
		minutePrecision: cfg.Clock.Field() == Minute,
		enableMirror:    cfg.EnableMirror,
		rotationEnabled: cfg.RotationEnabled,
	}
	w.flushDelayNanos.Store(int64(cfg.FlushDelay))
	return w
}

// CurrentLogFile reports the path of the file currently being written, for
// metrics and diagnostics.
func (w *WriterLoop) CurrentLogFile() string {
	return w.currentLogFile
}

// SetFlushDelay updates the flush-timeout window live. Safe from any thread.
func (w *WriterLoop) SetFlushDelay(d time.Duration) {
	w.flushDelayNanos.Store(int64(d))
}

// Run drives the writer loop to completion. It returns when the buffer has
// been closed and drained (or the drain deadline the CloserSignal enforces
// elapses from the caller's perspective — Run itself keeps draining
// regardless, matching "the writer thread never exits except through the
// shutdown handshake").
func (w *WriterLoop) Run() {
	if w.rotationEnabled {
		w.startup()
	}
	for {
		if w.runOnce() {
			return
		}
	}
}

func (w *WriterLoop) runOnce() (done bool) {
	defer func() {
		if r := recover(); r != nil {
			util.Error("writer loop recovered from panic: %v", r)
			metrics.RecordWriterPanic()
		}
	}()

	now := time.Now()
	if w.rotationEnabled {
		if now.After(w.currentEnd) || w.switchReq.Pending() {
			w.rotate()
		}
	}

	flushDelay := time.Duration(w.flushDelayNanos.Load())
	rec, ok, timeoutFlush, died := w.buffer.WaitForRecord(flushDelay)
	switch {
	case died:
		w.shutdown()
		return true
	case timeoutFlush:
		w.flushSinks()
	case ok:
		w.writeRecord(rec)
	}
	return false
}

func (w *WriterLoop) startup() {
	now := time.Now()
	boundary := w.clock.AlignToBoundary(now)
	ScanArchive(w.codec, w.minutePrecision, w.archive, boundary, now)

	currentName := w.codec.Encode(boundary.Start, w.minutePrecision, 0, true)
	w.archive.popIfMatches(currentName)

	w.currentLogFile = currentName
	w.currentStart = boundary.Start
	w.currentEnd = boundary.End
	w.primarySink = OpenSink(w.currentLogFile, true)
	if w.enableMirror {
		w.mirrorSink = OpenSink(w.codec.LatestName(), false)
	}

	w.sessionID = uuid.NewString()
	util.Info("Started session %s: created log file %s, next threshold is %s", w.sessionID, w.currentLogFile, w.currentEnd.Format(time.RFC3339))
}

// rotate implements the rotation algorithm: close and archive the current
// primary file, open the next one, roll the mirror, and honor any pending
// SwitchRequest.
func (w *WriterLoop) rotate() {
	var switched bool
	if base, pending := w.switchReq.TakePending(); pending {
		w.codec.SetBase(base)
		switched = true
	}

	newBoundary := w.clock.Advance(Boundary{Start: w.currentStart, End: w.currentEnd})
	newFilename := w.codec.Encode(newBoundary.Start, w.minutePrecision, 0, true)

	w.primarySink.Close()

	length := SinkFileSize(w.currentLogFile)
	w.archive.Append(OldLogFile{Filename: w.currentLogFile, Start: w.currentStart, End: w.currentEnd, Size: length})
	w.archive.Trim()
	metrics.RecordRotation(len(w.archive.Snapshot()), w.archive.TotalBytes())
	metrics.RecordOldestArchiveAge(w.archive.OldestStart(), time.Now())

	w.currentStart = w.currentEnd
	w.currentEnd = newBoundary.End
	w.currentLogFile = newFilename
	w.primarySink = OpenSink(w.currentLogFile, true)

	if w.enableMirror {
		w.mirrorSink.Close()
		w.rollMirror()
		w.mirrorSink = OpenSink(w.codec.LatestName(), false)
	}

	if switched {
		w.switchReq.NotifySwitched()
	}
}

func (w *WriterLoop) rollMirror() {
	latest := w.codec.LatestName()
	previous := w.codec.PreviousName()

	if _, err := os.Stat(latest); err == nil {
		if err := os.Rename(latest, previous); err != nil {
			util.Warn("could not rename %s to %s: %v", latest, previous, err)
		}
	}
	if err := os.Remove(latest); err != nil && !os.IsNotExist(err) {
		util.Warn("could not delete stale mirror %s: %v", latest, err)
	}
}

func (w *WriterLoop) writeRecord(rec Record) {
	if w.primarySink != nil {
		w.primarySink.WriteOrFlush([]byte(rec))
	}
	if w.mirrorSink != nil {
		w.mirrorSink.WriteOrFlush([]byte(rec))
	}
}

func (w *WriterLoop) flushSinks() {
	if w.primarySink != nil {
		w.primarySink.WriteOrFlush(nil)
	}
	if w.mirrorSink != nil {
		w.mirrorSink.WriteOrFlush(nil)
	}
}

func (w *WriterLoop) shutdown() {
	w.flushSinks()
	if w.primarySink != nil {
		w.primarySink.Close()
	}
	if w.mirrorSink != nil {
		w.mirrorSink.Close()
	}
	w.buffer.MarkClosedFinished()
}
