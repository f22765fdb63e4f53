package rotate

import (
	"os"
	"sync"
	"time"

	"github.com/freenet-go/nodelog/pkg/metrics"
	"github.com/freenet-go/nodelog/util"
)

// OldLogFile identifies one rotated file retained on disk.
type OldLogFile struct {
	Filename string
	Start    time.Time
	End      time.Time
	Size     int64
}

// ArchiveIndex tracks rotated log files and enforces a byte quota over them.
// The running byte total and the file list are guarded by two cooperating
// mutexes; acquisition order is fixed totals-then-list to avoid deadlock, so
// every method that needs both takes totalsMu first.
type ArchiveIndex struct {
	totalsMu        sync.Mutex
	maxArchiveBytes int64
	totalBytes      int64

	listMu sync.Mutex
	files  []OldLogFile
}

// NewArchiveIndex returns an empty index enforcing maxArchiveBytes.
func NewArchiveIndex(maxArchiveBytes int64) *ArchiveIndex {
	return &ArchiveIndex{maxArchiveBytes: maxArchiveBytes}
}

// Append records a newly rotated file and updates the running total. The
// caller is expected to call Trim afterward.
func (a *ArchiveIndex) Append(olf OldLogFile) {
	a.totalsMu.Lock()
	defer a.totalsMu.Unlock()
	a.listMu.Lock()
	a.files = append(a.files, olf)
	a.listMu.Unlock()
	a.totalBytes += olf.Size
}

// Trim evicts the oldest files, deleting each from disk, until totalBytes is
// within the configured quota or the index is empty.
func (a *ArchiveIndex) Trim() {
	a.totalsMu.Lock()
	defer a.totalsMu.Unlock()

	for a.totalBytes > a.maxArchiveBytes {
		a.listMu.Lock()
		if len(a.files) == 0 {
			a.listMu.Unlock()
			if a.totalBytes > 0 {
				util.Warn("archive index inconsistent: totalBytes=%d with no tracked files", a.totalBytes)
			}
			return
		}
		olf := a.files[0]
		a.files = a.files[1:]
		a.listMu.Unlock()

		if err := os.Remove(olf.Filename); err != nil && !os.IsNotExist(err) {
			util.Warn("failed to delete evicted archive file %s: %v", olf.Filename, err)
		}
		a.totalBytes -= olf.Size
		metrics.RecordEviction()
	}
}

// DeleteAll drains every tracked file, deleting each from disk.
func (a *ArchiveIndex) DeleteAll() {
	a.totalsMu.Lock()
	defer a.totalsMu.Unlock()

	a.listMu.Lock()
	files := a.files
	a.files = nil
	a.listMu.Unlock()

	for _, olf := range files {
		if err := os.Remove(olf.Filename); err != nil && !os.IsNotExist(err) {
			util.Warn("failed to delete archive file %s: %v", olf.Filename, err)
		}
	}
	a.totalBytes = 0
}

// Snapshot returns a copy of the tracked files, for report generation.
func (a *ArchiveIndex) Snapshot() []OldLogFile {
	a.totalsMu.Lock()
	defer a.totalsMu.Unlock()
	a.listMu.Lock()
	defer a.listMu.Unlock()

	out := make([]OldLogFile, len(a.files))
	copy(out, a.files)
	return out
}

// OldestStart reports the start boundary of the oldest tracked file, or the
// zero Time if the archive is empty.
func (a *ArchiveIndex) OldestStart() time.Time {
	a.listMu.Lock()
	defer a.listMu.Unlock()
	if len(a.files) == 0 {
		return time.Time{}
	}
	return a.files[0].Start
}

// TotalBytes reports the current running total, for metrics export.
func (a *ArchiveIndex) TotalBytes() int64 {
	a.totalsMu.Lock()
	defer a.totalsMu.Unlock()
	return a.totalBytes
}

// SetMaxArchiveBytes updates the quota and schedules Trim on a background
// goroutine; it never blocks the caller.
func (a *ArchiveIndex) SetMaxArchiveBytes(v int64) {
	a.totalsMu.Lock()
	a.maxArchiveBytes = v
	a.totalsMu.Unlock()
	go a.Trim()
}

// seed replaces the tracked files and recomputes the running total. It is
// used by ArchiveScanner during startup reconstruction and takes both locks
// in the normal totals-then-list order.
func (a *ArchiveIndex) seed(files []OldLogFile) {
	a.totalsMu.Lock()
	defer a.totalsMu.Unlock()
	a.listMu.Lock()
	defer a.listMu.Unlock()

	a.files = files
	var total int64
	for _, f := range files {
		total += f.Size
	}
	a.totalBytes = total
}

// renameTracked updates the filename of a tracked entry in place, used by
// ArchiveScanner after it renames a file on disk to resolve a name collision
// with the boundary about to become the live file.
func (a *ArchiveIndex) renameTracked(oldPath, newPath string) {
	a.listMu.Lock()
	defer a.listMu.Unlock()
	for i := range a.files {
		if a.files[i].Filename == oldPath {
			a.files[i].Filename = newPath
			return
		}
	}
}

// popIfMatches removes and returns the last tracked entry if its filename
// equals name, used by WriterLoop startup when the scanner's last archive
// entry is about to become the live file.
func (a *ArchiveIndex) popIfMatches(name string) (OldLogFile, bool) {
	a.totalsMu.Lock()
	defer a.totalsMu.Unlock()
	a.listMu.Lock()
	defer a.listMu.Unlock()

	if len(a.files) == 0 {
		return OldLogFile{}, false
	}
	last := a.files[len(a.files)-1]
	if last.Filename != name {
		return OldLogFile{}, false
	}
	a.files = a.files[:len(a.files)-1]
	a.totalBytes -= last.Size
	return last, true
}
