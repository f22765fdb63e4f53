package rotate_test

import (
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/freenet-go/nodelog/pkg/rotate"
)

func writeGzippedLines(t *testing.T, path string, lines ...string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Create(%q): %v", path, err)
	}
	defer f.Close()
	gz := gzip.NewWriter(f)
	for _, line := range lines {
		if _, err := gz.Write([]byte(line + "\n")); err != nil {
			t.Fatalf("gzip write: %v", err)
		}
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}
}

func TestListAvailableLogsOrdering(t *testing.T) {
	dir := t.TempDir()
	archive := rotate.NewArchiveIndex(1 << 30)

	older := filepath.Join(dir, "a.log.gz")
	newer := filepath.Join(dir, "b.log.gz")
	writeGzippedLines(t, older, "old")
	writeGzippedLines(t, newer, "new")

	archive.Append(rotate.OldLogFile{Filename: older, Start: time.Unix(0, 0), End: time.Unix(100, 0), Size: 10})
	archive.Append(rotate.OldLogFile{Filename: newer, Start: time.Unix(100, 0), End: time.Unix(200, 0), Size: 10})

	infos := rotate.ListAvailableLogs(archive)
	if len(infos) != 2 {
		t.Fatalf("ListAvailableLogs() returned %d entries, want 2", len(infos))
	}
	if infos[0].Filename != older || infos[1].Filename != newer {
		t.Errorf("ListAvailableLogs() = %+v, want oldest-first ordering", infos)
	}
}

func TestSendLogByContainedDate(t *testing.T) {
	dir := t.TempDir()
	archive := rotate.NewArchiveIndex(1 << 30)

	path := filepath.Join(dir, "a.log.gz")
	writeGzippedLines(t, path, "freenet.node.Node: hello", "freenet.io.comm.Peer: noise")

	start := time.Unix(0, 0)
	end := time.Unix(1000, 0)
	archive.Append(rotate.OldLogFile{Filename: path, Start: start, End: end, Size: 10})

	var buf bytes.Buffer
	pattern := regexp.MustCompile("hello")
	if err := rotate.SendLogByContainedDate(archive, time.Unix(500, 0), &buf, false, pattern); err != nil {
		t.Fatalf("SendLogByContainedDate: %v", err)
	}

	got := buf.String()
	if got != "freenet.node.Node: hello\n" {
		t.Errorf("SendLogByContainedDate() output = %q, want only the matching line", got)
	}
}

func TestSendLogByContainedDateNoMatchingSpan(t *testing.T) {
	dir := t.TempDir()
	archive := rotate.NewArchiveIndex(1 << 30)

	path := filepath.Join(dir, "a.log.gz")
	writeGzippedLines(t, path, "line")
	archive.Append(rotate.OldLogFile{Filename: path, Start: time.Unix(0, 0), End: time.Unix(100, 0), Size: 10})

	var buf bytes.Buffer
	if err := rotate.SendLogByContainedDate(archive, time.Unix(5000, 0), &buf, false, nil); err != nil {
		t.Fatalf("SendLogByContainedDate: %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("SendLogByContainedDate() should write nothing when t falls outside every archived span, got %q", buf.String())
	}
}

func TestSendLogByContainedDateCompressedOutput(t *testing.T) {
	dir := t.TempDir()
	archive := rotate.NewArchiveIndex(1 << 30)

	path := filepath.Join(dir, "a.log.gz")
	writeGzippedLines(t, path, "hello")
	archive.Append(rotate.OldLogFile{Filename: path, Start: time.Unix(0, 0), End: time.Unix(100, 0), Size: 10})

	var buf bytes.Buffer
	if err := rotate.SendLogByContainedDate(archive, time.Unix(50, 0), &buf, true, nil); err != nil {
		t.Fatalf("SendLogByContainedDate: %v", err)
	}

	gz, err := gzip.NewReader(&buf)
	if err != nil {
		t.Fatalf("output should be a valid gzip stream: %v", err)
	}
	defer gz.Close()
}
