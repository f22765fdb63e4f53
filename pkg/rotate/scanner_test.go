package rotate_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/freenet-go/nodelog/pkg/rotate"
)

func TestScanArchiveEmptyDirectory(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "node")
	codec := rotate.NewFileNameCodec(base, 0)
	archive := rotate.NewArchiveIndex(1 << 30)

	now := time.Date(2026, 8, 6, 14, 0, 0, 0, time.UTC)
	boundary := rotate.Boundary{Start: now, End: now.Add(time.Hour)}

	rotate.ScanArchive(codec, false, archive, boundary, now)

	if got := len(archive.Snapshot()); got != 0 {
		t.Fatalf("Snapshot() has %d entries for an empty directory, want 0", got)
	}
}

func TestScanArchiveGroupsAndDeletesUnrecognized(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "node")
	codec := rotate.NewFileNameCodec(base, 0)
	archive := rotate.NewArchiveIndex(1 << 30)

	older := codec.Encode(time.Date(2026, 8, 6, 10, 0, 0, 0, time.UTC), false, 0, true)
	newer := codec.Encode(time.Date(2026, 8, 6, 11, 0, 0, 0, time.UTC), false, 0, true)
	for _, path := range []string{older, newer} {
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatalf("WriteFile(%q): %v", path, err)
		}
	}

	junk := filepath.Join(dir, "node-stray.txt")
	if err := os.WriteFile(junk, []byte("y"), 0o644); err != nil {
		t.Fatalf("WriteFile(%q): %v", junk, err)
	}

	now := time.Date(2026, 8, 6, 14, 0, 0, 0, time.UTC)
	boundary := rotate.Boundary{Start: now, End: now.Add(time.Hour)}

	rotate.ScanArchive(codec, false, archive, boundary, now)

	snap := archive.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("Snapshot() has %d entries, want 2 recognized files", len(snap))
	}
	if !snap[0].Start.Before(snap[1].Start) {
		t.Errorf("Snapshot() should be ordered oldest-first, got %+v", snap)
	}
	if !snap[0].End.Equal(snap[1].Start) {
		t.Errorf("the older group's End should be the newer group's Start, got %v vs %v", snap[0].End, snap[1].Start)
	}

	if _, err := os.Stat(junk); !os.IsNotExist(err) {
		t.Error("an unrecognized file should have been deleted by the scan")
	}
}

func TestScanArchiveRenamesLatestToPrevious(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "node")
	codec := rotate.NewFileNameCodec(base, 0)
	archive := rotate.NewArchiveIndex(1 << 30)

	latest := codec.LatestName()
	if err := os.WriteFile(latest, []byte("mirror"), 0o644); err != nil {
		t.Fatalf("WriteFile(%q): %v", latest, err)
	}

	now := time.Date(2026, 8, 6, 14, 0, 0, 0, time.UTC)
	boundary := rotate.Boundary{Start: now, End: now.Add(time.Hour)}
	rotate.ScanArchive(codec, false, archive, boundary, now)

	if _, err := os.Stat(latest); !os.IsNotExist(err) {
		t.Error("latest.log should have been renamed away during the scan")
	}
	if _, err := os.Stat(codec.PreviousName()); err != nil {
		t.Error("previous.log should exist after the guarded rename")
	}
}

func TestScanArchiveResolvesCurrentBoundaryCollision(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "node")
	codec := rotate.NewFileNameCodec(base, 0)
	archive := rotate.NewArchiveIndex(1 << 30)

	now := time.Date(2026, 8, 6, 14, 30, 0, 0, time.UTC)
	boundary := rotate.Boundary{Start: time.Date(2026, 8, 6, 14, 0, 0, 0, time.UTC), End: now.Add(time.Hour)}

	colliding := codec.Encode(boundary.Start, false, 0, true)
	if err := os.WriteFile(colliding, []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile(%q): %v", colliding, err)
	}

	rotate.ScanArchive(codec, false, archive, boundary, now)

	if _, err := os.Stat(colliding); !os.IsNotExist(err) {
		t.Error("the colliding current-boundary file should have been renamed away")
	}
	disambiguated := codec.Encode(boundary.Start, false, 1, true)
	if _, err := os.Stat(disambiguated); err != nil {
		t.Error("the colliding file should now exist under the first available digit suffix")
	}
}
