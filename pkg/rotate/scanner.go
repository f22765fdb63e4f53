package rotate

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/freenet-go/nodelog/util"
)

type scannedFile struct {
	path          string
	boundaryStart time.Time
	size          int64
}

// ScanArchive reconstructs archive's contents from the log directory on
// startup, before the first sink opens. It performs the guarded
// latest -> previous rename, deletes anything it cannot recognize, groups
// recognized files by rotation boundary, and resolves a name collision with
// the boundary about to become the live file.
func ScanArchive(codec *FileNameCodec, minutePrecision bool, archive *ArchiveIndex, currentBoundary Boundary, now time.Time) {
	dir := filepath.Dir(codec.base)
	baseName := strings.ToLower(filepath.Base(codec.base))

	latestPath := codec.LatestName()
	previousPath := codec.PreviousName()
	if _, err := os.Stat(latestPath); err == nil {
		if err := os.Rename(latestPath, previousPath); err != nil {
			util.Warn("could not rename %s to %s: %v", latestPath, previousPath, err)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		util.Warn("could not list log directory %s: %v", dir, err)
		return
	}

	latestBase := strings.ToLower(filepath.Base(latestPath))
	previousBase := strings.ToLower(filepath.Base(previousPath))

	var collected []scannedFile
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		lower := strings.ToLower(name)
		if !strings.HasPrefix(lower, baseName) {
			continue
		}
		if lower == latestBase || lower == previousBase {
			continue
		}

		full := filepath.Join(dir, name)
		if !strings.HasSuffix(lower, ".log.gz") {
			if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
				util.Warn("could not delete unrecognized log file %s: %v", full, err)
			}
			continue
		}

		decoded, err := codec.Decode(name, minutePrecision)
		if err != nil {
			util.Warn("could not decode archived log file %s, deleting: %v", full, err)
			if rmErr := os.Remove(full); rmErr != nil && !os.IsNotExist(rmErr) {
				util.Warn("could not delete undecodable log file %s: %v", full, rmErr)
			}
			continue
		}

		collected = append(collected, scannedFile{
			path:          full,
			boundaryStart: decoded.BoundaryStart(),
			size:          SinkFileSize(full),
		})
	}

	archive.seed(groupIntoOldLogFiles(collected, now))

	resolveCurrentBoundaryCollision(codec, minutePrecision, archive, currentBoundary)

	archive.Trim()
}

// groupIntoOldLogFiles groups files with identical boundary start-times,
// using the next distinct start seen (or now, for the last group) as the
// group's end time.
func groupIntoOldLogFiles(files []scannedFile, now time.Time) []OldLogFile {
	if len(files) == 0 {
		return nil
	}

	type group struct {
		start time.Time
		files []scannedFile
	}
	var groups []group
	for _, f := range files {
		if len(groups) == 0 || !groups[len(groups)-1].start.Equal(f.boundaryStart) {
			groups = append(groups, group{start: f.boundaryStart})
		}
		groups[len(groups)-1].files = append(groups[len(groups)-1].files, f)
	}

	var out []OldLogFile
	for i, g := range groups {
		end := now
		if i+1 < len(groups) {
			end = groups[i+1].start
		}
		for _, f := range g.files {
			out = append(out, OldLogFile{Filename: f.path, Start: g.start, End: end, Size: f.size})
		}
	}
	return out
}

// resolveCurrentBoundaryCollision renames any file already occupying the
// name the about-to-open current log file needs, disambiguating with the
// lowest available digit suffix.
func resolveCurrentBoundaryCollision(codec *FileNameCodec, minutePrecision bool, archive *ArchiveIndex, currentBoundary Boundary) {
	currentName := codec.Encode(currentBoundary.Start, minutePrecision, 0, true)
	if _, err := os.Stat(currentName); err != nil {
		return
	}

	for digit := 1; ; digit++ {
		candidate := codec.Encode(currentBoundary.Start, minutePrecision, digit, true)
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			if err := os.Rename(currentName, candidate); err != nil {
				util.Warn("could not rename colliding log file %s to %s: %v", currentName, candidate, err)
				return
			}
			archive.renameTracked(currentName, candidate)
			return
		}
	}
}
