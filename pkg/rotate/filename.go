package rotate

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// FileNameCodec encodes and decodes rotated log filenames of the form
// "<base>-<build>-YYYY-MM-DD-HH[-MM][-<digit>].log[.gz]".
type FileNameCodec struct {
	base  string
	build int
}

// NewFileNameCodec returns a codec bound to a base path and build number.
func NewFileNameCodec(base string, build int) *FileNameCodec {
	return &FileNameCodec{base: base, build: build}
}

// DecodedName is the result of decoding a rotated filename.
type DecodedName struct {
	Build      int
	Year       int
	Month      time.Month
	Day        int
	Hour       int
	Minute     int
	HasMinute  bool
	Digit      int
	Compressed bool
}

// Base returns the codec's current base path.
func (c *FileNameCodec) Base() string { return c.base }

// SetBase updates the codec's base path, used by WriterLoop when honoring a
// SwitchRequest. Only the writer thread calls this.
func (c *FileNameCodec) SetBase(base string) { c.base = base }

// LatestName returns the uncompressed mirror path for base.
func (c *FileNameCodec) LatestName() string {
	return c.base + "-latest.log"
}

// PreviousName returns the path latest.log is renamed to before a fresh
// mirror file is opened.
func (c *FileNameCodec) PreviousName() string {
	return c.base + "-previous.log"
}

// Encode builds the on-disk filename for a rotation boundary. minutePrecision
// must be true iff the configured interval field is MINUTE. digit is 0 when
// no disambiguation suffix is needed, otherwise >= 1.
func (c *FileNameCodec) Encode(boundaryStart time.Time, minutePrecision bool, digit int, compressed bool) string {
	t := boundaryStart.UTC()
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s-%d-%04d-%02d-%02d-%02d", c.base, c.build, t.Year(), int(t.Month()), t.Day(), t.Hour())
	if minutePrecision {
		fmt.Fprintf(&sb, "-%02d", t.Minute())
	}
	if digit > 0 {
		fmt.Fprintf(&sb, "-%d", digit)
	}
	if compressed {
		sb.WriteString(".log.gz")
	} else {
		sb.WriteString(".log")
	}
	return sb.String()
}

// Decode parses a rotated filename produced by Encode. name is a bare
// filename, without any directory component -- ArchiveScanner decodes
// entries returned by os.ReadDir, which never carry one. minutePrecision
// must match the interval field in force when the file was written; the
// caller knows this from the active RotationClock and passes it in to
// resolve what would otherwise be an ambiguous trailing-token count.
func (c *FileNameCodec) Decode(name string, minutePrecision bool) (DecodedName, error) {
	var out DecodedName

	rest := name
	switch {
	case strings.HasSuffix(rest, ".log.gz"):
		out.Compressed = true
		rest = strings.TrimSuffix(rest, ".log.gz")
	case strings.HasSuffix(rest, ".log"):
		out.Compressed = false
		rest = strings.TrimSuffix(rest, ".log")
	default:
		return out, fmt.Errorf("rotate: %q has no recognized log suffix", name)
	}

	prefix := filepath.Base(c.base) + "-"
	if !strings.HasPrefix(rest, prefix) {
		return out, fmt.Errorf("rotate: %q does not match base prefix %q", name, c.base)
	}
	rest = strings.TrimPrefix(rest, prefix)

	tokens := strings.Split(rest, "-")
	required := 4
	if minutePrecision {
		required = 5
	}

	var ints []int
	switch len(tokens) {
	case required + 1, required + 2:
		for _, tok := range tokens {
			n, err := strconv.Atoi(tok)
			if err != nil {
				return out, fmt.Errorf("rotate: %q has non-numeric token %q", name, tok)
			}
			ints = append(ints, n)
		}
	default:
		return out, fmt.Errorf("rotate: %q has unexpected token count %d", name, len(tokens))
	}

	out.Build = ints[0]
	out.Year = ints[1]
	out.Month = time.Month(ints[2])
	out.Day = ints[3]
	out.Hour = ints[4]
	idx := 5
	if minutePrecision {
		out.Minute = ints[idx]
		out.HasMinute = true
		idx++
	}
	if idx < len(ints) {
		out.Digit = ints[idx]
		idx++
	}
	if idx != len(ints) {
		return out, fmt.Errorf("rotate: %q has trailing unparsed tokens", name)
	}
	if out.Month < 1 || out.Month > 12 || out.Day < 1 || out.Day > 31 || out.Hour < 0 || out.Hour > 23 {
		return out, fmt.Errorf("rotate: %q has an out-of-range calendar field", name)
	}

	return out, nil
}

// BoundaryStart reconstructs the rotation boundary start-time a decoded
// filename belongs to, zeroing seconds and nanoseconds.
func (d DecodedName) BoundaryStart() time.Time {
	minute := 0
	if d.HasMinute {
		minute = d.Minute
	}
	return time.Date(d.Year, d.Month, d.Day, d.Hour, minute, 0, 0, time.UTC)
}
