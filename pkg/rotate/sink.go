package rotate

import (
	"bufio"
	"compress/gzip"
	"os"
	"time"

	retry "github.com/avast/retry-go/v5"

	"github.com/freenet-go/nodelog/pkg/metrics"
	"github.com/freenet-go/nodelog/util"
)

// byteOrderMark is written as the first three bytes of every newly opened
// sink file, compressed or not.
var byteOrderMark = []byte{0xEF, 0xBB, 0xBF}

const (
	fileBufferSize = 512 * 1024
	gzipBufferSize = 64 * 1024

	retryBaseDelay = 1 * time.Second
	retryMaxDelay  = 60 * time.Second
)

// Sink is an open output stream backing one physical log file. When
// compressed, writes flow caller -> 64 KiB buffer -> gzip -> 512 KiB buffer
// -> file, so gzip sees block-sized input and the filesystem sees large
// writes. OpenSink and WriteOrFlush never give up on I/O failure; they retry
// with exponential backoff, doubling from 1s and capped at 60s, forever.
// Close does not retry: it logs any error and returns.
type Sink struct {
	path       string
	compressed bool

	file    *os.File
	fileBuf *bufio.Writer
	gz      *gzip.Writer
	outer   *bufio.Writer
}

// capDoublingDelay implements the 1s-doubling-capped-at-60s backoff shared
// by sink open and sink write retries.
func capDoublingDelay(n uint, _ error, _ retry.DelayContext) time.Duration {
	if n > 6 {
		return retryMaxDelay
	}
	d := retryBaseDelay << n
	if d > retryMaxDelay {
		return retryMaxDelay
	}
	return d
}

// OpenSink opens path for writing, retrying indefinitely on failure, layers
// the buffered/gzip chain if compressed, and writes the byte-order mark.
func OpenSink(path string, compressed bool) *Sink {
	var file *os.File
	retry.New( //nolint:errcheck // UntilSucceeded never returns a non-nil error
		retry.UntilSucceeded(),
		retry.DelayType(capDoublingDelay),
		retry.OnRetry(func(n uint, err error) {
			util.Error("failed to open log sink %s (attempt %d): %v", path, n+1, err)
			metrics.RecordSinkRetry()
		}),
	).Do(func() error {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
		if err != nil {
			return err
		}
		file = f
		return nil
	})

	hintSequentialWrite(file)

	s := &Sink{path: path, compressed: compressed, file: file}
	if compressed {
		s.fileBuf = bufio.NewWriterSize(file, fileBufferSize)
		s.gz = gzip.NewWriter(s.fileBuf)
		s.outer = bufio.NewWriterSize(s.gz, gzipBufferSize)
	} else {
		s.outer = bufio.NewWriterSize(file, gzipBufferSize)
	}

	s.WriteOrFlush(byteOrderMark)
	return s
}

// WriteOrFlush writes b if non-nil, otherwise flushes the full buffer/gzip
// chain. Either way it retries indefinitely on I/O error.
func (s *Sink) WriteOrFlush(b []byte) {
	retry.New( //nolint:errcheck
		retry.UntilSucceeded(),
		retry.DelayType(capDoublingDelay),
		retry.OnRetry(func(n uint, err error) {
			util.Error("sink write failed for %s (attempt %d): %v", s.path, n+1, err)
			metrics.RecordSinkRetry()
		}),
	).Do(func() error {
		if b != nil {
			_, err := s.outer.Write(b)
			return err
		}
		return s.flushChain()
	})
}

func (s *Sink) flushChain() error {
	if err := s.outer.Flush(); err != nil {
		return err
	}
	if s.gz != nil {
		if err := s.gz.Flush(); err != nil {
			return err
		}
	}
	if s.fileBuf != nil {
		if err := s.fileBuf.Flush(); err != nil {
			return err
		}
	}
	return nil
}

// Close flushes and closes the sink. Errors are logged, never propagated.
func (s *Sink) Close() {
	if err := s.flushChain(); err != nil {
		util.Error("final flush failed for %s: %v", s.path, err)
	}
	if s.gz != nil {
		if err := s.gz.Close(); err != nil {
			util.Error("gzip close failed for %s: %v", s.path, err)
		}
	}
	if err := s.file.Close(); err != nil {
		util.Error("file close failed for %s: %v", s.path, err)
	}
}

// Path returns the backing file path.
func (s *Sink) Path() string { return s.path }

// SinkFileSize stats path for its current on-disk size. Intended to be
// called after the sink backing it has been closed.
func SinkFileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		util.Warn("could not stat rotated file %s: %v", path, err)
		return 0
	}
	return info.Size()
}
