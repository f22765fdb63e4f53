package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/freenet-go/nodelog/util"
)

func init() {
	prometheus.MustRegister(BufferRecords, BufferBytes, RecordsEnqueued, RecordsDropped)
	prometheus.MustRegister(RotationsTotal, ArchiveBytes, ArchiveFiles, ArchiveEvictions)
	prometheus.MustRegister(SinkRetries, OldestArchiveAge, WriterPanics)
}

// StartMetricsServer serves the Prometheus collector set registered above
// on /metrics at the given port.
func StartMetricsServer(port int) {
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		addr := fmt.Sprintf(":%d", port)
		util.Info("metrics exporter listening on %s", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			util.Error("metrics exporter stopped: %v", err)
		}
	}()
}

// RecordEnqueue updates the buffer occupancy gauges and the enqueue/drop
// counters after a call to BoundedLogBuffer.Enqueue.
func RecordEnqueue(count int, bytes int64, dropped bool) {
	BufferRecords.Set(float64(count))
	BufferBytes.Set(float64(bytes))
	RecordsEnqueued.Inc()
	if dropped {
		RecordsDropped.Inc()
	}
}

// RecordRotation updates rotation and archive gauges after WriterLoop
// rotates to a new file.
func RecordRotation(archiveFiles int, archiveBytes int64) {
	RotationsTotal.Inc()
	ArchiveFiles.Set(float64(archiveFiles))
	ArchiveBytes.Set(float64(archiveBytes))
}

// RecordEviction notes an archive quota eviction.
func RecordEviction() {
	ArchiveEvictions.Inc()
}

// RecordSinkRetry notes one retried sink open or write attempt.
func RecordSinkRetry() {
	SinkRetries.Inc()
}

// RecordOldestArchiveAge sets the age gauge relative to now.
func RecordOldestArchiveAge(oldestStart time.Time, now time.Time) {
	if oldestStart.IsZero() {
		OldestArchiveAge.Set(0)
		return
	}
	OldestArchiveAge.Set(now.Sub(oldestStart).Seconds())
}

// RecordWriterPanic notes a panic recovered from inside the writer loop.
func RecordWriterPanic() {
	WriterPanics.Inc()
}
