package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	BufferRecords = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "nodelog_buffer_records",
		Help: "Records currently queued in the bounded log buffer",
	})

	BufferBytes = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "nodelog_buffer_bytes",
		Help: "Estimated bytes currently queued in the bounded log buffer",
	})

	RecordsEnqueued = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "nodelog_records_enqueued_total",
		Help: "Total number of records accepted into the buffer",
	})

	RecordsDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "nodelog_records_dropped_total",
		Help: "Total number of enqueues that discarded buffered records because the buffer was full",
	})

	RotationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "nodelog_rotations_total",
		Help: "Total number of log rotations performed",
	})

	ArchiveBytes = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "nodelog_archive_bytes",
		Help: "Total bytes held by archived (rotated) log files",
	})

	ArchiveFiles = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "nodelog_archive_files",
		Help: "Number of archived log files currently retained",
	})

	ArchiveEvictions = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "nodelog_archive_evictions_total",
		Help: "Total number of archived files evicted to respect the byte quota",
	})

	SinkRetries = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "nodelog_sink_retries_total",
		Help: "Total number of times a sink write or open was retried after failure",
	})

	OldestArchiveAge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "nodelog_oldest_archive_age_seconds",
		Help: "Age in seconds of the oldest retained archived log file",
	})

	WriterPanics = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "nodelog_writer_panics_total",
		Help: "Total number of panics recovered from inside the writer loop",
	})
)
