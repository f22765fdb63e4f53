// Package rotate implements the asynchronous, rotating, compressed file
// logger that absorbs bursty log traffic without blocking producers.
//
// A Hook owns a BoundedLogBuffer fed by producers calling Enqueue, and a
// single WriterLoop goroutine that drains the buffer into a gzip-compressed,
// time-rotated primary file plus an optional uncompressed "latest" mirror.
// Rotated files are tracked by an ArchiveIndex under a byte quota; a
// RotationClock computes boundaries and a FileNameCodec encodes/decodes the
// on-disk names so an ArchiveScanner can reconstruct the index on restart.
package rotate
