package zipkit

import "log/slog"

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WriterWithLogger sets the logger for build operations.
// If not set, logging is disabled.
func WriterWithLogger(logger *slog.Logger) WriterOption {
	return func(w *Writer) {
		w.logger = logger
	}
}

// EntryOption configures a single entry as it is added.
type EntryOption func(*entryConfig)

type entryConfig struct {
	method Method
}

// EntryWithMethod sets the entry's compression method (default
// MethodDeflate). Use MethodStore to write the content uncompressed.
func EntryWithMethod(m Method) EntryOption {
	return func(c *entryConfig) {
		c.method = m
	}
}

// BuildOption configures a Build call.
type BuildOption func(*buildConfig)

type buildConfig struct {
	progress      ProgressFunc
	entryProgress EntryProgressFunc
	concurrency   int
}

// BuildWithProgress reports aggregate progress across all entries while
// their pipelines drain.
func BuildWithProgress(fn ProgressFunc) BuildOption {
	return func(c *buildConfig) {
		c.progress = fn
	}
}

// BuildWithEntryProgress reports per-entry progress while pipelines drain.
func BuildWithEntryProgress(fn EntryProgressFunc) BuildOption {
	return func(c *buildConfig) {
		c.entryProgress = fn
	}
}

// BuildWithConcurrency caps the number of entry pipelines draining at
// once. Zero or negative means no cap.
func BuildWithConcurrency(n int) BuildOption {
	return func(c *buildConfig) {
		c.concurrency = n
	}
}
