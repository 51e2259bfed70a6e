// Package config provides configuration defaults and shared constants
// for the hepio library and CLI.
//
// This package defines all configurable constants with documented defaults.
// Users can override the configurable values via hepio.yaml.
package config

// =============================================================================
// Format Constants
// =============================================================================

const (
	// HepMC3Version is the version string written into the Asciiv3
	// header. This is a protocol constant: native-library readers
	// check the "HepMC::Version" prefix, not the number, but the
	// number records which grammar revision the writer speaks.
	HepMC3Version = "3.02.05"

	// HepMC2Version is the version string written into the
	// IO_GenEvent header.
	HepMC2Version = "2.06.09"

	// LHEFVersion is the version attribute accepted on
	// <LesHouchesEvents> root elements.
	LHEFVersion = "3.0"
)

// =============================================================================
// Stream Defaults
// =============================================================================

const (
	// DefaultMaxLineLength limits a single record line to prevent OOM
	// on corrupt input. 16 MiB covers any reasonable attribute payload.
	// Override via config: stream.max_line_length
	DefaultMaxLineLength = 16 * 1024 * 1024

	// DetectPeekSize is how many bytes the format detector may peek
	// at the head of a stream. Large enough for any header line plus
	// the listing-start line that disambiguates the two native ASCII
	// versions.
	DetectPeekSize = 4096

	// DefaultBufferSize is the size of stream read/write buffers.
	// Override via config: stream.buffer_size
	DefaultBufferSize = 64 * 1024

	// DefaultCompressionLevel is the gzip/zstd level used when
	// writing compressed streams.
	// Override via config: stream.compression_level
	DefaultCompressionLevel = 6
)

// =============================================================================
// Export Defaults
// =============================================================================

const (
	// DefaultExportBatchSize is the number of particle rows buffered
	// before a parquet write.
	// Override via config: export.batch_size
	DefaultExportBatchSize = 10000

	// DefaultQueryMemoryLimit caps the query engine's memory use.
	// Override via config: query.memory_limit
	DefaultQueryMemoryLimit = "1GB"

	// DefaultQueryLimit is the row limit applied to queries that do
	// not specify one.
	// Override via config: query.default_limit
	DefaultQueryLimit = 1000
)

// =============================================================================
// Stats Defaults
// =============================================================================

const (
	// DefaultSketchAccuracy is the DDSketch relative accuracy used by
	// kinematic summaries.
	// Override via config: stats.sketch_accuracy
	DefaultSketchAccuracy = 0.01
)
