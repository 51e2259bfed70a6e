package parquet

import (
	"context"

	"github.com/xtxerr/hepio/config"
	"github.com/xtxerr/hepio/internal/logging"
	"github.com/xtxerr/hepio/internal/stream"
)

// ExportResult reports what an export produced.
type ExportResult struct {
	Events       int64
	ParticleRows int64
}

// Export reads every event from an input stream and writes the
// particle table to particlePath and, when eventPath is non-empty,
// the event summary table next to it.
func Export(ctx context.Context, inPath, particlePath, eventPath string, opts Options) (ExportResult, error) {
	r, err := stream.Open(inPath)
	if err != nil {
		return ExportResult{}, err
	}
	defer r.Close()

	pw, err := NewParticleWriter(particlePath, opts)
	if err != nil {
		return ExportResult{}, err
	}
	var ew *EventWriter
	if eventPath != "" {
		if ew, err = NewEventWriter(eventPath, opts); err != nil {
			pw.Close()
			return ExportResult{}, err
		}
	}

	fail := func(err error) (ExportResult, error) {
		pw.Close()
		if ew != nil {
			ew.Close()
		}
		return ExportResult{}, err
	}

	// Particle rows are batched so small events do not degrade into
	// one column-chunk append per event.
	batch := make([]ParticleRow, 0, config.DefaultExportBatchSize)
	var events int64
	for r.Next() {
		if err := ctx.Err(); err != nil {
			return fail(err)
		}
		ev := r.Event()
		for _, p := range ev.Particles() {
			batch = append(batch, ParticleToRow(ev, p))
		}
		if len(batch) >= config.DefaultExportBatchSize {
			if err := pw.Write(batch); err != nil {
				return fail(err)
			}
			batch = batch[:0]
		}
		if ew != nil {
			if err := ew.WriteEvent(ev); err != nil {
				return fail(err)
			}
		}
		events++
	}
	if err := r.Err(); err != nil {
		return fail(err)
	}
	if err := pw.Write(batch); err != nil {
		return fail(err)
	}

	result := ExportResult{Events: events, ParticleRows: pw.RowCount()}
	if err := pw.Close(); err != nil {
		if ew != nil {
			ew.Close()
		}
		return ExportResult{}, err
	}
	if ew != nil {
		if err := ew.Close(); err != nil {
			return ExportResult{}, err
		}
	}
	logging.Info("export finished",
		"input", inPath,
		"events", result.Events,
		"particle_rows", result.ParticleRows)
	return result, nil
}
