package stream

import (
	"context"

	"github.com/xtxerr/hepio/internal/codec"
	"github.com/xtxerr/hepio/internal/errors"
)

// Convert copies every event from the input file to the output file,
// re-encoding into the target format. The run info of the source
// stream carries over. The context is checked between events so long
// conversions can be cancelled.
func Convert(ctx context.Context, inPath, outPath string, format codec.Format) (Stats, error) {
	r, err := Open(inPath)
	if err != nil {
		return Stats{}, err
	}
	defer r.Close()

	w, err := CreateWith(outPath, format, WriterOptions{RunInfo: r.RunInfo()})
	if err != nil {
		return r.Stats(), err
	}

	for r.Next() {
		if err := ctx.Err(); err != nil {
			w.Close()
			return r.Stats(), errors.Wrap(errors.ErrStream, err.Error())
		}
		if err := w.Write(r.Event()); err != nil {
			w.Close()
			return r.Stats(), err
		}
	}
	if err := r.Err(); err != nil {
		w.Close()
		return r.Stats(), err
	}
	if err := w.Close(); err != nil {
		return r.Stats(), err
	}
	return r.Stats(), nil
}
