// Package jsonstream decodes large JSON arrays incrementally. Records are
// handed to the caller in fixed-size batches so that a catalog of several
// hundred thousand entries never sits in memory at once.
package jsonstream

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/goccy/go-json"
)

// DefaultBatchSize is the number of records per callback when Options.BatchSize
// is zero. 999 keeps one batch under SQLite's historical 999-variable limit
// for callers that bind one parameter per record.
const DefaultBatchSize = 999

// ErrMalformed is returned when the stream is not a JSON array or a record
// fails to decode. Parsing stops at the first such failure.
var ErrMalformed = errors.New("jsonstream: malformed input")

// ErrRead is returned when the underlying reader fails. The reader's error
// stays in the chain.
var ErrRead = errors.New("jsonstream: reading input")

// trackingReader remembers the first read error other than io.EOF. The
// decoder reports a cut-off stream as a syntax error, so this is how a
// broken connection is told apart from bad JSON.
type trackingReader struct {
	r   io.Reader
	err error
}

func (t *trackingReader) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if err != nil && !errors.Is(err, io.EOF) && t.err == nil {
		t.err = err
	}

	return n, err
}

// decodeError explains a decoder failure. Cancellation and read failures
// win over the syntax error they caused.
func decodeError(ctx context.Context, tr *trackingReader, where string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("jsonstream: %s: %w", where, ctxErr)
	}

	if tr.err != nil {
		return fmt.Errorf("%w: %s: %w", ErrRead, where, tr.err)
	}

	return fmt.Errorf("%w: %s: %w", ErrMalformed, where, err)
}

// Options controls batching and progress reporting.
type Options struct {
	BatchSize int

	// OnProgress, if set, is called after each batch with the running total.
	OnProgress func(total int)
}

// Parse decodes a JSON array of T from r, calling onBatch with every
// BatchSize records and once more with the final partial batch. The slice
// passed to onBatch is reused for the next batch, so callers that retain
// records must copy them. Returns the number of records decoded.
//
// An error from onBatch aborts parsing and is returned as-is. Batches already
// delivered are not revoked when a later record turns out to be malformed.
func Parse[T any](ctx context.Context, r io.Reader, opts Options, onBatch func([]T) error) (int, error) {
	size := opts.BatchSize
	if size <= 0 {
		size = DefaultBatchSize
	}

	tr := &trackingReader{r: r}
	dec := json.NewDecoder(tr)

	if err := expectDelim(ctx, dec, tr, '['); err != nil {
		return 0, err
	}

	batch := make([]T, 0, size)
	total := 0

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}

		if err := onBatch(batch); err != nil {
			return err
		}

		total += len(batch)
		batch = batch[:0]

		if opts.OnProgress != nil {
			opts.OnProgress(total)
		}

		return nil
	}

	for dec.More() {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		var rec T
		if err := dec.Decode(&rec); err != nil {
			return total, decodeError(ctx, tr, fmt.Sprintf("record %d", total+len(batch)), err)
		}

		batch = append(batch, rec)

		if len(batch) == size {
			if err := flush(); err != nil {
				return total, err
			}
		}
	}

	if err := expectDelim(ctx, dec, tr, ']'); err != nil {
		return total, err
	}

	if err := flush(); err != nil {
		return total, err
	}

	return total, nil
}

// expectDelim reads the next token and checks it is the wanted delimiter.
func expectDelim(ctx context.Context, dec *json.Decoder, tr *trackingReader, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		if errors.Is(err, io.EOF) && tr.err == nil {
			return fmt.Errorf("%w: unexpected end of input, want %q", ErrMalformed, want)
		}

		return decodeError(ctx, tr, fmt.Sprintf("want %q", want), err)
	}

	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("%w: got %v, want %q", ErrMalformed, tok, want)
	}

	return nil
}
