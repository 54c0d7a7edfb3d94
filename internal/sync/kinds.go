package sync

import (
	"context"
	"io"
	"log/slog"

	"github.com/tonimelisma/iptv-sync/internal/catalog"
	"github.com/tonimelisma/iptv-sync/internal/jsonstream"
	"github.com/tonimelisma/iptv-sync/internal/xtream"
)

// loadRun carries the per-sync inputs the kind pipelines need.
type loadRun struct {
	sourceID       string
	names          map[string]string // categoryID -> name
	preserved      catalog.Preserved
	store          Store
	batchSize      int
	flushThreshold int
	onProgress     func(total int)
	logger         *slog.Logger
}

// loadStats is what a pipeline reports back, also on failure.
type loadStats struct {
	parsed  int
	chunks  int
	written int
}

type loadFunc func(ctx context.Context, r *loadRun, body io.Reader) (loadStats, error)

// kindSpec is the capability record for one content kind: how to decode,
// map, and write its catalog. Every kind runs the same pipeline.
type kindSpec struct {
	kind catalog.Kind
	load loadFunc
}

var kindSpecs = []kindSpec{
	{
		kind: catalog.KindLive,
		load: streamInto(func(w xtream.LiveStream, r *loadRun) catalog.Channel {
			c := w.ToChannel(r.sourceID, r.names)
			c.Favorite = r.preserved.Favorites[c.StreamID]

			return c
		}, Store.WriteChannels),
	},
	{
		kind: catalog.KindMovie,
		load: streamInto(func(w xtream.VODStream, r *loadRun) catalog.Movie {
			m := w.ToMovie(r.sourceID, r.names)
			m.Favorite = r.preserved.Favorites[m.StreamID]
			m.ResumePosition = r.preserved.Resume[m.StreamID]

			return m
		}, Store.WriteMovies),
	},
	{
		kind: catalog.KindSeries,
		load: streamInto(func(w xtream.Series, r *loadRun) catalog.SeriesItem {
			s := w.ToSeriesItem(r.sourceID, r.names)
			s.Favorite = r.preserved.Favorites[s.SeriesID]

			return s
		}, Store.WriteSeries),
	},
}

// streamInto builds the pipeline for wire type W and row type D: parse the
// body in batches, map each record, and commit rows in flush-threshold
// chunks. Chunks already committed stay committed if the stream later fails.
func streamInto[W, D any](
	mapFn func(W, *loadRun) D,
	write func(Store, context.Context, []D) error,
) loadFunc {
	return func(ctx context.Context, r *loadRun, body io.Reader) (loadStats, error) {
		ch := newChunker(r.flushThreshold, func(rows []D) error {
			return write(r.store, ctx, rows)
		})

		opts := jsonstream.Options{BatchSize: r.batchSize, OnProgress: r.onProgress}

		parsed, err := jsonstream.Parse(ctx, body, opts, func(batch []W) error {
			for i := range batch {
				if err := ch.add(mapFn(batch[i], r)); err != nil {
					return err
				}
			}

			return nil
		})
		if err == nil {
			err = ch.close()
		}

		return loadStats{parsed: parsed, chunks: ch.chunks, written: ch.written}, err
	}
}
