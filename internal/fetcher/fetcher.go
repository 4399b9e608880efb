// Package fetcher fans a query out to every registered bibliographic
// connector concurrently and merges the results. A provider failure never
// fails the fetch: the provider contributes nothing and the rest proceed.
package fetcher

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/querie/querie/internal/domain"
	"github.com/querie/querie/internal/metrics"
	"github.com/querie/querie/internal/source"
)

// Fetcher runs concurrent multi-source paper retrieval.
type Fetcher struct {
	registry *source.Registry
	log      *zap.Logger
}

// New creates a fetcher over the given connector registry.
func New(registry *source.Registry, log *zap.Logger) *Fetcher {
	return &Fetcher{registry: registry, log: log}
}

// Result holds one provider's contribution to a fan-out.
type Result struct {
	Source domain.Source
	Papers []domain.Paper
	Err    error
}

// FetchAll queries every connector concurrently and returns the merged
// papers in connector registration order, provider order preserved within
// each slice. Failed providers are logged and counted, not propagated.
func (f *Fetcher) FetchAll(ctx context.Context, query string, maxPerSource int) []domain.Paper {
	results := f.fanOut(ctx, query, maxPerSource)

	var merged []domain.Paper
	for _, r := range results {
		if r.Err != nil {
			continue
		}
		merged = append(merged, r.Papers...)
	}
	return merged
}

func (f *Fetcher) fanOut(ctx context.Context, query string, maxPerSource int) []Result {
	connectors := f.registry.All()
	ch := make(chan Result, len(connectors))

	var wg sync.WaitGroup
	for _, conn := range connectors {
		wg.Add(1)
		go func(conn source.Connector) {
			defer wg.Done()
			ch <- f.fetchOne(ctx, conn, query, maxPerSource)
		}(conn)
	}
	wg.Wait()
	close(ch)

	bySource := make(map[domain.Source]Result, len(connectors))
	for r := range ch {
		bySource[r.Source] = r
	}

	ordered := make([]Result, 0, len(connectors))
	for _, conn := range connectors {
		ordered = append(ordered, bySource[conn.Source()])
	}
	return ordered
}

func (f *Fetcher) fetchOne(ctx context.Context, conn source.Connector, query string, maxPerSource int) Result {
	src := conn.Source()
	start := time.Now()

	papers, err := conn.Fetch(ctx, query, maxPerSource)
	elapsed := time.Since(start)

	metrics.SourceFetchDuration.WithLabelValues(string(src)).Observe(elapsed.Seconds())
	if err != nil {
		metrics.SourceFetchTotal.WithLabelValues(string(src), "error").Inc()
		f.log.Warn("source fetch failed",
			zap.String("source", string(src)),
			zap.Duration("elapsed", elapsed),
			zap.Error(err))
		return Result{Source: src, Err: err}
	}

	metrics.SourceFetchTotal.WithLabelValues(string(src), "ok").Inc()
	metrics.SourcePapersTotal.WithLabelValues(string(src)).Add(float64(len(papers)))
	f.log.Debug("source fetch complete",
		zap.String("source", string(src)),
		zap.Int("papers", len(papers)),
		zap.Duration("elapsed", elapsed))
	return Result{Source: src, Papers: papers}
}
