package app

import (
	"context"
	"net/http"

	"github.com/tonimelisma/eduapi-client/pkg/eduapi"
	"golang.org/x/sync/errgroup"
)

// FetchResult is the outcome of one GET issued by FetchAll.
type FetchResult struct {
	Path     string
	Response *eduapi.Response
	Err      error
}

// FetchAll GETs every path through sdk with at most concurrency requests in
// flight. Failures are reported per path and never cancel the others.
// Results are returned in the order of paths; onDone, if set, is called as
// each request completes and must be safe for concurrent use.
func FetchAll(ctx context.Context, sdk SDK, paths []string, concurrency int, onDone func(FetchResult)) []FetchResult {
	if concurrency <= 0 {
		concurrency = 1
	}
	results := make([]FetchResult, len(paths))

	var g errgroup.Group
	g.SetLimit(concurrency)
	for i, path := range paths {
		g.Go(func() error {
			req := eduapi.NewRequest(http.MethodGet, sdk.URL(path), nil)
			req.Header.Set(eduapi.HeaderAccept, "application/json")
			res, err := sdk.Do(ctx, req)

			results[i] = FetchResult{Path: path, Response: res, Err: err}
			if onDone != nil {
				onDone(results[i])
			}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// FetchAll fetches paths with the configured concurrency.
func (a *App) FetchAll(ctx context.Context, paths []string, onDone func(FetchResult)) []FetchResult {
	return FetchAll(ctx, a.SDK, paths, a.Config.Fetch.Concurrency, onDone)
}
