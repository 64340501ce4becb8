package orchestrator

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/kbukum/relaykit/httpclient"
)

// BatchRequest is one call in a batch.
type BatchRequest struct {
	Client   string
	Method   string
	Endpoint string
	Payload  any
	Options  *RequestOptions
}

// BatchResult pairs a batch request with its outcome. Results keep the
// order of the input slice.
type BatchResult struct {
	Success  bool
	Response *httpclient.Response
	Err      error
}

// BatchOptions controls batch execution.
type BatchOptions struct {
	// Parallel runs each chunk concurrently. Sequential otherwise.
	Parallel bool
	// BatchSize is the chunk size. Defaults to 5.
	BatchSize int
	// ContinueOnError keeps executing chunks after a failure. When false,
	// execution stops after the first chunk that contains a failure and
	// the remaining requests are not attempted.
	ContinueOnError bool
}

const defaultBatchSize = 5

// ExecuteBatch runs requests in chunks of BatchSize through the full
// pipeline. The returned slice covers only the attempted requests; when
// ContinueOnError is false it ends at the first failing chunk.
func (o *Orchestrator) ExecuteBatch(ctx context.Context, requests []BatchRequest, opts BatchOptions) []BatchResult {
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}

	results := make([]BatchResult, 0, len(requests))

	for start := 0; start < len(requests); start += opts.BatchSize {
		end := start + opts.BatchSize
		if end > len(requests) {
			end = len(requests)
		}
		chunk := requests[start:end]

		chunkResults := make([]BatchResult, len(chunk))
		if opts.Parallel {
			g, gctx := errgroup.WithContext(ctx)
			for i := range chunk {
				i := i
				g.Go(func() error {
					chunkResults[i] = o.executeOne(gctx, chunk[i])
					return nil
				})
			}
			_ = g.Wait()
		} else {
			for i := range chunk {
				chunkResults[i] = o.executeOne(ctx, chunk[i])
			}
		}

		results = append(results, chunkResults...)

		if !opts.ContinueOnError && anyFailed(chunkResults) {
			break
		}
		if ctx.Err() != nil {
			break
		}
	}

	return results
}

func (o *Orchestrator) executeOne(ctx context.Context, req BatchRequest) BatchResult {
	resp, err := o.ExecuteRequest(ctx, req.Client, req.Method, req.Endpoint, req.Payload, req.Options)
	return BatchResult{
		Success:  err == nil,
		Response: resp,
		Err:      err,
	}
}

func anyFailed(results []BatchResult) bool {
	for _, r := range results {
		if !r.Success {
			return true
		}
	}
	return false
}
