package health

import (
	"context"
	"fmt"
)

// Pinger checks backing store availability (search log, document stats).
type Pinger interface {
	Ping(ctx context.Context) error
}

// IndexChecker reports whether a vector index exists.
type IndexChecker interface {
	IndexExists(ctx context.Context, name string) (bool, error)
}

// EmbeddingChecker checks embedding provider availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}

// CheckFunc is a single named readiness probe.
type CheckFunc func(ctx context.Context) error

// PingCheck adapts a Pinger.
func PingCheck(p Pinger) CheckFunc { return p.Ping }

// IndexCheck fails when the store is down or the named index is missing:
// a reachable Redis without the listing index cannot serve searches.
func IndexCheck(ic IndexChecker, name string) CheckFunc {
	return func(ctx context.Context) error {
		exists, err := ic.IndexExists(ctx, name)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("index %s does not exist", name)
		}
		return nil
	}
}

// EmbeddingCheck adapts an EmbeddingChecker.
func EmbeddingCheck(e EmbeddingChecker) CheckFunc { return e.HealthCheck }
