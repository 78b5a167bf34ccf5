package checkpoint

import (
	"context"
	"time"

	"github.com/feedpipe/catalog-worker/pkg/log"
)

type queryTimingKey struct{}

// sqlHooks satisfies the sqlhooks.Hooks interface, logging every
// statement and its elapsed time at debug level.
type sqlHooks struct{}

func (h *sqlHooks) Before(ctx context.Context, query string, args ...interface{}) (context.Context, error) {
	log.Debugf("checkpoint: query %s %q", query, args)
	return context.WithValue(ctx, queryTimingKey{}, time.Now()), nil
}

func (h *sqlHooks) After(ctx context.Context, query string, args ...interface{}) (context.Context, error) {
	if begin, ok := ctx.Value(queryTimingKey{}).(time.Time); ok {
		log.Debugf("checkpoint: took %s", time.Since(begin))
	}
	return ctx, nil
}
