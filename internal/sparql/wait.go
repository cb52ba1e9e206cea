package sparql

import (
	"context"
	"time"
)

const readinessQuery = `SELECT ?s WHERE { ?s ?p ?o . } LIMIT 1`

// WaitReady blocks until the store answers a trivial query with at least one
// row, retrying every interval. Returns ctx.Err() when the context ends first.
func (c *Client) WaitReady(ctx context.Context, interval time.Duration) error {
	c.logger.Info("waiting for triplestore", "endpoint", c.queryURL)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		res, err := c.Query(ctx, readinessQuery)
		if err == nil {
			if rows := res.Bindings(); len(rows) > 0 && rows[0].ValueOr("s", "") != "" {
				c.logger.Info("triplestore ready")
				return nil
			}
		}
		c.logger.Info("triplestore not live yet, retrying", "error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
