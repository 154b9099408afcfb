// Package mock provides test doubles for ponder interfaces using function fields.
package mock

import (
	"context"

	"github.com/fwojciec/ponder"
)

// Interface compliance check.
var _ ponder.Client = (*Client)(nil)

// Client is a test double for ponder.Client.
// Set OpenFn before calling Open.
type Client struct {
	OpenFn func(ctx context.Context, req ponder.Request) (ponder.Stream, error)
}

// Open delegates to OpenFn.
func (c *Client) Open(ctx context.Context, req ponder.Request) (ponder.Stream, error) {
	return c.OpenFn(ctx, req)
}
