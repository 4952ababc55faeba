package papyrus

import (
	"context"

	"github.com/cockroachdb/errors"
)

// Extension is a hook attached to a Connection at the end of Open. The
// list of extensions is explicit configuration, passed with
// WithExtensions; nothing is discovered at init time. An error from Attach
// aborts the open.
type Extension interface {
	Attach(ctx context.Context, c *Connection) error
}

// ExtensionFunc adapts a function to the Extension interface.
type ExtensionFunc func(ctx context.Context, c *Connection) error

func (f ExtensionFunc) Attach(ctx context.Context, c *Connection) error {
	return f(ctx, c)
}

// Preload warms the cache with a full table scan at open time. Meaningful
// with an unbounded strategy, where it makes AssumeCache reads safe from
// the start; under a bounded strategy it merely fills the map up to
// capacity in storage order.
func Preload() Extension {
	return ExtensionFunc(func(ctx context.Context, c *Connection) error {
		n := 0
		err := c.Each(ctx, func(doc any, key string) error {
			c.strategy.Patch(key, doc)
			n++
			return nil
		})
		if err != nil {
			return errors.Wrap(err, "preloading cache")
		}
		c.log.Debug("preloaded %d documents", n)
		return nil
	})
}
