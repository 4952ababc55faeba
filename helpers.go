package papyrus

import (
	"context"
	"reflect"

	"github.com/cockroachdb/errors"

	"github.com/papyrusdb/papyrus/docpath"
)

// The array helpers share one shape: fetch the addressed array with the
// connection's usual cache and default semantics, mutate a local copy, Set
// it back, and return the operation's natural result. None of them are
// atomic with respect to other writers of the same key; two concurrent
// pushes across connections can lose one element (last write wins at the
// store).

// fetchArray reads the array addressed by p. An absent location is
// ErrNotFound: no container is silently created, though a schema default
// holding an array at that path satisfies the read. A non-array value is
// ErrInvalidDocument.
func (c *Connection) fetchArray(ctx context.Context, p docpath.Path, cc callConfig) ([]any, error) {
	found, v, err := c.fetch(ctx, p, cc)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, errors.Wrapf(ErrNotFound, "no array at %q", p.String())
	}
	arr, ok := v.([]any)
	if !ok {
		return nil, errors.Mark(errors.Newf("value at %q is %T, not an array", p.String(), v), ErrInvalidDocument)
	}
	return arr, nil
}

func (c *Connection) withArray(ctx context.Context, pathlike string, opts []CallOption, fn func(arr []any) ([]any, error)) error {
	if err := c.guard(); err != nil {
		return err
	}
	p, err := docpath.Parse(pathlike)
	if err != nil {
		return err
	}
	cc := c.newCall(c.caching, opts)
	arr, err := c.fetchArray(ctx, p, cc)
	if err != nil {
		return err
	}
	next, err := fn(arr)
	if err != nil {
		return err
	}
	return c.set(ctx, p, next, cc)
}

// Push appends values to the array at pathlike and returns the new length.
func (c *Connection) Push(ctx context.Context, pathlike string, values ...any) (int, error) {
	length := 0
	err := c.withArray(ctx, pathlike, nil, func(arr []any) ([]any, error) {
		arr = append(arr, values...)
		length = len(arr)
		return arr, nil
	})
	if err != nil {
		return 0, err
	}
	return length, nil
}

// Pop removes and returns the last element of the array at pathlike. An
// empty array pops nothing and returns nil.
func (c *Connection) Pop(ctx context.Context, pathlike string) (any, error) {
	var popped any
	err := c.withArray(ctx, pathlike, nil, func(arr []any) ([]any, error) {
		if len(arr) == 0 {
			return arr, nil
		}
		popped = arr[len(arr)-1]
		return arr[:len(arr)-1], nil
	})
	if err != nil {
		return nil, err
	}
	return popped, nil
}

// Shift removes and returns the first element of the array at pathlike. An
// empty array shifts nothing and returns nil.
func (c *Connection) Shift(ctx context.Context, pathlike string) (any, error) {
	var shifted any
	err := c.withArray(ctx, pathlike, nil, func(arr []any) ([]any, error) {
		if len(arr) == 0 {
			return arr, nil
		}
		shifted = arr[0]
		return arr[1:], nil
	})
	if err != nil {
		return nil, err
	}
	return shifted, nil
}

// Remove deletes every element deep-equal to value from the array at
// pathlike and returns the new length.
func (c *Connection) Remove(ctx context.Context, pathlike string, value any) (int, error) {
	return c.RemoveFunc(ctx, pathlike, func(v any) bool {
		return reflect.DeepEqual(v, value)
	})
}

// RemoveFunc deletes every element for which pred returns true from the
// array at pathlike and returns the new length.
func (c *Connection) RemoveFunc(ctx context.Context, pathlike string, pred func(v any) bool) (int, error) {
	length := 0
	err := c.withArray(ctx, pathlike, nil, func(arr []any) ([]any, error) {
		kept := make([]any, 0, len(arr))
		for _, v := range arr {
			if !pred(v) {
				kept = append(kept, v)
			}
		}
		length = len(kept)
		return kept, nil
	})
	if err != nil {
		return 0, err
	}
	return length, nil
}

// Slice keeps the window [start, end) of the array at pathlike, persists
// it, and returns it. Negative bounds count from the end of the array, the
// way JavaScript's slice does.
func (c *Connection) Slice(ctx context.Context, pathlike string, start, end int) ([]any, error) {
	var window []any
	err := c.withArray(ctx, pathlike, nil, func(arr []any) ([]any, error) {
		window = sliceWindow(arr, start, end)
		return window, nil
	})
	if err != nil {
		return nil, err
	}
	return window, nil
}

func sliceWindow(arr []any, start, end int) []any {
	n := len(arr)
	if start < 0 {
		start += n
	}
	if end < 0 {
		end += n
	}
	if start < 0 {
		start = 0
	}
	if end > n {
		end = n
	}
	if start >= end {
		return []any{}
	}
	out := make([]any, end-start)
	copy(out, arr[start:end])
	return out
}

// Default materializes key from the schema exactly once: if the key is
// absent, the schema's default shape merged with partial is persisted and
// returned; if the key already exists, the stored document comes back
// unchanged. Without a schema, partial itself is stored. Calling Default
// again is a no-op.
func (c *Connection) Default(ctx context.Context, key string, partial map[string]any, opts ...CallOption) (any, error) {
	if err := c.guard(); err != nil {
		return nil, err
	}
	p, err := docpath.Parse(key)
	if err != nil {
		return nil, err
	}
	if !p.Root() {
		return nil, errors.Wrapf(ErrInvalidPath, "Default takes a root key, got %q", key)
	}
	cc := c.newCall(c.caching, opts)
	read := cc
	read.defaults = false
	found, existing, err := c.fetch(ctx, p, read)
	if err != nil {
		return nil, err
	}
	if found {
		return existing, nil
	}
	doc := partial
	if c.schema != nil {
		doc = c.schema.Instance(partial)
	}
	if err := c.set(ctx, p, doc, cc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Ensure writes doc at pathlike only if nothing is defined there; otherwise
// it returns the existing value unchanged. Idempotent by construction.
func (c *Connection) Ensure(ctx context.Context, pathlike string, doc any, opts ...CallOption) (any, error) {
	if err := c.guard(); err != nil {
		return nil, err
	}
	p, err := docpath.Parse(pathlike)
	if err != nil {
		return nil, err
	}
	cc := c.newCall(c.caching, opts)
	read := cc
	read.defaults = false
	found, existing, err := c.fetch(ctx, p, read)
	if err != nil {
		return nil, err
	}
	if found {
		return existing, nil
	}
	if err := c.set(ctx, p, doc, cc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Modify fetches the value at pathlike, passes it to fn (nil when absent),
// writes the returned value back, and returns the up-to-date root document.
// The read-apply-write cycle is not atomic across connections.
func (c *Connection) Modify(ctx context.Context, pathlike string, fn func(old any) any, opts ...CallOption) (any, error) {
	if err := c.guard(); err != nil {
		return nil, err
	}
	p, err := docpath.Parse(pathlike)
	if err != nil {
		return nil, err
	}
	cc := c.newCall(c.caching, opts)
	_, old, err := c.fetch(ctx, p, cc)
	if err != nil {
		return nil, err
	}
	if err := c.set(ctx, p, fn(old), cc); err != nil {
		return nil, err
	}
	_, root, err := c.fetch(ctx, docpath.Path{Key: p.Key}, cc)
	if err != nil {
		return nil, err
	}
	return root, nil
}

// Invert toggles the boolean at pathlike and returns the new value. An
// absent or null value toggles to true; anything else that is not a
// boolean is ErrInvalidDocument.
func (c *Connection) Invert(ctx context.Context, pathlike string, opts ...CallOption) (bool, error) {
	if err := c.guard(); err != nil {
		return false, err
	}
	p, err := docpath.Parse(pathlike)
	if err != nil {
		return false, err
	}
	cc := c.newCall(c.caching, opts)
	found, v, err := c.fetch(ctx, p, cc)
	if err != nil {
		return false, err
	}
	next := true
	if found && v != nil {
		b, ok := v.(bool)
		if !ok {
			return false, errors.Mark(errors.Newf("value at %q is %T, not a boolean", p.String(), v), ErrInvalidDocument)
		}
		next = !b
	}
	if err := c.set(ctx, p, next, cc); err != nil {
		return false, err
	}
	return next, nil
}
