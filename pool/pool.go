// Package pool manages a set of named papyrus connections sharing one
// database file. Each label maps to its own table and its own private
// cache; connections never share in-memory state, so consistency between
// them is whatever the shared store provides.
package pool

import (
	"context"
	"sort"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/papyrusdb/papyrus"
)

// Pool opens connections lazily, one per label, all against the same
// database path. The zero value is not usable; construct with New or
// FromConfig.
type Pool struct {
	ctx  context.Context
	path string
	opts []papyrus.Option

	mu        sync.Mutex
	conns     map[string]*papyrus.Connection
	labelOpts map[string][]papyrus.Option
	closed    bool
}

// New returns a Pool over the database at path. The options apply to every
// connection the pool opens; per-label options from a config file stack on
// top of them.
func New(ctx context.Context, path string, opts ...papyrus.Option) *Pool {
	return &Pool{
		ctx:       ctx,
		path:      path,
		opts:      opts,
		conns:     make(map[string]*papyrus.Connection),
		labelOpts: make(map[string][]papyrus.Option),
	}
}

// Get returns the connection for label, opening it on first use bound to a
// table of the same name. Repeated calls with the same label return the
// same connection. An empty label gets a generated one; the caller can
// recover it with Connection.Table.
func (p *Pool) Get(label string) (*papyrus.Connection, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, papyrus.ErrClosed
	}
	if label == "" {
		label = uuid.NewString()
	}
	if conn, ok := p.conns[label]; ok {
		return conn, nil
	}
	opts := make([]papyrus.Option, 0, len(p.opts)+len(p.labelOpts[label])+1)
	opts = append(opts, p.opts...)
	opts = append(opts, p.labelOpts[label]...)
	opts = append(opts, papyrus.WithTable(label))
	conn, err := papyrus.Open(p.ctx, p.path, opts...)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %q", label)
	}
	p.conns[label] = conn
	return conn, nil
}

// Labels returns the labels of every open connection, sorted.
func (p *Pool) Labels() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	labels := make([]string, 0, len(p.conns))
	for label := range p.conns {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}

// Disconnect closes every open connection concurrently and marks the pool
// closed. The first close error is returned; the rest of the connections
// are still closed.
func (p *Pool) Disconnect() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return papyrus.ErrClosed
	}
	p.closed = true
	conns := make([]*papyrus.Connection, 0, len(p.conns))
	for _, conn := range p.conns {
		conns = append(conns, conn)
	}
	p.conns = nil
	p.mu.Unlock()

	var g errgroup.Group
	for _, conn := range conns {
		g.Go(conn.Close)
	}
	return g.Wait()
}
