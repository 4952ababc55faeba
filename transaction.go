package papyrus

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/papyrusdb/papyrus/docpath"
)

// Txn batches writes so that either all of them or none of them reach the
// store. Writes are buffered in memory and applied inside one database
// transaction at Commit; until then they are invisible to every read,
// including reads through the owning Connection. Only one Txn may be open
// per Connection at a time.
type Txn struct {
	conn *Connection
	id   string

	pending map[string]any
	erased  map[string]bool
	order   []string
	done    bool
}

// Begin returns a transaction handle, or (nil, false) while another Txn on
// this Connection is still open.
func (c *Connection) Begin(ctx context.Context) (*Txn, bool) {
	if err := c.guard(); err != nil {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.txn != nil {
		return nil, false
	}
	t := &Txn{
		conn:    c,
		id:      uuid.NewString(),
		pending: make(map[string]any),
		erased:  make(map[string]bool),
	}
	c.txn = t
	c.log.Trace("txn %s open", t.id)
	return t, true
}

func (t *Txn) guard() error {
	if t.done {
		return errors.Wrap(ErrClosed, "transaction already finished")
	}
	return t.conn.guard()
}

// touch records key as written within the transaction, preserving first-
// write order for Commit.
func (t *Txn) touch(key string) {
	if _, ok := t.pending[key]; !ok {
		t.order = append(t.order, key)
	}
}

// base returns the root document a nested write inside the transaction
// builds on: the pending copy if the key was already written here, nothing
// if it was erased here, otherwise the committed state.
func (t *Txn) base(ctx context.Context, key string, cc callConfig) (any, bool, error) {
	if doc, ok := t.pending[key]; ok {
		copied, err := deepCopy(t.conn.codec, doc)
		if err != nil {
			return nil, false, err
		}
		return copied, true, nil
	}
	if t.erased[key] {
		return nil, false, nil
	}
	return t.conn.currentRoot(ctx, key, cc)
}

// Set stages a write at pathlike. The same root-document rules as
// Connection.Set apply; nothing reaches the store until Commit.
func (t *Txn) Set(ctx context.Context, pathlike string, doc any, opts ...CallOption) error {
	if err := t.guard(); err != nil {
		return err
	}
	p, err := docpath.Parse(pathlike)
	if err != nil {
		return err
	}
	cc := t.conn.newCall(t.conn.caching, opts)

	var root any
	if p.Root() {
		if !docpath.IsDocument(doc) {
			return errors.Mark(errors.Newf("value stored at %q must be a container, got %T", p.Key, doc), ErrInvalidDocument)
		}
		root = doc
	} else {
		base, found, err := t.base(ctx, p.Key, cc)
		if err != nil {
			return err
		}
		if !found {
			if cc.defaults && t.conn.schema != nil {
				base = t.conn.schema.Model()
			} else {
				base = map[string]any{}
			}
		}
		root, err = docpath.Set(base, p.Segments, doc)
		if err != nil {
			return err
		}
	}
	// Clear any staged erase first, so touch records the key for Commit;
	// the write supersedes the erase.
	delete(t.erased, p.Key)
	t.touch(p.Key)
	t.pending[p.Key] = root
	return nil
}

// Erase stages the deletion of keys. Staged writes to the same keys are
// dropped.
func (t *Txn) Erase(keys ...string) error {
	if err := t.guard(); err != nil {
		return err
	}
	for _, key := range keys {
		if _, ok := t.pending[key]; ok {
			delete(t.pending, key)
			for i, k := range t.order {
				if k == key {
					t.order = append(t.order[:i], t.order[i+1:]...)
					break
				}
			}
		}
		t.erased[key] = true
	}
	return nil
}

// Commit applies every staged operation inside one database transaction.
// On success the cache is refreshed for the written keys and evicted for
// the erased ones; on failure the store is rolled back and the cache is
// left untouched.
func (t *Txn) Commit(ctx context.Context) error {
	if err := t.guard(); err != nil {
		return err
	}
	defer t.finish()

	c := t.conn
	encoded := make(map[string][]byte, len(t.pending))
	for key, doc := range t.pending {
		raw, err := c.codec.Marshal(doc)
		if err != nil {
			return errors.Wrapf(err, "encode %s", key)
		}
		encoded[key] = raw
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin")
	}
	upsert := c.stmts.text(stmtUpsert)
	for _, key := range t.order {
		if _, err := tx.ExecContext(ctx, upsert, key, encoded[key]); err != nil {
			tx.Rollback()
			return errors.Wrapf(err, "persist %s", key)
		}
	}
	if len(t.erased) > 0 {
		args := make([]any, 0, len(t.erased))
		for key := range t.erased {
			args = append(args, key)
		}
		if _, err := tx.ExecContext(ctx, c.stmts.eraseText(len(args)), args...); err != nil {
			tx.Rollback()
			return errors.Wrapf(err, "erase %d keys", len(args))
		}
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "commit")
	}

	cc := c.newCall(c.caching, nil)
	for _, key := range t.order {
		c.refresh(key, encoded[key], cc)
	}
	for key := range t.erased {
		c.strategy.Delete(key)
	}
	c.log.Trace("txn %s committed (%d writes, %d erases)", t.id, len(t.order), len(t.erased))
	return nil
}

// Rollback discards every staged operation. Store and cache are untouched.
func (t *Txn) Rollback() {
	if t.done {
		return
	}
	t.finish()
	t.conn.log.Trace("txn %s rolled back", t.id)
}

// finish releases the Connection's single transaction slot.
func (t *Txn) finish() {
	t.done = true
	c := t.conn
	c.mu.Lock()
	if c.txn == t {
		c.txn = nil
	}
	c.mu.Unlock()
	t.pending = nil
	t.erased = nil
	t.order = nil
}
