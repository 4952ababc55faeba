package papyrus

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
)

// stmtKind enumerates the fixed statements a Connection compiles. The set
// is closed: everything else the store needs is derived from these plus
// the per-call batched delete.
type stmtKind int

const (
	stmtUpsert stmtKind = iota
	stmtFetch
	stmtListAll
	stmtListKeys
	stmtCount
)

func (k stmtKind) String() string {
	switch k {
	case stmtUpsert:
		return "upsert"
	case stmtFetch:
		return "fetch"
	case stmtListAll:
		return "listAll"
	case stmtListKeys:
		return "listKeys"
	case stmtCount:
		return "count"
	}
	return "unknown"
}

var stmtKinds = []stmtKind{stmtUpsert, stmtFetch, stmtListAll, stmtListKeys, stmtCount}

// statements compiles and caches the SQL for one table. Statements are
// prepared on first use and reused until Close, so repeated operations
// never re-parse their SQL.
type statements struct {
	db    *sql.DB
	table string

	mu       sync.Mutex
	prepared map[stmtKind]*sql.Stmt
}

func newStatements(db *sql.DB, table string) *statements {
	return &statements{
		db:       db,
		table:    table,
		prepared: make(map[stmtKind]*sql.Stmt, len(stmtKinds)),
	}
}

// quoteIdent quotes an SQL identifier. Table names arrive from callers and
// pool labels, so embedded quotes are doubled rather than trusted.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (s *statements) text(kind stmtKind) string {
	t := quoteIdent(s.table)
	switch kind {
	case stmtUpsert:
		return fmt.Sprintf(`INSERT INTO %s ("Key", "Val") VALUES (?, ?) ON CONFLICT("Key") DO UPDATE SET "Val" = excluded."Val"`, t)
	case stmtFetch:
		return fmt.Sprintf(`SELECT "Val" FROM %s WHERE "Key" = ?`, t)
	case stmtListAll:
		return fmt.Sprintf(`SELECT "Key", "Val" FROM %s`, t)
	case stmtListKeys:
		return fmt.Sprintf(`SELECT "Key" FROM %s`, t)
	case stmtCount:
		return fmt.Sprintf(`SELECT COUNT(*) FROM %s`, t)
	}
	panic(fmt.Sprintf("papyrus: unknown statement kind %d", kind))
}

// createText is run once at open, before anything is prepared, so the
// prepared kinds can assume the table exists.
func (s *statements) createText() string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s ("Key" TEXT PRIMARY KEY, "Val" TEXT)`, quoteIdent(s.table))
}

// eraseText builds the batched delete for n keys. Arity varies per call,
// so this one is never prepared.
func (s *statements) eraseText(n int) string {
	marks := strings.Repeat(", ?", n)[2:]
	return fmt.Sprintf(`DELETE FROM %s WHERE "Key" IN (%s)`, quoteIdent(s.table), marks)
}

// query returns the prepared statement for kind, compiling it on first
// use.
func (s *statements) query(ctx context.Context, kind stmtKind) (*sql.Stmt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if stmt, ok := s.prepared[kind]; ok {
		return stmt, nil
	}
	stmt, err := s.db.PrepareContext(ctx, s.text(kind))
	if err != nil {
		return nil, errors.Wrapf(err, "prepare %s", kind)
	}
	s.prepared[kind] = stmt
	return stmt, nil
}

// Close releases every prepared handle. The first error wins; the rest
// are still closed.
func (s *statements) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var firstErr error
	for kind, stmt := range s.prepared {
		if err := stmt.Close(); err != nil && firstErr == nil {
			firstErr = errors.Wrapf(err, "close %s", kind)
		}
		delete(s.prepared, kind)
	}
	return firstErr
}
