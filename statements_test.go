package papyrus

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The statement texts are contract: other tooling reads these tables, so
// changes to the SQL must be deliberate. The golden file pins them.
func TestStatementTexts(t *testing.T) {
	s := newStatements(nil, "documents")

	var buf bytes.Buffer
	for _, kind := range stmtKinds {
		fmt.Fprintf(&buf, "%s: %s\n", kind, s.text(kind))
	}
	fmt.Fprintf(&buf, "create: %s\n", s.createText())
	fmt.Fprintf(&buf, "erase(3): %s\n", s.eraseText(3))

	g := goldie.New(t)
	g.Assert(t, "statements", buf.Bytes())
}

func TestStatementTableNameIsQuoted(t *testing.T) {
	s := newStatements(nil, `weird"name`)
	assert.Equal(t, `SELECT COUNT(*) FROM "weird""name"`, s.text(stmtCount))
}

func TestStatementsPrepareOnce(t *testing.T) {
	ctx := context.Background()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	defer db.Close()
	db.SetMaxOpenConns(1)

	s := newStatements(db, "documents")
	_, err = db.ExecContext(ctx, s.createText())
	require.NoError(t, err)

	first, err := s.query(ctx, stmtCount)
	require.NoError(t, err)
	second, err := s.query(ctx, stmtCount)
	require.NoError(t, err)
	assert.Same(t, first, second, "repeated queries reuse the prepared handle")

	require.NoError(t, s.Close())
}
