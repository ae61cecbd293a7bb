// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package relational

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/volcano/pkg/sql/opt/memo"
	"github.com/cockroachdb/volcano/pkg/sql/opt/props/physical"
	"github.com/stretchr/testify/require"
)

const testQuery = `
tables:
  a: {rows: 1000}
  b: {rows: 10}
query:
  join:
    - scan: a
    - filter:
        predicate: b.x > 1
        input: {scan: b}
order_by: [1, -2]
`

func TestParseQuery(t *testing.T) {
	q, err := ParseQuery([]byte(testQuery))
	require.NoError(t, err)
	cat, err := q.Catalog()
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, cat.TableNames())

	e, err := q.Build(cat)
	require.NoError(t, err)
	var m memo.Memo
	m.Init(NewCoster(cat))
	n := m.Node(m.Register(e, 0))
	require.Equal(t, JoinOp, n.Op().Name())
	right := m.Nodes(m.Set(m.InputSubset(n, 1).Set()))
	require.Len(t, right, 1)
	require.Equal(t, "filter b.x > 1", right[0].Op().Digest())
	// Logical nodes cannot be implemented, so logical subsets have no best.
	require.Nil(t, m.BestNode(m.InputSubset(n, 0)))

	require.Equal(t, "physical [+1,-2]", q.Required().String())
}

func TestBuildQueryErrors(t *testing.T) {
	testCases := []struct {
		name  string
		query string
		err   string
	}{
		{name: "empty", query: "query: {}", err: "exactly one of scan, join, filter; found 0"},
		{name: "two", query: "query: {scan: a, filter: {predicate: p}}", err: "found 2"},
		{name: "join arity", query: "tables: {a: {rows: 1}}\nquery: {join: [{scan: a}]}", err: "join must have 2 inputs, found 1"},
		{name: "unknown table", query: "query: {scan: a}", err: `unknown table "a"`},
		{name: "filter input", query: "query: {filter: {predicate: p, input: {scan: a}}}", err: `filter "p": unknown table "a"`},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			q, err := ParseQuery([]byte(tc.query))
			require.NoError(t, err)
			cat, err := q.Catalog()
			require.NoError(t, err)
			_, err = q.Build(cat)
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.err)
		})
	}

	_, err := ParseQuery([]byte("query: [1]"))
	require.Error(t, err)

	q, err := ParseQuery([]byte("tables: {a: {rows: -1}}"))
	require.NoError(t, err)
	_, err = q.Catalog()
	require.Error(t, err)
}

func TestLoadQuery(t *testing.T) {
	path := filepath.Join(t.TempDir(), "q.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testQuery), 0644))
	q, err := LoadQuery(path)
	require.NoError(t, err)
	require.Equal(t, 10.0, q.Tables["b"].Rows)
	require.Equal(t, physical.Physical.WithOrdering(physical.Ordering{1, -2}), q.Required())
}
