// Copyright 2022 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

// Package echotest compares command output against golden files kept in the
// datadriven format.
package echotest

import (
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/cockroachdb/datadriven"
)

// Require checks that the string matches what is found in the file located at
// the provided path. The file must follow the datadriven format:
//
// echo
// ----
// <output of exp>
//
// The contents of the file can be updated automatically using datadriven's
// -rewrite flag.
func Require(t *testing.T, act, path string) {
	var ran bool
	datadriven.RunTest(t, path, func(t *testing.T, d *datadriven.TestData) string {
		if d.Cmd != "echo" {
			return "only 'echo' is supported"
		}
		ran = true
		return act
	})
	if !ran {
		// A file seeded with -rewrite but without a directive would otherwise
		// pass without checking anything.
		t.Errorf("no tests run for %s, is the file empty?", path)
	}
}

// Walker runs one subtest per golden file of a directory. Once the parent
// test ends, it fails the test if the directory holds files that no subtest
// visited.
type Walker struct {
	dir string

	mu      sync.Mutex
	visited map[string]bool
}

// NewWalker returns a Walker over the golden files in dir.
func NewWalker(t *testing.T, dir string) *Walker {
	w := &Walker{dir: dir, visited: make(map[string]bool)}
	t.Cleanup(func() {
		if t.Failed() {
			return
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			t.Fatal(err)
		}
		var stale []string
		w.mu.Lock()
		defer w.mu.Unlock()
		for _, e := range entries {
			if !e.IsDir() && !w.visited[e.Name()] {
				stale = append(stale, e.Name())
			}
		}
		sort.Strings(stale)
		if len(stale) > 0 {
			t.Errorf("golden files without a test in %s: %v", dir, stale)
		}
	})
	return w
}

// Run returns a subtest that compares the output of f against the golden file
// called name.
func (w *Walker) Run(t *testing.T, name string, f func(t *testing.T) string) func(*testing.T) {
	w.mu.Lock()
	w.visited[name] = true
	w.mu.Unlock()
	return func(t *testing.T) {
		Require(t, f(t), filepath.Join(w.dir, name))
	}
}
