// Copyright 2014 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

// This is the default entry point for the volcano binary.
package main

import "github.com/cockroachdb/volcano/pkg/cli"

func main() {
	cli.Main()
}
