// SPDX-License-Identifier: MPL-2.0

// Package benchmark holds benchmarks for PGO profile generation. They cover
// the hot paths of a build:
//   - Lua parsing and require classification
//   - graph construction over a generated project
//   - wrapping, assembly and source map lookups
//   - config loading through the CUE schema
//
// To generate a profile, run:
//
//	go test -run '^$' -bench . -cpuprofile default.pgo ./internal/benchmark
package benchmark
