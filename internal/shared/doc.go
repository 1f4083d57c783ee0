// Package shared holds code used across packages that belongs to no single
// layer. Its testutil subpackage provides the slog capture handler used to
// assert on log output and the synthetic dataset fixtures shared by the
// pipeline, transport and application tests.
package shared
