// Package fetch downloads raw dataset files into the raw data directory.
//
// A download is skipped when the target file already exists, so repeated
// pipeline runs work offline once the raw files are present. Requests go
// through an otelhttp transport and a token bucket limiter.
package fetch
