// Package operations runs datasets through the cleaning pipeline.
//
// A run selects datasets from the registry and takes each one through the
// registered steps: fetch, parse, canonicalize, impute, enforce, audit and
// export. Steps run in dependency order within a dataset. Datasets are
// independent and may run concurrently up to Config.MaxConcurrency; a failing
// dataset is recorded with its error and stage outcomes and never stops the
// others. Every run gets a UUID used as trace id in logs, and the ml-ready
// table of every dataset is fingerprinted with BLAKE2b so that reruns with the
// same seed can be compared.
//
// Completed runs are kept in a RunStore for the HTTP API.
package operations
