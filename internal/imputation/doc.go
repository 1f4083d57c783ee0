// Package imputation implements iterative multivariate imputation.
//
// Every missing cell is first seeded with its column mean. Then, for a fixed
// number of rounds, each incomplete column is regressed on all other columns
// with a Bayesian ridge model fit on the rows where that column was observed,
// and its missing rows are replaced by draws from the posterior predictive
// distribution. Randomness comes from a PCG generator created per call from
// Options.Seed, so output is reproducible.
//
//	im := imputation.New(imputation.DefaultOptions())
//	filled, res, err := im.Impute(ctx, canonical.Table, canonical.Mask)
package imputation
