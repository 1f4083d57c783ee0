// Package dataprocessing turns raw clinical files into tables the imputer
// can work on, and repairs imputed tables afterwards.
//
// # Components
//
//  1. Parser: reads delimited or XLSX raw files (ParseFile, ParseWorkbook),
//     checks the header against the dataset columns, and reads canonical
//     CSV back (ReadTable).
//  2. Canonicalizer: resolves missing sentinels, and literal zeros in
//     biological columns, to the missing marker and records the mask.
//  3. Constraint enforcer: clips biological columns below at their
//     observed minimum and rounds integer columns.
//
// # Usage
//
//	raw, err := dataprocessing.ParseFile(path, spec)
//	if err != nil {
//	    return err
//	}
//	canonical, err := dataprocessing.Canonicalize(raw, spec)
//	...
//	clean, warnings, err := dataprocessing.EnforceConstraints(imputed, canonical.Table, spec,
//	    dataprocessing.ConstraintOptions{WarnFraction: 0.2})
//
// Columns with more than WarnFraction of their cells altered by enforcement
// produce a ConstraintWarning.
package dataprocessing
