// Package exporter writes pipeline outputs to disk.
//
// CSVWriter writes tables and plain header/record files, creating parent
// directories as needed. Canonical tables keep missing cells empty; ml-ready
// tables print integer columns without decimals.
//
// AuditExporter persists audit reports and missingness statistics, one CSV
// per analysis and dataset, and combines all datasets into a single XLSX
// workbook with one sheet per analysis.
package exporter
