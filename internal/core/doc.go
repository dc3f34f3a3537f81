// Package core drives a CSV import from an upload form to a per-row report.
//
// The package holds the request-level logic only. It does not know about
// HTTP: the web layer adapts the request to [FormInput] and renders the view
// data, and the etlctl command drives [CSVImport.ImportCSV] directly.
//
// # Flow
//
//  1. [CSVImport.ChooseAction] decides between showing the form and importing.
//  2. [CSVImport.ImportCSV] decodes the file, reads the header row and turns
//     every data row into a [Record] named after the chosen plan.
//  3. Each record goes through an [importer.Importer]. Only rows that failed
//     are kept in the report, keyed by their 0-based position after the header.
//  4. [CSVImport.PrepareFormViewData] and [CSVImport.PrepareReportViewData]
//     expose the state the views need.
//
// Problems the operator can fix (bad delimiter, unreadable file) are returned
// as [apierror.FeedbackError] and shown above the form. Row failures never
// abort the import.
//
// # Plans
//
// The plan pipeline (fetch, extract, transform, load) is partially wired.
// [CSVImport.Extract] combines the CSV rows with the extra sources a plan
// names. Fetching plans, transforming and loading return
// [apierror.ErrNotImplemented].
//
// # Error Codes
//
// Technical errors are mapped to operator messages using [MapError]:
//
//   - DB001-DB007: storage errors (duplicates, constraints, connections)
//   - VAL001-VAL004: validation errors (mandatory fields, formats)
//   - FILE001-FILE005: file errors (size, encoding, format, delimiter)
//   - IMP001-IMP005: import errors (busy, cancelled, timeout, permissions)
package core
