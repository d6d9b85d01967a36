// Package tasks runs long-lived song operations with real-time progress reporting.
//
// # Bulk Import
//
// [Importer.Import] takes rows parsed by [formatter.ParseCSV] and creates a song for each one:
//
//  1. Every row is validated with [models.SongForm.Validate]. Invalid rows are reported and never reach the API.
//  2. Valid rows are fed to a worker pool ([ImportOpts.Workers], default 5, max 10).
//  3. Requests share a token-bucket limiter ([ImportOpts.RateLimit] requests per second, default 5).
//
// The [ImportResult] keeps per-row outcomes in input order and converts to a [formatter.ImportReport].
// Callers refresh their song cache afterwards; the importer never touches a store.
//
// # Progress Reporting
//
// Progress updates use non-blocking sends (select with default), so a slow or absent reader never stalls an
// import. The [ProgressUpdate] struct carries the phase, step counters, a display message and the row result.
package tasks
