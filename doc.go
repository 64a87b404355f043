// Package parquio moves data between SQL databases and parquet files in
// both directions with bounded memory.
//
// The export direction streams a query result set into one or more parquet
// files: rows are fetched in fixed-size batches, each batch is transcoded
// into packed columnar buffers, and each buffer is flushed as one parquet
// row group. The import direction walks the row groups of a parquet file
// and replays them as parameterized inserts, one transaction per batch.
//
// Both directions share the same machinery: every source column is mapped
// to a logical kind (pkg/schema), every kind resolves to exactly one buffer
// layout before any output exists, and the engine (pkg/transcode) never
// holds more than one batch in memory. Unmappable columns fail the job
// up front rather than mid-stream.
//
// # Quick Start
//
// Export a query to parquet:
//
//	parquio query --driver pgx --dsn "$DSN" out.par "SELECT * FROM birthdays"
//
// Load it back into a table:
//
//	parquio insert --driver pgx --dsn "$DSN" out.par birthdays
//
// See cmd/parquio for the full CLI surface.
package parquio
