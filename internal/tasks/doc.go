// Package tasks runs batch jobs over many songs or saved presentations with
// progress reporting.
//
// # Operations
//
//  1. [BatchEngine.Fetch] looks up each query through a [LyricsSource],
//     builds a deck from the cleaned lyrics and exports it.
//  2. [BatchEngine.ExportDecks] exports decks that already exist.
//
// Both write a batch_manifest.json summary into the output directory.
//
// # Concurrency
//
// Lookups run in query order behind a [rate.Limiter]. Exports run on a
// bounded worker pool. Progress is reported through an optional channel of
// [ProgressUpdate]; sends never block, so a slow reader loses updates rather
// than stalling the run.
package tasks
