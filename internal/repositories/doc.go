// Package repositories implements local persistence for saved presentations.
//
// Everything is stored as JSON blobs behind a small key-value [Store]:
//   - [SQLiteStore] : kv_store table in the application database (default)
//   - [FileStore] : a single JSON file rewritten atomically
//
// On top of a store:
//   - [PresentationRepository] : named deck snapshots under the saved_presentations key
//   - [SongCache] : lyrics lookups keyed by normalized query
//
// The SQLite backend also keeps presentation_index current so listings can be
// searched without decoding the whole blob.
package repositories
