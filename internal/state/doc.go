// Package state implements SQLite persistence for the routing engine.
//
// Two repositories own the on-disk state:
//   - [StateRepository] : the singleton sync watermark plus per-playlist
//     profile rebuild timestamps, written atomically in one transaction
//   - [ProfileCacheRepository] : computed genre profiles keyed by
//     (playlist_id, snapshot_id); superseded snapshots are kept but never read
//
// The engine holds the only in-memory copy of state during a run and writes
// it back once at the end, so a failed run leaves the database untouched.
package state
