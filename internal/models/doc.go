// Package models defines domain entities for the genresort like-routing engine.
//
// The package contains two categories of types:
//
// 1. Catalog records: typed shapes converted at the catalog boundary so engine
// code never branches on raw API payloads
//   - [LikedTrack] : A saved-library track with its liked-at timestamp
//   - [Track] : Basic track metadata within a playlist
//   - [Artist] : Artist metadata with genre tags
//   - [PlaylistVersion] : A playlist's content version token and track count
//   - [AddResult] : Outcome of an idempotent playlist insertion
//
// 2. Engine state: values computed and persisted by the routing engine
//   - [GenreProfile] : Weighted genre distribution for a playlist
//   - [CachedProfile] : A profile cached under a content version
//   - [SyncState] : Watermark and rebuild timestamps, persisted between runs
//   - [RoutingDecision] : A track's chosen destination for the current run
package models
