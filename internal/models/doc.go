// Package models defines the data carried between the Sunnify client layers.
//
// The package contains two categories of types:
//
// 1. Wire DTOs: structs mirroring the scrape service JSON contract
//   - [Track] : Song metadata reported by the remote service
//   - [Playlist] : A resolved playlist name with its ordered tracks
//
// 2. Persistent records: rows kept by the session history
//   - [SessionRecord] : Outcome of one finished processing attempt
//
// Records implement [Model], providing ID, timestamps and validation.
package models
