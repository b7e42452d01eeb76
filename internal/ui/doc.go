// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI walks through one processing session at a time:
//  1. [InputView] : Paste a Spotify playlist or track URL
//  2. [ProcessingView] : Watch progress and tracks as the scrape service reports them
//  3. [ResultView] : Browse the track list with a detail pane for the selected track
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// The model never mutates the session directly: it sends intents (process, select, cancel) to a [tasks.Controller]
// and renders the snapshots the controller publishes on its update channel.
package ui
