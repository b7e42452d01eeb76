// Package tasks implements the playlist-processing session: validation, the request lifecycle and stream reconciliation.
//
// # Lifecycle
//
// A [Session] moves through idle → validating → requesting → (streaming) → complete | failed.
// The [Controller] owns every transition and allows one attempt in flight at a time:
//
//  1. [Controller.Process] validates the raw input with [ValidateURL]
//  2. [Controller.Submit] resets the session and posts the URL to the scrape service
//  3. The response transport picks the decoder:
//     - buffered JSON: one terminal complete or error payload
//     - text/event-stream: frames decoded by a [Reconciler]
//  4. Both paths produce [Event] values folded into the session by one reducer
//
// [Controller.Cancel] aborts an attempt and resets the session. Every attempt runs under a timeout.
//
// # Error Policy
//
// A remote error event is fatal in a buffered response. In a stream it is recorded as a warning,
// unless it is flagged fatal or is the last event before the stream ends.
// Malformed frames are reported as [*DecodeError] and skipped.
//
// # Updates
//
// After each mutation the controller publishes an [Update] with a [Snapshot] and an optional [Notice].
// Sends never block: if the channel is full the update is dropped.
//
// # Batches
//
// [BatchRunner] processes several URLs sequentially, paced with a rate limiter.
package tasks
