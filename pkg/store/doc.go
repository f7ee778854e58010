// Package store defines persistence-facing contracts for loading and saving
// case-document snapshots, plus the adapters most deployments need: an
// in-memory store for tests, a JSON file store with payload migrations, and
// a debounced auto-saver that coalesces rapid writes.
//
// Responsibilities:
//   - Store[T] only loads/saves a single snapshot for a single Ref.
//   - Manager[T] wraps a Store with optimistic concurrency (ETag) and
//     snapshot-id stamping.
//   - AutoSaver[T] batches Schedule calls per document and persists once per
//     quiet period, so burst edits cost one write.
//
// The core casefile package stays persistence-agnostic; all persistence
// logic lives behind Store implementations supplied by consumers.
package store
