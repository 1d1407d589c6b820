// Package service contains the application-specific use cases of the posting
// service. It orchestrates the versioned record stores (defined in
// internal/store), the background posting pipeline (internal/task) and the
// event emitter that connects them.
//
// Key components:
//
// 1. PolicyService:
//   - The single entry point for record upserts and reads, keyed by record class
//   - Announces new record versions as events once they are committed
//
// 2. PostingService:
//   - Accepts posting requests and hands them to the pipeline through events
//   - Implements task.Processor: resolves the tenant's posting policy and
//     passes the batch to a Poster
//
// 3. Error Handling:
//   - Translate store errors to service-level sentinels
//   - Wrap unexpected errors in ServiceError for context
//
// The service layer depends on domain entities and repository interfaces (from store),
// but never on specific infrastructure implementations.
package service
