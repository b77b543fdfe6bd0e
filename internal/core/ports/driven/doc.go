// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - Collection: vector + metadata index storage. Two instances are used
//     at runtime: a metadata index (one record per document) and a content
//     index (one record per chunk).
//   - SignatureVerifier: authorization proof checking for mutations.
//
// # Supporting Interfaces
//
//   - EmbeddingService: generates vector embeddings. Every Collection
//     implementation embeds client-side through it; the core never
//     touches vectors directly.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
