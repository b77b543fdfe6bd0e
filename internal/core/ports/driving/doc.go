// Package driving defines the interfaces through which the outside world
// drives the core (primary ports in hexagonal architecture).
//
// Driving adapters (HTTP API, CLI) depend on these interfaces, and core
// services implement them.
//
//   - IndexService: document ingestion and retrieval
//   - SearchService: filtering, semantic and hybrid search
//   - MutationService: ownership-gated update and delete
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driving
