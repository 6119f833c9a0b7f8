// Package embeddings provides embedding generation via multiple providers.
//
// Supports a TEI-compatible HTTP endpoint and a deterministic "static"
// provider for tests. Factory pattern enables provider selection at runtime
// with automatic dimension detection for common models.
package embeddings
