// Package driving defines the interfaces through which the outside world
// drives the core.
//
// These are the "driving" or "primary" ports in hexagonal architecture.
// Core services implement them; the CLI (or any other presentation
// layer) consumes them.
//
//   - Navigator: Taxonomy tree queries
//   - Tagger: Keyword generation and metadata merge-writing
package driving
