// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - TaxonomyStore: Read access to the external taxonomy table
//   - MetadataCodec / MetadataFile: Image and sidecar tag-table access
//   - SettingsStore: Persisted application settings
package driven
