// Package services implements the core business logic for Taxatag.
//
// Services implement driving ports and depend only on domain types and
// driven ports. They hold no process-wide state: every call re-reads
// from the store or the file, so staleness is bounded by the most
// recent successful read.
package services
