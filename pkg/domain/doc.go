// Package domain contains the request-scoped entities exchanged between the
// HTTP layer, the scan orchestrator and the upstream threat-scanning client.
// Nothing in here is persisted.
package domain
