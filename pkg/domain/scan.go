package domain

import "encoding/json"

// AnalysisStatus is the lifecycle state reported by the upstream service for
// a submitted analysis. Only AnalysisStatusCompleted is treated specially;
// every other value means "not done yet".
type AnalysisStatus string

const (
	// AnalysisStatusQueued indicates the analysis is waiting for a worker upstream.
	AnalysisStatusQueued AnalysisStatus = "queued"
	// AnalysisStatusInProgress indicates the upstream engines are still running.
	AnalysisStatusInProgress AnalysisStatus = "in-progress"
	// AnalysisStatusCompleted indicates the analysis finished and its verdicts are final.
	AnalysisStatusCompleted AnalysisStatus = "completed"
)

// ResultSource tells which stage of the orchestration produced a ScanResult.
type ResultSource string

const (
	// ResultSourceCompleted is a freshly completed analysis.
	ResultSourceCompleted ResultSource = "completed"
	// ResultSourceFallback is the cached URL report returned by the direct lookup.
	ResultSourceFallback ResultSource = "fallback"
	// ResultSourceStale is the last non-completed analysis, used when the lookup failed.
	ResultSourceStale ResultSource = "stale"
)

// ScanRequest is the inbound payload of the scan endpoint.
type ScanRequest struct {
	URL string `json:"url"`
}

// ScanResult is the outcome of one orchestration. Payload is the upstream
// JSON document, untouched.
type ScanResult struct {
	// Payload is returned to the caller verbatim.
	Payload json.RawMessage
	// Source records which stage produced Payload.
	Source ResultSource
	// Attempts is the number of poll requests issued.
	Attempts int
	// AnalysisID is the upstream identifier of the submitted analysis.
	AnalysisID string
}
