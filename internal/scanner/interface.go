package scanner

import (
	"context"
	"scanrelay/pkg/domain"
)

// Scanner drives one URL through the upstream submit, poll and fallback
// workflow and returns the upstream payload to relay to the caller.
//
//go:generate mockgen -package mockscanner -source=interface.go -destination=mock/mockscanner.go *
type Scanner interface {
	Scan(ctx context.Context, URL string) (*domain.ScanResult, error)
}
