package services

import (
	"context"
	"sync"

	"line-register-bot/models"
)

// ReportStore keeps completed issue reports
type ReportStore interface {
	SaveReport(ctx context.Context, report *models.Report) error
	// ListReports returns at most limit reports, newest first; limit <= 0
	// means all of them
	ListReports(ctx context.Context, limit int) ([]*models.Report, error)
}

// MemoryReportStore keeps reports in process memory
type MemoryReportStore struct {
	mu      sync.RWMutex
	reports []*models.Report
}

// NewMemoryReportStore keeps reports in process memory
func NewMemoryReportStore() *MemoryReportStore {
	return &MemoryReportStore{}
}

func (s *MemoryReportStore) SaveReport(_ context.Context, report *models.Report) error {
	r := *report
	s.mu.Lock()
	s.reports = append(s.reports, &r)
	s.mu.Unlock()
	return nil
}

func (s *MemoryReportStore) ListReports(_ context.Context, limit int) ([]*models.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := len(s.reports)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]*models.Report, 0, n)
	for i := len(s.reports) - 1; i >= 0 && len(out) < n; i-- {
		r := *s.reports[i]
		out = append(out, &r)
	}
	return out, nil
}
