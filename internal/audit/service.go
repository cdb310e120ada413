package audit

import (
	"context"
	"fmt"
)

const (
	defaultPageSize = 20
	maxPageSize     = 50
)

// TrailQuery is the repository-level query shape: filters plus a window.
type TrailQuery struct {
	Filters TrailFilters
	Offset  int
	Limit   int
}

// Repository reads audit_logs.
type Repository interface {
	TrailWindow(ctx context.Context, q TrailQuery) ([]TrailEntry, error)
	TrailAll(ctx context.Context, filters TrailFilters) ([]TrailEntry, error)
}

// Service coordinates audit trail retrieval.
type Service struct {
	repo Repository
}

// NewService creates a new audit trail service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Trail fetches a page of the audit trail.
func (s *Service) Trail(ctx context.Context, filters TrailFilters) (Result, error) {
	if s.repo == nil {
		return Result{}, fmt.Errorf("audit: repository not configured")
	}
	pageSize := filters.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	page := filters.Page
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * pageSize

	// Fetch one row past the page to learn whether a next page exists.
	rows, err := s.repo.TrailWindow(ctx, TrailQuery{
		Filters: filters,
		Offset:  offset,
		Limit:   pageSize + 1,
	})
	if err != nil {
		return Result{}, err
	}
	hasNext := len(rows) > pageSize
	if hasNext {
		rows = rows[:pageSize]
	}
	paging := PagingInfo{Page: page, PageSize: pageSize, HasNext: hasNext}
	if page > 1 {
		paging.PrevPage = page - 1
	}
	if hasNext {
		paging.NextPage = page + 1
	}
	return Result{Rows: rows, Paging: paging}, nil
}

// Export fetches all trail rows matching the filters, without paging.
func (s *Service) Export(ctx context.Context, filters TrailFilters) ([]TrailEntry, error) {
	if s.repo == nil {
		return nil, fmt.Errorf("audit: repository not configured")
	}
	return s.repo.TrailAll(ctx, filters)
}
