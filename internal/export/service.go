package export

import (
	"context"
	"fmt"
)

// DataStore defines the interface for data access
type DataStore interface {
	GetIssueForExport(ctx context.Context, id string) (IssueInfo, error)
	ListIssueEvidenceForExport(ctx context.Context, issueID string) ([]EvidenceInfo, error)
	GetCycleForExport(ctx context.Context, id string) (CycleInfo, error)
	ListCycleResults(ctx context.Context, cycleID string) ([]ProposalResult, error)
}

// Service provides export functionality
type Service struct {
	store DataStore
}

// NewService creates a new export service
func NewService(store DataStore) *Service {
	return &Service{store: store}
}

// ExportIssueReport renders an issue report in the requested format. Evidence
// is listed by name and link only; blobs stay in object storage.
func (s *Service) ExportIssueReport(ctx context.Context, issueID string, format Format, includeEvidence bool) (*Result, error) {
	issue, err := s.store.GetIssueForExport(ctx, issueID)
	if err != nil {
		return nil, fmt.Errorf("get issue: %w", err)
	}

	data := IssueTemplateData{
		Issue:    issue,
		Evidence: []EvidenceInfo{},
	}
	if issue.IsAnonymous {
		data.Issue.Reporter = "Anonymous"
	}

	if includeEvidence {
		evidence, err := s.store.ListIssueEvidenceForExport(ctx, issueID)
		if err != nil {
			return nil, fmt.Errorf("list evidence: %w", err)
		}
		data.Evidence = evidence
	}

	html, err := RenderIssueHTML(data)
	if err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}

	return s.render(html, issue.Title, format)
}

// ExportBudgetResults renders a budget cycle's tallied results.
func (s *Service) ExportBudgetResults(ctx context.Context, cycleID string, format Format) (*Result, error) {
	cycle, err := s.store.GetCycleForExport(ctx, cycleID)
	if err != nil {
		return nil, fmt.Errorf("get cycle: %w", err)
	}

	results, err := s.store.ListCycleResults(ctx, cycleID)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}

	html, err := RenderCycleHTML(CycleTemplateData{
		Cycle:   cycle,
		Results: results,
	})
	if err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}

	return s.render(html, cycle.Title, format)
}

func (s *Service) render(html, title string, format Format) (*Result, error) {
	switch format {
	case FormatPDF:
		return exportPDF(html, title)
	case FormatDOCX:
		return exportDOCX(html, title)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}
