package store

import (
	"context"
	"fmt"

	"jijisauti/api/internal/export"
)

// Export read paths. These join display names in so the export layer never
// needs a second round trip per row.

func (s *PostgresStore) GetIssueForExport(ctx context.Context, id string) (export.IssueInfo, error) {
	var info export.IssueInfo
	err := s.db.QueryRowContext(ctx, `
		SELECT i.id, i.title, i.description, i.category, COALESCE(i.subcategory, ''),
		       COALESCE(i.address, ''), i.urgency, i.status, i.is_anonymous,
		       COALESCE(reporter.display_name, ''), COALESCE(official.display_name, ''),
		       i.created_at
		FROM issues i
		LEFT JOIN users reporter ON reporter.id = i.reported_by
		LEFT JOIN users official ON official.id = i.assigned_official
		WHERE i.id = $1
	`, id).Scan(&info.ID, &info.Title, &info.Description, &info.Category, &info.Subcategory,
		&info.Address, &info.Urgency, &info.Status, &info.IsAnonymous,
		&info.Reporter, &info.Official, &info.CreatedAt)
	if err != nil {
		return export.IssueInfo{}, fmt.Errorf("get issue for export: %w", err)
	}
	return info, nil
}

func (s *PostgresStore) ListIssueEvidenceForExport(ctx context.Context, issueID string) ([]export.EvidenceInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, mime_type, object_key
		FROM issue_evidence
		WHERE issue_id = $1
		ORDER BY created_at ASC
	`, issueID)
	if err != nil {
		return nil, fmt.Errorf("list evidence for export: %w", err)
	}
	defer rows.Close()

	items := make([]export.EvidenceInfo, 0)
	for rows.Next() {
		var item export.EvidenceInfo
		if err := rows.Scan(&item.Name, &item.MimeType, &item.URL); err != nil {
			return nil, fmt.Errorf("scan evidence for export: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate evidence for export: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) GetCycleForExport(ctx context.Context, id string) (export.CycleInfo, error) {
	var info export.CycleInfo
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, description, status, total_budget, token_grant, closes_at
		FROM budget_cycles
		WHERE id = $1
	`, id).Scan(&info.ID, &info.Title, &info.Description, &info.Status,
		&info.TotalBudget, &info.TokenGrant, &info.ClosesAt)
	if err != nil {
		return export.CycleInfo{}, fmt.Errorf("get cycle for export: %w", err)
	}
	return info, nil
}

func (s *PostgresStore) ListCycleResults(ctx context.Context, cycleID string) ([]export.ProposalResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.title, p.estimated_cost, p.status, COALESCE(SUM(v.tokens), 0) AS tokens
		FROM proposals p
		LEFT JOIN proposal_votes v ON v.proposal_id = p.id
		WHERE p.cycle_id = $1
		GROUP BY p.id, p.title, p.estimated_cost, p.status
		ORDER BY tokens DESC, p.title ASC
	`, cycleID)
	if err != nil {
		return nil, fmt.Errorf("list cycle results: %w", err)
	}
	defer rows.Close()

	results := make([]export.ProposalResult, 0)
	for rows.Next() {
		var result export.ProposalResult
		if err := rows.Scan(&result.Title, &result.EstimatedCost, &result.Status, &result.Tokens); err != nil {
			return nil, fmt.Errorf("scan cycle result: %w", err)
		}
		results = append(results, result)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cycle results: %w", err)
	}
	return results, nil
}
