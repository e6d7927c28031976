package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// PgFTS implements Searcher using PostgreSQL full-text search as a fallback.
type PgFTS struct {
	db *sql.DB
}

// NewPgFTS creates a PostgreSQL FTS searcher.
func NewPgFTS(db *sql.DB) *PgFTS {
	return &PgFTS{db: db}
}

// Healthy always returns true — if Postgres is down, the whole app is down.
func (p *PgFTS) Healthy() bool {
	return true
}

// Search executes a UNION ALL query across issues, campaigns, and proposals
// using plainto_tsquery and ts_rank, with ts_headline for snippets.
func (p *PgFTS) Search(q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, 0, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	tsQuery := "plainto_tsquery('english', $1)"
	args := []any{q.Text}
	argN := 2

	var subQueries []string

	// Issues sub-query
	if q.FilterType == "" || q.FilterType == ResultIssue {
		issueWhere := "i.fts @@ " + tsQuery
		if q.FilterCategory != "" {
			issueWhere += fmt.Sprintf(" AND i.category = $%d", argN)
			args = append(args, q.FilterCategory)
			argN++
		}
		if q.PublicOnly {
			issueWhere += " AND i.is_public"
		}
		subQueries = append(subQueries, fmt.Sprintf(`
			SELECT 'issue'::text AS type, i.id, i.title,
				ts_headline('english', coalesce(i.description, ''), %s, 'MaxFragments=1,MaxWords=30') AS snippet,
				i.category, i.status, i.is_public,
				ts_rank(i.fts, %s) AS rank
			FROM issues i
			WHERE %s`, tsQuery, tsQuery, issueWhere))
	}

	// Campaigns sub-query
	if q.FilterType == "" || q.FilterType == ResultCampaign {
		campaignWhere := "c.fts @@ " + tsQuery
		if q.PublicOnly {
			campaignWhere += " AND c.is_public"
		}
		subQueries = append(subQueries, fmt.Sprintf(`
			SELECT 'campaign'::text AS type, c.id, c.title,
				ts_headline('english', coalesce(c.description, ''), %s, 'MaxFragments=1,MaxWords=30') AS snippet,
				''::text AS category, c.status, c.is_public,
				ts_rank(c.fts, %s) AS rank
			FROM campaigns c
			WHERE %s`, tsQuery, tsQuery, campaignWhere))
	}

	// Proposals sub-query. Proposals are readable by everyone, but only once
	// their cycle has opened for submissions.
	if q.FilterType == "" || q.FilterType == ResultProposal {
		proposalWhere := "pr.fts @@ " + tsQuery +
			" AND bc.status IN ('open_submissions', 'voting', 'completed')"
		subQueries = append(subQueries, fmt.Sprintf(`
			SELECT 'proposal'::text AS type, pr.id, pr.title,
				ts_headline('english', coalesce(pr.description, ''), %s, 'MaxFragments=1,MaxWords=30') AS snippet,
				''::text AS category, pr.status, TRUE AS is_public,
				ts_rank(pr.fts, %s) AS rank
			FROM proposals pr
			JOIN budget_cycles bc ON bc.id = pr.cycle_id
			WHERE %s`, tsQuery, tsQuery, proposalWhere))
	}

	if len(subQueries) == 0 {
		return nil, 0, nil
	}

	// Count query
	countSQL := fmt.Sprintf("SELECT count(*) FROM (%s) sub",
		strings.Join(subQueries, " UNION ALL "))

	// Data query
	dataSQL := fmt.Sprintf(`SELECT type, id, title, snippet, category, status, is_public
		FROM (%s) sub
		ORDER BY rank DESC
		LIMIT %d OFFSET %d`,
		strings.Join(subQueries, " UNION ALL "),
		limit, offset)

	ctx := context.Background()

	var total int
	if err := p.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgfts count: %w", err)
	}

	rows, err := p.db.QueryContext(ctx, dataSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgfts query: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		var typ string
		if err := rows.Scan(&typ, &r.ID, &r.Title, &r.Snippet, &r.Category, &r.Status, &r.IsPublic); err != nil {
			return nil, 0, fmt.Errorf("pgfts scan: %w", err)
		}
		r.Type = ResultType(typ)
		results = append(results, r)
	}

	return results, total, rows.Err()
}

// LoadAllRecords returns all searchable records for full reindexing.
func (p *PgFTS) LoadAllRecords(ctx context.Context) ([]IssueRecord, []CampaignRecord, []ProposalRecord, error) {
	issueRows, err := p.db.QueryContext(ctx, `
		SELECT id, title, description, category, status, is_public
		FROM issues
	`)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load issues: %w", err)
	}
	defer issueRows.Close()

	issues := make([]IssueRecord, 0)
	for issueRows.Next() {
		var rec IssueRecord
		if err := issueRows.Scan(&rec.ID, &rec.Title, &rec.Description, &rec.Category, &rec.Status, &rec.IsPublic); err != nil {
			return nil, nil, nil, fmt.Errorf("scan issue: %w", err)
		}
		issues = append(issues, rec)
	}
	if err := issueRows.Err(); err != nil {
		return nil, nil, nil, fmt.Errorf("iterate issues: %w", err)
	}

	campaignRows, err := p.db.QueryContext(ctx, `
		SELECT id, title, description, status, is_public
		FROM campaigns
	`)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load campaigns: %w", err)
	}
	defer campaignRows.Close()

	campaigns := make([]CampaignRecord, 0)
	for campaignRows.Next() {
		var rec CampaignRecord
		if err := campaignRows.Scan(&rec.ID, &rec.Title, &rec.Description, &rec.Status, &rec.IsPublic); err != nil {
			return nil, nil, nil, fmt.Errorf("scan campaign: %w", err)
		}
		campaigns = append(campaigns, rec)
	}
	if err := campaignRows.Err(); err != nil {
		return nil, nil, nil, fmt.Errorf("iterate campaigns: %w", err)
	}

	proposalRows, err := p.db.QueryContext(ctx, `
		SELECT id, title, description, cycle_id, status
		FROM proposals
	`)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load proposals: %w", err)
	}
	defer proposalRows.Close()

	proposals := make([]ProposalRecord, 0)
	for proposalRows.Next() {
		var rec ProposalRecord
		if err := proposalRows.Scan(&rec.ID, &rec.Title, &rec.Description, &rec.CycleID, &rec.Status); err != nil {
			return nil, nil, nil, fmt.Errorf("scan proposal: %w", err)
		}
		proposals = append(proposals, rec)
	}
	if err := proposalRows.Err(); err != nil {
		return nil, nil, nil, fmt.Errorf("iterate proposals: %w", err)
	}

	return issues, campaigns, proposals, nil
}
