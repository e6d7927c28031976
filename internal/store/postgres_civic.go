package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const issueColumns = `id, category, COALESCE(subcategory, ''), title, description, COALESCE(address, ''),
	latitude, longitude, urgency, status, is_public, is_anonymous, reported_by, assigned_official,
	follow_up, preferred_contact, COALESCE(contact_phone, ''), COALESCE(contact_email, ''),
	COALESCE(voice_note_key, ''), created_at, updated_at`

func scanIssue(scan func(...any) error) (Issue, error) {
	var item Issue
	err := scan(&item.ID, &item.Category, &item.Subcategory, &item.Title, &item.Description, &item.Address,
		&item.Latitude, &item.Longitude, &item.Urgency, &item.Status, &item.IsPublic, &item.IsAnonymous,
		&item.ReportedBy, &item.AssignedOfficial, &item.FollowUp, &item.PreferredContact,
		&item.ContactPhone, &item.ContactEmail, &item.VoiceNoteKey, &item.CreatedAt, &item.UpdatedAt)
	return item, err
}

func (s *PostgresStore) InsertIssue(ctx context.Context, item Issue) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO issues (id, category, subcategory, title, description, address, latitude, longitude,
			urgency, status, is_public, is_anonymous, reported_by, follow_up, preferred_contact,
			contact_phone, contact_email, voice_note_key)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, NULLIF($6, ''), $7, $8, $9, $10, $11, $12, $13, $14, $15,
			NULLIF($16, ''), NULLIF($17, ''), NULLIF($18, ''))
	`, item.ID, item.Category, item.Subcategory, item.Title, item.Description, item.Address,
		item.Latitude, item.Longitude, item.Urgency, item.Status, item.IsPublic, item.IsAnonymous,
		item.ReportedBy, item.FollowUp, item.PreferredContact, item.ContactPhone, item.ContactEmail,
		item.VoiceNoteKey)
	if err != nil {
		return fmt.Errorf("insert issue: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetIssue(ctx context.Context, issueID string) (Issue, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+issueColumns+` FROM issues WHERE id=$1`, issueID)
	item, err := scanIssue(row.Scan)
	if err != nil {
		return Issue{}, err
	}
	return item, nil
}

// ListIssues returns issues visible to the viewer: public ones plus, when a
// viewer id is given, the viewer's own. includeAll bypasses the filter for
// admins and officials.
func (s *PostgresStore) ListIssues(ctx context.Context, viewerID *string, includeAll bool, limit int) ([]Issue, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+issueColumns+`
		FROM issues
		WHERE $1::boolean OR is_public OR ($2::text IS NOT NULL AND reported_by=$2)
		ORDER BY created_at DESC
		LIMIT $3
	`, includeAll, viewerID, limit)
	if err != nil {
		return nil, fmt.Errorf("list issues: %w", err)
	}
	defer rows.Close()

	items := make([]Issue, 0)
	for rows.Next() {
		item, err := scanIssue(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan issue: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate issues: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) UpdateIssueStatus(ctx context.Context, issueID, status string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE issues SET status=$2, updated_at=NOW() WHERE id=$1
	`, issueID, status)
	if err != nil {
		return fmt.Errorf("update issue status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update issue status rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *PostgresStore) AssignOfficial(ctx context.Context, issueID, officialID string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE issues SET assigned_official=$2, status='in_progress', updated_at=NOW() WHERE id=$1
	`, issueID, officialID)
	if err != nil {
		return fmt.Errorf("assign official: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("assign official rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *PostgresStore) InsertEvidence(ctx context.Context, item EvidenceObject) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO issue_evidence (id, issue_id, object_key, name, mime_type, size_bytes)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, item.ID, item.IssueID, item.ObjectKey, item.Name, item.MimeType, item.SizeBytes)
	if err != nil {
		return fmt.Errorf("insert evidence: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListIssueEvidence(ctx context.Context, issueID string) ([]EvidenceObject, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, issue_id, object_key, name, mime_type, size_bytes, created_at
		FROM issue_evidence
		WHERE issue_id=$1
		ORDER BY created_at ASC
	`, issueID)
	if err != nil {
		return nil, fmt.Errorf("list evidence: %w", err)
	}
	defer rows.Close()

	items := make([]EvidenceObject, 0)
	for rows.Next() {
		var item EvidenceObject
		if err := rows.Scan(&item.ID, &item.IssueID, &item.ObjectKey, &item.Name, &item.MimeType, &item.SizeBytes, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan evidence: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate evidence: %w", err)
	}
	return items, nil
}

const campaignColumns = `id, title, description, COALESCE(goal, ''), status, is_public, organizer_id,
	starts_at, ends_at, created_at, updated_at`

func (s *PostgresStore) InsertCampaign(ctx context.Context, item Campaign) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO campaigns (id, title, description, goal, status, is_public, organizer_id, starts_at, ends_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8, $9)
	`, item.ID, item.Title, item.Description, item.Goal, item.Status, item.IsPublic, item.OrganizerID, item.StartsAt, item.EndsAt)
	if err != nil {
		return fmt.Errorf("insert campaign: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetCampaign(ctx context.Context, campaignID string) (Campaign, error) {
	var item Campaign
	err := s.db.QueryRowContext(ctx, `SELECT `+campaignColumns+` FROM campaigns WHERE id=$1`, campaignID).Scan(
		&item.ID, &item.Title, &item.Description, &item.Goal, &item.Status, &item.IsPublic,
		&item.OrganizerID, &item.StartsAt, &item.EndsAt, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return Campaign{}, err
	}
	return item, nil
}

func (s *PostgresStore) ListCampaigns(ctx context.Context, viewerID *string, includeAll bool) ([]Campaign, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+campaignColumns+`
		FROM campaigns
		WHERE $1::boolean OR is_public OR ($2::text IS NOT NULL AND organizer_id=$2)
		ORDER BY created_at DESC
	`, includeAll, viewerID)
	if err != nil {
		return nil, fmt.Errorf("list campaigns: %w", err)
	}
	defer rows.Close()

	items := make([]Campaign, 0)
	for rows.Next() {
		var item Campaign
		if err := rows.Scan(&item.ID, &item.Title, &item.Description, &item.Goal, &item.Status, &item.IsPublic,
			&item.OrganizerID, &item.StartsAt, &item.EndsAt, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan campaign: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate campaigns: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) UpdateCampaign(ctx context.Context, campaignID, title, description, status string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE campaigns SET title=$2, description=$3, status=$4, updated_at=NOW() WHERE id=$1
	`, campaignID, title, description, status)
	if err != nil {
		return fmt.Errorf("update campaign: %w", err)
	}
	return nil
}

func (s *PostgresStore) InsertEvent(ctx context.Context, item Event) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO events (id, campaign_id, title, description, venue, status, is_public, organizer_id, starts_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8, $9)
	`, item.ID, item.CampaignID, item.Title, item.Description, item.Venue, item.Status, item.IsPublic, item.OrganizerID, item.StartsAt)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListEvents(ctx context.Context, viewerID *string, includeAll bool) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, campaign_id, title, description, COALESCE(venue, ''), status, is_public, organizer_id, starts_at, created_at, updated_at
		FROM events
		WHERE $1::boolean OR is_public OR ($2::text IS NOT NULL AND organizer_id=$2)
		ORDER BY starts_at ASC NULLS LAST
	`, includeAll, viewerID)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	items := make([]Event, 0)
	for rows.Next() {
		var item Event
		if err := rows.Scan(&item.ID, &item.CampaignID, &item.Title, &item.Description, &item.Venue,
			&item.Status, &item.IsPublic, &item.OrganizerID, &item.StartsAt, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return items, nil
}

const cycleColumns = `id, title, description, status, total_budget, token_grant, created_by, opens_at, closes_at, created_at, updated_at`

func (s *PostgresStore) InsertBudgetCycle(ctx context.Context, item BudgetCycle) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO budget_cycles (id, title, description, status, total_budget, token_grant, created_by, opens_at, closes_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, item.ID, item.Title, item.Description, item.Status, item.TotalBudget, item.TokenGrant, item.CreatedBy, item.OpensAt, item.ClosesAt)
	if err != nil {
		return fmt.Errorf("insert budget cycle: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetBudgetCycle(ctx context.Context, cycleID string) (BudgetCycle, error) {
	var item BudgetCycle
	err := s.db.QueryRowContext(ctx, `SELECT `+cycleColumns+` FROM budget_cycles WHERE id=$1`, cycleID).Scan(
		&item.ID, &item.Title, &item.Description, &item.Status, &item.TotalBudget, &item.TokenGrant,
		&item.CreatedBy, &item.OpensAt, &item.ClosesAt, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return BudgetCycle{}, err
	}
	return item, nil
}

// ListBudgetCycles returns cycles in the given statuses, or every cycle when
// the list is empty (admin view).
func (s *PostgresStore) ListBudgetCycles(ctx context.Context, statuses []string) ([]BudgetCycle, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+cycleColumns+`
		FROM budget_cycles
		WHERE cardinality($1::text[]) = 0 OR status = ANY($1)
		ORDER BY created_at DESC
	`, statuses)
	if err != nil {
		return nil, fmt.Errorf("list budget cycles: %w", err)
	}
	defer rows.Close()

	items := make([]BudgetCycle, 0)
	for rows.Next() {
		var item BudgetCycle
		if err := rows.Scan(&item.ID, &item.Title, &item.Description, &item.Status, &item.TotalBudget,
			&item.TokenGrant, &item.CreatedBy, &item.OpensAt, &item.ClosesAt, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan budget cycle: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate budget cycles: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) UpdateBudgetCycleStatus(ctx context.Context, cycleID, status string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE budget_cycles SET status=$2, updated_at=NOW() WHERE id=$1`, cycleID, status)
	if err != nil {
		return fmt.Errorf("update budget cycle status: %w", err)
	}
	return nil
}

func (s *PostgresStore) InsertProposal(ctx context.Context, item Proposal) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO proposals (id, cycle_id, title, description, estimated_cost, status, submitted_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, item.ID, item.CycleID, item.Title, item.Description, item.EstimatedCost, item.Status, item.SubmittedBy)
	if err != nil {
		return fmt.Errorf("insert proposal: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetProposal(ctx context.Context, proposalID string) (Proposal, error) {
	var item Proposal
	err := s.db.QueryRowContext(ctx, `
		SELECT id, cycle_id, title, description, estimated_cost, status, submitted_by, created_at, updated_at
		FROM proposals WHERE id=$1
	`, proposalID).Scan(&item.ID, &item.CycleID, &item.Title, &item.Description, &item.EstimatedCost,
		&item.Status, &item.SubmittedBy, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return Proposal{}, err
	}
	return item, nil
}

func (s *PostgresStore) ListProposals(ctx context.Context, cycleID string) ([]Proposal, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, cycle_id, title, description, estimated_cost, status, submitted_by, created_at, updated_at
		FROM proposals
		WHERE cycle_id=$1
		ORDER BY created_at ASC
	`, cycleID)
	if err != nil {
		return nil, fmt.Errorf("list proposals: %w", err)
	}
	defer rows.Close()

	items := make([]Proposal, 0)
	for rows.Next() {
		var item Proposal
		if err := rows.Scan(&item.ID, &item.CycleID, &item.Title, &item.Description, &item.EstimatedCost,
			&item.Status, &item.SubmittedBy, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan proposal: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate proposals: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) UpdateProposalStatus(ctx context.Context, proposalID, status string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE proposals SET status=$2, updated_at=NOW() WHERE id=$1`, proposalID, status)
	if err != nil {
		return fmt.Errorf("update proposal status: %w", err)
	}
	return nil
}

// CastVote spends tokens from the voter's cycle grant on a proposal. The
// spend check and the insert run in one serializable transaction so two
// concurrent votes cannot overspend the grant.
func (s *PostgresStore) CastVote(ctx context.Context, vote ProposalVote, tokenGrant int) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("begin vote tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var spent int
	if err := tx.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(tokens), 0) FROM proposal_votes
		WHERE cycle_id=$1 AND voter_id=$2
	`, vote.CycleID, vote.VoterID).Scan(&spent); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("sum spent tokens: %w", err)
	}
	if spent+vote.Tokens > tokenGrant {
		return ErrInsufficientTokens
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO proposal_votes (id, cycle_id, proposal_id, voter_id, tokens)
		VALUES ($1, $2, $3, $4, $5)
	`, vote.ID, vote.CycleID, vote.ProposalID, vote.VoterID, vote.Tokens); err != nil {
		return fmt.Errorf("insert vote: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit vote tx: %w", err)
	}
	return nil
}

func (s *PostgresStore) TokensSpent(ctx context.Context, cycleID, voterID string) (int, error) {
	var spent int
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(tokens), 0) FROM proposal_votes WHERE cycle_id=$1 AND voter_id=$2
	`, cycleID, voterID).Scan(&spent)
	if err != nil {
		return 0, fmt.Errorf("tokens spent: %w", err)
	}
	return spent, nil
}

// TallyCycle aggregates votes per proposal, highest token total first.
func (s *PostgresStore) TallyCycle(ctx context.Context, cycleID string) ([]ProposalTally, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.title, COALESCE(SUM(v.tokens), 0) AS tokens, COUNT(DISTINCT v.voter_id) AS voters
		FROM proposals p
		LEFT JOIN proposal_votes v ON v.proposal_id = p.id
		WHERE p.cycle_id=$1
		GROUP BY p.id, p.title
		ORDER BY tokens DESC, p.created_at ASC
	`, cycleID)
	if err != nil {
		return nil, fmt.Errorf("tally cycle: %w", err)
	}
	defer rows.Close()

	items := make([]ProposalTally, 0)
	for rows.Next() {
		var item ProposalTally
		if err := rows.Scan(&item.ProposalID, &item.Title, &item.Tokens, &item.Voters); err != nil {
			return nil, fmt.Errorf("scan tally: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tally: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) InsertJobPosting(ctx context.Context, item JobPosting) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO job_postings (id, title, description, location, pay_note, status, posted_by)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6, $7)
	`, item.ID, item.Title, item.Description, item.Location, item.PayNote, item.Status, item.PostedBy)
	if err != nil {
		return fmt.Errorf("insert job posting: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetJobPosting(ctx context.Context, jobID string) (JobPosting, error) {
	var item JobPosting
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, description, COALESCE(location, ''), COALESCE(pay_note, ''), status, posted_by, created_at, updated_at
		FROM job_postings WHERE id=$1
	`, jobID).Scan(&item.ID, &item.Title, &item.Description, &item.Location, &item.PayNote,
		&item.Status, &item.PostedBy, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return JobPosting{}, err
	}
	return item, nil
}

func (s *PostgresStore) ListJobPostings(ctx context.Context, limit int) ([]JobPosting, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, description, COALESCE(location, ''), COALESCE(pay_note, ''), status, posted_by, created_at, updated_at
		FROM job_postings
		WHERE status='open'
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list job postings: %w", err)
	}
	defer rows.Close()

	items := make([]JobPosting, 0)
	for rows.Next() {
		var item JobPosting
		if err := rows.Scan(&item.ID, &item.Title, &item.Description, &item.Location, &item.PayNote,
			&item.Status, &item.PostedBy, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan job posting: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate job postings: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) DeleteJobPosting(ctx context.Context, jobID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM job_postings WHERE id=$1`, jobID)
	if err != nil {
		return fmt.Errorf("delete job posting: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpsertWorkerProfile(ctx context.Context, item WorkerProfile) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO worker_profiles (id, user_id, trade, bio, area, available)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE SET trade=EXCLUDED.trade, bio=EXCLUDED.bio, area=EXCLUDED.area, available=EXCLUDED.available, updated_at=NOW()
	`, item.ID, item.UserID, item.Trade, item.Bio, item.Area, item.Available)
	if err != nil {
		return fmt.Errorf("upsert worker profile: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetWorkerProfile(ctx context.Context, userID string) (WorkerProfile, error) {
	var item WorkerProfile
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, trade, COALESCE(bio, ''), COALESCE(area, ''), available, created_at, updated_at
		FROM worker_profiles WHERE user_id=$1
	`, userID).Scan(&item.ID, &item.UserID, &item.Trade, &item.Bio, &item.Area, &item.Available, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return WorkerProfile{}, err
	}
	return item, nil
}

func (s *PostgresStore) ListWorkerProfiles(ctx context.Context, trade string) ([]WorkerProfile, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, trade, COALESCE(bio, ''), COALESCE(area, ''), available, created_at, updated_at
		FROM worker_profiles
		WHERE available AND ($1 = '' OR trade = $1)
		ORDER BY updated_at DESC
	`, trade)
	if err != nil {
		return nil, fmt.Errorf("list worker profiles: %w", err)
	}
	defer rows.Close()

	items := make([]WorkerProfile, 0)
	for rows.Next() {
		var item WorkerProfile
		if err := rows.Scan(&item.ID, &item.UserID, &item.Trade, &item.Bio, &item.Area, &item.Available, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan worker profile: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate worker profiles: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) DeleteWorkerProfile(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM worker_profiles WHERE user_id=$1`, userID)
	if err != nil {
		return fmt.Errorf("delete worker profile: %w", err)
	}
	return nil
}

func (s *PostgresStore) InsertTask(ctx context.Context, item Task) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (id, issue_id, title, status, assigned_to, created_by, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, item.ID, item.IssueID, item.Title, item.Status, item.AssignedTo, item.CreatedBy, item.CompletedAt)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetTask(ctx context.Context, taskID string) (Task, error) {
	var item Task
	err := s.db.QueryRowContext(ctx, `
		SELECT id, issue_id, title, status, assigned_to, created_by, completed_at, created_at, updated_at
		FROM tasks WHERE id=$1
	`, taskID).Scan(&item.ID, &item.IssueID, &item.Title, &item.Status, &item.AssignedTo, &item.CreatedBy,
		&item.CompletedAt, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return Task{}, err
	}
	return item, nil
}

func (s *PostgresStore) ListIssueTasks(ctx context.Context, issueID string) ([]Task, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, issue_id, title, status, assigned_to, created_by, completed_at, created_at, updated_at
		FROM tasks
		WHERE issue_id=$1
		ORDER BY created_at ASC
	`, issueID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	items := make([]Task, 0)
	for rows.Next() {
		var item Task
		if err := rows.Scan(&item.ID, &item.IssueID, &item.Title, &item.Status, &item.AssignedTo,
			&item.CreatedBy, &item.CompletedAt, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) UpdateTask(ctx context.Context, taskID, status string, assignedTo *string, completedAt sql.NullTime) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE tasks
		SET status=$2, assigned_to=COALESCE($3, assigned_to), completed_at=COALESCE($4, completed_at), updated_at=NOW()
		WHERE id=$1
	`, taskID, status, assignedTo, completedAt)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update task rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
