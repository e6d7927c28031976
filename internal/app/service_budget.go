package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"jijisauti/api/internal/authz"
	"jijisauti/api/internal/export"
	"jijisauti/api/internal/ledger"
	"jijisauti/api/internal/search"
	"jijisauti/api/internal/store"
	"jijisauti/api/internal/util"
)

// cycleTransitions is the allowed budget-cycle status machine.
var cycleTransitions = map[string][]string{
	"draft":            {"open_submissions"},
	"open_submissions": {"voting"},
	"voting":           {"completed"},
	"completed":        {},
}

type CreateBudgetCycleInput struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	TotalBudget int64   `json:"totalBudget"`
	TokenGrant  int     `json:"tokenGrant"`
	OpensAt     *string `json:"opensAt,omitempty"`
	ClosesAt    *string `json:"closesAt,omitempty"`
}

// CreateBudgetCycle opens a new participatory budgeting cycle. Admin only;
// the base rule denies creation and only the admin elevation passes.
func (s *Service) CreateBudgetCycle(ctx context.Context, session Session, input CreateBudgetCycleInput) (map[string]any, error) {
	actor := session.actor()
	decision := authz.Authorize(authz.KindBudgetCycle, authz.OpCreate, actor)
	draft := authz.ApplyCreateHook(authz.KindBudgetCycle, authz.Record{}, actor)
	if !decision.Permits(actor, draft) {
		return nil, forbiddenError()
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION", "Title is required", nil)
	}
	if input.TotalBudget <= 0 {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION", "Total budget must be positive", nil)
	}
	tokenGrant := input.TokenGrant
	if tokenGrant <= 0 {
		tokenGrant = 10
	}

	opensAt, err := parseOptionalTime(input.OpensAt)
	if err != nil {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION", "Invalid opensAt", nil)
	}
	closesAt, err := parseOptionalTime(input.ClosesAt)
	if err != nil {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION", "Invalid closesAt", nil)
	}

	cycle := store.BudgetCycle{
		ID:          util.NewID("cyc"),
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		Status:      "draft",
		TotalBudget: input.TotalBudget,
		TokenGrant:  tokenGrant,
		OpensAt:     opensAt,
		ClosesAt:    closesAt,
	}
	if createdBy, ok := draft["created_by"].(string); ok {
		cycle.CreatedBy = &createdBy
	}

	if err := s.store.InsertBudgetCycle(ctx, cycle); err != nil {
		return nil, fmt.Errorf("insert budget cycle: %w", err)
	}

	if _, err := s.ledger.Append(cycle.ID, ledger.Entry{
		Kind:  "budget_cycle",
		Event: "created",
		To:    cycle.Status,
	}, session.UserName); err != nil {
		log.Printf("ledger append failed for cycle %s: %v", cycle.ID, err)
	}
	return cycleView(cycle), nil
}

func (s *Service) GetBudgetCycle(ctx context.Context, session Session, cycleID string) (map[string]any, error) {
	cycle, err := s.store.GetBudgetCycle(ctx, cycleID)
	if err != nil {
		return nil, err
	}
	actor := session.actor()
	decision := authz.Authorize(authz.KindBudgetCycle, authz.OpRead, actor)
	if !decision.Permits(actor, cycleRecord(cycle)) {
		return nil, domainError(http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
	view := cycleView(cycle)
	if actor != nil {
		spent, err := s.store.TokensSpent(ctx, cycleID, actor.ID)
		if err == nil {
			view["tokensSpent"] = spent
			view["tokensRemaining"] = cycle.TokenGrant - spent
		}
	}
	return view, nil
}

func (s *Service) ListBudgetCycles(ctx context.Context, session Session) ([]map[string]any, error) {
	actor := session.actor()
	var statuses []string
	if actor == nil || actor.Role != authz.RoleAdmin {
		statuses = []string{"open_submissions", "voting", "completed"}
	}
	cycles, err := s.store.ListBudgetCycles(ctx, statuses)
	if err != nil {
		return nil, err
	}
	views := make([]map[string]any, 0, len(cycles))
	for _, cycle := range cycles {
		views = append(views, cycleView(cycle))
	}
	return views, nil
}

// AdvanceBudgetCycle moves a cycle along draft → open_submissions → voting →
// completed. Admin only. Completing a cycle publishes the tally to the
// transparency ledger.
func (s *Service) AdvanceBudgetCycle(ctx context.Context, session Session, cycleID, status string) (map[string]any, error) {
	actor := session.actor()
	decision := authz.Authorize(authz.KindBudgetCycle, authz.OpUpdate, actor)
	cycle, err := s.store.GetBudgetCycle(ctx, cycleID)
	if err != nil {
		return nil, err
	}
	if !decision.Permits(actor, cycleRecord(cycle)) {
		return nil, forbiddenError()
	}

	allowed := false
	for _, next := range cycleTransitions[cycle.Status] {
		if next == status {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION",
			fmt.Sprintf("Cannot move cycle from %s to %s", cycle.Status, status), nil)
	}

	if err := s.store.UpdateBudgetCycleStatus(ctx, cycleID, status); err != nil {
		return nil, err
	}

	entry := ledger.Entry{
		Kind:  "budget_cycle",
		Event: "status_change",
		From:  cycle.Status,
		To:    status,
	}
	if status == "completed" {
		tally, err := s.store.TallyCycle(ctx, cycleID)
		if err != nil {
			return nil, fmt.Errorf("tally cycle: %w", err)
		}
		entry.Event = "results_published"
		entry.Details = map[string]string{}
		for i, row := range tally {
			entry.Details[fmt.Sprintf("%02d_%s", i+1, row.ProposalID)] =
				fmt.Sprintf("%s: %d tokens from %d voters", row.Title, row.Tokens, row.Voters)
		}
	}
	if _, err := s.ledger.Append(cycleID, entry, session.UserName); err != nil {
		log.Printf("ledger append failed for cycle %s: %v", cycleID, err)
	}

	cycle.Status = status
	// Opening a cycle makes its proposals publicly searchable.
	if status == "open_submissions" || status == "voting" {
		if proposals, err := s.store.ListProposals(ctx, cycleID); err == nil {
			for _, proposal := range proposals {
				s.search.IndexProposal(proposalSearchRecord(proposal))
			}
		}
	}
	return cycleView(cycle), nil
}

type SubmitProposalInput struct {
	Title         string `json:"title"`
	Description   string `json:"description"`
	EstimatedCost int64  `json:"estimatedCost"`
}

func (s *Service) SubmitProposal(ctx context.Context, session Session, cycleID string, input SubmitProposalInput) (map[string]any, error) {
	cycle, err := s.store.GetBudgetCycle(ctx, cycleID)
	if err != nil {
		return nil, err
	}
	if cycle.Status != "open_submissions" {
		return nil, domainError(http.StatusUnprocessableEntity, "CYCLE_CLOSED", "The cycle is not accepting proposals", nil)
	}

	actor := session.actor()
	decision := authz.Authorize(authz.KindProposal, authz.OpCreate, actor)
	draft := authz.ApplyCreateHook(authz.KindProposal, authz.Record{}, actor)
	if !decision.Permits(actor, draft) {
		return nil, forbiddenError()
	}

	title := strings.TrimSpace(input.Title)
	description := strings.TrimSpace(input.Description)
	if title == "" || description == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION", "Title and description are required", nil)
	}
	if input.EstimatedCost <= 0 {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION", "Estimated cost must be positive", nil)
	}
	if input.EstimatedCost > cycle.TotalBudget {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION", "Estimated cost exceeds the cycle budget", nil)
	}

	proposal := store.Proposal{
		ID:            util.NewID("prp"),
		CycleID:       cycleID,
		Title:         title,
		Description:   description,
		EstimatedCost: input.EstimatedCost,
		Status:        "submitted",
	}
	if submittedBy, ok := draft["submitted_by"].(string); ok {
		proposal.SubmittedBy = &submittedBy
	}

	if err := s.store.InsertProposal(ctx, proposal); err != nil {
		return nil, fmt.Errorf("insert proposal: %w", err)
	}

	s.search.IndexProposal(proposalSearchRecord(proposal))
	return proposalView(proposal), nil
}

func (s *Service) ListProposals(ctx context.Context, session Session, cycleID string) ([]map[string]any, error) {
	cycle, err := s.store.GetBudgetCycle(ctx, cycleID)
	if err != nil {
		return nil, err
	}
	actor := session.actor()
	decision := authz.Authorize(authz.KindBudgetCycle, authz.OpRead, actor)
	if !decision.Permits(actor, cycleRecord(cycle)) {
		return nil, domainError(http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}

	proposals, err := s.store.ListProposals(ctx, cycleID)
	if err != nil {
		return nil, err
	}
	views := make([]map[string]any, 0, len(proposals))
	for _, proposal := range proposals {
		views = append(views, proposalView(proposal))
	}
	return views, nil
}

type CastVoteInput struct {
	Tokens int `json:"tokens"`
}

// CastVote spends a resident's voting tokens on a proposal. The store
// enforces the per-cycle token budget atomically.
func (s *Service) CastVote(ctx context.Context, session Session, proposalID string, input CastVoteInput) (map[string]any, error) {
	actor := session.actor()
	decision := authz.Authorize(authz.KindProposalVote, authz.OpCreate, actor)
	draft := authz.ApplyCreateHook(authz.KindProposalVote, authz.Record{}, actor)
	if !decision.Permits(actor, draft) {
		return nil, forbiddenError()
	}

	if input.Tokens <= 0 {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION", "Tokens must be positive", nil)
	}

	proposal, err := s.store.GetProposal(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	cycle, err := s.store.GetBudgetCycle(ctx, proposal.CycleID)
	if err != nil {
		return nil, err
	}
	if cycle.Status != "voting" {
		return nil, domainError(http.StatusUnprocessableEntity, "CYCLE_NOT_VOTING", "The cycle is not in its voting phase", nil)
	}

	vote := store.ProposalVote{
		ID:         util.NewID("vot"),
		CycleID:    cycle.ID,
		ProposalID: proposalID,
		VoterID:    actor.ID,
		Tokens:     input.Tokens,
	}
	if err := s.store.CastVote(ctx, vote, cycle.TokenGrant); err != nil {
		if errors.Is(err, store.ErrInsufficientTokens) {
			return nil, domainError(http.StatusUnprocessableEntity, "INSUFFICIENT_TOKENS", "Not enough voting tokens left in this cycle", nil)
		}
		return nil, err
	}

	spent, err := s.store.TokensSpent(ctx, cycle.ID, actor.ID)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"voteId":          vote.ID,
		"proposalId":      proposalID,
		"cycleId":         cycle.ID,
		"tokens":          input.Tokens,
		"tokensSpent":     spent,
		"tokensRemaining": cycle.TokenGrant - spent,
	}, nil
}

// CycleTally returns the live token totals per proposal. Public once the
// cycle itself is visible.
func (s *Service) CycleTally(ctx context.Context, session Session, cycleID string) (map[string]any, error) {
	cycle, err := s.store.GetBudgetCycle(ctx, cycleID)
	if err != nil {
		return nil, err
	}
	actor := session.actor()
	decision := authz.Authorize(authz.KindBudgetCycle, authz.OpRead, actor)
	if !decision.Permits(actor, cycleRecord(cycle)) {
		return nil, domainError(http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}

	tally, err := s.store.TallyCycle(ctx, cycleID)
	if err != nil {
		return nil, fmt.Errorf("tally cycle: %w", err)
	}
	rows := make([]map[string]any, 0, len(tally))
	for _, row := range tally {
		rows = append(rows, map[string]any{
			"proposalId": row.ProposalID,
			"title":      row.Title,
			"tokens":     row.Tokens,
			"voters":     row.Voters,
		})
	}
	return map[string]any{
		"cycleId": cycleID,
		"status":  cycle.Status,
		"tally":   rows,
	}, nil
}

// ExportCycleResults renders a completed cycle's results as a document.
func (s *Service) ExportCycleResults(ctx context.Context, session Session, cycleID, format string) (*export.Result, error) {
	if s.exporter == nil {
		return nil, domainError(http.StatusServiceUnavailable, "EXPORT_UNAVAILABLE", "Exports are not configured", nil)
	}
	cycle, err := s.store.GetBudgetCycle(ctx, cycleID)
	if err != nil {
		return nil, err
	}
	actor := session.actor()
	decision := authz.Authorize(authz.KindBudgetCycle, authz.OpRead, actor)
	if !decision.Permits(actor, cycleRecord(cycle)) {
		return nil, domainError(http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}

	result, err := s.exporter.ExportBudgetResults(ctx, cycleID, export.Format(format))
	if err != nil {
		if errors.Is(err, export.ErrUnsupportedFormat) {
			return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION", "Unsupported export format", nil)
		}
		return nil, err
	}
	return result, nil
}

func cycleRecord(cycle store.BudgetCycle) authz.Record {
	record := authz.Record{
		"status": cycle.Status,
	}
	if cycle.CreatedBy != nil {
		record["created_by"] = *cycle.CreatedBy
	}
	return record
}

func cycleView(cycle store.BudgetCycle) map[string]any {
	view := map[string]any{
		"id":          cycle.ID,
		"title":       cycle.Title,
		"description": cycle.Description,
		"status":      cycle.Status,
		"totalBudget": cycle.TotalBudget,
		"tokenGrant":  cycle.TokenGrant,
		"createdAt":   cycle.CreatedAt,
		"updatedAt":   cycle.UpdatedAt,
	}
	if cycle.OpensAt != nil {
		view["opensAt"] = *cycle.OpensAt
	}
	if cycle.ClosesAt != nil {
		view["closesAt"] = *cycle.ClosesAt
	}
	return view
}

func proposalView(proposal store.Proposal) map[string]any {
	view := map[string]any{
		"id":            proposal.ID,
		"cycleId":       proposal.CycleID,
		"title":         proposal.Title,
		"description":   proposal.Description,
		"estimatedCost": proposal.EstimatedCost,
		"status":        proposal.Status,
		"createdAt":     proposal.CreatedAt,
		"updatedAt":     proposal.UpdatedAt,
	}
	if proposal.SubmittedBy != nil {
		view["submittedBy"] = *proposal.SubmittedBy
	}
	return view
}

func proposalSearchRecord(proposal store.Proposal) search.ProposalRecord {
	return search.ProposalRecord{
		ID:          proposal.ID,
		Title:       proposal.Title,
		Description: proposal.Description,
		CycleID:     proposal.CycleID,
		Status:      proposal.Status,
	}
}
