package app

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"jijisauti/api/internal/config"
	"jijisauti/api/internal/export"
	"jijisauti/api/internal/ledger"
	"jijisauti/api/internal/search"
	"jijisauti/api/internal/store"
)

type fakeStore struct {
	getUserByIDFn     func(context.Context, string) (store.User, error)
	insertIssueFn     func(context.Context, store.Issue) error
	getIssueFn        func(context.Context, string) (store.Issue, error)
	listIssuesFn      func(context.Context, *string, bool, int) ([]store.Issue, error)
	updateIssueFn     func(context.Context, string, string) error
	assignOfficialFn  func(context.Context, string, string) error
	grantCreditsFn    func(context.Context, string, string, int, string, string) error
	getCycleFn        func(context.Context, string) (store.BudgetCycle, error)
	insertCycleFn     func(context.Context, store.BudgetCycle) error
	updateCycleFn     func(context.Context, string, string) error
	insertProposalFn  func(context.Context, store.Proposal) error
	getProposalFn     func(context.Context, string) (store.Proposal, error)
	castVoteFn        func(context.Context, store.ProposalVote, int) error
	tokensSpentFn     func(context.Context, string, string) (int, error)
	tallyCycleFn      func(context.Context, string) ([]store.ProposalTally, error)
	getJobFn          func(context.Context, string) (store.JobPosting, error)
	deleteJobFn       func(context.Context, string) error
	insertTaskFn      func(context.Context, store.Task) error
	getTaskFn         func(context.Context, string) (store.Task, error)
	updateTaskFn      func(context.Context, string, string, *string, sql.NullTime) error
	getWorkerFn       func(context.Context, string) (store.WorkerProfile, error)
	upsertWorkerFn    func(context.Context, store.WorkerProfile) error
	insertEvidenceFn  func(context.Context, store.EvidenceObject) error
	listEvidenceFn    func(context.Context, string) ([]store.EvidenceObject, error)
	isRevokedFn       func(context.Context, string) (bool, error)
	listProposalsFn   func(context.Context, string) ([]store.Proposal, error)
	getCampaignFn     func(context.Context, string) (store.Campaign, error)
	insertCampaignFn  func(context.Context, store.Campaign) error
	updateCampaignFn  func(context.Context, string, string, string, string) error
	listCampaignsFn   func(context.Context, *string, bool) ([]store.Campaign, error)
	creditsBalanceFn  func(context.Context, string) (int, error)
	listCreditTxnsFn  func(context.Context, string, int) ([]store.CreditTransaction, error)
	summaryCountsFn   func(context.Context) (int, int, int, error)
	saveRefreshFn     func(context.Context, string, string, time.Time) error
	lookupRefreshFn   func(context.Context, string) (store.User, error)
	listBudgetCyclesFn func(context.Context, []string) ([]store.BudgetCycle, error)
}

func (f *fakeStore) GetUserByID(ctx context.Context, id string) (store.User, error) {
	if f.getUserByIDFn != nil {
		return f.getUserByIDFn(ctx, id)
	}
	return store.User{ID: id, DisplayName: "Test User", Role: "resident"}, nil
}
func (f *fakeStore) GetUserByEmail(context.Context, string) (store.User, error) {
	return store.User{}, sql.ErrNoRows
}
func (f *fakeStore) CreateUser(context.Context, store.User) error { return nil }
func (f *fakeStore) SaveRefreshSession(ctx context.Context, hash, userID string, exp time.Time) error {
	if f.saveRefreshFn != nil {
		return f.saveRefreshFn(ctx, hash, userID, exp)
	}
	return nil
}
func (f *fakeStore) LookupRefreshSession(ctx context.Context, hash string) (store.User, error) {
	if f.lookupRefreshFn != nil {
		return f.lookupRefreshFn(ctx, hash)
	}
	return store.User{}, sql.ErrNoRows
}
func (f *fakeStore) RevokeRefreshSession(context.Context, string) error       { return nil }
func (f *fakeStore) RevokeAccessToken(context.Context, string, time.Time) error { return nil }
func (f *fakeStore) IsAccessTokenRevoked(ctx context.Context, jti string) (bool, error) {
	if f.isRevokedFn != nil {
		return f.isRevokedFn(ctx, jti)
	}
	return false, nil
}

func (f *fakeStore) GrantCredits(ctx context.Context, txnID, userID string, amount int, reason, refID string) error {
	if f.grantCreditsFn != nil {
		return f.grantCreditsFn(ctx, txnID, userID, amount, reason, refID)
	}
	return nil
}
func (f *fakeStore) CreditsBalance(ctx context.Context, userID string) (int, error) {
	if f.creditsBalanceFn != nil {
		return f.creditsBalanceFn(ctx, userID)
	}
	return 0, nil
}
func (f *fakeStore) ListCreditTransactions(ctx context.Context, userID string, limit int) ([]store.CreditTransaction, error) {
	if f.listCreditTxnsFn != nil {
		return f.listCreditTxnsFn(ctx, userID, limit)
	}
	return nil, nil
}
func (f *fakeStore) SummaryCounts(ctx context.Context) (int, int, int, error) {
	if f.summaryCountsFn != nil {
		return f.summaryCountsFn(ctx)
	}
	return 0, 0, 0, nil
}

func (f *fakeStore) InsertIssue(ctx context.Context, item store.Issue) error {
	if f.insertIssueFn != nil {
		return f.insertIssueFn(ctx, item)
	}
	return nil
}
func (f *fakeStore) GetIssue(ctx context.Context, id string) (store.Issue, error) {
	if f.getIssueFn != nil {
		return f.getIssueFn(ctx, id)
	}
	return store.Issue{}, sql.ErrNoRows
}
func (f *fakeStore) ListIssues(ctx context.Context, viewerID *string, includeAll bool, limit int) ([]store.Issue, error) {
	if f.listIssuesFn != nil {
		return f.listIssuesFn(ctx, viewerID, includeAll, limit)
	}
	return nil, nil
}
func (f *fakeStore) UpdateIssueStatus(ctx context.Context, id, status string) error {
	if f.updateIssueFn != nil {
		return f.updateIssueFn(ctx, id, status)
	}
	return nil
}
func (f *fakeStore) AssignOfficial(ctx context.Context, issueID, officialID string) error {
	if f.assignOfficialFn != nil {
		return f.assignOfficialFn(ctx, issueID, officialID)
	}
	return nil
}
func (f *fakeStore) InsertEvidence(ctx context.Context, item store.EvidenceObject) error {
	if f.insertEvidenceFn != nil {
		return f.insertEvidenceFn(ctx, item)
	}
	return nil
}
func (f *fakeStore) ListIssueEvidence(ctx context.Context, issueID string) ([]store.EvidenceObject, error) {
	if f.listEvidenceFn != nil {
		return f.listEvidenceFn(ctx, issueID)
	}
	return nil, nil
}

func (f *fakeStore) InsertCampaign(ctx context.Context, item store.Campaign) error {
	if f.insertCampaignFn != nil {
		return f.insertCampaignFn(ctx, item)
	}
	return nil
}
func (f *fakeStore) GetCampaign(ctx context.Context, id string) (store.Campaign, error) {
	if f.getCampaignFn != nil {
		return f.getCampaignFn(ctx, id)
	}
	return store.Campaign{}, sql.ErrNoRows
}
func (f *fakeStore) ListCampaigns(ctx context.Context, viewerID *string, includeAll bool) ([]store.Campaign, error) {
	if f.listCampaignsFn != nil {
		return f.listCampaignsFn(ctx, viewerID, includeAll)
	}
	return nil, nil
}
func (f *fakeStore) UpdateCampaign(ctx context.Context, id, title, description, status string) error {
	if f.updateCampaignFn != nil {
		return f.updateCampaignFn(ctx, id, title, description, status)
	}
	return nil
}
func (f *fakeStore) InsertEvent(context.Context, store.Event) error { return nil }
func (f *fakeStore) ListEvents(context.Context, *string, bool) ([]store.Event, error) {
	return nil, nil
}

func (f *fakeStore) InsertBudgetCycle(ctx context.Context, item store.BudgetCycle) error {
	if f.insertCycleFn != nil {
		return f.insertCycleFn(ctx, item)
	}
	return nil
}
func (f *fakeStore) GetBudgetCycle(ctx context.Context, id string) (store.BudgetCycle, error) {
	if f.getCycleFn != nil {
		return f.getCycleFn(ctx, id)
	}
	return store.BudgetCycle{}, sql.ErrNoRows
}
func (f *fakeStore) ListBudgetCycles(ctx context.Context, statuses []string) ([]store.BudgetCycle, error) {
	if f.listBudgetCyclesFn != nil {
		return f.listBudgetCyclesFn(ctx, statuses)
	}
	return nil, nil
}
func (f *fakeStore) UpdateBudgetCycleStatus(ctx context.Context, id, status string) error {
	if f.updateCycleFn != nil {
		return f.updateCycleFn(ctx, id, status)
	}
	return nil
}
func (f *fakeStore) InsertProposal(ctx context.Context, item store.Proposal) error {
	if f.insertProposalFn != nil {
		return f.insertProposalFn(ctx, item)
	}
	return nil
}
func (f *fakeStore) GetProposal(ctx context.Context, id string) (store.Proposal, error) {
	if f.getProposalFn != nil {
		return f.getProposalFn(ctx, id)
	}
	return store.Proposal{}, sql.ErrNoRows
}
func (f *fakeStore) ListProposals(ctx context.Context, cycleID string) ([]store.Proposal, error) {
	if f.listProposalsFn != nil {
		return f.listProposalsFn(ctx, cycleID)
	}
	return nil, nil
}
func (f *fakeStore) UpdateProposalStatus(context.Context, string, string) error { return nil }
func (f *fakeStore) CastVote(ctx context.Context, vote store.ProposalVote, tokenGrant int) error {
	if f.castVoteFn != nil {
		return f.castVoteFn(ctx, vote, tokenGrant)
	}
	return nil
}
func (f *fakeStore) TokensSpent(ctx context.Context, cycleID, voterID string) (int, error) {
	if f.tokensSpentFn != nil {
		return f.tokensSpentFn(ctx, cycleID, voterID)
	}
	return 0, nil
}
func (f *fakeStore) TallyCycle(ctx context.Context, cycleID string) ([]store.ProposalTally, error) {
	if f.tallyCycleFn != nil {
		return f.tallyCycleFn(ctx, cycleID)
	}
	return nil, nil
}

func (f *fakeStore) InsertJobPosting(context.Context, store.JobPosting) error { return nil }
func (f *fakeStore) GetJobPosting(ctx context.Context, id string) (store.JobPosting, error) {
	if f.getJobFn != nil {
		return f.getJobFn(ctx, id)
	}
	return store.JobPosting{}, sql.ErrNoRows
}
func (f *fakeStore) ListJobPostings(context.Context, int) ([]store.JobPosting, error) {
	return nil, nil
}
func (f *fakeStore) DeleteJobPosting(ctx context.Context, id string) error {
	if f.deleteJobFn != nil {
		return f.deleteJobFn(ctx, id)
	}
	return nil
}
func (f *fakeStore) UpsertWorkerProfile(ctx context.Context, item store.WorkerProfile) error {
	if f.upsertWorkerFn != nil {
		return f.upsertWorkerFn(ctx, item)
	}
	return nil
}
func (f *fakeStore) GetWorkerProfile(ctx context.Context, userID string) (store.WorkerProfile, error) {
	if f.getWorkerFn != nil {
		return f.getWorkerFn(ctx, userID)
	}
	return store.WorkerProfile{}, sql.ErrNoRows
}
func (f *fakeStore) ListWorkerProfiles(context.Context, string) ([]store.WorkerProfile, error) {
	return nil, nil
}
func (f *fakeStore) DeleteWorkerProfile(context.Context, string) error { return nil }
func (f *fakeStore) InsertTask(ctx context.Context, item store.Task) error {
	if f.insertTaskFn != nil {
		return f.insertTaskFn(ctx, item)
	}
	return nil
}
func (f *fakeStore) GetTask(ctx context.Context, id string) (store.Task, error) {
	if f.getTaskFn != nil {
		return f.getTaskFn(ctx, id)
	}
	return store.Task{}, sql.ErrNoRows
}
func (f *fakeStore) ListIssueTasks(context.Context, string) ([]store.Task, error) { return nil, nil }
func (f *fakeStore) UpdateTask(ctx context.Context, taskID, status string, assignedTo *string, completedAt sql.NullTime) error {
	if f.updateTaskFn != nil {
		return f.updateTaskFn(ctx, taskID, status, assignedTo, completedAt)
	}
	return nil
}
func (f *fakeStore) Ping(context.Context) error { return nil }

// fakeLedger records appended entries in memory.
type fakeLedger struct {
	mu      sync.Mutex
	entries map[string][]ledger.Entry
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{entries: make(map[string][]ledger.Entry)}
}

func (f *fakeLedger) Append(entityID string, entry ledger.Entry, actor string) (store.CommitInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry.EntityID = entityID
	if entry.RecordedAt.IsZero() {
		entry.RecordedAt = time.Now().UTC()
	}
	f.entries[entityID] = append(f.entries[entityID], entry)
	return store.CommitInfo{Hash: "fake", Author: actor, CreatedAt: entry.RecordedAt}, nil
}

func (f *fakeLedger) Entries(entityID string) ([]ledger.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ledger.Entry{}, f.entries[entityID]...), nil
}

func (f *fakeLedger) History(entityID string, limit int) ([]store.CommitInfo, error) {
	return nil, nil
}

// fakeSearch records index calls.
type fakeSearch struct {
	mu      sync.Mutex
	indexed []string
}

func (f *fakeSearch) Search(q search.Query) search.Response {
	return search.Response{Results: []search.Result{}, Query: q.Text}
}
func (f *fakeSearch) IndexIssue(rec search.IssueRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.indexed = append(f.indexed, "issue:"+rec.ID)
}
func (f *fakeSearch) IndexCampaign(rec search.CampaignRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.indexed = append(f.indexed, "campaign:"+rec.ID)
}
func (f *fakeSearch) IndexProposal(rec search.ProposalRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.indexed = append(f.indexed, "proposal:"+rec.ID)
}
func (f *fakeSearch) DeleteCampaign(id string) {}

type fakeExporter struct{}

func (f *fakeExporter) ExportIssueReport(ctx context.Context, issueID string, format export.Format, includeEvidence bool) (*export.Result, error) {
	if format != export.FormatPDF && format != export.FormatDOCX {
		return nil, export.ErrUnsupportedFormat
	}
	return &export.Result{Data: []byte("doc"), Filename: issueID + ".pdf", MimeType: "application/pdf"}, nil
}

func (f *fakeExporter) ExportBudgetResults(ctx context.Context, cycleID string, format export.Format) (*export.Result, error) {
	return &export.Result{Data: []byte("doc"), Filename: cycleID + ".pdf", MimeType: "application/pdf"}, nil
}

func newTestService(fs *fakeStore) *Service {
	return &Service{
		cfg: config.Config{
			JWTSecret:  "test-secret",
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 24 * time.Hour,
		},
		store:    fs,
		sessions: fs,
		ledger:   newFakeLedger(),
		search:   &fakeSearch{},
		exporter: &fakeExporter{},
	}
}

func residentSession(id string) Session {
	return Session{UserID: id, UserName: "Resident " + id, Role: "resident", Verified: true}
}

func TestSessionRoundTrip(t *testing.T) {
	fs := &fakeStore{
		getUserByIDFn: func(_ context.Context, id string) (store.User, error) {
			return store.User{ID: id, DisplayName: "Wanjiru", Role: "official", IsVerified: true}, nil
		},
	}
	svc := newTestService(fs)

	issued, err := svc.issueSession(context.Background(), store.User{
		ID: "usr-1", DisplayName: "Wanjiru", Role: "official", IsVerified: true,
	})
	if err != nil {
		t.Fatalf("issueSession: %v", err)
	}
	if issued.Token == "" || issued.RefreshToken == "" {
		t.Fatal("expected both tokens to be issued")
	}

	parsed, err := svc.SessionFromToken(context.Background(), issued.Token)
	if err != nil {
		t.Fatalf("SessionFromToken: %v", err)
	}
	if parsed.UserID != "usr-1" || parsed.Role != "official" || !parsed.Verified {
		t.Fatalf("unexpected session: %+v", parsed)
	}
}

func TestSessionFromTokenRejectsRevoked(t *testing.T) {
	fs := &fakeStore{
		isRevokedFn: func(context.Context, string) (bool, error) { return true, nil },
	}
	svc := newTestService(fs)

	issued, err := svc.issueSession(context.Background(), store.User{ID: "usr-1", DisplayName: "A", Role: "resident"})
	if err != nil {
		t.Fatalf("issueSession: %v", err)
	}
	if _, err := svc.SessionFromToken(context.Background(), issued.Token); err == nil {
		t.Fatal("expected revoked token to be rejected")
	}
}
