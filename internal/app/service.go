package app

import (
	"context"
	"database/sql"
	"io"
	"net/http"
	"time"

	"jijisauti/api/internal/auth"
	"jijisauti/api/internal/authpw"
	"jijisauti/api/internal/authz"
	"jijisauti/api/internal/config"
	"jijisauti/api/internal/email"
	"jijisauti/api/internal/export"
	"jijisauti/api/internal/ledger"
	"jijisauti/api/internal/media"
	"jijisauti/api/internal/search"
	"jijisauti/api/internal/session"
	"jijisauti/api/internal/store"
	"jijisauti/api/internal/util"
)

type Session struct {
	Token        string
	RefreshToken string
	UserID       string
	UserName     string
	Role         string
	Verified     bool
	JTI          string
	ExpiresAt    time.Time
}

// actor translates a session into the identity the access rules evaluate.
// The zero session (no authenticated user) maps to a nil actor.
func (s Session) actor() *authz.Actor {
	if s.UserID == "" {
		return nil
	}
	return &authz.Actor{
		ID:       s.UserID,
		Role:     authz.NormalizeRole(s.Role),
		Verified: s.Verified,
	}
}

type dataStore interface {
	GetUserByID(context.Context, string) (store.User, error)
	GetUserByEmail(context.Context, string) (store.User, error)
	CreateUser(context.Context, store.User) error
	SaveRefreshSession(context.Context, string, string, time.Time) error
	LookupRefreshSession(context.Context, string) (store.User, error)
	RevokeRefreshSession(context.Context, string) error
	RevokeAccessToken(context.Context, string, time.Time) error
	IsAccessTokenRevoked(context.Context, string) (bool, error)

	GrantCredits(ctx context.Context, txnID, userID string, amount int, reason, refID string) error
	CreditsBalance(context.Context, string) (int, error)
	ListCreditTransactions(context.Context, string, int) ([]store.CreditTransaction, error)
	SummaryCounts(context.Context) (int, int, int, error)

	InsertIssue(context.Context, store.Issue) error
	GetIssue(context.Context, string) (store.Issue, error)
	ListIssues(ctx context.Context, viewerID *string, includeAll bool, limit int) ([]store.Issue, error)
	UpdateIssueStatus(context.Context, string, string) error
	AssignOfficial(context.Context, string, string) error
	InsertEvidence(context.Context, store.EvidenceObject) error
	ListIssueEvidence(context.Context, string) ([]store.EvidenceObject, error)

	InsertCampaign(context.Context, store.Campaign) error
	GetCampaign(context.Context, string) (store.Campaign, error)
	ListCampaigns(ctx context.Context, viewerID *string, includeAll bool) ([]store.Campaign, error)
	UpdateCampaign(ctx context.Context, campaignID, title, description, status string) error
	InsertEvent(context.Context, store.Event) error
	ListEvents(ctx context.Context, viewerID *string, includeAll bool) ([]store.Event, error)

	InsertBudgetCycle(context.Context, store.BudgetCycle) error
	GetBudgetCycle(context.Context, string) (store.BudgetCycle, error)
	ListBudgetCycles(context.Context, []string) ([]store.BudgetCycle, error)
	UpdateBudgetCycleStatus(context.Context, string, string) error
	InsertProposal(context.Context, store.Proposal) error
	GetProposal(context.Context, string) (store.Proposal, error)
	ListProposals(context.Context, string) ([]store.Proposal, error)
	UpdateProposalStatus(context.Context, string, string) error
	CastVote(ctx context.Context, vote store.ProposalVote, tokenGrant int) error
	TokensSpent(ctx context.Context, cycleID, voterID string) (int, error)
	TallyCycle(context.Context, string) ([]store.ProposalTally, error)

	InsertJobPosting(context.Context, store.JobPosting) error
	GetJobPosting(context.Context, string) (store.JobPosting, error)
	ListJobPostings(context.Context, int) ([]store.JobPosting, error)
	DeleteJobPosting(context.Context, string) error
	UpsertWorkerProfile(context.Context, store.WorkerProfile) error
	GetWorkerProfile(context.Context, string) (store.WorkerProfile, error)
	ListWorkerProfiles(context.Context, string) ([]store.WorkerProfile, error)
	DeleteWorkerProfile(context.Context, string) error
	InsertTask(context.Context, store.Task) error
	GetTask(context.Context, string) (store.Task, error)
	ListIssueTasks(context.Context, string) ([]store.Task, error)
	UpdateTask(ctx context.Context, taskID, status string, assignedTo *string, completedAt sql.NullTime) error

	Ping(ctx context.Context) error
}

// refreshStore holds refresh sessions. Postgres serves by default; Redis
// takes over when configured.
type refreshStore interface {
	SaveRefreshSession(ctx context.Context, tokenHash, userID string, expiresAt time.Time) error
	LookupRefreshSession(ctx context.Context, tokenHash string) (store.User, error)
	RevokeRefreshSession(ctx context.Context, tokenHash string) error
}

// ledgerService is the transparency log for issues and budget cycles.
type ledgerService interface {
	Append(entityID string, entry ledger.Entry, actor string) (store.CommitInfo, error)
	Entries(entityID string) ([]ledger.Entry, error)
	History(entityID string, limit int) ([]store.CommitInfo, error)
}

// searchService indexes entities and serves full-text queries.
type searchService interface {
	Search(q search.Query) search.Response
	IndexIssue(rec search.IssueRecord)
	IndexCampaign(rec search.CampaignRecord)
	IndexProposal(rec search.ProposalRecord)
	DeleteCampaign(id string)
}

// mailService sends transactional notifications. Nil means SMTP is not
// configured and every send is skipped.
type mailService interface {
	IsConfigured() bool
	SendIssueReceivedEmail(to, userName, issueTitle, issueID string, credits int) error
	SendIssueAssignedEmail(to, officialName, issueTitle, issueID, category string, urgency int) error
}

// evidenceStore is object storage for issue evidence.
type evidenceStore interface {
	PutEvidence(ctx context.Context, issueID, name, mimeType string, reader io.Reader, size int64) (string, error)
	PresignGet(ctx context.Context, objectKey string, expiry time.Duration) (string, error)
}

// reportExporter renders issue reports and cycle results.
type reportExporter interface {
	ExportIssueReport(ctx context.Context, issueID string, format export.Format, includeEvidence bool) (*export.Result, error)
	ExportBudgetResults(ctx context.Context, cycleID string, format export.Format) (*export.Result, error)
}

type Service struct {
	cfg      config.Config
	store    dataStore
	sessions refreshStore
	ledger   ledgerService
	search   searchService
	mail     mailService
	media    evidenceStore
	exporter reportExporter
	authpw   *authpw.Service
}

func New(cfg config.Config, dataStore *store.PostgresStore, ledgerSvc *ledger.Service, searchSvc *search.Service) *Service {
	return &Service{
		cfg:      cfg,
		store:    dataStore,
		sessions: dataStore,
		ledger:   ledgerSvc,
		search:   searchSvc,
	}
}

// NewWithSessionStore is New with refresh sessions held in Redis instead of
// postgres.
func NewWithSessionStore(cfg config.Config, dataStore *store.PostgresStore, sessionStore *session.RedisStore, ledgerSvc *ledger.Service, searchSvc *search.Service) *Service {
	svc := New(cfg, dataStore, ledgerSvc, searchSvc)
	svc.sessions = sessionStore
	return svc
}

func (s *Service) SetAuthPassword(svc *authpw.Service) { s.authpw = svc }

func (s *Service) AuthPasswordService() *authpw.Service { return s.authpw }

func (s *Service) SetEmail(svc *email.Service) {
	if svc != nil {
		s.mail = svc
	}
}

func (s *Service) SMTPConfigured() bool {
	return s.mail != nil && s.mail.IsConfigured()
}

func (s *Service) SetMedia(m *media.Store) {
	if m != nil {
		s.media = m
	}
}

func (s *Service) SetExporter(e *export.Service) {
	if e != nil {
		s.exporter = e
	}
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// Bootstrap seeds an empty database with a first budget cycle and a couple
// of public sample issues so the frontend has something to show. It is a
// no-op once any issue exists.
func (s *Service) Bootstrap(ctx context.Context) error {
	issues, err := s.store.ListIssues(ctx, nil, true, 1)
	if err != nil {
		return err
	}
	if len(issues) > 0 {
		return nil
	}

	seeds := []store.Issue{
		{
			ID:          util.NewID("iss"),
			Category:    "roads",
			Subcategory: "pothole",
			Title:       "Pothole cluster on Moi Avenue service lane",
			Description: "Three deep potholes near the matatu stage flood every rain and force boda riders onto the walkway.",
			Address:     "Moi Avenue, opposite the wholesale market",
			Urgency:     3,
			Status:      "reported",
			IsPublic:    true,
		},
		{
			ID:          util.NewID("iss"),
			Category:    "sewage",
			Subcategory: "overflow",
			Title:       "Sewage overflow behind Kariokor market stalls",
			Description: "Open sewage pooling behind the food stalls for a week, vendors report a strong smell and flies.",
			Address:     "Kariokor market, rear access road",
			Urgency:     5,
			Status:      "reported",
			IsPublic:    true,
		},
	}
	for _, seed := range seeds {
		if err := s.store.InsertIssue(ctx, seed); err != nil {
			return err
		}
		if _, err := s.ledger.Append(seed.ID, ledger.Entry{
			Kind:  "issue",
			Event: "created",
			To:    seed.Status,
		}, "system"); err != nil {
			return err
		}
		s.search.IndexIssue(search.IssueRecord{
			ID:          seed.ID,
			Title:       seed.Title,
			Description: seed.Description,
			Category:    seed.Category,
			Status:      seed.Status,
			IsPublic:    seed.IsPublic,
		})
	}

	cycle := store.BudgetCycle{
		ID:          util.NewID("cyc"),
		Title:       "Ward development fund 2026/27",
		Description: "Residents propose and vote on how the ward allocation is spent this financial year.",
		Status:      "open_submissions",
		TotalBudget: 450_000_000, // cents
		TokenGrant:  10,
	}
	if err := s.store.InsertBudgetCycle(ctx, cycle); err != nil {
		return err
	}
	_, err = s.ledger.Append(cycle.ID, ledger.Entry{
		Kind:  "budget_cycle",
		Event: "created",
		To:    cycle.Status,
	}, "system")
	return err
}

// CreateSession issues an access and refresh token pair for a user after a
// successful sign-in.
func (s *Service) CreateSession(ctx context.Context, userID string) (Session, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	tokenHash := auth.HashToken(refreshToken)
	user, err := s.sessions.LookupRefreshSession(ctx, tokenHash)
	if err != nil {
		return Session{}, err
	}
	if err := s.sessions.RevokeRefreshSession(ctx, tokenHash); err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

func (s *Service) issueSession(ctx context.Context, user store.User) (Session, error) {
	now := time.Now()
	expiresAt := now.Add(s.cfg.AccessTTL)
	jti := util.NewID("jti")

	token, err := auth.IssueToken([]byte(s.cfg.JWTSecret), auth.Claims{
		Sub:      user.ID,
		Name:     user.DisplayName,
		Role:     user.Role,
		Verified: user.IsVerified,
		JTI:      jti,
		Exp:      expiresAt.Unix(),
	})
	if err != nil {
		return Session{}, err
	}

	refresh := util.NewID("rft") + util.NewID("")
	refreshExpires := now.Add(s.cfg.RefreshTTL)
	if err := s.sessions.SaveRefreshSession(ctx, auth.HashToken(refresh), user.ID, refreshExpires); err != nil {
		return Session{}, err
	}

	return Session{
		Token:        token,
		RefreshToken: refresh,
		UserID:       user.ID,
		UserName:     user.DisplayName,
		Role:         user.Role,
		Verified:     user.IsVerified,
		JTI:          jti,
		ExpiresAt:    expiresAt,
	}, nil
}

func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.JWTSecret), token)
	if err != nil {
		return Session{}, err
	}
	revoked, err := s.store.IsAccessTokenRevoked(ctx, claims.JTI)
	if err != nil {
		return Session{}, err
	}
	if revoked {
		return Session{}, auth.ErrInvalidToken
	}

	user, err := s.store.GetUserByID(ctx, claims.Sub)
	if err != nil {
		return Session{}, err
	}

	return Session{
		Token:     token,
		UserID:    user.ID,
		UserName:  user.DisplayName,
		Role:      user.Role,
		Verified:  user.IsVerified,
		JTI:       claims.JTI,
		ExpiresAt: time.Unix(claims.Exp, 0),
	}, nil
}

func (s *Service) Logout(ctx context.Context, session Session, refreshToken string) error {
	if session.JTI != "" {
		_ = s.store.RevokeAccessToken(ctx, session.JTI, session.ExpiresAt)
	}
	if refreshToken != "" {
		_ = s.sessions.RevokeRefreshSession(ctx, auth.HashToken(refreshToken))
	}
	return nil
}

// forbiddenError is the uniform denial the authz layer maps to.
func forbiddenError() *DomainError {
	return domainError(http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
}
