package store

import "time"

type User struct {
	ID                    string
	DisplayName           string
	Email                 string
	PasswordHash          string
	Role                  string
	IsVerified            bool
	IsEmailVerified       bool
	VerificationToken     string
	VerificationExpiresAt *time.Time
	CreditsBalance        int
	DeactivatedAt         *time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

type Issue struct {
	ID               string
	Category         string
	Subcategory      string
	Title            string
	Description      string
	Address          string
	Latitude         *float64
	Longitude        *float64
	Urgency          int
	Status           string
	IsPublic         bool
	IsAnonymous      bool
	ReportedBy       *string
	AssignedOfficial *string
	FollowUp         bool
	PreferredContact string
	ContactPhone     string
	ContactEmail     string
	VoiceNoteKey     string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// EvidenceObject links an uploaded evidence blob in object storage to its
// issue.
type EvidenceObject struct {
	ID        string
	IssueID   string
	ObjectKey string
	Name      string
	MimeType  string
	SizeBytes int64
	CreatedAt time.Time
}

type Campaign struct {
	ID          string
	Title       string
	Description string
	Goal        string
	Status      string
	IsPublic    bool
	OrganizerID *string
	StartsAt    *time.Time
	EndsAt      *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Event struct {
	ID          string
	CampaignID  *string
	Title       string
	Description string
	Venue       string
	Status      string
	IsPublic    bool
	OrganizerID *string
	StartsAt    *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type BudgetCycle struct {
	ID          string
	Title       string
	Description string
	Status      string
	TotalBudget int64
	TokenGrant  int
	CreatedBy   *string
	OpensAt     *time.Time
	ClosesAt    *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Proposal struct {
	ID            string
	CycleID       string
	Title         string
	Description   string
	EstimatedCost int64
	Status        string
	SubmittedBy   *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type ProposalVote struct {
	ID         string
	CycleID    string
	ProposalID string
	VoterID    string
	Tokens     int
	CreatedAt  time.Time
}

// ProposalTally is one row of a cycle's vote tally.
type ProposalTally struct {
	ProposalID string
	Title      string
	Tokens     int
	Voters     int
}

type JobPosting struct {
	ID          string
	Title       string
	Description string
	Location    string
	PayNote     string
	Status      string
	PostedBy    *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type WorkerProfile struct {
	ID        string
	UserID    string
	Trade     string
	Bio       string
	Area      string
	Available bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Task struct {
	ID          string
	IssueID     string
	Title       string
	Status      string
	AssignedTo  *string
	CreatedBy   *string
	CompletedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type CreditTransaction struct {
	ID        string
	UserID    string
	Amount    int
	Reason    string
	RefID     string
	CreatedAt time.Time
}

// CommitInfo describes one transparency ledger commit.
type CommitInfo struct {
	Hash      string
	Message   string
	Author    string
	CreatedAt time.Time
}
