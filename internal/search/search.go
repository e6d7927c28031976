package search

// ResultType identifies the kind of entity in a search result.
type ResultType string

const (
	ResultIssue    ResultType = "issue"
	ResultCampaign ResultType = "campaign"
	ResultProposal ResultType = "proposal"
)

// Result is a single search hit returned to the caller.
type Result struct {
	Type     ResultType `json:"type"`
	ID       string     `json:"id"`
	Title    string     `json:"title"`
	Snippet  string     `json:"snippet"`
	Category string     `json:"category,omitempty"`
	Status   string     `json:"status"`
	IsPublic bool       `json:"isPublic"`
}

// Query describes a search request.
type Query struct {
	Text           string
	FilterType     ResultType // empty = all types
	FilterCategory string
	Limit          int
	Offset         int
	PublicOnly     bool // signed-out viewers only see public entities
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a full-text search.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}

// Indexer can push entities into a search index.
type Indexer interface {
	IndexIssue(rec IssueRecord) error
	IndexCampaign(rec CampaignRecord) error
	IndexProposal(rec ProposalRecord) error
	DeleteIssue(id string) error
	DeleteCampaign(id string) error
}

// IssueRecord is the data we index for an issue report.
type IssueRecord struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Status      string `json:"status"`
	IsPublic    bool   `json:"isPublic"`
}

// CampaignRecord is the data we index for a campaign.
type CampaignRecord struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      string `json:"status"`
	IsPublic    bool   `json:"isPublic"`
}

// ProposalRecord is the data we index for a budget proposal.
type ProposalRecord struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	CycleID     string `json:"cycleId"`
	Status      string `json:"status"`
}
