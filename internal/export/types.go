// Package export renders issue reports and budget cycle results as PDF or DOCX.
package export

import (
	"errors"
	"time"
)

// Format represents the export output format
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
)

// Result contains the export output
type Result struct {
	Data     []byte
	Filename string
	MimeType string
}

// IssueInfo holds the issue fields rendered into a report export.
type IssueInfo struct {
	ID          string
	Title       string
	Description string
	Category    string
	Subcategory string
	Address     string
	Urgency     int
	Status      string
	IsAnonymous bool
	Reporter    string
	Official    string
	CreatedAt   time.Time
}

// EvidenceInfo holds evidence metadata listed in an issue export.
type EvidenceInfo struct {
	Name     string
	MimeType string
	URL      string
}

// CycleInfo holds the budget cycle fields rendered into a results export.
type CycleInfo struct {
	ID          string
	Title       string
	Description string
	Status      string
	TotalBudget int64
	TokenGrant  int
	ClosesAt    *time.Time
}

// ProposalResult is one tallied proposal in a results export.
type ProposalResult struct {
	Title         string
	EstimatedCost int64
	Status        string
	Tokens        int
}

var (
	// ErrUnsupportedFormat indicates an export format other than pdf or docx.
	ErrUnsupportedFormat = errors.New("unsupported export format")
	// ErrContentUnavailable indicates the entity could not be loaded for export.
	ErrContentUnavailable = errors.New("export content unavailable")
	// ErrPDFDependencyMissing indicates PDF export runtime dependencies are unavailable.
	ErrPDFDependencyMissing = errors.New("export pdf dependency missing")
	// ErrDOCXDependencyMissing indicates DOCX export runtime dependencies are unavailable.
	ErrDOCXDependencyMissing = errors.New("export docx dependency missing")
)
