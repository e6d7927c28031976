package export

import (
	"bytes"
	"html/template"
	"strings"
	"time"
)

var funcMap = template.FuncMap{
	"lower": strings.ToLower,
	"formatDate": func(t time.Time, layout string) string {
		return t.Format(layout)
	},
	"shillings": func(cents int64) string {
		return formatShillings(cents)
	},
}

var (
	issueTemplate = template.Must(template.New("issue").Funcs(funcMap).Parse(issueReportTemplate))
	cycleTemplate = template.Must(template.New("cycle").Funcs(funcMap).Parse(cycleResultsTemplate))
)

// IssueTemplateData holds data for issue report rendering
type IssueTemplateData struct {
	Issue    IssueInfo
	Evidence []EvidenceInfo
}

// CycleTemplateData holds data for budget results rendering
type CycleTemplateData struct {
	Cycle   CycleInfo
	Results []ProposalResult
}

// RenderIssueHTML renders the issue report template with provided data
func RenderIssueHTML(data IssueTemplateData) (string, error) {
	var buf bytes.Buffer
	if err := issueTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderCycleHTML renders the budget results template with provided data
func RenderCycleHTML(data CycleTemplateData) (string, error) {
	var buf bytes.Buffer
	if err := cycleTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// formatShillings renders an amount in cents as "KES 1,234.50".
func formatShillings(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	whole := cents / 100
	frac := cents % 100

	digits := []byte{}
	if whole == 0 {
		digits = []byte("0")
	}
	for n := 0; whole > 0; whole /= 10 {
		if n > 0 && n%3 == 0 {
			digits = append([]byte{','}, digits...)
		}
		digits = append([]byte{byte('0' + whole%10)}, digits...)
		n++
	}

	var b strings.Builder
	b.WriteString(sign)
	b.WriteString("KES ")
	b.Write(digits)
	b.WriteByte('.')
	b.WriteByte(byte('0' + frac/10))
	b.WriteByte(byte('0' + frac%10))
	return b.String()
}

const issueReportTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>{{.Issue.Title}}</title>
  <style>
    body { font-family: Arial, sans-serif; line-height: 1.6; max-width: 800px; margin: 2rem auto; }
    h1 { border-bottom: 2px solid #333; padding-bottom: 0.5rem; }
    .meta { color: #666; font-size: 0.9em; margin-bottom: 2rem; }
    table { border-collapse: collapse; width: 100%; margin: 1rem 0; }
    td, th { border: 1px solid #ccc; padding: 0.5rem; text-align: left; }
    .evidence { background: #f5f5f5; padding: 1rem; margin: 1rem 0; border-left: 3px solid #333; }
  </style>
</head>
<body>
  <h1>{{.Issue.Title}}</h1>
  <div class="meta">Reference {{.Issue.ID}} | Reported {{formatDate .Issue.CreatedAt "Jan 2, 2006"}}</div>
  <table>
    <tr><th>Category</th><td>{{.Issue.Category}}{{if .Issue.Subcategory}} / {{.Issue.Subcategory}}{{end}}</td></tr>
    <tr><th>Status</th><td>{{lower .Issue.Status}}</td></tr>
    <tr><th>Urgency</th><td>{{.Issue.Urgency}}/5</td></tr>
    {{if .Issue.Address}}<tr><th>Location</th><td>{{.Issue.Address}}</td></tr>{{end}}
    <tr><th>Reported by</th><td>{{.Issue.Reporter}}</td></tr>
    {{if .Issue.Official}}<tr><th>Assigned official</th><td>{{.Issue.Official}}</td></tr>{{end}}
  </table>
  <h2>Description</h2>
  <p>{{.Issue.Description}}</p>
  {{if .Evidence}}
  <h2>Evidence</h2>
  {{range .Evidence}}<div class="evidence">{{.Name}} ({{.MimeType}}){{if .URL}} &mdash; <a href="{{.URL}}">download</a>{{end}}</div>{{end}}
  {{end}}
</body>
</html>`

const cycleResultsTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>{{.Cycle.Title}} — Results</title>
  <style>
    body { font-family: Arial, sans-serif; line-height: 1.6; max-width: 800px; margin: 2rem auto; }
    h1 { border-bottom: 2px solid #333; padding-bottom: 0.5rem; }
    .meta { color: #666; font-size: 0.9em; margin-bottom: 2rem; }
    table { border-collapse: collapse; width: 100%; margin: 1rem 0; }
    td, th { border: 1px solid #ccc; padding: 0.5rem; text-align: left; }
  </style>
</head>
<body>
  <h1>{{.Cycle.Title}}</h1>
  <div class="meta">Participatory budgeting results | Status: {{lower .Cycle.Status}} | Budget: {{shillings .Cycle.TotalBudget}}</div>
  <p>{{.Cycle.Description}}</p>
  <table>
    <tr><th>Proposal</th><th>Estimated cost</th><th>Tokens</th><th>Status</th></tr>
    {{range .Results}}<tr><td>{{.Title}}</td><td>{{shillings .EstimatedCost}}</td><td>{{.Tokens}}</td><td>{{lower .Status}}</td></tr>{{end}}
  </table>
</body>
</html>`
