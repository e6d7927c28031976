package search

import (
	"context"
	"log"
)

// Service is the facade that tries Meilisearch first and falls back to PG FTS.
type Service struct {
	meili *Meili
	pgfts *PgFTS
}

// NewService creates a search service. meili may be nil if Meilisearch is not configured.
func NewService(meili *Meili, pgfts *PgFTS) *Service {
	return &Service{meili: meili, pgfts: pgfts}
}

// Search tries Meilisearch if healthy, otherwise falls back to PG FTS.
func (s *Service) Search(q Query) Response {
	if s.meili != nil && s.meili.Healthy() {
		results, total, err := s.meili.Search(q)
		if err == nil {
			return Response{Results: sanitizeResults(nonNil(results), q.PublicOnly), Total: total, Query: q.Text}
		}
		log.Printf("search: meilisearch error, falling back to pgfts: %v", err)
	}

	results, total, err := s.pgfts.Search(q)
	if err != nil {
		log.Printf("search: pgfts error: %v", err)
		return Response{Results: []Result{}, Total: 0, Query: q.Text}
	}
	return Response{Results: sanitizeResults(nonNil(results), q.PublicOnly), Total: total, Query: q.Text}
}

// IndexIssue indexes an issue (fire-and-forget to Meilisearch).
func (s *Service) IndexIssue(rec IssueRecord) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.IndexIssue(rec); err != nil {
			log.Printf("search: index issue %s: %v", rec.ID, err)
		}
	}()
}

// IndexCampaign indexes a campaign (fire-and-forget to Meilisearch).
func (s *Service) IndexCampaign(rec CampaignRecord) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.IndexCampaign(rec); err != nil {
			log.Printf("search: index campaign %s: %v", rec.ID, err)
		}
	}()
}

// IndexProposal indexes a budget proposal (fire-and-forget to Meilisearch).
func (s *Service) IndexProposal(rec ProposalRecord) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.IndexProposal(rec); err != nil {
			log.Printf("search: index proposal %s: %v", rec.ID, err)
		}
	}()
}

// DeleteIssue removes an issue from the search index (fire-and-forget).
func (s *Service) DeleteIssue(id string) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.DeleteIssue(id); err != nil {
			log.Printf("search: delete issue %s: %v", id, err)
		}
	}()
}

// DeleteCampaign removes a campaign from the search index (fire-and-forget).
func (s *Service) DeleteCampaign(id string) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.DeleteCampaign(id); err != nil {
			log.Printf("search: delete campaign %s: %v", id, err)
		}
	}()
}

// ReindexAll pushes already-loaded records to Meilisearch.
func (s *Service) ReindexAll(issues []IssueRecord, campaigns []CampaignRecord, proposals []ProposalRecord) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}

	if len(issues) > 0 {
		if err := s.meili.IndexIssues(issues); err != nil {
			log.Printf("search: reindex issues: %v", err)
		}
	}
	if len(campaigns) > 0 {
		if err := s.meili.IndexCampaigns(campaigns); err != nil {
			log.Printf("search: reindex campaigns: %v", err)
		}
	}
	if len(proposals) > 0 {
		if err := s.meili.IndexProposals(proposals); err != nil {
			log.Printf("search: reindex proposals: %v", err)
		}
	}
}

// ReindexAllFromPG reindexes all searchable entities from PostgreSQL into Meilisearch.
func (s *Service) ReindexAllFromPG(ctx context.Context) {
	if s.meili == nil || !s.meili.Healthy() || s.pgfts == nil {
		return
	}
	issues, campaigns, proposals, err := s.pgfts.LoadAllRecords(ctx)
	if err != nil {
		log.Printf("search: reindex load failed: %v", err)
		return
	}
	s.ReindexAll(issues, campaigns, proposals)
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}

// sanitizeResults is a second line of defence for signed-out viewers: even if
// a backend returns a private hit, it never leaves the service.
func sanitizeResults(results []Result, publicOnly bool) []Result {
	if !publicOnly {
		return results
	}
	filtered := make([]Result, 0, len(results))
	for _, result := range results {
		if (result.Type == ResultIssue || result.Type == ResultCampaign) && !result.IsPublic {
			continue
		}
		filtered = append(filtered, result)
	}
	return filtered
}
