package app

import (
	"context"

	"jijisauti/api/internal/authz"
	"jijisauti/api/internal/search"
)

// Credits returns the caller's balance and recent transactions. The rules
// restrict credit transactions to their owner, so there is no cross-user
// lookup path.
func (s *Service) Credits(ctx context.Context, session Session, limit int) (map[string]any, error) {
	actor := session.actor()
	decision := authz.Authorize(authz.KindCreditTransaction, authz.OpRead, actor)
	if actor == nil || !decision.Permits(actor, authz.Record{"user_id": actor.ID}) {
		return nil, forbiddenError()
	}

	balance, err := s.store.CreditsBalance(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 100 {
		limit = 25
	}
	transactions, err := s.store.ListCreditTransactions(ctx, actor.ID, limit)
	if err != nil {
		return nil, err
	}

	views := make([]map[string]any, 0, len(transactions))
	for _, txn := range transactions {
		views = append(views, map[string]any{
			"id":        txn.ID,
			"amount":    txn.Amount,
			"reason":    txn.Reason,
			"refId":     txn.RefID,
			"createdAt": txn.CreatedAt,
		})
	}
	return map[string]any{
		"balance":      balance,
		"transactions": views,
	}, nil
}

// Summary returns the platform-wide counters shown on the landing page.
func (s *Service) Summary(ctx context.Context) (map[string]any, error) {
	issues, campaigns, proposals, err := s.store.SummaryCounts(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"issues":    issues,
		"campaigns": campaigns,
		"proposals": proposals,
	}, nil
}

// SearchContent runs a full-text search. Signed-out callers only see public
// entities.
func (s *Service) SearchContent(session Session, q search.Query) search.Response {
	if session.actor() == nil {
		q.PublicOnly = true
	}
	return s.search.Search(q)
}
