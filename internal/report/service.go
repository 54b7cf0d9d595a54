package report

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"tiendita/backend/internal/cache"
	"tiendita/backend/internal/catalog"
	"tiendita/backend/internal/domain"
	"tiendita/backend/internal/ledger"
)

// Service computes report summaries over the ledger, serving repeated
// requests from a TTL cache. Cache failures degrade to recomputation.
type Service struct {
	ledger   *ledger.Service
	catalog  *catalog.Service
	cache    cache.SummaryCache
	cacheTTL time.Duration
	loc      *time.Location
}

func New(led *ledger.Service, cat *catalog.Service, summaryCache cache.SummaryCache, cacheTTL time.Duration, loc *time.Location) *Service {
	if summaryCache == nil {
		summaryCache = cache.NoopSummaryCache{}
	}
	if cacheTTL <= 0 {
		cacheTTL = time.Minute
	}
	if loc == nil {
		loc = time.Local
	}
	return &Service{
		ledger:   led,
		catalog:  cat,
		cache:    summaryCache,
		cacheTTL: cacheTTL,
		loc:      loc,
	}
}

func (s *Service) Summary(ctx context.Context, businessID string, filter ledger.Filter) (Summary, error) {
	key := summaryKey(businessID, filter)
	if payload, ok, err := s.cache.Get(ctx, key); err != nil {
		log.Printf("[report] WARN: cache get failed key=%s: %v", key, err)
	} else if ok {
		var cached Summary
		if err := json.Unmarshal(payload, &cached); err == nil {
			return cached, nil
		}
		log.Printf("[report] WARN: discarding malformed cache entry key=%s", key)
	}

	sales, err := s.ledger.ListForBusiness(ctx, businessID, filter)
	if err != nil {
		return Summary{}, err
	}
	summary := Summarize(sales, s.loc)

	if payload, err := json.Marshal(summary); err == nil {
		if err := s.cache.Set(ctx, key, payload, s.cacheTTL); err != nil {
			log.Printf("[report] WARN: cache set failed key=%s: %v", key, err)
		}
	}
	return summary, nil
}

// Dashboard returns the landing-page counters: today's income and
// tickets, catalog size and the low-stock count.
func (s *Service) Dashboard(ctx context.Context, businessID string) (domain.DashboardResponse, error) {
	now := time.Now().In(s.loc)
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)

	sales, err := s.ledger.ListForBusiness(ctx, businessID, ledger.Filter{From: &dayStart, To: &now})
	if err != nil {
		return domain.DashboardResponse{}, err
	}

	var resp domain.DashboardResponse
	resp.TodaySalesCount = len(sales)
	for _, sale := range sales {
		resp.TodayIncomeCents += sale.TotalCents
	}

	products, err := s.catalog.List(ctx, businessID, "")
	if err != nil {
		return domain.DashboardResponse{}, err
	}
	resp.ProductCount = len(products)
	for _, p := range products {
		if catalog.IsLowStock(p) {
			resp.LowStockCount++
		}
	}
	return resp, nil
}

func summaryKey(businessID string, filter ledger.Filter) string {
	from, to := "", ""
	if filter.From != nil {
		from = filter.From.Format("2006-01-02")
	}
	if filter.To != nil {
		to = filter.To.Format("2006-01-02")
	}
	return fmt.Sprintf("report:%s:%s:%s:%s", businessID, from, to, filter.Method)
}
