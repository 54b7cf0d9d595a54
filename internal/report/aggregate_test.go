package report

import (
	"testing"
	"time"

	"tiendita/backend/internal/domain"
)

func saleAt(ts time.Time, total int64) domain.Sale {
	return domain.Sale{
		BusinessID: "biz-test",
		Items:      []domain.SaleItem{{ProductID: "p-1", Name: "Coca-Cola", UnitPriceCents: total, Qty: 1}},
		TotalCents: total,
		CreatedAt:  ts,
	}
}

func TestGroupByDaySortsObservedDays(t *testing.T) {
	sales := []domain.Sale{
		saleAt(time.Date(2026, 3, 3, 12, 0, 0, 0, time.UTC), 500),
		saleAt(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), 1000),
		saleAt(time.Date(2026, 3, 3, 18, 0, 0, 0, time.UTC), 700),
	}

	series := GroupByDay(sales, time.UTC)
	if len(series.Labels) != 2 {
		t.Fatalf("expected only observed days, got %v", series.Labels)
	}
	if series.Labels[0] != "2026-03-01" || series.Labels[1] != "2026-03-03" {
		t.Fatalf("expected ascending day labels, got %v", series.Labels)
	}
	if series.Values[0] != 1000 || series.Values[1] != 1200 {
		t.Fatalf("unexpected day totals %v", series.Values)
	}
}

func TestGroupByDayUsesLocation(t *testing.T) {
	// 23:30 UTC on March 1st is already March 2nd one hour east.
	east := time.FixedZone("east", 3600)
	sales := []domain.Sale{saleAt(time.Date(2026, 3, 1, 23, 30, 0, 0, time.UTC), 500)}

	series := GroupByDay(sales, east)
	if len(series.Labels) != 1 || series.Labels[0] != "2026-03-02" {
		t.Fatalf("expected day to shift with location, got %v", series.Labels)
	}
}

func TestGroupByMethodDefaultsAndKeepsOrder(t *testing.T) {
	sales := []domain.Sale{
		{TotalCents: 100, PaymentMethod: "Card"},
		{TotalCents: 200},
		{TotalCents: 300, PaymentMethod: "Card"},
		{TotalCents: 400, PaymentMethod: "Transfer"},
	}

	series := GroupByMethod(sales)
	want := []string{"Card", "Cash", "Transfer"}
	if len(series.Labels) != len(want) {
		t.Fatalf("expected labels %v, got %v", want, series.Labels)
	}
	for i, label := range want {
		if series.Labels[i] != label {
			t.Fatalf("expected first-occurrence order %v, got %v", want, series.Labels)
		}
	}
	if series.Values[0] != 400 || series.Values[1] != 200 || series.Values[2] != 400 {
		t.Fatalf("unexpected method totals %v", series.Values)
	}
}

func TestTopProductsRanksByQuantityWithStableTies(t *testing.T) {
	sales := []domain.Sale{
		{Items: []domain.SaleItem{
			{Name: "Pan dulce", Qty: 2},
			{Name: "Coca-Cola", Qty: 5},
			{Name: "Agua 1L", Qty: 2},
		}},
		{Items: []domain.SaleItem{
			{Name: "Pan dulce", Qty: 1},
		}},
	}

	series := TopProducts(sales, 7)
	want := []string{"Coca-Cola", "Pan dulce", "Agua 1L"}
	for i, label := range want {
		if series.Labels[i] != label {
			t.Fatalf("expected ranking %v, got %v", want, series.Labels)
		}
	}
	if series.Values[0] != 5 || series.Values[1] != 3 || series.Values[2] != 2 {
		t.Fatalf("unexpected quantities %v", series.Values)
	}
}

func TestTopProductsTruncatesAndFallsBackLabels(t *testing.T) {
	var sales []domain.Sale
	for i := 0; i < 10; i++ {
		sales = append(sales, domain.Sale{Items: []domain.SaleItem{
			{Name: "", ProductID: "", Qty: 1},
		}})
	}
	sales = append(sales, domain.Sale{Items: []domain.SaleItem{
		{Name: "", ProductID: "p-9", Qty: 2},
	}})

	series := TopProducts(sales, 2)
	if len(series.Labels) != 2 {
		t.Fatalf("expected truncation to 2, got %v", series.Labels)
	}
	if series.Labels[0] != "Product" {
		t.Fatalf("expected anonymous fallback label first, got %v", series.Labels)
	}
	if series.Labels[1] != "p-9" {
		t.Fatalf("expected product id fallback, got %v", series.Labels)
	}
}

func TestEmployeePerformance(t *testing.T) {
	sales := []domain.Sale{
		{TotalCents: 1000, EmployeeName: "Luis", Items: []domain.SaleItem{{Qty: 2}}},
		{TotalCents: 3000, Items: []domain.SaleItem{{Qty: 1}}},
		{TotalCents: 500, EmployeeName: "Luis", Items: []domain.SaleItem{{Qty: 4}}},
	}

	stats := EmployeePerformance(sales)
	if len(stats) != 2 {
		t.Fatalf("expected 2 employee rows, got %d", len(stats))
	}
	if stats[0].Employee != domain.UnassignedEmployee || stats[0].IncomeCents != 3000 {
		t.Fatalf("expected Unassigned leading by income, got %+v", stats[0])
	}
	if stats[1].Employee != "Luis" || stats[1].SalesCount != 2 || stats[1].IncomeCents != 1500 || stats[1].ItemCount != 6 {
		t.Fatalf("unexpected Luis row %+v", stats[1])
	}
}

func TestProjectNext30Days(t *testing.T) {
	if got := ProjectNext30Days(nil); got != 0 {
		t.Fatalf("zero history must project zero, got %d", got)
	}
	if got := ProjectNext30Days([]int64{100}); got != 3000 {
		t.Fatalf("single day of 100 projects 3000, got %d", got)
	}

	// 20 days of history: only the last 14 feed the average.
	daily := make([]int64, 20)
	for i := 0; i < 6; i++ {
		daily[i] = 1_000_000
	}
	for i := 6; i < 20; i++ {
		daily[i] = 200
	}
	if got := ProjectNext30Days(daily); got != 6000 {
		t.Fatalf("expected projection over the last 14 days only, got %d", got)
	}
}

func TestSummarizeKPIs(t *testing.T) {
	sales := []domain.Sale{
		saleAt(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), 1000),
		saleAt(time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC), 1500),
		saleAt(time.Date(2026, 3, 2, 11, 0, 0, 0, time.UTC), 500),
	}

	summary := Summarize(sales, time.UTC)
	if summary.IncomeCents != 3000 {
		t.Fatalf("expected income 3000, got %d", summary.IncomeCents)
	}
	if summary.SalesCount != 3 {
		t.Fatalf("expected 3 sales, got %d", summary.SalesCount)
	}
	if summary.AvgTicketCents != 1000 {
		t.Fatalf("expected avg ticket 1000, got %d", summary.AvgTicketCents)
	}
	if len(summary.Daily.Labels) != 2 {
		t.Fatalf("expected 2 daily buckets, got %v", summary.Daily.Labels)
	}
	// Two daily totals of 2500 and 500 average to 1500 per day.
	if summary.ProjectedNext30Cents != 45000 {
		t.Fatalf("expected projection 45000, got %d", summary.ProjectedNext30Cents)
	}

	empty := Summarize(nil, time.UTC)
	if empty.AvgTicketCents != 0 || empty.SalesCount != 0 || empty.IncomeCents != 0 {
		t.Fatalf("empty summary must be all zero, got %+v", empty)
	}
}
