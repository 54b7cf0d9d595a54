package report

import (
	"math"
	"sort"
	"time"

	"tiendita/backend/internal/domain"
)

// DefaultTopProducts is how many ranked products a summary carries.
const DefaultTopProducts = 7

// projectionWindowDays is how far back the 30-day projection looks.
const projectionWindowDays = 14

// Series pairs ordered labels with their values.
type Series struct {
	Labels []string `json:"labels"`
	Values []int64  `json:"values"`
}

type EmployeeStats struct {
	Employee    string `json:"employee"`
	SalesCount  int    `json:"sales_count"`
	IncomeCents int64  `json:"income_cents"`
	ItemCount   int    `json:"item_count"`
}

type Summary struct {
	IncomeCents          int64           `json:"income_cents"`
	SalesCount           int             `json:"sales_count"`
	AvgTicketCents       int64           `json:"avg_ticket_cents"`
	ProjectedNext30Cents int64           `json:"projected_next_30_cents"`
	Daily                Series          `json:"daily"`
	ByMethod             Series          `json:"by_method"`
	TopProducts          Series          `json:"top_products"`
	Employees            []EmployeeStats `json:"employees"`
}

// GroupByDay totals sales per local calendar day. Labels are sorted
// ascending and only observed days appear.
func GroupByDay(sales []domain.Sale, loc *time.Location) Series {
	if loc == nil {
		loc = time.Local
	}
	totals := make(map[string]int64)
	for _, sale := range sales {
		day := sale.CreatedAt.In(loc).Format("2006-01-02")
		totals[day] += sale.TotalCents
	}

	labels := make([]string, 0, len(totals))
	for day := range totals {
		labels = append(labels, day)
	}
	sort.Strings(labels)

	values := make([]int64, len(labels))
	for i, day := range labels {
		values[i] = totals[day]
	}
	return Series{Labels: labels, Values: values}
}

// GroupByMethod totals sales per payment method. An empty method counts
// as the default; labels keep first-occurrence order.
func GroupByMethod(sales []domain.Sale) Series {
	totals := make(map[string]int64)
	order := make([]string, 0, 4)
	for _, sale := range sales {
		method := sale.PaymentMethod
		if method == "" {
			method = domain.DefaultPaymentMethod
		}
		if _, seen := totals[method]; !seen {
			order = append(order, method)
		}
		totals[method] += sale.TotalCents
	}

	values := make([]int64, len(order))
	for i, method := range order {
		values[i] = totals[method]
	}
	return Series{Labels: order, Values: values}
}

// TopProducts ranks item names by total quantity sold, descending, ties
// broken by first appearance. Values are quantities, not money.
func TopProducts(sales []domain.Sale, n int) Series {
	if n <= 0 {
		n = DefaultTopProducts
	}
	qty := make(map[string]int64)
	order := make([]string, 0, 16)
	for _, sale := range sales {
		for _, item := range sale.Items {
			label := item.Name
			if label == "" {
				label = item.ProductID
			}
			if label == "" {
				label = "Product"
			}
			if _, seen := qty[label]; !seen {
				order = append(order, label)
			}
			qty[label] += int64(item.Qty)
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		return qty[order[i]] > qty[order[j]]
	})
	if len(order) > n {
		order = order[:n]
	}

	values := make([]int64, len(order))
	for i, label := range order {
		values[i] = qty[label]
	}
	return Series{Labels: order, Values: values}
}

// EmployeePerformance groups sales by attribution, empty names under
// "Unassigned", sorted by income descending.
func EmployeePerformance(sales []domain.Sale) []EmployeeStats {
	byName := make(map[string]*EmployeeStats)
	order := make([]string, 0, 8)
	for _, sale := range sales {
		name := sale.EmployeeName
		if name == "" {
			name = domain.UnassignedEmployee
		}
		stats, ok := byName[name]
		if !ok {
			stats = &EmployeeStats{Employee: name}
			byName[name] = stats
			order = append(order, name)
		}
		stats.SalesCount++
		stats.IncomeCents += sale.TotalCents
		for _, item := range sale.Items {
			stats.ItemCount += item.Qty
		}
	}

	out := make([]EmployeeStats, 0, len(order))
	for _, name := range order {
		out = append(out, *byName[name])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].IncomeCents > out[j].IncomeCents
	})
	return out
}

// ProjectNext30Days extrapolates from the mean of the most recent daily
// totals. Zero history projects zero.
func ProjectNext30Days(daily []int64) int64 {
	if len(daily) == 0 {
		return 0
	}
	window := daily
	if len(window) > projectionWindowDays {
		window = window[len(window)-projectionWindowDays:]
	}
	var sum int64
	for _, v := range window {
		sum += v
	}
	avg := float64(sum) / float64(len(window))
	return int64(math.Round(avg * 30))
}

// Summarize computes the full report over a sale slice.
func Summarize(sales []domain.Sale, loc *time.Location) Summary {
	var income int64
	for _, sale := range sales {
		income += sale.TotalCents
	}

	daily := GroupByDay(sales, loc)
	summary := Summary{
		IncomeCents:          income,
		SalesCount:           len(sales),
		ProjectedNext30Cents: ProjectNext30Days(daily.Values),
		Daily:                daily,
		ByMethod:             GroupByMethod(sales),
		TopProducts:          TopProducts(sales, DefaultTopProducts),
		Employees:            EmployeePerformance(sales),
	}
	if summary.SalesCount > 0 {
		summary.AvgTicketCents = int64(math.Round(float64(income) / float64(summary.SalesCount)))
	}
	return summary
}
