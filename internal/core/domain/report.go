package domain

import "time"

// ReportFilters selects the orders that go into a production report.
type ReportFilters struct {
	DateFrom  time.Time     `json:"date_from"            yaml:"date_from"`
	DateTo    time.Time     `json:"date_to"              yaml:"date_to"`
	VendorIDs []string      `json:"vendor_ids,omitempty" yaml:"vendor_ids,omitempty"`
	Statuses  []OrderStatus `json:"statuses,omitempty"   yaml:"statuses,omitempty"`
	UserIDs   []string      `json:"user_ids,omitempty"   yaml:"user_ids,omitempty"`
}

// StatusCounts holds per-status order totals.
type StatusCounts struct {
	Pending    int `json:"pending"     yaml:"pending"`
	InProgress int `json:"in_progress" yaml:"in_progress"`
	Completed  int `json:"completed"   yaml:"completed"`
}

// Add increments the counter for st. Unknown statuses are ignored.
func (c *StatusCounts) Add(st OrderStatus) {
	switch st {
	case OrderPending:
		c.Pending++
	case OrderInProgress:
		c.InProgress++
	case OrderCompleted:
		c.Completed++
	}
}

// ReportSummary aggregates a report's orders.
type ReportSummary struct {
	TotalOrders int            `json:"total_orders" yaml:"total_orders"`
	ByStatus    StatusCounts   `json:"by_status"    yaml:"by_status"`
	ByVendor    map[string]int `json:"by_vendor"    yaml:"by_vendor"`
}

// ReportData is a generated report.
type ReportData struct {
	Summary     ReportSummary `json:"summary"      yaml:"summary"`
	Orders      []Order       `json:"orders"       yaml:"orders"`
	Filters     ReportFilters `json:"filters"      yaml:"filters"`
	GeneratedAt time.Time     `json:"generated_at" yaml:"generated_at"`
}

