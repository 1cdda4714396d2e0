package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/optiflow/optiflow/internal/core/domain"
	"github.com/optiflow/optiflow/internal/core/ports"
)

// UnknownVendor labels orders whose vendor cannot be resolved.
const UnknownVendor = "Unknown"

type ReportService struct {
	orders  ports.OrderAPI
	vendors ports.VendorAPI
	logger  zerolog.Logger
	now     func() time.Time
}

func NewReportService(orders ports.OrderAPI, vendors ports.VendorAPI, logger zerolog.Logger) *ReportService {
	return &ReportService{
		orders:  orders,
		vendors: vendors,
		logger:  logger.With().Str("component", "reports").Logger(),
		now:     time.Now,
	}
}

// Generate fetches the orders in the filter's date range, applies the
// vendor, status and user filters and summarises the result. Vendor records
// are attached where the listing did not embed them; a failed vendor lookup
// degrades names to UnknownVendor instead of failing the report.
func (s *ReportService) Generate(ctx context.Context, f domain.ReportFilters) (*domain.ReportData, error) {
	if !f.DateFrom.IsZero() && !f.DateTo.IsZero() && f.DateTo.Before(f.DateFrom) {
		return nil, fmt.Errorf("%w: report end date is before its start date", domain.ErrValidation)
	}

	var (
		orders  []domain.Order
		vendors map[string]domain.Vendor
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		orders, err = s.orders.List(gctx, domain.OrderFilter{DateFrom: f.DateFrom, DateTo: f.DateTo})
		if err != nil {
			return fmt.Errorf("list orders: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		list, err := s.vendors.List(gctx, "")
		if err != nil {
			s.logger.Warn().Err(err).Msg("vendor lookup failed, names will be missing")
			return nil
		}
		vendors = make(map[string]domain.Vendor, len(list))
		for _, v := range list {
			vendors[v.ID] = v
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	selected := make([]domain.Order, 0, len(orders))
	for _, o := range orders {
		if !matches(o, f) {
			continue
		}
		if o.Vendor == nil {
			if v, ok := vendors[o.VendorID]; ok {
				o.Vendor = &v
			}
		}
		selected = append(selected, o)
	}

	return &domain.ReportData{
		Summary:     Summarize(selected),
		Orders:      selected,
		Filters:     f,
		GeneratedAt: s.now().UTC(),
	}, nil
}

// Summarize counts orders by status and by vendor name.
func Summarize(orders []domain.Order) domain.ReportSummary {
	sum := domain.ReportSummary{
		TotalOrders: len(orders),
		ByVendor:    make(map[string]int),
	}
	for _, o := range orders {
		sum.ByStatus.Add(o.Status)
		sum.ByVendor[VendorName(o)]++
	}
	return sum
}

// VendorName is the display name of the order's vendor.
func VendorName(o domain.Order) string {
	if o.Vendor != nil && o.Vendor.Name != "" {
		return o.Vendor.Name
	}
	return UnknownVendor
}

func matches(o domain.Order, f domain.ReportFilters) bool {
	if len(f.VendorIDs) > 0 && !contains(f.VendorIDs, o.VendorID) {
		return false
	}
	if len(f.Statuses) > 0 && !contains(f.Statuses, o.Status) {
		return false
	}
	if len(f.UserIDs) > 0 && !contains(f.UserIDs, o.UserID) {
		return false
	}
	return true
}

func contains[T comparable](set []T, v T) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
