package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/optiflow/optiflow/internal/core/domain"
	"github.com/optiflow/optiflow/internal/core/service"
	"github.com/optiflow/optiflow/internal/infrastructure/export"
)

func newReportsCmd(app appFunc, out formatterFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "reports",
		Aliases: []string{"report"},
		Short:   "Production reports",
	}
	cmd.AddCommand(newReportsGenerateCmd(app, out))
	return cmd
}

type reportFlags struct {
	from, to string
	vendors  []string
	statuses []string
	users    []string
	csv      string
}

func (rf reportFlags) filters() (domain.ReportFilters, error) {
	var f domain.ReportFilters
	from, err := parseTime("from", rf.from)
	if err != nil {
		return f, err
	}
	to, err := parseTime("to", rf.to)
	if err != nil {
		return f, err
	}
	f.DateFrom, f.DateTo = from, endOfDay(to)
	f.VendorIDs = rf.vendors
	f.UserIDs = rf.users
	for _, s := range rf.statuses {
		st, err := domain.ParseOrderStatus(s)
		if err != nil {
			return f, err
		}
		f.Statuses = append(f.Statuses, st)
	}
	return f, nil
}

func newReportsGenerateCmd(app appFunc, out formatterFunc) *cobra.Command {
	var rf reportFlags
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Summarise orders due in a date range",
		Long: `Summarise orders due in a date range by status and vendor.

Examples:
  optiflow reports generate --from 2024-01-01 --to 2024-01-31
  optiflow reports generate --from 2024-01-01 --to 2024-03-31 --status completed --csv .
  optiflow reports generate --from 2024-01-01 --to 2024-01-31 --vendor 1 --vendor 4 -o json`,
		Args: exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			filters, err := rf.filters()
			if err != nil {
				return err
			}
			return runReport(cmd.Context(), app(), out(), filters, rf.csv)
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&rf.from, "from", "", "first due date (YYYY-MM-DD)")
	fs.StringVar(&rf.to, "to", "", "last due date, inclusive")
	fs.StringArrayVar(&rf.vendors, "vendor", nil, "only this vendor id (repeatable)")
	fs.StringArrayVar(&rf.statuses, "status", nil, "only this status (repeatable)")
	fs.StringArrayVar(&rf.users, "user", nil, "only orders placed by this user id (repeatable)")
	fs.StringVar(&rf.csv, "csv", "", "also write the orders as CSV to this file or directory")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func runReport(ctx context.Context, a *App, f formatter, filters domain.ReportFilters, csvPath string) error {
	if _, err := a.requireSession(); err != nil {
		return err
	}
	data, err := a.reports.Generate(ctx, filters)
	if err != nil {
		return fmt.Errorf("generate report: %w", err)
	}

	if csvPath != "" {
		path, err := writeReportCSV(csvPath, data)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.errOut, "CSV written to %s\n", path)
	}

	if _, ok := f.(tableFormatter); !ok {
		return f.Print(data, view{})
	}
	if err := f.Print(data.Summary, summaryView(data.Summary)); err != nil {
		return err
	}
	return printOrders(f, data.Orders, "No orders match these filters.")
}

// writeReportCSV writes to path, or into it under the default name when
// path is a directory.
func writeReportCSV(path string, data *domain.ReportData) (string, error) {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, export.FileName(data.GeneratedAt))
	}
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create csv: %w", err)
	}
	if err := export.WriteCSV(file, data); err != nil {
		file.Close()
		return "", err
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("close csv: %w", err)
	}
	return path, nil
}

func summaryView(s domain.ReportSummary) view {
	pairs := [][2]string{
		{"Total orders", strconv.Itoa(s.TotalOrders)},
		{"Pending", strconv.Itoa(s.ByStatus.Pending)},
		{"In progress", strconv.Itoa(s.ByStatus.InProgress)},
		{"Completed", strconv.Itoa(s.ByStatus.Completed)},
	}

	names := make([]string, 0, len(s.ByVendor))
	for name := range s.ByVendor {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if name == service.UnknownVendor {
			continue
		}
		pairs = append(pairs, [2]string{"Vendor: " + name, strconv.Itoa(s.ByVendor[name])})
	}
	if n, ok := s.ByVendor[service.UnknownVendor]; ok {
		pairs = append(pairs, [2]string{"Vendor: " + service.UnknownVendor, strconv.Itoa(n)})
	}
	return keyValues(pairs...)
}
