// Package export renders generated reports into files.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/optiflow/optiflow/internal/core/domain"
	"github.com/optiflow/optiflow/internal/core/service"
)

var csvHeader = []string{
	"Order ID", "Vendor", "Contact Person", "Due Date", "Status", "Instructions", "Created At",
}

// WriteCSV writes one row per report order.
func WriteCSV(w io.Writer, data *domain.ReportData) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, o := range data.Orders {
		contact := ""
		if o.Vendor != nil {
			contact = o.Vendor.ContactPerson
		}
		row := []string{
			o.ID,
			service.VendorName(o),
			contact,
			o.DueDate.Format("2006-01-02"),
			string(o.Status),
			o.Instructions,
			o.CreatedAt.Format("2006-01-02 15:04"),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("write csv row %s: %w", o.ID, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// FileName is the default export name for a report generated at t.
func FileName(t time.Time) string {
	return fmt.Sprintf("optiflow-report-%s.csv", t.Format("2006-01-02"))
}
