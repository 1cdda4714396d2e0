package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/optiflow/optiflow/internal/core/domain"
)

func newCalendarCmd(app appFunc, out formatterFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calendar",
		Short: "View and reschedule orders by due date",
	}
	cmd.AddCommand(newCalendarShowCmd(app, out), newCalendarRescheduleCmd(app, out))
	return cmd
}

// currentMonth spans the month containing now.
func currentMonth(now time.Time) domain.CalendarRange {
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	return domain.CalendarRange{Start: start, End: endOfDay(start.AddDate(0, 1, -1))}
}

func newCalendarShowCmd(app appFunc, out formatterFunc) *cobra.Command {
	var start, end string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "List orders due in a date range (default: this month)",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := app()
			if _, err := a.requireSession(); err != nil {
				return err
			}

			r := currentMonth(time.Now())
			if start != "" {
				t, err := parseTime("start", start)
				if err != nil {
					return err
				}
				r.Start = t
			}
			if end != "" {
				t, err := parseTime("end", end)
				if err != nil {
					return err
				}
				r.End = endOfDay(t)
			}
			if r.End.Before(r.Start) {
				return fmt.Errorf("%w: --end is before --start", domain.ErrValidation)
			}

			orders, err := a.calendar.Range(cmd.Context(), r)
			if err != nil {
				return fmt.Errorf("load calendar: %w", err)
			}
			return printOrders(out(), orders, "Nothing due in this range.")
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "first day (YYYY-MM-DD or RFC 3339)")
	cmd.Flags().StringVar(&end, "end", "", "last day, inclusive")
	return cmd
}

type rescheduledView struct {
	ID    string    `json:"id"         yaml:"id"`
	DueAt time.Time `json:"new_due_at" yaml:"new_due_at"`
}

func newCalendarRescheduleCmd(app appFunc, out formatterFunc) *cobra.Command {
	var due string
	cmd := &cobra.Command{
		Use:   "reschedule <order-id>",
		Short: "Move an order to a new due date",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			if _, err := a.requireSession(); err != nil {
				return err
			}
			t, err := parseTime("due", due)
			if err != nil {
				return err
			}
			if err := a.calendar.Reschedule(cmd.Context(), args[0], t); err != nil {
				return fmt.Errorf("reschedule order %s: %w", args[0], err)
			}
			return out().Notice(
				rescheduledView{ID: args[0], DueAt: t},
				fmt.Sprintf("Order %s now due %s.", args[0], formatDate(t)),
			)
		},
	}
	cmd.Flags().StringVar(&due, "due", "", "new due date (YYYY-MM-DD or RFC 3339)")
	_ = cmd.MarkFlagRequired("due")
	return cmd
}
