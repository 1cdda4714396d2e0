package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/optiflow/optiflow/internal/core/domain"
)

func newOrdersCmd(app appFunc, out formatterFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "orders",
		Aliases: []string{"order"},
		Short:   "Manage production orders",
	}
	cmd.AddCommand(
		newOrdersListCmd(app, out),
		newOrdersGetCmd(app, out),
		newOrdersCreateCmd(app, out),
		newOrdersUpdateCmd(app, out),
		newOrdersDeleteCmd(app, out),
	)
	return cmd
}

type orderListFlags struct {
	vendor, status, from, to, search string
}

func (lf orderListFlags) filter() (domain.OrderFilter, error) {
	f := domain.OrderFilter{VendorID: lf.vendor, Search: lf.search}
	if lf.status != "" {
		st, err := domain.ParseOrderStatus(lf.status)
		if err != nil {
			return f, err
		}
		f.Status = st
	}
	if lf.from != "" {
		t, err := parseTime("from", lf.from)
		if err != nil {
			return f, err
		}
		f.DateFrom = t
	}
	if lf.to != "" {
		t, err := parseTime("to", lf.to)
		if err != nil {
			return f, err
		}
		f.DateTo = t
	}
	if !f.DateFrom.IsZero() && !f.DateTo.IsZero() && f.DateTo.Before(f.DateFrom) {
		return f, fmt.Errorf("%w: --to is before --from", domain.ErrValidation)
	}
	return f, nil
}

func newOrdersListCmd(app appFunc, out formatterFunc) *cobra.Command {
	var lf orderListFlags
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List orders",
		Long: `List orders, optionally filtered.

Examples:
  optiflow orders list --status pending
  optiflow orders list --vendor 3 --from 2024-01-01 --to 2024-01-31`,
		Args: exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter, err := lf.filter()
			if err != nil {
				return err
			}
			return runOrdersList(cmd.Context(), app(), out(), filter)
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&lf.vendor, "vendor", "", "vendor id")
	fs.StringVar(&lf.status, "status", "", "pending, in_progress or completed")
	fs.StringVar(&lf.from, "from", "", "earliest due date (YYYY-MM-DD)")
	fs.StringVar(&lf.to, "to", "", "latest due date (YYYY-MM-DD)")
	fs.StringVarP(&lf.search, "search", "s", "", "free-text search")
	return cmd
}

func runOrdersList(ctx context.Context, a *App, f formatter, filter domain.OrderFilter) error {
	if _, err := a.requireSession(); err != nil {
		return err
	}
	orders, err := a.orders.List(ctx, filter)
	if err != nil {
		return fmt.Errorf("list orders: %w", err)
	}
	return printOrders(f, orders, "No orders found.")
}

func newOrdersGetCmd(app appFunc, out formatterFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show an order",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			if _, err := a.requireSession(); err != nil {
				return err
			}
			o, err := a.orders.Get(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("get order %s: %w", args[0], err)
			}
			return printOrder(out(), o)
		},
	}
}

type orderFlags struct {
	vendor, due, status, instructions string
}

func (of *orderFlags) bind(fs *pflag.FlagSet) {
	fs.StringVar(&of.vendor, "vendor", "", "vendor id")
	fs.StringVar(&of.due, "due", "", "due date (YYYY-MM-DD or RFC 3339)")
	fs.StringVar(&of.status, "status", "", "pending, in_progress or completed")
	fs.StringVar(&of.instructions, "instructions", "", "special instructions")
}

func (of *orderFlags) input(fs *pflag.FlagSet) (domain.OrderInput, error) {
	var in domain.OrderInput
	if fs.Changed("vendor") {
		v := of.vendor
		in.VendorID = &v
	}
	if fs.Changed("due") {
		t, err := parseTime("due", of.due)
		if err != nil {
			return in, err
		}
		in.DueDate = &t
	}
	if fs.Changed("status") {
		st, err := domain.ParseOrderStatus(of.status)
		if err != nil {
			return in, err
		}
		in.Status = &st
	}
	if fs.Changed("instructions") {
		s := of.instructions
		in.Instructions = &s
	}
	return in, validate.Struct(in)
}

func newOrdersCreateCmd(app appFunc, out formatterFunc) *cobra.Command {
	var of orderFlags
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Place an order with a vendor",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := app()
			if _, err := a.requireSession(); err != nil {
				return err
			}
			in, err := of.input(cmd.Flags())
			if err != nil {
				return err
			}
			if in.Status == nil {
				st := domain.OrderPending
				in.Status = &st
			}
			o, err := a.orders.Create(cmd.Context(), in)
			if err != nil {
				return fmt.Errorf("create order: %w", err)
			}
			return printOrder(out(), o)
		},
	}
	of.bind(cmd.Flags())
	_ = cmd.MarkFlagRequired("vendor")
	_ = cmd.MarkFlagRequired("due")
	return cmd
}

func newOrdersUpdateCmd(app appFunc, out formatterFunc) *cobra.Command {
	var of orderFlags
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change some fields of an order",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			if _, err := a.requireSession(); err != nil {
				return err
			}
			in, err := of.input(cmd.Flags())
			if err != nil {
				return err
			}
			if in == (domain.OrderInput{}) {
				return usagef("nothing to update: pass at least one field flag")
			}
			o, err := a.orders.Update(cmd.Context(), args[0], in)
			if err != nil {
				return fmt.Errorf("update order %s: %w", args[0], err)
			}
			return printOrder(out(), o)
		},
	}
	of.bind(cmd.Flags())
	return cmd
}

func newOrdersDeleteCmd(app appFunc, out formatterFunc) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an order",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			if _, err := a.requireSession(); err != nil {
				return err
			}
			if ok, err := confirm(a, yes, fmt.Sprintf("Delete order %s?", args[0])); err != nil || !ok {
				return err
			}
			if err := a.orders.Delete(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("delete order %s: %w", args[0], err)
			}
			return out().Notice(deletedView{ID: args[0]}, fmt.Sprintf("Order %s deleted.", args[0]))
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

// orderVendor prefers the embedded vendor name over the bare id.
func orderVendor(o domain.Order) string {
	if o.Vendor != nil && o.Vendor.Name != "" {
		return o.Vendor.Name
	}
	return o.VendorID
}

func printOrders(f formatter, orders []domain.Order, empty string) error {
	rows := make([][]string, 0, len(orders))
	for _, o := range orders {
		rows = append(rows, []string{o.ID, orderVendor(o), formatDate(o.DueDate), string(o.Status), o.Instructions})
	}
	return f.Print(orders, view{
		headers: []string{"ID", "Vendor", "Due", "Status", "Instructions"},
		rows:    rows,
		empty:   empty,
	})
}

func printOrder(f formatter, o *domain.Order) error {
	return f.Print(o, keyValues(
		[2]string{"ID", o.ID},
		[2]string{"Vendor", orderVendor(*o)},
		[2]string{"Due", formatDate(o.DueDate)},
		[2]string{"Status", string(o.Status)},
		[2]string{"Instructions", o.Instructions},
		[2]string{"Placed by", o.UserName},
		[2]string{"Created", formatTime(o.CreatedAt)},
		[2]string{"Updated", formatTime(o.UpdatedAt)},
	))
}
