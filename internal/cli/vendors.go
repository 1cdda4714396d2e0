package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/optiflow/optiflow/internal/core/domain"
)

func newVendorsCmd(app appFunc, out formatterFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "vendors",
		Aliases: []string{"vendor"},
		Short:   "Manage vendors",
	}
	cmd.AddCommand(
		newVendorsListCmd(app, out),
		newVendorsGetCmd(app, out),
		newVendorsCreateCmd(app, out),
		newVendorsUpdateCmd(app, out),
		newVendorsDeleteCmd(app, out),
	)
	return cmd
}

func newVendorsListCmd(app appFunc, out formatterFunc) *cobra.Command {
	var search string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List vendors",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runVendorsList(cmd.Context(), app(), out(), search)
		},
	}
	cmd.Flags().StringVarP(&search, "search", "s", "", "filter by name or contact")
	return cmd
}

func runVendorsList(ctx context.Context, a *App, f formatter, search string) error {
	if _, err := a.requireSession(); err != nil {
		return err
	}
	vendors, err := a.vendors.List(ctx, search)
	if err != nil {
		return fmt.Errorf("list vendors: %w", err)
	}

	rows := make([][]string, 0, len(vendors))
	for _, v := range vendors {
		rows = append(rows, []string{v.ID, v.Name, v.ContactPerson, v.Email, v.Phone})
	}
	return f.Print(vendors, view{
		headers: []string{"ID", "Name", "Contact", "Email", "Phone"},
		rows:    rows,
		empty:   "No vendors found.",
	})
}

func newVendorsGetCmd(app appFunc, out formatterFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show a vendor",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			if _, err := a.requireSession(); err != nil {
				return err
			}
			v, err := a.vendors.Get(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("get vendor %s: %w", args[0], err)
			}
			return printVendor(out(), v)
		},
	}
}

// vendorFlags binds the writable vendor fields. Only flags given on the
// command line end up in the input.
type vendorFlags struct {
	name, contact, email, phone, address string
}

func (vf *vendorFlags) bind(fs *pflag.FlagSet) {
	fs.StringVar(&vf.name, "name", "", "vendor name")
	fs.StringVar(&vf.contact, "contact", "", "contact person")
	fs.StringVar(&vf.email, "email", "", "contact email")
	fs.StringVar(&vf.phone, "phone", "", "contact phone")
	fs.StringVar(&vf.address, "address", "", "postal address")
}

func (vf *vendorFlags) input(fs *pflag.FlagSet) domain.VendorInput {
	var in domain.VendorInput
	set := func(flag string, v string, dst **string) {
		if fs.Changed(flag) {
			*dst = &v
		}
	}
	set("name", vf.name, &in.Name)
	set("contact", vf.contact, &in.ContactPerson)
	set("email", vf.email, &in.Email)
	set("phone", vf.phone, &in.Phone)
	set("address", vf.address, &in.Address)
	return in
}

type newVendorForm struct {
	Name string `json:"name" validate:"required"`
}

func newVendorsCreateCmd(app appFunc, out formatterFunc) *cobra.Command {
	var vf vendorFlags
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a vendor",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := app()
			if _, err := a.requireSession(); err != nil {
				return err
			}
			if err := validate.Struct(newVendorForm{Name: vf.name}); err != nil {
				return err
			}
			in := vf.input(cmd.Flags())
			if err := validate.Struct(in); err != nil {
				return err
			}
			v, err := a.vendors.Create(cmd.Context(), in)
			if err != nil {
				return fmt.Errorf("create vendor: %w", err)
			}
			return printVendor(out(), v)
		},
	}
	vf.bind(cmd.Flags())
	return cmd
}

func newVendorsUpdateCmd(app appFunc, out formatterFunc) *cobra.Command {
	var vf vendorFlags
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change some fields of a vendor",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			if _, err := a.requireSession(); err != nil {
				return err
			}
			in := vf.input(cmd.Flags())
			if in == (domain.VendorInput{}) {
				return usagef("nothing to update: pass at least one field flag")
			}
			if err := validate.Struct(in); err != nil {
				return err
			}
			v, err := a.vendors.Update(cmd.Context(), args[0], in)
			if err != nil {
				return fmt.Errorf("update vendor %s: %w", args[0], err)
			}
			return printVendor(out(), v)
		},
	}
	vf.bind(cmd.Flags())
	return cmd
}

func newVendorsDeleteCmd(app appFunc, out formatterFunc) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a vendor",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			if _, err := a.requireSession(); err != nil {
				return err
			}
			if ok, err := confirm(a, yes, fmt.Sprintf("Delete vendor %s?", args[0])); err != nil || !ok {
				return err
			}
			if err := a.vendors.Delete(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("delete vendor %s: %w", args[0], err)
			}
			return out().Notice(deletedView{ID: args[0]}, fmt.Sprintf("Vendor %s deleted.", args[0]))
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

type deletedView struct {
	ID string `json:"deleted" yaml:"deleted"`
}

// confirm skips the prompt when the user already said yes.
func confirm(a *App, yes bool, question string) (bool, error) {
	if yes {
		return true, nil
	}
	return a.prompt.Confirm(question)
}

func printVendor(f formatter, v *domain.Vendor) error {
	return f.Print(v, keyValues(
		[2]string{"ID", v.ID},
		[2]string{"Name", v.Name},
		[2]string{"Contact", v.ContactPerson},
		[2]string{"Email", v.Email},
		[2]string{"Phone", v.Phone},
		[2]string{"Address", v.Address},
		[2]string{"Created", formatTime(v.CreatedAt)},
		[2]string{"Updated", formatTime(v.UpdatedAt)},
	))
}
