package cli

import (
	"errors"

	"github.com/spf13/cobra"
)

var errUnhealthy = errors.New("one or more dependencies are unavailable")

func newDoctorCmd(app appFunc, out formatterFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check that the backend and the token store are reachable",
		Long: `Probe the configured backend URL and the token store.

Exits non-zero when any dependency is unavailable, so it can gate scripts:
  optiflow doctor -o json`,
		Args:        exactArgs(0),
		Annotations: map[string]string{skipBootstrap: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := app()
			report := a.health.Check(cmd.Context())

			rows := make([][]string, 0, len(report.Dependencies))
			for _, name := range report.Names() {
				dep := report.Dependencies[name]
				rows = append(rows, []string{name, dep.Status, dep.Error})
			}
			if err := out().Print(report, view{
				headers: []string{"Dependency", "Status", "Error"},
				rows:    rows,
			}); err != nil {
				return err
			}
			if !report.Healthy() {
				return errUnhealthy
			}
			return nil
		},
	}
}
