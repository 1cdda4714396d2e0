package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"gopkg.in/yaml.v3"
)

const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

// view is the tabular rendering of a result.
type view struct {
	headers []string
	rows    [][]string
	// empty is printed instead of a table without rows.
	empty string
}

// formatter writes command results to stdout in the selected format.
type formatter interface {
	// Print renders v, or tv for the table format.
	Print(v any, tv view) error
	// Notice renders v, or text for the table format.
	Notice(v any, text string) error
}

func newFormatter(format string, w io.Writer) (formatter, error) {
	switch format {
	case formatTable, "":
		return tableFormatter{w: w}, nil
	case formatJSON:
		return jsonFormatter{w: w}, nil
	case formatYAML:
		return yamlFormatter{w: w}, nil
	default:
		return nil, fmt.Errorf("unknown output format %q (supported: table, json, yaml)", format)
	}
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

type tableFormatter struct{ w io.Writer }

func (f tableFormatter) Print(_ any, tv view) error {
	if len(tv.rows) == 0 && tv.empty != "" {
		_, err := fmt.Fprintln(f.w, tv.empty)
		return err
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(tv.headers...).
		Rows(tv.rows...)
	_, err := fmt.Fprintln(f.w, t.String())
	return err
}

func (f tableFormatter) Notice(_ any, text string) error {
	_, err := fmt.Fprintln(f.w, text)
	return err
}

type jsonFormatter struct{ w io.Writer }

func (f jsonFormatter) Print(v any, _ view) error {
	enc := json.NewEncoder(f.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (f jsonFormatter) Notice(v any, _ string) error { return f.Print(v, view{}) }

type yamlFormatter struct{ w io.Writer }

func (f yamlFormatter) Print(v any, _ view) error {
	enc := yaml.NewEncoder(f.w)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(v)
}

func (f yamlFormatter) Notice(v any, _ string) error { return f.Print(v, view{}) }

// keyValues renders a single record as a two-column table.
func keyValues(pairs ...[2]string) view {
	rows := make([][]string, 0, len(pairs))
	for _, p := range pairs {
		rows = append(rows, []string{p[0], p[1]})
	}
	return view{headers: []string{"Field", "Value"}, rows: rows}
}
