package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/nsa09-nsa09/splitup-frontend/internal/domain"
)

// render prints v as indented JSON under --json, and as a table otherwise.
func (a *App) render(v any, header string, rows func(emit func(cols ...string))) error {
	if a.asJSON {
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, header)
	rows(func(cols ...string) {
		fmt.Fprintln(w, strings.Join(cols, "\t"))
	})
	return w.Flush()
}

// say prints a status line; it is suppressed under --json.
func (a *App) say(format string, args ...any) {
	if !a.asJSON {
		fmt.Fprintf(a.out, format+"\n", args...)
	}
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func optionalMoney(d *decimal.Decimal) string {
	if d == nil {
		return "-"
	}
	return money(*d)
}

func fmtID(v int64) string {
	if v == 0 {
		return "-"
	}
	return strconv.FormatInt(v, 10)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func when(ts *domain.Timestamp) string {
	if ts == nil || ts.IsZero() {
		return "-"
	}
	return ts.Format("2006-01-02 15:04")
}

func fmtFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}

// exactArgs reports a wrong argument count as a usage error.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return usageError{err}
		}
		return nil
	}
}

func maxArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.MaximumNArgs(n)(cmd, args); err != nil {
			return usageError{err}
		}
		return nil
	}
}

func parseID(field, raw string) (int64, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || v <= 0 {
		return 0, domain.NewValidationError(field, "must be a positive integer")
	}
	return v, nil
}

// decodePayload reads a JSON payload given inline, as @file, or as "-" for
// stdin. Unknown fields are rejected so typos do not silently drop data.
func decodePayload(cmd *cobra.Command, raw string, v any) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return domain.NewValidationError("data", "is required (inline JSON, @file or -)")
	}

	var src io.Reader
	switch {
	case raw == "-":
		src = cmd.InOrStdin()
	case strings.HasPrefix(raw, "@"):
		f, err := os.Open(strings.TrimPrefix(raw, "@"))
		if err != nil {
			return fmt.Errorf("failed to open payload file: %w", err)
		}
		defer f.Close()
		src = f
	default:
		src = strings.NewReader(raw)
	}

	dec := json.NewDecoder(src)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return domain.NewValidationError("data", fmt.Sprintf("is not a valid payload: %v", err))
	}
	return nil
}
