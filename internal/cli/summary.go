package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"spendlens/internal/aggregate"
	"spendlens/internal/config"
	"spendlens/internal/core"
	"spendlens/internal/export"
	"spendlens/internal/services"
)

type summaryFlags struct {
	owner       string
	file        string
	granularity string
	tz          string
	mergeYears  bool
	xlsx        string
	json        bool
}

func newSummaryCmd() *cobra.Command {
	var f summaryFlags

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print the expense summary for a user or a JSON file",
		Long: `Compute category totals, month totals, the time series and the
weekday/hour heatmap. Records come from the configured store (--owner) or
from a JSON array of expenses (--file).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if f.owner == "" && f.file == "" {
				return errors.New("either --owner or --file is required")
			}
			g, err := aggregate.ParseGranularity(f.granularity)
			if err != nil {
				return err
			}

			var sum aggregate.Summary
			if f.file != "" {
				sum, err = summarizeFile(f, g)
			} else {
				sum, err = summarizeOwner(cmd, f, g)
			}
			if err != nil {
				return err
			}

			if f.xlsx != "" {
				if err := writeXLSX(f.xlsx, sum); err != nil {
					return err
				}
			}
			out := cmd.OutOrStdout()
			if f.json {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(sum)
			}
			RenderSummary(out, sum)
			if f.xlsx != "" {
				fmt.Fprintf(out, "Workbook written to %s\n", f.xlsx)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&f.owner, "owner", "", "email of the user to summarize")
	cmd.Flags().StringVar(&f.file, "file", "", "JSON file holding an array of expenses")
	cmd.Flags().StringVarP(&f.granularity, "granularity", "g", string(aggregate.Daily), "series granularity ("+granularityNames()+")")
	cmd.Flags().StringVar(&f.tz, "tz", "", "IANA time zone for bucketing (defaults to TIMEZONE)")
	cmd.Flags().BoolVar(&f.mergeYears, "merge-years", false, "fold the same month of different years together")
	cmd.Flags().StringVar(&f.xlsx, "xlsx", "", "also write the summary as an Excel workbook")
	cmd.Flags().BoolVar(&f.json, "json", false, "print JSON instead of tables")
	cmd.MarkFlagsMutuallyExclusive("owner", "file")

	return cmd
}

func summarizeFile(f summaryFlags, g aggregate.Granularity) (aggregate.Summary, error) {
	records, err := readExpenses(f.file)
	if err != nil {
		return aggregate.Summary{}, err
	}
	loc, err := resolveLocation(f.tz)
	if err != nil {
		return aggregate.Summary{}, err
	}
	return aggregate.Summarize(records, aggregate.Options{
		Granularity: g,
		Now:         time.Now(),
		Location:    loc,
		MergeYears:  f.mergeYears,
	})
}

func summarizeOwner(cmd *cobra.Command, f summaryFlags, g aggregate.Granularity) (aggregate.Summary, error) {
	cfg, logger, err := bootstrap(os.Stderr)
	if err != nil {
		return aggregate.Summary{}, err
	}
	app, err := NewApp(cmd.Context(), cfg, logger)
	if err != nil {
		return aggregate.Summary{}, err
	}
	defer app.Close()

	u, err := app.Store.GetUserByEmail(cmd.Context(), core.NormalizeEmail(f.owner))
	if err != nil {
		return aggregate.Summary{}, fmt.Errorf("look up %s: %w", f.owner, err)
	}

	req := services.SummaryRequest{Granularity: g}
	if f.tz != "" {
		if req.Location, err = time.LoadLocation(f.tz); err != nil {
			return aggregate.Summary{}, fmt.Errorf("invalid time zone %q: %w", f.tz, err)
		}
	}
	if cmd.Flags().Changed("merge-years") {
		req.MergeYears = &f.mergeYears
	}
	return app.Summaries().Summarize(cmd.Context(), u.ID, req)
}

func granularityNames() string {
	gs := aggregate.Granularities()
	names := make([]string, len(gs))
	for i, g := range gs {
		names[i] = string(g)
	}
	return strings.Join(names, ", ")
}

func readExpenses(path string) ([]core.Expense, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	records, err := core.DecodeExpenses(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return records, nil
}

// resolveLocation prefers the flag, then the configured TIMEZONE.
func resolveLocation(tz string) (*time.Location, error) {
	if tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("invalid time zone %q: %w", tz, err)
		}
		return loc, nil
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return cfg.Location()
}

func writeXLSX(path string, sum aggregate.Summary) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := export.Write(out, sum); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
