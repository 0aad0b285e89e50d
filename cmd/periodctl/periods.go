package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/odyssey-erp/periodclose/internal/app"
	"github.com/odyssey-erp/periodclose/internal/close"
	"github.com/odyssey-erp/periodclose/report"
)

const dateLayout = "2006-01-02"

func newPeriodsCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "periods",
		Short: "List and create accounting periods",
	}
	cmd.AddCommand(newPeriodsListCommand(opts), newPeriodsCreateCommand(opts), newPeriodsGenerateCommand(opts))
	return cmd
}

func newPeriodsListCommand(opts *globalOptions) *cobra.Command {
	var filter close.PeriodFilter
	var status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List periods",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter.Status = close.PeriodStatus(status)
			if filter.Status != "" && !filter.Status.Valid() {
				return fmt.Errorf("unknown status %q", status)
			}
			return withRuntime(cmd, opts, func(ctx context.Context, rt *app.Runtime) error {
				periods, err := rt.Service.ListPeriods(ctx, filter)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), periods)
			})
		},
	}
	cmd.Flags().StringVar(&filter.Company, "company", "", "company filter")
	cmd.Flags().StringVar(&status, "status", "", "status filter (Open, Closed, Permanently Closed)")
	cmd.Flags().StringVar(&filter.FiscalYear, "fiscal-year", "", "fiscal year filter")
	cmd.Flags().IntVar(&filter.Limit, "limit", 100, "maximum rows")
	return cmd
}

func newPeriodsCreateCommand(opts *globalOptions) *cobra.Command {
	var in close.CreatePeriodInput
	var start, end, periodType string
	cmd := &cobra.Command{
		Use:   "create <period-name>",
		Short: "Create an Open period",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if in.StartDate, err = time.ParseInLocation(dateLayout, start, time.UTC); err != nil {
				return fmt.Errorf("parsing --start: %w", err)
			}
			if in.EndDate, err = time.ParseInLocation(dateLayout, end, time.UTC); err != nil {
				return fmt.Errorf("parsing --end: %w", err)
			}
			in.PeriodName = args[0]
			in.PeriodType = close.PeriodType(periodType)
			return withRuntime(cmd, opts, func(ctx context.Context, rt *app.Runtime) error {
				period, err := rt.Service.CreatePeriod(ctx, in)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), period)
			})
		},
	}
	cmd.Flags().StringVar(&in.Company, "company", "", "company (required)")
	_ = cmd.MarkFlagRequired("company")
	cmd.Flags().StringVar(&start, "start", "", "start date YYYY-MM-DD (required)")
	_ = cmd.MarkFlagRequired("start")
	cmd.Flags().StringVar(&end, "end", "", "end date YYYY-MM-DD (required)")
	_ = cmd.MarkFlagRequired("end")
	cmd.Flags().StringVar(&periodType, "type", string(close.PeriodTypeMonthly), "period type (Monthly, Quarterly, Yearly)")
	cmd.Flags().StringVar(&in.FiscalYear, "fiscal-year", "", "fiscal year, defaults to the start year")
	cmd.Flags().StringVar(&in.Remarks, "remarks", "", "free-form remarks")
	return cmd
}

func newPeriodsGenerateCommand(opts *globalOptions) *cobra.Command {
	var in close.GenerateMonthlyInput
	var start, end string
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Create the monthly periods of a fiscal year",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if in.YearStart, err = flagDate(start); err != nil {
				return fmt.Errorf("parsing --start: %w", err)
			}
			if in.YearEnd, err = flagDate(end); err != nil {
				return fmt.Errorf("parsing --end: %w", err)
			}
			return withRuntime(cmd, opts, func(ctx context.Context, rt *app.Runtime) error {
				out, err := rt.Service.GenerateMonthlyPeriods(ctx, in)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "→ %d created, %d skipped, %d failed\n", len(out.Created), len(out.Skipped), len(out.Errors))
				return printJSON(cmd.OutOrStdout(), out)
			})
		},
	}
	companyFlag(cmd, &in.Company)
	cmd.Flags().StringVar(&in.FiscalYear, "fiscal-year", "", "fiscal year (required)")
	_ = cmd.MarkFlagRequired("fiscal-year")
	cmd.Flags().StringVar(&start, "start", "", "fiscal year start YYYY-MM-DD, defaults to January 1 of --fiscal-year")
	cmd.Flags().StringVar(&end, "end", "", "fiscal year end YYYY-MM-DD, defaults to December 31 of --fiscal-year")
	return cmd
}

func flagDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	return time.ParseInLocation(dateLayout, raw, time.UTC)
}

func newValidateCommand(opts *globalOptions) *cobra.Command {
	var company string
	cmd := &cobra.Command{
		Use:   "validate <period>",
		Short: "Run the pre-close checks without changing state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, opts, func(ctx context.Context, rt *app.Runtime) error {
				report, err := rt.Service.ValidatePeriod(ctx, company, args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), report)
			})
		},
	}
	companyFlag(cmd, &company)
	return cmd
}

func newCloseCommand(opts *globalOptions) *cobra.Command {
	var in close.ClosePeriodInput
	cmd := &cobra.Command{
		Use:   "close <period>",
		Short: "Close an Open period and post the closing entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Name = args[0]
			return withRuntime(cmd, opts, func(ctx context.Context, rt *app.Runtime) error {
				period, err := rt.Service.ClosePeriod(ctx, in)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), period)
			})
		},
	}
	companyFlag(cmd, &in.Company)
	cmd.Flags().BoolVar(&in.Force, "force", false, "close despite failing checks")
	return cmd
}

func newReopenCommand(opts *globalOptions) *cobra.Command {
	var in close.ReopenPeriodInput
	cmd := &cobra.Command{
		Use:   "reopen <period>",
		Short: "Reopen a Closed period and void its closing entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Name = args[0]
			return withRuntime(cmd, opts, func(ctx context.Context, rt *app.Runtime) error {
				period, err := rt.Service.ReopenPeriod(ctx, in)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), period)
			})
		},
	}
	companyFlag(cmd, &in.Company)
	cmd.Flags().StringVar(&in.Reason, "reason", "", "reason recorded in the audit log (required)")
	_ = cmd.MarkFlagRequired("reason")
	return cmd
}

func newPermanentCloseCommand(opts *globalOptions) *cobra.Command {
	var in close.PermanentCloseInput
	cmd := &cobra.Command{
		Use:   "permanently-close <period>",
		Short: "Seal a Closed period; this cannot be undone",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Name = args[0]
			return withRuntime(cmd, opts, func(ctx context.Context, rt *app.Runtime) error {
				period, err := rt.Service.PermanentlyClosePeriod(ctx, in)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), period)
			})
		},
	}
	companyFlag(cmd, &in.Company)
	cmd.Flags().StringVar(&in.Confirmation, "confirm", "", "type "+close.PermanentCloseConfirmation+" to confirm")
	_ = cmd.MarkFlagRequired("confirm")
	return cmd
}

func newPreviewCommand(opts *globalOptions) *cobra.Command {
	var company string
	cmd := &cobra.Command{
		Use:   "preview <period>",
		Short: "Show the closing entry a close would post, without posting it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, opts, func(ctx context.Context, rt *app.Runtime) error {
				preview, err := rt.Service.PreviewClosing(ctx, company, args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), preview)
			})
		},
	}
	companyFlag(cmd, &company)
	return cmd
}

func newSummaryCommand(opts *globalOptions) *cobra.Command {
	var company, pdfPath string
	cmd := &cobra.Command{
		Use:   "summary <period>",
		Short: "Show the balances behind a period's closing entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, opts, func(ctx context.Context, rt *app.Runtime) error {
				summary, err := rt.Service.GetClosingSummary(ctx, company, args[0])
				if err != nil {
					return err
				}
				if pdfPath == "" {
					return printJSON(cmd.OutOrStdout(), summary)
				}
				return writeSummaryPDF(ctx, opts, summary, pdfPath)
			})
		},
	}
	companyFlag(cmd, &company)
	cmd.Flags().StringVar(&pdfPath, "pdf", "", "render the summary to this PDF file via Gotenberg")
	return cmd
}

func writeSummaryPDF(ctx context.Context, opts *globalOptions, summary close.ClosingSummary, path string) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	renderer, err := report.NewRenderer(report.NewClient(cfg.GotenbergURL))
	if err != nil {
		return err
	}
	pdf, err := renderer.ClosingSummaryPDF(ctx, summary)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, pdf, 0o644); err != nil {
		return err
	}
	fmt.Printf("→ wrote %s (%d bytes)\n", path, len(pdf))
	return nil
}

func companyFlag(cmd *cobra.Command, target *string) {
	cmd.Flags().StringVar(target, "company", "", "company (required)")
	_ = cmd.MarkFlagRequired("company")
}
