package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/odyssey-erp/periodclose/internal/app"
	"github.com/odyssey-erp/periodclose/internal/close"
	"github.com/odyssey-erp/periodclose/internal/shared"
)

func newAuditCommand(opts *globalOptions) *cobra.Command {
	var filter close.AuditFilter
	var action, from, to string
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Query the period closing audit log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter.ActionType = close.ActionType(action)
			var err error
			if filter.From, err = parseOptionalDate(from); err != nil {
				return fmt.Errorf("parsing --from: %w", err)
			}
			if filter.To, err = parseOptionalDate(to); err != nil {
				return fmt.Errorf("parsing --to: %w", err)
			}
			if filter.To != nil {
				end := filter.To.Add(24*time.Hour - time.Nanosecond)
				filter.To = &end
			}
			return withRuntime(cmd, opts, func(ctx context.Context, rt *app.Runtime) error {
				logs, total, err := rt.Service.ListAuditLog(ctx, filter)
				if err != nil {
					return err
				}
				n := filter.Normalize()
				return printJSON(cmd.OutOrStdout(), map[string]any{
					"data":       logs,
					"pagination": shared.NewPagination(n.Limit, n.Offset, total),
				})
			})
		},
	}
	cmd.Flags().StringVar(&filter.Company, "company", "", "company filter")
	cmd.Flags().StringVar(&filter.Period, "period", "", "period filter")
	cmd.Flags().StringVar(&action, "action", "", "action type filter")
	cmd.Flags().StringVar(&filter.ActionBy, "by", "", "actor filter")
	cmd.Flags().StringVar(&from, "from", "", "earliest action date YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "latest action date YYYY-MM-DD")
	cmd.Flags().IntVar(&filter.Limit, "limit", 20, "page size")
	cmd.Flags().IntVar(&filter.Offset, "offset", 0, "page offset")
	return cmd
}

func parseOptionalDate(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(dateLayout, raw, time.UTC)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
