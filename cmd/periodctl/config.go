package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/odyssey-erp/periodclose/internal/app"
	"github.com/odyssey-erp/periodclose/internal/close"
)

func newConfigCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Read and update per-company closing configuration",
	}
	cmd.AddCommand(newConfigGetCommand(opts), newConfigSetCommand(opts))
	return cmd
}

func newConfigGetCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <company>",
		Short: "Show the effective configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, opts, func(ctx context.Context, rt *app.Runtime) error {
				cfg, err := rt.Service.Config(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), cfg)
			})
		},
	}
}

func newConfigSetCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set <company> key=value...",
		Short: "Update configuration fields",
		Example: "  periodctl config set ACME retained_earnings_account=\"Retained Earnings - ACME\" " +
			"enable_payroll_check=false reminder_days_before_end=5",
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			patch, err := parseConfigPatch(args[1:])
			if err != nil {
				return err
			}
			return withRuntime(cmd, opts, func(ctx context.Context, rt *app.Runtime) error {
				cfg, err := rt.Service.UpdateConfig(ctx, args[0], patch)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), cfg)
			})
		},
	}
}

// parseConfigPatch turns key=value pairs into a patch using the JSON field
// names. Values that parse as booleans or integers are sent typed.
func parseConfigPatch(pairs []string) (close.ConfigPatch, error) {
	fields := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return close.ConfigPatch{}, fmt.Errorf("expected key=value, got %q", pair)
		}
		if b, err := strconv.ParseBool(value); err == nil {
			fields[key] = b
			continue
		}
		if n, err := strconv.Atoi(value); err == nil {
			fields[key] = n
			continue
		}
		fields[key] = value
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return close.ConfigPatch{}, err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	var patch close.ConfigPatch
	if err := dec.Decode(&patch); err != nil {
		return close.ConfigPatch{}, fmt.Errorf("invalid configuration field: %w", err)
	}
	return patch, nil
}
