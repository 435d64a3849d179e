package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/teteocan/aurora-admin/app"
	"go.uber.org/zap"
)

// cliActorPrefix marks audit entries written from the command line
const cliActorPrefix = "cli:"

func newGrantAdminCmd(rt *cliState) *cobra.Command {
	var email, actor string

	cmd := &cobra.Command{
		Use:   "grant-admin",
		Short: "Grant the admin claim to an existing account",
		Long: `grant-admin sets the admin claim on the account registered under --email
and upserts its admin record. Use it to bootstrap the first administrator.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDependencies(cmd.Context(), rt, func(deps *app.Dependencies) error {
				result, err := deps.AdminManager.GrantAdminByEmail(cmd.Context(), email, cliActorPrefix+actor)
				if result != nil {
					// partial failures still carry the granted identity
					if werr := writeJSON(cmd, result); werr != nil {
						return werr
					}
				}
				if err != nil {
					return fmt.Errorf("grant admin: %w", err)
				}
				rt.logger.Info("admin claim granted",
					zap.String("uid", result.UID),
					zap.String("actor", cliActorPrefix+actor))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email of the account to promote")
	cmd.Flags().StringVar(&actor, "actor", "operator", "Operator name recorded in the audit log")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newCheckAdminCmd(rt *cliState) *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "check-admin",
		Short: "Compare an account's admin claim with its admin record",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDependencies(cmd.Context(), rt, func(deps *app.Dependencies) error {
				report, err := deps.AdminManager.ReconcileByEmail(cmd.Context(), email)
				if err != nil {
					return fmt.Errorf("check admin: %w", err)
				}
				return writeJSON(cmd, report)
			})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email of the account to check")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

// withDependencies builds the dependency graph for a one-shot command and closes it afterwards
func withDependencies(ctx context.Context, rt *cliState, fn func(*app.Dependencies) error) error {
	deps, err := app.NewDependencies(ctx, rt.cfg, rt.logger, nil)
	if err != nil {
		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}

	runErr := fn(deps)
	if err := deps.Close(context.Background()); err != nil && runErr == nil {
		return err
	}
	return runErr
}

func writeJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
