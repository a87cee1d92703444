package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/mmynk/ownerportal/internal/app"
	"github.com/mmynk/ownerportal/internal/config"
	"github.com/mmynk/ownerportal/internal/handler"
	"github.com/mmynk/ownerportal/internal/middleware"
	"github.com/mmynk/ownerportal/internal/models"
	"github.com/mmynk/ownerportal/internal/service"
)

// operator is the identity CLI commands run as.
var operator = middleware.Identity{UserID: "portalctl", Email: "portalctl@localhost", Role: models.RoleAdmin}

type cli struct {
	out    io.Writer
	logger *slog.Logger
}

func newRootCmd(out io.Writer, logger *slog.Logger) *cobra.Command {
	c := &cli{out: out, logger: logger}

	root := &cobra.Command{
		Use:           "portalctl",
		Short:         "Owner portal operations",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		c.statementCmd(),
		c.touristTaxCmd(),
		c.syncReviewsCmd(),
		c.createUserCmd(),
	)
	return root
}

// withPortal opens the portal for one command and runs fn as the operator.
func (c *cli) withPortal(cmd *cobra.Command, fn func(ctx context.Context, svc handler.Services) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	portal, err := app.Open(ctx, cfg, c.logger)
	if err != nil {
		return err
	}
	defer portal.Close()
	return fn(middleware.WithIdentity(ctx, operator), portal.Services)
}

func (c *cli) print(v any) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// periodFlags registers --start and --end on cmd.
func periodFlags(cmd *cobra.Command, start, end *string) {
	cmd.Flags().StringVar(start, "start", "", "first day of the period (YYYY-MM-DD)")
	cmd.Flags().StringVar(end, "end", "", "last day of the period (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
}

func (c *cli) statementCmd() *cobra.Command {
	var req service.StatementRequest
	cmd := &cobra.Command{
		Use:   "statement <hostkit-id>",
		Short: "Generate an owner statement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.HostkitID = args[0]
			return c.withPortal(cmd, func(ctx context.Context, svc handler.Services) error {
				st, err := svc.Statements.Generate(ctx, req)
				if err != nil {
					return fmt.Errorf("failed to generate statement: %w", err)
				}
				return c.print(st)
			})
		},
	}
	periodFlags(cmd, &req.StartDate, &req.EndDate)
	cmd.Flags().StringVar(&req.CommissionPercentage, "commission", "", "management commission percentage (default from config)")
	return cmd
}

func (c *cli) touristTaxCmd() *cobra.Command {
	var req service.TouristTaxRequest
	cmd := &cobra.Command{
		Use:   "tourist-tax <hostkit-id>",
		Short: "Build a tourist-tax report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.HostkitID = args[0]
			return c.withPortal(cmd, func(ctx context.Context, svc handler.Services) error {
				report, err := svc.TouristTax.Report(ctx, req)
				if err != nil {
					return fmt.Errorf("failed to build report: %w", err)
				}
				return c.print(report)
			})
		},
	}
	periodFlags(cmd, &req.StartDate, &req.EndDate)
	cmd.Flags().StringVar(&req.FilterType, "filter", "checkin", "select stays by checkin or checkout")
	return cmd
}

func (c *cli) syncReviewsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync-reviews",
		Short: "Sync Hostaway reviews for every linked property",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withPortal(cmd, func(ctx context.Context, svc handler.Services) error {
				result, err := svc.Reviews.Sync(ctx)
				if err != nil {
					return fmt.Errorf("review sync failed: %w", err)
				}
				return c.print(result)
			})
		},
	}
}

func (c *cli) createUserCmd() *cobra.Command {
	var (
		req  service.RegisterRequest
		role string
	)
	cmd := &cobra.Command{
		Use:   "create-user",
		Short: "Create a portal account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req.Role = models.Role(role)
			return c.withPortal(cmd, func(ctx context.Context, svc handler.Services) error {
				user, err := svc.Auth.Register(ctx, req)
				if err != nil {
					return fmt.Errorf("failed to create user: %w", err)
				}
				return c.print(user)
			})
		},
	}
	cmd.Flags().StringVar(&req.Email, "email", "", "login email")
	cmd.Flags().StringVar(&req.Name, "name", "", "display name")
	cmd.Flags().StringVar(&req.Password, "password", "", "initial password (8 characters or more)")
	cmd.Flags().StringVar(&role, "role", string(models.RoleOwner), "owner, accountant or admin")
	cmd.Flags().BoolVar(&req.OTPEnabled, "otp", false, "require a mailed code at login")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}
