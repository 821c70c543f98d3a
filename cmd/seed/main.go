// Package main loads guestbook fixtures through the live submission pipeline.
//
// Submissions are classified, rate limited and audited exactly as HTTP
// submissions are, so fixture authors must stay within the per-identity caps.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"travelguide.io/guestbook/internal/app/modules"
	"travelguide.io/guestbook/internal/config"
	"travelguide.io/guestbook/internal/domain"
	"travelguide.io/guestbook/internal/pkg/logger"
)

func main() {
	app := cli.App{
		Name:  "guestbook-seed",
		Usage: "submit fixture entries and comments through the moderation pipeline",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "fixture",
				Usage:    "path to the YAML fixture",
				Required: true,
				EnvVars:  []string{"SEED_FIXTURE"},
			},
			&cli.StringFlag{
				Name:  "reviewer",
				Usage: "identity recorded as moderator for approvals",
				Value: "seed-reviewer",
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "parse and check the fixture without connecting to the database",
			},
		},
		Action: runSeed,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "seed error: %v\n", err)
		os.Exit(1)
	}
}

func runSeed(cctx *cli.Context) error {
	fx, err := LoadFixture(cctx.String("fixture"))
	if err != nil {
		return err
	}
	if cctx.Bool("dry-run") {
		fmt.Printf("fixture ok: %d entries\n", len(fx.Entries))
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	ctx := cctx.Context
	infra, err := modules.NewInfrastructure(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init infrastructure: %w", err)
	}
	defer infra.Close()

	submissions := modules.NewSubmissionModule(infra)
	governance := modules.NewGovernanceModule(infra)
	reviewer := domain.Identity{
		ID:          cctx.String("reviewer"),
		DisplayName: "Seed Reviewer",
		Permissions: []string{domain.PermissionModerationManage},
	}

	logger.Info("Starting guestbook seeding", zap.Int("entries", len(fx.Entries)))
	report, err := NewSeeder(submissions.Submitter(), governance.Gateway(), infra.Pools.General, reviewer).Run(ctx, fx)
	if err != nil {
		return err
	}

	logger.Info("Guestbook seeding completed",
		zap.Int("created", report.Created),
		zap.Int("approved", report.Approved),
		zap.Int("pending", report.ByState[domain.StatePending]),
		zap.Int("spam", report.ByState[domain.StateSpam]),
		zap.Int("failed", len(report.Failures)),
	)
	if len(report.Failures) > 0 {
		return fmt.Errorf("%d fixture submissions failed; first: %w", len(report.Failures), report.Failures[0])
	}
	return nil
}
