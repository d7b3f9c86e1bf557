package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mwenger/discourse/internal/agent"
	"github.com/mwenger/discourse/internal/artifact"
	"github.com/mwenger/discourse/internal/audit"
	"github.com/mwenger/discourse/internal/config"
	"github.com/mwenger/discourse/internal/output"
	"github.com/mwenger/discourse/internal/referee"
	"github.com/mwenger/discourse/internal/session"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <config.yaml>",
		Short: "Run a discourse session from a config file",
		Args:  cobra.ExactArgs(1),
		RunE:  runSession,
	}
	cmd.Flags().Bool("dry-run", false, "Validate the config and show the plan without invoking agents")
	cmd.Flags().String("output-dir", "", "Override the configured output directory")
	return cmd
}

func runSession(cmd *cobra.Command, args []string) error {
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	outputDir, _ := cmd.Flags().GetString("output-dir")

	cfg, err := config.Load(args[0])
	if err != nil {
		return err
	}
	if outputDir != "" {
		cfg.OutputDir = outputDir
	}

	if dryRun {
		printPlan(cmd.OutOrStdout(), cfg)
		return nil
	}

	ctx, stop := sessionContext(context.Background())
	defer stop()

	dir, err := artifact.NewSessionDir(cfg.OutputDir, cfg.Topic)
	if err != nil {
		return err
	}
	if err := copyConfig(cfg.SourcePath, dir); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	console := referee.NewConsole(cmd.InOrStdin(), out)
	auditLog := audit.New(dir)
	invoker := agent.NewCLIInvoker()
	invoker.DebugDir = filepath.Join(dir, "debug")

	var ctrl session.Controller
	switch cfg.Mode {
	case config.ModeWorkshop:
		ctrl, err = session.NewWorkshop(cfg, dir, invoker, console, auditLog, out)
	default:
		ctrl, err = session.NewDebate(cfg, dir, invoker, console, auditLog, out)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "%s\n", output.Faint(fmt.Sprintf("Session directory: %s", dir)))
	if err := ctrl.Run(ctx); err != nil {
		if errors.Is(err, session.ErrAborted) {
			fmt.Fprintf(out, "%s\n", output.Error("Session aborted by referee"))
			return nil
		}
		return err
	}
	return nil
}

// sessionContext cancels on the first Ctrl+C so the session can finalize
// its artifact. It unregisters the handler as soon as the context fires,
// returning SIGINT to default handling: a second Ctrl+C kills the process,
// even while a referee prompt is blocking on stdin.
func sessionContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt)
	context.AfterFunc(ctx, stop)
	return ctx, stop
}

func printPlan(out io.Writer, cfg *config.Config) {
	fmt.Fprintf(out, "%s\n", output.Banner("Dry Run"))
	fmt.Fprintf(out, "Topic:    %s\n", cfg.Topic)
	fmt.Fprintf(out, "Mode:     %s\n", cfg.Mode)
	keys := cfg.Keys()
	for _, key := range keys[:] {
		p := cfg.Participants[key]
		fmt.Fprintf(out, "  %-8s %s (%s)\n", key+":", output.Name(p.Name), p.Role)
	}
	if cfg.Mode == config.ModeWorkshop {
		fmt.Fprintf(out, "Brief:    %s\n", cfg.Brief)
		if cfg.SourceFile != "" {
			fmt.Fprintf(out, "Source:   %s\n", cfg.SourceFile)
		}
	}
	fmt.Fprintf(out, "Turns:    max %d, check-in every %d, timeout %ds\n", cfg.MaxTurns, cfg.CheckInInterval, cfg.TurnTimeout)
	fmt.Fprintf(out, "Output:   %s\n", cfg.OutputDir)
}

// copyConfig snapshots the config into the session directory so the run is
// reproducible even if the original file changes later.
func copyConfig(src, dir string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("reading config for snapshot: %w", err)
	}
	dst := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return fmt.Errorf("snapshotting config: %w", err)
	}
	return nil
}
