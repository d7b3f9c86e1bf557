package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mwenger/discourse/internal/artifact"
	"github.com/mwenger/discourse/internal/output"
)

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <session-dir>",
		Short: "Summarize a finished or interrupted session directory",
		Args:  cobra.ExactArgs(1),
		RunE:  inspectSession,
	}
}

func inspectSession(cmd *cobra.Command, args []string) error {
	dir := args[0]
	out := cmd.OutOrStdout()

	if conv := filepath.Join(dir, "conversation.md"); exists(conv) {
		return inspectConversation(out, conv)
	}
	if log := filepath.Join(dir, "editorial-log.md"); exists(log) {
		return inspectWorkshop(out, dir, log)
	}
	return fmt.Errorf("no session artifacts found in %s", dir)
}

func inspectConversation(out io.Writer, path string) error {
	sess, err := artifact.ParseFile(path)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s\n", output.Banner(sess.Header.Topic))
	fmt.Fprintf(out, "Status:   %s\n", sess.Header.Status)
	fmt.Fprintf(out, "Started:  %s\n", sess.Header.StartedAt)
	if sess.Header.EndedAt != "" {
		fmt.Fprintf(out, "Ended:    %s\n", sess.Header.EndedAt)
	}
	fmt.Fprintf(out, "Turns:    %d recorded (%d written)\n", sess.Header.TotalTurns, len(sess.Turns))
	for _, turn := range sess.Turns {
		fmt.Fprintf(out, "  %s %s\n", output.TurnLabel(turn.Number, sess.Header.TotalTurns), output.Name(turn.Speaker))
	}
	if len(sess.Notes) > 0 {
		fmt.Fprintf(out, "Notes:    %d referee note(s)\n", len(sess.Notes))
	}
	if len(sess.Closings) > 0 {
		fmt.Fprintf(out, "Closings: %d statement(s)\n", len(sess.Closings))
	}
	return nil
}

func inspectWorkshop(out io.Writer, dir, logPath string) error {
	data, err := os.ReadFile(logPath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", logPath, err)
	}
	header, _, err := artifact.ParseFrontmatter(data)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s\n", output.Banner(header.Topic))
	fmt.Fprintf(out, "Status:   %s\n", header.Status)
	fmt.Fprintf(out, "Started:  %s\n", header.StartedAt)
	if header.EndedAt != "" {
		fmt.Fprintf(out, "Ended:    %s\n", header.EndedAt)
	}
	fmt.Fprintf(out, "Turns:    %d\n", header.TotalTurns)

	doc, err := artifact.OpenDocument(dir)
	if err != nil {
		return err
	}
	history, err := doc.History()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Document: %s (%d revision(s))\n", doc.Path(), len(history))
	for _, rev := range history {
		fmt.Fprintf(out, "  %s %s\n", rev.Commit[:8], rev.Subject)
	}
	return nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
