package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/cadenza/internal/backend"
	"github.com/roach88/cadenza/internal/trace"
)

// SessionsOptions holds flags for the sessions command.
type SessionsOptions struct {
	*RootOptions
	Database string
	Token    string // optional - show one session's schedule
}

// SessionsResult holds the persisted sessions, plus one session's ops
// when a token filter is set.
type SessionsResult struct {
	Sessions []trace.SessionRecord `json:"sessions"`
	Ops      []backend.Op          `json:"ops,omitempty"`
}

// NewSessionsCommand creates the sessions command.
func NewSessionsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SessionsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Inspect persisted render sessions",
		Long: `List render sessions persisted to a schedule log, or show one
session's full operation schedule.

Examples:
  cadenza sessions --db schedule.db
  cadenza sessions --db schedule.db --token 0190a8f2-...
  cadenza sessions --db schedule.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSessions(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the SQLite schedule log (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Token, "token", "", "show the schedule for this session token")

	return cmd
}

func runSessions(opts *SessionsOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	store, err := trace.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open schedule log", err)
	}
	defer store.Close()

	ctx := context.Background()
	result := SessionsResult{}

	result.Sessions, err = store.Sessions(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read sessions", err)
	}

	if opts.Token != "" {
		result.Ops, err = store.Ops(ctx, opts.Token)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read session ops", err)
		}
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	return outputSessionsText(formatter, result, opts.Token)
}

func outputSessionsText(formatter *OutputFormatter, result SessionsResult, token string) error {
	w := formatter.Writer

	if token == "" {
		if len(result.Sessions) == 0 {
			fmt.Fprintln(w, "(no sessions)")
			return nil
		}
		for _, s := range result.Sessions {
			fmt.Fprintf(w, "%s  %-16s anchor %.3f\n", s.Token, s.Sound, s.Anchor)
		}
		return nil
	}

	fmt.Fprintf(w, "Session: %s\n", token)
	fmt.Fprintln(w)
	if len(result.Ops) == 0 {
		fmt.Fprintln(w, "  (no operations)")
		return nil
	}
	for _, op := range result.Ops {
		fmt.Fprintln(w, formatOp(op))
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%d operation(s)\n", len(result.Ops))
	return nil
}
