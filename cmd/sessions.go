package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mattsre/conflux/internal/models"
	"github.com/mattsre/conflux/internal/output"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Inspect conflict resolution sessions",
}

var sessionsListLimit int

var sessionsListCmd = &cobra.Command{
	Use:   "list [<owner>/<repo> <pr-number>]",
	Short: "List recent sessions, optionally scoped to one pull request",
	Args:  cobra.RangeArgs(0, 2),
	RunE:  runSessionsList,
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Show one session in detail",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsShow,
}

func init() {
	sessionsListCmd.Flags().IntVarP(&sessionsListLimit, "limit", "n", 20, "Maximum sessions to list")
	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsShowCmd)
	rootCmd.AddCommand(sessionsCmd)
}

func runSessionsList(cmd *cobra.Command, args []string) error {
	st, err := getStore()
	if err != nil {
		return err
	}
	defer st.Close()

	var sessions []*models.ConflictSession
	switch len(args) {
	case 0:
		sessions, err = st.ListSessions(cmd.Context(), sessionsListLimit)
	case 2:
		owner, repo, ok := strings.Cut(args[0], "/")
		if !ok {
			return fmt.Errorf("repository must be <owner>/<repo>, got %q", args[0])
		}
		number, convErr := strconv.Atoi(args[1])
		if convErr != nil {
			return fmt.Errorf("invalid pull request number %q", args[1])
		}
		sessions, err = st.ListSessionsForPR(cmd.Context(), owner, repo, number)
	default:
		return fmt.Errorf("provide both <owner>/<repo> and <pr-number>, or neither")
	}
	if err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}

	if len(sessions) == 0 {
		ui.Info("no sessions found")
		return nil
	}

	table := ui.Table([]string{"ID", "REPO", "PR", "REASON", "PHASE", "OUTCOME", "UPDATED"})
	for _, s := range sessions {
		table.Append([]string{
			s.ID,
			fmt.Sprintf("%s/%s", s.Owner, s.Repo),
			strconv.Itoa(s.PRNumber),
			string(s.Reason),
			output.PhaseColor(s.Phase),
			output.OutcomeColor(s.Outcome),
			s.UpdatedAt.Format("2006-01-02 15:04"),
		})
	}
	return table.Render()
}

func runSessionsShow(cmd *cobra.Command, args []string) error {
	st, err := getStore()
	if err != nil {
		return err
	}
	defer st.Close()

	s, err := st.GetSession(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("get session: %w", err)
	}

	ui.Info("session %s", s.ID)
	fmt.Fprintf(ui.Out, "  repo:     %s/%s#%d\n", s.Owner, s.Repo, s.PRNumber)
	fmt.Fprintf(ui.Out, "  reason:   %s\n", s.Reason)
	fmt.Fprintf(ui.Out, "  phase:    %s\n", output.PhaseColor(s.Phase))
	fmt.Fprintf(ui.Out, "  outcome:  %s\n", output.OutcomeColor(s.Outcome))
	if s.Branch != "" {
		fmt.Fprintf(ui.Out, "  branch:   %s\n", s.Branch)
	}
	if s.LastError != "" {
		fmt.Fprintf(ui.Out, "  error:    %s\n", s.LastError)
	}
	fmt.Fprintf(ui.Out, "  created:  %s\n", s.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(ui.Out, "  updated:  %s\n", s.UpdatedAt.Format("2006-01-02 15:04:05"))
	return nil
}
