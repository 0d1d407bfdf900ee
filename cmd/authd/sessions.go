package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/aidashboard/dashboard-auth/internal/domain"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
	expiredStyle = cellStyle.Foreground(lipgloss.Color("9"))
)

func newSessionsCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{Use: "sessions", Short: "Inspect and prune device sessions"}
	cmd.AddCommand(newSessionsListCommand(opts), newSessionsCleanupCommand(opts))
	return cmd
}

func newSessionsListCommand(opts *options) *cobra.Command {
	var (
		userID int64
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the sessions of one user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if userID <= 0 {
				return fmt.Errorf("--user-id is required")
			}
			admin, cleanup, err := initAdmin(opts)
			if err != nil {
				return err
			}
			defer cleanup()
			sessions, err := admin.Sessions(cmd.Context(), userID)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(sessions)
			}
			renderSessions(cmd.OutOrStdout(), sessions, time.Now())
			return nil
		},
	}
	cmd.Flags().Int64Var(&userID, "user-id", 0, "user id")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

func newSessionsCleanupCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Delete expired sessions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			admin, cleanup, err := initAdmin(opts)
			if err != nil {
				return err
			}
			defer cleanup()
			n, err := admin.CleanupSessions(cmd.Context())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "removed %d expired sessions\n", n)
			return err
		},
	}
}

func renderSessions(w io.Writer, sessions []domain.Session, now time.Time) {
	if len(sessions) == 0 {
		_, _ = fmt.Fprintln(w, "no sessions")
		return
	}
	expired := make(map[int]bool, len(sessions))
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "DEVICE", "CREATED", "EXPIRES")
	for i, s := range sessions {
		expired[i] = s.Expired(now)
		t.Row(
			strconv.FormatInt(s.ID, 10),
			s.UserAgent,
			s.CreatedAt.UTC().Format(time.RFC3339),
			s.ExpiresAt.UTC().Format(time.RFC3339),
		)
	}
	t.StyleFunc(func(row, _ int) lipgloss.Style {
		switch {
		case row == table.HeaderRow:
			return headerStyle
		case expired[row]:
			return expiredStyle
		default:
			return cellStyle
		}
	})
	_, _ = fmt.Fprintln(w, t.Render())
}
