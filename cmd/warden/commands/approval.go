package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/MEKXH/warden/internal/approval"
	"github.com/MEKXH/warden/internal/config"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

func NewApprovalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "approval",
		Short: "Inspect KOS requests",
	}

	cmd.AddCommand(newApprovalListCmd())

	return cmd
}

func newApprovalListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List KOS requests",
		RunE:  runApprovalList,
	}
	cmd.Flags().String("status", string(approval.StatusOpen), "Filter by status (open|approved|denied|all)")
	cmd.Flags().String("subject", "", "Filter by username")
	return cmd
}

func runApprovalList(cmd *cobra.Command, args []string) error {
	query, err := approvalQuery(cmd)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	a, err := newApp(cfg, nil, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	reqs, err := a.approvals.List(context.Background(), query)
	if err != nil {
		return err
	}
	if len(reqs) == 0 {
		fmt.Println("No KOS requests.")
		return nil
	}

	const (
		wID        = 10
		wStatus    = 10
		wUser      = 18
		wRequested = 22
		wPerson    = 14
		wReason    = 30
	)
	out := cmdOut(cmd)
	printTableHead(out, "KOS Requests", []column{
		{"ID", wID},
		{"STATUS", wStatus},
		{"USERNAME", wUser},
		{"REQUESTED", wRequested},
		{"REQUESTER", wPerson},
		{"REVIEWER", wPerson},
		{"REASON", wReason},
	})

	loc := a.watchlist.Location()
	for _, r := range reqs {
		printTableRow(out,
			cell(wID).Foreground(dimColor).Render(shortID(r.ID)),
			cell(wStatus).Foreground(statusColor(r.Status)).Render(string(r.Status)),
			cell(wUser).Render(truncate(r.SubjectKey, wUser)),
			cell(wRequested).Foreground(dimColor).Render(r.RequestedAt.In(loc).Format(listTimeLayout)),
			cell(wPerson).Render(truncate(orNone(r.Requester), wPerson)),
			cell(wPerson).Render(truncate(orNone(r.DecidedBy), wPerson)),
			cell(wReason).Render(truncate(oneLine(r.Reason), wReason)),
		)
	}
	fmt.Fprintln(out)
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func statusColor(s approval.RequestStatus) lipgloss.Color {
	switch s {
	case approval.StatusApproved:
		return approvedColor
	case approval.StatusDenied:
		return deniedColor
	default:
		return openColor
	}
}

func approvalQuery(cmd *cobra.Command) (approval.Query, error) {
	var q approval.Query
	if cmd == nil {
		q.Status = approval.StatusOpen
		return q, nil
	}
	status, _ := cmd.Flags().GetString("status")
	subject, _ := cmd.Flags().GetString("subject")
	q.Subject = strings.TrimSpace(subject)

	switch s := approval.RequestStatus(strings.ToLower(strings.TrimSpace(status))); s {
	case "all", "":
	case approval.StatusOpen, approval.StatusApproved, approval.StatusDenied:
		q.Status = s
	default:
		return q, fmt.Errorf("invalid status %q", status)
	}
	return q, nil
}

func cmdOut(cmd *cobra.Command) io.Writer {
	if cmd == nil {
		return os.Stdout
	}
	return cmd.OutOrStdout()
}
