package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/aussiebroadwan/custodian/internal/access/domain"
	"github.com/aussiebroadwan/custodian/internal/access/store"

	"github.com/spf13/cobra"
)

type auditJSON struct {
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Actor     string `json:"actor"`
	Event     string `json:"event"`
	Resource  string `json:"resource,omitempty"`
	Outcome   string `json:"outcome"`
	Reason    string `json:"reason"`
}

func newAuditCommand(r *runtime) *cobra.Command {
	var (
		filter store.AuditFilter
		event  string
		since  time.Duration
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Print audit log entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := r.open()
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			filter.Event = domain.EventKind(event)
			if since > 0 {
				filter.Since = time.Now().Add(-since)
			}

			entries, err := a.Store().AuditEntries().List(a.Context(cmd.Context()), filter)
			if err != nil {
				return fmt.Errorf("read audit log: %w", err)
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				for _, e := range entries {
					if err := enc.Encode(auditJSON{
						ID:        e.ID.String(),
						Timestamp: e.Timestamp.Format(time.RFC3339),
						Actor:     e.Actor,
						Event:     string(e.Event),
						Resource:  string(e.Resource),
						Outcome:   string(e.Outcome),
						Reason:    e.Reason,
					}); err != nil {
						return err
					}
				}
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "TIMESTAMP\tACTOR\tEVENT\tRESOURCE\tOUTCOME\tREASON")
			for _, e := range entries {
				res := string(e.Resource)
				if res == "" {
					res = "-"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
					e.Timestamp.Format(time.DateTime), e.Actor, e.Event, res, e.Outcome, e.Reason)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&filter.Actor, "actor", "", "only entries for this actor (case-insensitive)")
	cmd.Flags().StringVar(&event, "event", "", "only entries of this event kind (login_success, login_failed, view, edit)")
	cmd.Flags().DurationVar(&since, "since", 0, "only entries newer than this (e.g. 24h)")
	cmd.Flags().IntVar(&filter.Limit, "limit", 0, "show only the most recent N entries")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON lines instead of a table")

	return cmd
}
