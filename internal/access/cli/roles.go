package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/aussiebroadwan/custodian/internal/access/domain"
	"github.com/aussiebroadwan/custodian/internal/access/policy"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// roleView is the exported shape of one permission table row.
type roleView struct {
	Name   string              `json:"name" yaml:"name"`
	Hours  string              `json:"hours,omitempty" yaml:"hours,omitempty"`
	Rights map[string][]string `json:"rights" yaml:"rights"`
}

func newRolesCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "roles",
		Short: "Print the permission table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			views := roleViews(policy.DefaultTable())
			out := cmd.OutOrStdout()

			switch output {
			case "table":
				return writeRolesTable(out, views)
			case "json":
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(views)
			case "yaml":
				enc := yaml.NewEncoder(out)
				enc.SetIndent(2)
				if err := enc.Encode(views); err != nil {
					return err
				}
				return enc.Close()
			default:
				return fmt.Errorf("unknown output format %q (want table, json or yaml)", output)
			}
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "table", "output format: table, json or yaml")
	return cmd
}

func roleViews(table *policy.Table) []roleView {
	names := table.Names()
	views := make([]roleView, 0, len(names))
	for _, name := range names {
		profile, _ := table.Lookup(name)

		v := roleView{Name: string(name), Rights: make(map[string][]string)}
		if profile.TimeRestricted && profile.Window != nil {
			v.Hours = profile.Window.String()
		}
		for _, res := range domain.Resources {
			v.Rights[string(res)] = rightsList(profile.RightsFor(res))
		}
		views = append(views, v)
	}
	return views
}

func rightsList(r domain.Rights) []string {
	out := []string{}
	if r.CanView {
		out = append(out, string(domain.ActionView))
	}
	if r.CanEdit {
		out = append(out, string(domain.ActionEdit))
	}
	return out
}

func writeRolesTable(w io.Writer, views []roleView) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprint(tw, "ROLE\tHOURS")
	for _, res := range domain.Resources {
		fmt.Fprintf(tw, "\t%s", res)
	}
	fmt.Fprintln(tw)

	for _, v := range views {
		hours := v.Hours
		if hours == "" {
			hours = "any"
		}
		fmt.Fprintf(tw, "%s\t%s", v.Name, hours)
		for _, res := range domain.Resources {
			rights := v.Rights[string(res)]
			cell := "-"
			if len(rights) > 0 {
				cell = fmt.Sprint(rights)
			}
			fmt.Fprintf(tw, "\t%s", cell)
		}
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}
