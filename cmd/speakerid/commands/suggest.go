package commands

import (
	"context"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kbukum/speakerid/speaker"
)

var (
	suggestRefresh bool
	suggestJSON    bool
)

var suggestCmd = &cobra.Command{
	Use:   "suggest <meeting_id>",
	Short: "Suggest identities for a meeting's speaker labels",
	Long: `Suggest identities for a meeting's speaker labels.

Each hinted label is matched against the stored voice fingerprints.

Examples:
  speakerid suggest 42
  speakerid suggest 42 --refresh --json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		meetingID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("meeting_id must be an integer, got %q", args[0])
		}
		a, err := newTaskApp()
		if err != nil {
			return err
		}
		return a.RunTask(cmd.Context(), func(ctx context.Context) error {
			res, err := a.Domain.Suggester.Suggest(ctx, meetingID, suggestRefresh)
			if err != nil {
				return err
			}
			if suggestJSON {
				return printJSON(cmd.OutOrStdout(), res)
			}
			return printSuggestions(cmd, res)
		})
	},
}

func init() {
	suggestCmd.Flags().BoolVar(&suggestRefresh, "refresh", false, "bypass the suggestion cache")
	suggestCmd.Flags().BoolVar(&suggestJSON, "json", false, "print JSON")
}

func printSuggestions(cmd *cobra.Command, res *speaker.MeetingSuggestions) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "LABEL\tALIAS\tBEST\tSIMILARITY\tBAND\tSOURCE")
	for _, s := range res.Suggestions {
		alias := "-"
		if s.AliasedPerson != nil {
			alias = s.AliasedPerson.Name
		}
		best, score, band := "-", "-", "-"
		if s.Best != nil {
			best = s.Best.PersonName
			if best == "" {
				best = s.Best.PersonID.String()
			}
			score = fmt.Sprintf("%.3f", s.Best.Similarity)
			band = string(s.Best.Band)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", s.Label, alias, best, score, band, s.Source)
	}
	return w.Flush()
}
