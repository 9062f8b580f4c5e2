package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kbukum/speakerid/diarization"
)

var importCmd = &cobra.Command{
	Use:   "import <transcript.json>",
	Short: "Import a diarized transcript as a new meeting",
	Long: `Import a diarized transcript as a new meeting.

The file holds the meeting title, its segments and the pipeline's hints:

  {
    "title": "City Council 2024-03-05",
    "segments": [
      {"speaker": "SPEAKER_00", "start": 0.0, "end": 4.2, "text": "Call to order."}
    ],
    "hints": {"centroids": {"SPEAKER_00": [0.12, ...]}}
  }

The created meeting is printed as JSON.

Examples:
  speakerid import meeting.json
  speakerid import - < meeting.json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newTaskApp()
		if err != nil {
			return err
		}

		in := cmd.InOrStdin()
		if args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open transcript: %w", err)
			}
			defer f.Close()
			in = f
		}
		t, err := diarization.DecodeTranscript(in, a.Cfg.Matching.Dimension)
		if err != nil {
			return err
		}

		return a.RunTask(cmd.Context(), func(ctx context.Context) error {
			res, err := a.Domain.Service.ImportTranscript(ctx, t)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		})
	},
}
