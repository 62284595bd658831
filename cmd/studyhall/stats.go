package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/studyhall-ai/studyhall/pkg/usage"
)

func newStatsCmd() *cobra.Command {
	var (
		configPath string
		studentID  string
		history    bool
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show usage statistics and conversation history",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}

			rec, err := usage.New(cfg.DBPath)
			if err != nil {
				return err
			}
			defer rec.Close()

			ctx := context.Background()

			if history {
				if studentID == "" {
					return fmt.Errorf("--student is required with --history")
				}
				convs, err := rec.History(ctx, studentID, limit)
				if err != nil {
					return err
				}
				if len(convs) == 0 {
					fmt.Println("No conversations found.")
					return nil
				}
				w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "TIME\tSUBJECT\tMODEL\tQUESTION")
				for _, c := range convs {
					q := c.Question
					if len(q) > 60 {
						q = q[:60] + "..."
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
						c.CreatedAt.Format("2006-01-02T15:04:05"), c.Subject, c.Model, q)
				}
				return w.Flush()
			}

			summaries, err := rec.Summary(ctx, studentID)
			if err != nil {
				return err
			}
			if len(summaries) == 0 {
				fmt.Println("No usage data found.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "STUDENT\tMODEL\tREQUESTS\tTOKENS\tCOST")
			for _, s := range summaries {
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t$%.4f\n",
					s.StudentID, s.Model, s.RequestCount, s.TotalTokens, s.TotalCost)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "studyhall.yaml", "path to config file")
	cmd.Flags().StringVar(&studentID, "student", "", "filter by student id")
	cmd.Flags().BoolVar(&history, "history", false, "show conversation history instead of usage")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum history entries")
	return cmd
}
