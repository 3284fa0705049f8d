package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var pendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List queued safety forms awaiting delivery",
	RunE: func(cmd *cobra.Command, args []string) error {
		q, closeQueue, err := openQueue()
		if err != nil {
			return err
		}
		defer closeQueue()

		entries, err := q.ListPending()
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("Queue is empty")
			return nil
		}
		for _, e := range entries {
			line := fmt.Sprintf("%s  queued %s", e.ID, e.EnqueuedAt.Format("2006-01-02 15:04:05"))
			if e.RetryCount > 0 {
				line += fmt.Sprintf("  (%d failed attempts, last %s)",
					e.RetryCount, e.LastAttemptAt.Format("2006-01-02 15:04:05"))
			}
			fmt.Println(line)
		}
		fmt.Printf("%d pending\n", len(entries))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pendingCmd)
	pendingCmd.Flags().StringVar(&queueFile, "queue-file", "", "Path to the offline queue (default ~/.safesite/queue.db)")
}
