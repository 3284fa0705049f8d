package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/curmorpheus/safesite/internal/util"
	"github.com/curmorpheus/safesite/queue"
)

var (
	syncServer string
	syncEmail  string
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Deliver queued safety forms to the server",
	Long: `Log in to the server and replay every queued submission. Delivered forms
leave the queue; failed deliveries stay queued with a retry recorded and are
attempted again on the next sync.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if syncEmail == "" {
			return fmt.Errorf("--email is required")
		}
		server := strings.TrimRight(syncServer, "/")

		password, err := readPassword(fmt.Sprintf("Password for %s: ", syncEmail))
		if err != nil {
			return err
		}

		token, err := login(server, syncEmail, string(password))
		util.WipeBytes(password)
		if err != nil {
			return err
		}

		q, closeQueue, err := openQueue()
		if err != nil {
			return err
		}
		defer closeQueue()

		pending, err := q.Count()
		if err != nil {
			return err
		}
		if pending == 0 {
			fmt.Println("Queue is empty, nothing to sync")
			return nil
		}

		sender := queue.NewHTTPSender(server+"/api/v1/forms",
			queue.WithHeader("Cookie", "auth-token="+token))

		report, err := q.DrainAndSync(cmd.Context(), sender,
			func(e queue.PendingSubmission) {
				fmt.Printf("  delivered %s\n", e.ID)
			},
			func(e queue.PendingSubmission, sendErr error) {
				fmt.Fprintf(os.Stderr, "  failed %s: %v\n", e.ID, sendErr)
			})
		if err != nil {
			return err
		}
		fmt.Printf("Sync complete: %d delivered, %d failed\n", report.Succeeded, report.Failed)
		if report.Failed > 0 {
			return fmt.Errorf("%d submissions still pending", report.Failed)
		}
		return nil
	},
}

// login authenticates against the server and returns the session token from
// the auth-token cookie.
func login(server, email, password string) (string, error) {
	body, err := json.Marshal(map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return "", err
	}

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Post(server+"/api/v1/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("login request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errBody struct {
			Error string `json:"error"`
		}
		json.NewDecoder(resp.Body).Decode(&errBody)
		if errBody.Error != "" {
			return "", fmt.Errorf("login rejected: %s", errBody.Error)
		}
		return "", fmt.Errorf("login rejected with status %d", resp.StatusCode)
	}

	for _, c := range resp.Cookies() {
		if c.Name == "auth-token" && c.Value != "" {
			return c.Value, nil
		}
	}
	return "", fmt.Errorf("login response did not set a session cookie")
}

func init() {
	rootCmd.AddCommand(syncCmd)
	syncCmd.Flags().StringVar(&queueFile, "queue-file", "", "Path to the offline queue (default ~/.safesite/queue.db)")
	syncCmd.Flags().StringVar(&syncServer, "server", "http://localhost:8080", "Server base URL")
	syncCmd.Flags().StringVar(&syncEmail, "email", "", "Superintendent email")
}
