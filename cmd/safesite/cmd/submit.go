package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/curmorpheus/safesite/internal/util"
	"github.com/curmorpheus/safesite/queue"
	bboltstorage "github.com/curmorpheus/safesite/storage/bbolt"
)

var (
	queueFile    string
	submitServer string
	submitEmail  string
	submitSite   string
	submitType   string
	submitData   string
)

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit a safety form, queueing it when the server is unreachable",
	Long: `Submit a safety form to the server. With --email the form is delivered
directly; when delivery fails for any reason the form lands in the local
offline queue and is replayed by the next "safesite sync". Without --email
the form goes straight to the queue, so submission works with no
connectivity at all.

The --data argument is the form contents as a JSON document, or @file to
read it from a file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if submitSite == "" || submitType == "" {
			return fmt.Errorf("--site and --type are required")
		}

		data, err := readData(submitData)
		if err != nil {
			return err
		}

		payload, err := json.Marshal(map[string]json.RawMessage{
			"site":     mustJSON(submitSite),
			"formType": mustJSON(submitType),
			"data":     data,
		})
		if err != nil {
			return fmt.Errorf("failed to encode submission: %w", err)
		}

		if submitEmail != "" {
			deliverErr := deliverDirect(cmd.Context(), payload)
			if deliverErr == nil {
				fmt.Println("Submitted to server")
				return nil
			}
			fmt.Fprintf(os.Stderr, "Direct submission failed (%v), queueing for later sync\n", deliverErr)
		}

		q, closeQueue, err := openQueue()
		if err != nil {
			return err
		}
		defer closeQueue()

		entry, err := q.Enqueue(payload)
		if err != nil {
			return fmt.Errorf("failed to queue submission: %w", err)
		}
		count, err := q.Count()
		if err != nil {
			return err
		}
		fmt.Printf("Queued submission %s (%d pending)\n", entry.ID, count)
		return nil
	},
}

// deliverDirect logs in and posts the payload to the form endpoint. Any
// failure, from the password prompt to the delivery itself, sends the
// submission to the offline queue instead.
func deliverDirect(ctx context.Context, payload json.RawMessage) error {
	server := strings.TrimRight(submitServer, "/")

	password, err := readPassword(fmt.Sprintf("Password for %s: ", submitEmail))
	if err != nil {
		return err
	}
	defer util.WipeBytes(password)

	token, err := login(server, submitEmail, string(password))
	if err != nil {
		return err
	}

	sender := queue.NewHTTPSender(server+"/api/v1/forms",
		queue.WithHeader("Cookie", "auth-token="+token))
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	return sender.Send(ctx, payload)
}

func readData(arg string) (json.RawMessage, error) {
	if arg == "" {
		return nil, fmt.Errorf("--data is required")
	}
	raw := []byte(arg)
	if strings.HasPrefix(arg, "@") {
		var err error
		raw, err = os.ReadFile(arg[1:])
		if err != nil {
			return nil, fmt.Errorf("failed to read data file: %w", err)
		}
	}
	if !json.Valid(raw) {
		return nil, fmt.Errorf("data is not valid JSON")
	}
	return raw, nil
}

func mustJSON(s string) json.RawMessage {
	raw, _ := json.Marshal(s)
	return raw
}

// openQueue opens the local offline queue, creating its directory if needed.
func openQueue() (*queue.Queue, func(), error) {
	path := queueFile
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, nil, fmt.Errorf("cannot locate home directory: %w", err)
		}
		path = filepath.Join(home, ".safesite", "queue.db")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, nil, fmt.Errorf("failed to create queue directory: %w", err)
	}
	store, err := bboltstorage.NewStoreFromFile(path, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open queue: %w", err)
	}
	return queue.New(store), func() { store.Close() }, nil
}

func init() {
	rootCmd.AddCommand(submitCmd)
	submitCmd.Flags().StringVar(&queueFile, "queue-file", "", "Path to the offline queue (default ~/.safesite/queue.db)")
	submitCmd.Flags().StringVar(&submitServer, "server", "http://localhost:8080", "Server base URL")
	submitCmd.Flags().StringVar(&submitEmail, "email", "", "Superintendent email for direct delivery")
	submitCmd.Flags().StringVar(&submitSite, "site", "", "Construction site identifier")
	submitCmd.Flags().StringVar(&submitType, "type", "", "Form type, e.g. daily-safety or incident")
	submitCmd.Flags().StringVar(&submitData, "data", "", "Form contents as JSON, or @file")
}
