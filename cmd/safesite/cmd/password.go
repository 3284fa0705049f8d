package cmd

import (
	"fmt"
	"os"

	"golang.org/x/term"
)

// envPassword lets scripts and cron jobs supply the password without a
// terminal. Interactive use always goes through the hidden prompt.
const envPassword = "SAFESITE_PASSWORD"

// readPassword prompts on stderr and reads a password without echo. Callers
// must wipe the returned buffer once done with it.
func readPassword(prompt string) ([]byte, error) {
	if p := os.Getenv(envPassword); p != "" {
		return []byte(p), nil
	}
	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("failed to read password: %w", err)
	}
	return password, nil
}
