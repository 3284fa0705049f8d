package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/curmorpheus/safesite/auth"
	"github.com/curmorpheus/safesite/internal/util"
)

var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password",
	Short: "Hash a password for the admin credential",
	Long: `Prompt for a password and print its bcrypt hash. Put the hash in the
SAFESITE_ADMIN_HASH environment variable to enable administrator login.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := readPassword("Password: ")
		if err != nil {
			return err
		}
		defer util.WipeBytes(password)

		confirm, err := readPassword("Confirm: ")
		if err != nil {
			return err
		}
		defer util.WipeBytes(confirm)

		if string(password) != string(confirm) {
			return fmt.Errorf("passwords do not match")
		}

		hash, err := auth.HashPassword(string(password))
		if err != nil {
			return err
		}
		fmt.Println(hash)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(hashPasswordCmd)
}
