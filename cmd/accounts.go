package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/parcelpal/parcelpal/internal/store"
)

func newAccountsCmd() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "List linked voice accounts",
		Long: `List the voice platform accounts known to this instance, with the email
provider and phone number each one has registered so far. Useful for
checking how far a user got through account linking.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if path := os.Getenv("PARCELPAL_DB_PATH"); path != "" && dbPath == "parcelpal.db" {
				dbPath = path
			}

			db, err := store.Open(dbPath)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer db.Close()

			accounts, err := db.ListAccounts(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list accounts: %w", err)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "USER ID\tPROVIDER\tPHONE")
			for _, a := range accounts {
				provider := a.EmailProvider
				if provider == "" {
					provider = "-"
				}
				phone := a.PhoneNumber
				if phone == "" {
					phone = "-"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", a.UserID, provider, phone)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&dbPath, "db-path", "parcelpal.db", "Path to the SQLite database file. Can also use PARCELPAL_DB_PATH env var.")

	return cmd
}
