package commands

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"petfinder/internal/models/request_models"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show vector index status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := newClient().do(cmd.Context(), http.MethodGet, "/index/status", nil)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), data)
	},
}

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the vector index from all advertisements",
	Long: `Rebuild the vector index. Requires an admin token (--token or
PETFINDER_TOKEN); obtain one with 'petctl login'.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if token == "" {
			return fmt.Errorf("--token is required")
		}
		data, err := newClient().do(cmd.Context(), http.MethodPost, "/index/rebuild", nil)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), data)
	},
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Exchange operator credentials for a token",
	Long: `Log in and print a bearer token.

Example:
  export PETFINDER_TOKEN=$(petctl login --email admin@example.com --password ... --raw)`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		email, _ := cmd.Flags().GetString("email")
		password, _ := cmd.Flags().GetString("password")
		if email == "" || password == "" {
			return fmt.Errorf("--email and --password are required")
		}
		data, err := newClient().do(cmd.Context(), http.MethodPost, "/auth/login",
			request_models.LoginRequest{Email: email, Password: password})
		if err != nil {
			return err
		}
		if raw, _ := cmd.Flags().GetBool("raw"); raw {
			var out struct {
				Token string `json:"token"`
			}
			if err := jsonUnmarshal(data, &out); err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), out.Token)
			return err
		}
		return printJSON(cmd.OutOrStdout(), data)
	},
}

func init() {
	loginCmd.Flags().String("email", "", "operator email")
	loginCmd.Flags().String("password", "", "operator password")
	loginCmd.Flags().Bool("raw", false, "print only the token")
}
