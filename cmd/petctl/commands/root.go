package commands

import (
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	serverURL string
	token     string
	timeout   time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "petctl",
	Short: "petfinder command line client",
	Long: `Command line client for the petfinder matching service.

Remote commands (search, status, login, reindex) call the HTTP API given
by --server. Data commands (seed, placeholder) connect to Postgres and
NATS directly using the same environment as the server (POSTGRES_URL,
NATS_URL, PETFINDER_CONFIG).`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	defaultServer := os.Getenv("PETFINDER_SERVER")
	if defaultServer == "" {
		defaultServer = "http://localhost:8080"
	}
	rootCmd.PersistentFlags().StringVarP(&serverURL, "server", "s", defaultServer, "petfinder server URL")
	rootCmd.PersistentFlags().StringVarP(&token, "token", "t", os.Getenv("PETFINDER_TOKEN"), "bearer token for admin commands")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 60*time.Second, "request timeout")

	rootCmd.AddCommand(searchCmd, statusCmd, loginCmd, reindexCmd, seedCmd, placeholderCmd)
}
