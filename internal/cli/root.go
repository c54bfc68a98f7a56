package cli

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/calermo/seo-manager/pkg/log"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	EnvFile string
	Verbose bool
}

// NewRootCommand creates the root command for the seo-manager CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "seo-manager",
		Short: "SEO catalog dashboard service",
		Long: `Backend for the SEO catalog dashboard: batched catalog loads,
namespaced caching with reconciliation, optimistic background writes,
and the research console.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.EnvFile != "" {
				if err := godotenv.Load(opts.EnvFile); err != nil {
					return err
				}
			} else {
				// Missing default .env is fine, env vars still apply.
				_ = godotenv.Load()
			}
			if opts.Verbose {
				log.SetLevel(log.LevelDebug)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", "", "path to a dotenv file")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewImportCommand(opts))
	cmd.AddCommand(NewVerifyCommand(opts))

	return cmd
}
