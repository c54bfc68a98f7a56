package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/calermo/seo-manager/internal/catalog"
	"github.com/calermo/seo-manager/internal/importer"
)

// ImportOptions holds flags for the import command.
type ImportOptions struct {
	*RootOptions
	Dir   string
	Since string
	As    string
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "import [file...]",
		Short: "Bulk-import catalog records from CSV or JSON files",
		Long: `Import catalog records. Each row runs through the normal creation
path, so duplicates are skipped and every new record gets its v0 SEO
version and default task.

Example:
  seo-manager import catalog.csv
  seo-manager import --dir ./drops --since 24h`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd.Context(), opts, args)
		},
	}

	cmd.Flags().StringVar(&opts.Dir, "dir", "", "import every recent file under this directory")
	cmd.Flags().StringVar(&opts.Since, "since", "24h", "with --dir, only files modified within this window")
	cmd.Flags().StringVar(&opts.As, "as", "importer", "team member name to run the import as")

	return cmd
}

func runImport(ctx context.Context, opts *ImportOptions, args []string) error {
	if len(args) == 0 && opts.Dir == "" {
		return fmt.Errorf("give at least one file or --dir")
	}

	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	// Imports write through the service, which is role-gated like any
	// other mutation.
	if err := a.svc.SetWorkingIdentity(ctx, catalog.TeamMember{
		Name: opts.As,
		Role: catalog.RoleAdmin,
	}); err != nil {
		return err
	}

	im := importer.New(a.svc)

	var reports []*importer.Report
	for _, path := range args {
		report, err := im.ImportFile(ctx, path)
		if err != nil {
			return err
		}
		reports = append(reports, report)
	}
	if opts.Dir != "" {
		window, err := time.ParseDuration(opts.Since)
		if err != nil {
			return fmt.Errorf("invalid --since: %w", err)
		}
		dirReports, err := im.ImportDir(ctx, opts.Dir, time.Now().Add(-window))
		if err != nil {
			return err
		}
		reports = append(reports, dirReports...)
	}

	for _, report := range reports {
		fmt.Printf("%s: %d created, %d skipped, %d failed\n",
			report.Source, report.Created, report.Skipped, len(report.Failures))
		for _, failure := range report.Failures {
			fmt.Printf("  %s\n", failure)
		}
	}
	return nil
}
