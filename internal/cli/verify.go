package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/calermo/seo-manager/pkg/icron"
)

// NewVerifyCommand creates the verify command, a connectivity and
// configuration check that touches every configured backend.
func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check configuration and backend connectivity",
		Long: `Verify the environment: load configuration, reach the record store,
exercise the cache backend, and validate the sweep schedule.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(cmd.Context())
		},
	}
	return cmd
}

func runVerify(ctx context.Context) error {
	a, err := bootstrap(ctx)
	if err != nil {
		return fmt.Errorf("configuration: %w", err)
	}
	defer a.close()
	fmt.Printf("config: ok (store=%s cache=%s)\n", a.cfg.Store.Backend, a.cfg.Cache.Backend)

	checkCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	stats, err := a.svc.DashboardStats(checkCtx)
	if err != nil {
		return fmt.Errorf("record store: %w", err)
	}
	fmt.Printf("record store: ok (%d records, %d seo done, %d pending, %d channels)\n",
		stats.TotalVideos, stats.SeoDone, stats.SeoPending, stats.TotalChannels)

	if _, err := a.svc.Cache().Sweep(checkCtx); err != nil {
		return fmt.Errorf("cache backend: %w", err)
	}
	fmt.Println("cache backend: ok")

	info, err := icron.GetTriggerInfo(a.cfg.Cache.SweepCron, time.Now())
	if err != nil {
		return fmt.Errorf("sweep schedule: %w", err)
	}
	fmt.Printf("sweep schedule: ok (next run in %s)\n", info.TimeUntilNext.Round(time.Second))

	if len(a.cfg.Research.APIKeys) == 0 {
		fmt.Println("research console: disabled (no API keys)")
	} else {
		fmt.Printf("research console: %d key(s) configured\n", len(a.cfg.Research.APIKeys))
	}
	return nil
}
