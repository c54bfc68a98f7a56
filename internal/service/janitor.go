package service

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/calermo/seo-manager/pkg/icron"
	"github.com/calermo/seo-manager/pkg/log"
)

// Janitor sweeps expired cache namespaces on a cron schedule. Expiry is
// otherwise only enforced lazily on read, so long-idle namespaces would
// accumulate in persistent backends without it.
type Janitor struct {
	service  *Service
	schedule string
	runner   *cron.Cron
	entryID  cron.EntryID
}

func NewJanitor(service *Service, schedule string) (*Janitor, error) {
	j := &Janitor{
		service:  service,
		schedule: schedule,
		runner:   cron.New(),
	}
	entryID, err := j.runner.AddFunc(schedule, j.sweep)
	if err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	j.entryID = entryID
	return j, nil
}

func (j *Janitor) Start() {
	j.runner.Start()
	log.Info("Cache janitor started with schedule %q", j.schedule)
}

// Stop halts scheduling; a sweep already running finishes.
func (j *Janitor) Stop() {
	ctx := j.runner.Stop()
	<-ctx.Done()
}

func (j *Janitor) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	removed, err := j.service.cache.Sweep(ctx)
	if err != nil {
		log.Error("Cache sweep failed: %v", err)
		return
	}
	if removed > 0 {
		log.Info("Cache sweep removed %d expired namespaces", removed)
	}
}

// Status reports the last and next trigger times for the sweep schedule.
func (j *Janitor) Status(now time.Time) (*icron.TriggerInfo, error) {
	return icron.GetTriggerInfo(j.schedule, now)
}
