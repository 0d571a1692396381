package schedule

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Parse accepts a standard 5-field cron expression
// (minute hour day-of-month month day-of-week), e.g. "0 9 * * 1-5".
func Parse(spec string) (cron.Schedule, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, fmt.Errorf("empty schedule")
	}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	sched, err := parser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule '%s': %w", spec, err)
	}
	return sched, nil
}

func NextRun(spec string, now time.Time) (time.Time, error) {
	sched, err := Parse(spec)
	if err != nil {
		return time.Time{}, err
	}
	return sched.Next(now), nil
}

// Run calls job at every activation of spec until ctx is cancelled. Jobs run
// one at a time on the calling goroutine; an activation missed while a job is
// still running is skipped.
func Run(ctx context.Context, spec string, loc *time.Location, job func(context.Context)) error {
	sched, err := Parse(spec)
	if err != nil {
		return err
	}
	if loc == nil {
		loc = time.Local
	}
	log.Printf("Sprint report scheduled (cron: %s)", strings.TrimSpace(spec))

	for {
		now := time.Now().In(loc)
		next := sched.Next(now)
		wait := next.Sub(now)
		log.Printf("Next sprint report at %s (in %s)", next.Format("Mon Jan 2 15:04"), wait.Round(time.Minute))

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			log.Printf("Scheduler stopped: %v", ctx.Err())
			return nil
		case <-timer.C:
		}

		job(ctx)
	}
}
