package background

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"marketscan/internal/jobs"
)

// JobScheduler manages the recurring pipeline jobs.
type JobScheduler struct {
	scheduler gocron.Scheduler
	updater   *jobs.Updater
	jobJobs   map[string]gocron.Job
	mu        sync.RWMutex
}

func NewJobScheduler(updater *jobs.Updater, dailyAt time.Duration) *JobScheduler {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		log.Fatalf("Failed to create scheduler: %v", err)
	}

	js := &JobScheduler{
		scheduler: scheduler,
		updater:   updater,
		jobJobs:   make(map[string]gocron.Job),
	}

	js.registerJobs(dailyAt)

	return js
}

func (js *JobScheduler) Start() error {
	log.Printf("Starting background job scheduler")
	js.scheduler.Start()
	return nil
}

func (js *JobScheduler) Stop() error {
	log.Printf("Stopping background job scheduler")
	return js.scheduler.Shutdown()
}

func (js *JobScheduler) registerJobs(dailyAt time.Duration) {
	hour := int(dailyAt.Hours()) % 24
	minute := int(dailyAt.Minutes()) % 60

	// Full pipeline run, once a day. Singleton mode: a run that overflows
	// its slot delays the next one instead of overlapping it.
	updateJob, err := js.scheduler.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(uint(hour), uint(minute), 0))),
		gocron.NewTask(js.runDailyUpdate, context.Background()),
		gocron.WithName("daily-update"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		log.Printf("Failed to create daily update job: %v", err)
	} else {
		js.jobJobs["daily-update"] = updateJob
	}

	log.Printf("Registered %d background jobs", len(js.jobJobs))
}

func (js *JobScheduler) runDailyUpdate(ctx context.Context) error {
	if err := js.updater.UpdateAll(ctx); err != nil {
		log.Printf("Daily update failed: %v", err)
		return err
	}
	return nil
}

// TriggerDailyUpdate runs the pipeline immediately, outside the schedule.
func (js *JobScheduler) TriggerDailyUpdate(ctx context.Context) error {
	return js.runDailyUpdate(ctx)
}

// GetJobStatus returns information about scheduled jobs.
func (js *JobScheduler) GetJobStatus() map[string]interface{} {
	js.mu.RLock()
	defer js.mu.RUnlock()

	status := make(map[string]interface{})
	status["total_jobs"] = len(js.jobJobs)
	names := make([]string, 0, len(js.jobJobs))
	for name := range js.jobJobs {
		names = append(names, name)
	}
	status["jobs"] = names
	return status
}
