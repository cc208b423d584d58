package interfaces

import "time"

// JobStatus represents the current status of a scheduled job
type JobStatus struct {
	Name        string
	Schedule    string
	Description string
	LastRun     *time.Time
	NextRun     *time.Time
	IsRunning   bool
	LastError   string
}

// SchedulerService manages cron-based maintenance jobs (index cleanup,
// stats logging).
type SchedulerService interface {
	// Start the scheduler; registered jobs run on their cron schedules
	Start() error

	// Stop the scheduler and wait for running jobs
	Stop() error

	// IsRunning returns true if scheduler is active
	IsRunning() bool

	// RegisterJob registers a named job with a cron schedule
	RegisterJob(name, schedule, description string, handler func() error) error

	// TriggerNow runs a registered job immediately, outside its schedule
	TriggerNow(name string) error

	// GetJobStatus returns the status of a specific job
	GetJobStatus(name string) (*JobStatus, error)

	// GetAllJobStatuses returns all job statuses
	GetAllJobStatuses() map[string]*JobStatus
}
