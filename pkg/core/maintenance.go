package core

import (
	"context"
	"errors"
	"time"

	"github.com/hireflow/careermem-go/pkg/logging"
)

// maintenancePageSize is how many user ids one listing call fetches.
const maintenancePageSize = 100

// MaintenanceSummary aggregates one scheduler pass over every user.
type MaintenanceSummary struct {
	Users       int           `json:"users"`
	Failed      int           `json:"failed"`
	Decayed     int           `json:"decayed"`
	Deactivated int           `json:"deactivated"`
	Merged      int           `json:"merged"`
	Purged      int           `json:"purged"`
	Duration    time.Duration `json:"duration"`
}

// Scheduler runs RunMaintenance for every user off the request path.
//
// Each user's pass takes the same per-user serialization as request-time
// writes. A failure for one user is logged and counted; the pass moves on.
//
// Example usage:
//
//	scheduler := core.NewScheduler(client, 24*time.Hour)
//	stop := scheduler.Start(ctx)
//	defer stop()
type Scheduler struct {
	client   *Client
	interval time.Duration
	logger   logging.Logger
}

// NewScheduler creates a scheduler. A non-positive interval falls back to
// the client's Maintenance.Interval, then to 24h.
func NewScheduler(client *Client, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = client.Config().Maintenance.Interval.Std()
	}
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &Scheduler{
		client:   client,
		interval: interval,
		logger:   logging.With(client.Logger(), "component", "maintenance"),
	}
}

// RunOnce runs maintenance for every user with a memory store.
//
// Returns the aggregated summary. The error is non-nil only when listing
// users fails or ctx is cancelled.
func (s *Scheduler) RunOnce(ctx context.Context) (*MaintenanceSummary, error) {
	start := time.Now()
	summary := &MaintenanceSummary{}

	for offset := 0; ; offset += maintenancePageSize {
		users, err := s.client.ListUsers(ctx, maintenancePageSize, offset)
		if err != nil {
			return summary, err
		}
		for _, userID := range users {
			if err := ctx.Err(); err != nil {
				return summary, err
			}
			summary.Users++
			report, err := s.client.RunMaintenance(ctx, userID)
			if err != nil {
				summary.Failed++
				s.logger.Error("maintenance failed", "user_id", userID, "error", err)
				continue
			}
			summary.Decayed += report.Decayed
			summary.Deactivated += report.Deactivated
			summary.Merged += report.Merged
			summary.Purged += report.Purged
			if report.Deactivated > 0 || report.Merged > 0 || report.Purged > 0 {
				s.logger.Info("maintenance changed memories",
					"user_id", userID,
					"deactivated", report.Deactivated,
					"merged", report.Merged,
					"purged", report.Purged,
				)
			}
		}
		if len(users) < maintenancePageSize {
			break
		}
	}

	summary.Duration = time.Since(start)
	s.logger.Info("maintenance pass finished",
		"users", summary.Users,
		"failed", summary.Failed,
		"decayed", summary.Decayed,
		"deactivated", summary.Deactivated,
		"merged", summary.Merged,
		"purged", summary.Purged,
		"duration", summary.Duration,
	)
	return summary, nil
}

// Run runs a pass immediately and then every interval until ctx is done.
// It returns ctx's error.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if _, err := s.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("maintenance pass aborted", "error", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Start runs Run in a goroutine. The returned function cancels it and waits
// for the current pass to end.
func (s *Scheduler) Start(ctx context.Context) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.Run(ctx)
	}()
	return func() {
		cancel()
		<-done
	}
}
