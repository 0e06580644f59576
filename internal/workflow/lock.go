package workflow

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"invoicer/internal/logger"
	"invoicer/pkg/models"
	"invoicer/pkg/services"
)

// LockError describes one entry that could not be locked.
type LockError struct {
	EntryID int64
	Message string
}

// LockOutcome counts the result of locking a set of entries.
// Total always equals Locked + AlreadyLocked + Failed.
type LockOutcome struct {
	Total         int
	Locked        int
	AlreadyLocked int
	Failed        int
	Errors        []LockError
}

// Locker marks invoiced mite entries as locked.
type Locker struct {
	tracking    services.TimeTracking
	concurrency int
	log         zerolog.Logger
}

// NewLocker returns a locker running up to concurrency lock calls at once.
// Values below one mean sequential.
func NewLocker(tracking services.TimeTracking, concurrency int) *Locker {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Locker{
		tracking:    tracking,
		concurrency: concurrency,
		log:         logger.WithComponent("entry-locker"),
	}
}

type lockResult int

const (
	lockLocked lockResult = iota
	lockSkipped
	lockFailed
)

type lockJob struct {
	index int
	entry models.TimeEntry
}

// Lock locks every entry not already locked. A failure on one entry never
// stops the others. Errors are reported in input order.
func (l *Locker) Lock(ctx context.Context, entries []models.TimeEntry) *LockOutcome {
	results := make([]lockResult, len(entries))
	errs := make([]error, len(entries))

	jobs := make(chan lockJob, len(entries))
	var wg sync.WaitGroup
	for w := 0; w < min(l.concurrency, max(len(entries), 1)); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				results[job.index], errs[job.index] = l.lockOne(ctx, job.entry)
			}
		}()
	}

	for i, entry := range entries {
		jobs <- lockJob{index: i, entry: entry}
	}
	close(jobs)
	wg.Wait()

	outcome := &LockOutcome{Total: len(entries)}
	for i, r := range results {
		switch r {
		case lockLocked:
			outcome.Locked++
		case lockSkipped:
			outcome.AlreadyLocked++
		case lockFailed:
			outcome.Failed++
			outcome.Errors = append(outcome.Errors, LockError{
				EntryID: entries[i].ID,
				Message: fmt.Sprintf("Eintrag %d: %v", entries[i].ID, errs[i]),
			})
		}
	}

	l.log.Info().
		Int("total", outcome.Total).
		Int("locked", outcome.Locked).
		Int("already_locked", outcome.AlreadyLocked).
		Int("failed", outcome.Failed).
		Msg("Time entries locked")

	return outcome
}

func (l *Locker) lockOne(ctx context.Context, entry models.TimeEntry) (lockResult, error) {
	if entry.Locked {
		return lockSkipped, nil
	}
	if err := l.tracking.LockTimeEntry(ctx, entry.ID); err != nil {
		l.log.Warn().Err(err).Int64("entry_id", entry.ID).Msg("Failed to lock time entry")
		return lockFailed, err
	}
	l.log.Debug().Int64("entry_id", entry.ID).Msg("Time entry locked")
	return lockLocked, nil
}
