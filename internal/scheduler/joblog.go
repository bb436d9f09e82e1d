package scheduler

import (
	"sync"
	"time"

	"prisradar/offerworker/internal/domain"
)

// jobLog is the append-only log of scraping jobs. A record is created when
// a provider job starts and receives exactly one terminal update; completed
// records are never mutated again. The log keeps the most recent maxRecords
// entries.
type jobLog struct {
	mu   sync.Mutex
	jobs []*domain.ScrapingJobRecord
	max  int
	now  func() time.Time
}

func newJobLog(max int, now func() time.Time) *jobLog {
	return &jobLog{max: max, now: now}
}

// start appends a running record and returns a handle for its single
// terminal update.
func (l *jobLog) start(provider string, category domain.Category) *domain.ScrapingJobRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	record := &domain.ScrapingJobRecord{
		Provider:  provider,
		Category:  category,
		Status:    domain.JobRunning,
		StartedAt: l.now(),
	}
	l.jobs = append(l.jobs, record)
	if len(l.jobs) > l.max {
		l.jobs = append([]*domain.ScrapingJobRecord(nil), l.jobs[len(l.jobs)-l.max:]...)
	}
	return record
}

// complete marks a job completed with the number of offers found.
func (l *jobLog) complete(record *domain.ScrapingJobRecord, offersFound int) {
	l.finish(record, domain.JobCompleted, offersFound, "")
}

// fail marks a job failed with its error message.
func (l *jobLog) fail(record *domain.ScrapingJobRecord, errMsg string) {
	l.finish(record, domain.JobFailed, 0, errMsg)
}

func (l *jobLog) finish(record *domain.ScrapingJobRecord, status domain.JobStatus, offersFound int, errMsg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if record == nil || record.Status.Terminal() {
		return
	}
	record.Status = status
	record.CompletedAt = l.now()
	record.OffersFound = offersFound
	record.Error = errMsg
}

// recent returns up to n records, newest first.
func (l *jobLog) recent(n int) []domain.ScrapingJobRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	if n > len(l.jobs) {
		n = len(l.jobs)
	}
	out := make([]domain.ScrapingJobRecord, 0, n)
	for i := len(l.jobs) - 1; i >= len(l.jobs)-n; i-- {
		out = append(out, *l.jobs[i])
	}
	return out
}
