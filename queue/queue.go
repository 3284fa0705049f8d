// Package queue implements a durable store-and-forward queue for form
// submissions made while the backend is unreachable. Entries persist in a
// storage.Store bucket and are replayed in order once connectivity returns.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/curmorpheus/safesite/storage"
)

const (
	// Bucket is the storage bucket holding pending submissions. ULID keys
	// sort lexicographically by enqueue time, so List returns entries in
	// submission order.
	Bucket = "queue"

	// DefaultMaxRetries is how many delivery attempts an entry gets before
	// it is parked for operator attention.
	DefaultMaxRetries = 10

	backoffBase = 30 * time.Second
	backoffCap  = time.Hour

	// sendTimeout bounds a single delivery attempt so one hung request
	// cannot stall the rest of the drain.
	sendTimeout = 30 * time.Second
)

// ErrRetriesExhausted marks an entry that has used up its delivery attempts.
// The entry stays in the queue; it is reported through the drain's error
// callback instead of being retried or silently dropped.
var ErrRetriesExhausted = errors.New("submission retries exhausted")

// PendingSubmission is one queued form submission.
type PendingSubmission struct {
	ID            string          `json:"id"`
	Payload       json.RawMessage `json:"payload"`
	EnqueuedAt    time.Time       `json:"enqueuedAt"`
	RetryCount    int             `json:"retryCount"`
	LastAttemptAt time.Time       `json:"lastAttemptAt,omitzero"`
}

// Sender delivers one submission payload to the backend.
type Sender interface {
	Send(ctx context.Context, payload json.RawMessage) error
}

// SyncReport summarizes one DrainAndSync pass.
type SyncReport struct {
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// Queue persists pending submissions in a storage bucket. All methods are
// safe for concurrent use; the mutex serializes read-modify-write cycles so
// a retry bump never clobbers a concurrent removal.
type Queue struct {
	mu         sync.Mutex
	store      storage.Store
	maxRetries int
	now        func() time.Time
}

// Option configures a Queue.
type Option func(*Queue)

// WithMaxRetries overrides the per-entry delivery attempt budget.
func WithMaxRetries(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.maxRetries = n
		}
	}
}

// WithClock overrides the time source. Only intended for tests.
func WithClock(fn func() time.Time) Option {
	return func(q *Queue) {
		if fn != nil {
			q.now = fn
		}
	}
}

// New constructs a Queue over the given store.
func New(store storage.Store, opts ...Option) *Queue {
	q := &Queue{
		store:      store,
		maxRetries: DefaultMaxRetries,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Enqueue persists a submission payload and returns the stored entry. The
// payload must be valid JSON; it is stored verbatim so the eventual delivery
// is byte-identical to what the client produced.
func (q *Queue) Enqueue(payload json.RawMessage) (PendingSubmission, error) {
	if !json.Valid(payload) {
		return PendingSubmission{}, errors.New("payload is not valid JSON")
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	entry := PendingSubmission{
		ID:         ulid.Make().String(),
		Payload:    append(json.RawMessage(nil), payload...),
		EnqueuedAt: q.now().UTC(),
	}
	if err := q.put(entry); err != nil {
		return PendingSubmission{}, err
	}
	return entry, nil
}

// ListPending returns all queued entries in enqueue order.
func (q *Queue) ListPending() ([]PendingSubmission, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.listLocked()
}

// Count reports the number of queued entries.
func (q *Queue) Count() (int, error) {
	keys, err := q.store.List(Bucket)
	if err != nil {
		return 0, fmt.Errorf("listing queue: %w", err)
	}
	return len(keys), nil
}

// Remove deletes a delivered or abandoned entry. Removing an entry that is
// already gone is not an error; a concurrent drain may have beaten us to it.
func (q *Queue) Remove(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	err := q.store.Delete(Bucket, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	return err
}

// IncrementRetry records a failed delivery attempt against an entry.
func (q *Queue) IncrementRetry(id string) (PendingSubmission, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.incrementRetryLocked(id)
}

func (q *Queue) incrementRetryLocked(id string) (PendingSubmission, error) {
	entry, err := q.getLocked(id)
	if err != nil {
		return PendingSubmission{}, err
	}
	entry.RetryCount++
	entry.LastAttemptAt = q.now().UTC()
	if err := q.put(entry); err != nil {
		return PendingSubmission{}, err
	}
	return entry, nil
}

// DrainAndSync attempts delivery of every entry pending at the moment the
// drain starts. Entries enqueued while the drain runs wait for the next
// pass. Delivered entries are removed; failed entries get a retry bump and
// stay queued. Entries still inside their backoff interval are skipped
// without counting toward the report. Entries over the retry budget are
// reported through onError with ErrRetriesExhausted and left in place.
//
// Both callbacks are optional. The drain stops early if ctx is cancelled,
// returning the counts accumulated so far alongside the context error.
func (q *Queue) DrainAndSync(ctx context.Context, sender Sender, onSuccess func(PendingSubmission), onError func(PendingSubmission, error)) (SyncReport, error) {
	var report SyncReport
	if sender == nil {
		return report, errors.New("sender is required")
	}

	q.mu.Lock()
	snapshot, err := q.listLocked()
	q.mu.Unlock()
	if err != nil {
		return report, err
	}

	for _, entry := range snapshot {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		if entry.RetryCount >= q.maxRetries {
			report.Failed++
			if onError != nil {
				onError(entry, ErrRetriesExhausted)
			}
			continue
		}
		if !q.ready(entry) {
			continue
		}

		sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
		sendErr := sender.Send(sendCtx, entry.Payload)
		cancel()

		if sendErr != nil {
			report.Failed++
			bumped, bumpErr := q.IncrementRetry(entry.ID)
			if bumpErr == nil {
				entry = bumped
			}
			if onError != nil {
				onError(entry, sendErr)
			}
			continue
		}

		if err := q.Remove(entry.ID); err != nil {
			return report, fmt.Errorf("removing delivered entry %s: %w", entry.ID, err)
		}
		report.Succeeded++
		if onSuccess != nil {
			onSuccess(entry)
		}
	}
	return report, nil
}

// ready reports whether an entry's backoff interval has elapsed. Backoff
// doubles from 30s per failed attempt, capped at one hour.
func (q *Queue) ready(entry PendingSubmission) bool {
	if entry.RetryCount == 0 || entry.LastAttemptAt.IsZero() {
		return true
	}
	wait := backoffBase << (entry.RetryCount - 1)
	if wait > backoffCap || wait <= 0 {
		wait = backoffCap
	}
	return !q.now().Before(entry.LastAttemptAt.Add(wait))
}

func (q *Queue) put(entry PendingSubmission) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encoding queue entry: %w", err)
	}
	if err := q.store.Put(Bucket, entry.ID, raw); err != nil {
		return fmt.Errorf("storing queue entry: %w", err)
	}
	return nil
}

func (q *Queue) getLocked(id string) (PendingSubmission, error) {
	raw, err := q.store.Get(Bucket, id)
	if err != nil {
		return PendingSubmission{}, fmt.Errorf("loading queue entry %s: %w", id, err)
	}
	var entry PendingSubmission
	if err := json.Unmarshal(raw, &entry); err != nil {
		return PendingSubmission{}, fmt.Errorf("decoding queue entry %s: %w", id, err)
	}
	return entry, nil
}

func (q *Queue) listLocked() ([]PendingSubmission, error) {
	keys, err := q.store.List(Bucket)
	if err != nil {
		return nil, fmt.Errorf("listing queue: %w", err)
	}
	entries := make([]PendingSubmission, 0, len(keys))
	for _, key := range keys {
		raw, err := q.store.Get(Bucket, key)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("loading queue entry %s: %w", key, err)
		}
		var entry PendingSubmission
		if err := json.Unmarshal(raw, &entry); err != nil {
			return nil, fmt.Errorf("decoding queue entry %s: %w", key, err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
