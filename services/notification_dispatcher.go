package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"salahStreakAPI/internal/metrics"
	"salahStreakAPI/internal/notification"
	"salahStreakAPI/internal/store"
)

const (
	dispatchWorkers   = 5
	dispatchQueueSize = 100
	dispatchBatchSize = 100
	maxDeliveryTries  = 3
	retryDelay        = 5 * time.Minute
	deliveredTTL      = 7 * 24 * time.Hour
)

type PushNotificationProvider interface {
	SendPush(ctx context.Context, tokens []notification.DeviceToken, title, body string, data map[string]any) error
}

// NotificationDispatcher keeps scheduled reminders in the reminder queue
// and pushes them to the registered devices once they fall due.
type NotificationDispatcher struct {
	queue        store.ReminderQueue
	pushProvider PushNotificationProvider
	interval     time.Duration
	workers      int
	jobQueue     chan *DispatchJob
	stopChan     chan struct{}
	stopOnce     sync.Once
	wg           sync.WaitGroup

	mu       sync.Mutex
	inflight map[string]struct{}
}

type DispatchJob struct {
	Reminder *notification.Reminder
	Tokens   []notification.DeviceToken
}

var _ Notifier = (*NotificationDispatcher)(nil)

func NewNotificationDispatcher(queue store.ReminderQueue, interval time.Duration) *NotificationDispatcher {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &NotificationDispatcher{
		queue:    queue,
		interval: interval,
		workers:  dispatchWorkers,
		jobQueue: make(chan *DispatchJob, dispatchQueueSize),
		stopChan: make(chan struct{}),
		inflight: make(map[string]struct{}),
	}
}

// SetPushProvider injects the push backend, usually FCM.
func (d *NotificationDispatcher) SetPushProvider(provider PushNotificationProvider) {
	d.pushProvider = provider
}

// Start launches the worker pool, the due-reminder ticker and the daily
// cleanup. Everything stops on ctx cancellation or Stop.
func (d *NotificationDispatcher) Start(ctx context.Context) {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker(ctx, i)
	}

	d.wg.Add(2)
	go d.processScheduledReminders(ctx)
	go d.cleanupDeliveredReminders(ctx)
}

func (d *NotificationDispatcher) worker(ctx context.Context, id int) {
	defer d.wg.Done()
	for {
		select {
		case job := <-d.jobQueue:
			d.processJob(ctx, job)
		case <-d.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (d *NotificationDispatcher) processJob(ctx context.Context, job *DispatchJob) {
	defer d.release(job.Reminder.Identifier)

	jobCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	r := job.Reminder
	if len(job.Tokens) > 0 && d.pushProvider != nil {
		if err := d.pushProvider.SendPush(jobCtx, job.Tokens, r.Title, r.Body, r.Data()); err != nil {
			log.Error().Err(err).Str("identifier", r.Identifier).Msg("push failed")
			d.markAsFailed(jobCtx, r, err)
			return
		}
	} else {
		log.Debug().
			Str("identifier", r.Identifier).
			Int("tokens", len(job.Tokens)).
			Bool("provider_set", d.pushProvider != nil).
			Msg("skipping push")
	}

	if err := d.queue.MarkReminderSent(jobCtx, r.Identifier, time.Now()); err != nil {
		log.Error().Err(err).Str("identifier", r.Identifier).Msg("failed to mark reminder as sent")
		return
	}
	metrics.RemindersDelivered.WithLabelValues("sent").Inc()
}

// DispatchReminder queues a reminder for delivery. It gives up after 5s if
// the queue is full; the reminder stays pending and is picked up on the
// next tick.
func (d *NotificationDispatcher) DispatchReminder(r *notification.Reminder, tokens []notification.DeviceToken) bool {
	if !d.claim(r.Identifier) {
		return false
	}

	select {
	case d.jobQueue <- &DispatchJob{Reminder: r, Tokens: tokens}:
		return true
	case <-time.After(5 * time.Second):
		d.release(r.Identifier)
		log.Warn().Str("identifier", r.Identifier).Msg("failed to queue reminder: queue full")
		return false
	}
}

func (d *NotificationDispatcher) claim(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, busy := d.inflight[id]; busy {
		return false
	}
	d.inflight[id] = struct{}{}
	return true
}

func (d *NotificationDispatcher) release(id string) {
	d.mu.Lock()
	delete(d.inflight, id)
	d.mu.Unlock()
}

func (d *NotificationDispatcher) processScheduledReminders(ctx context.Context) {
	defer d.wg.Done()
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := d.ProcessDue(ctx, time.Now()); err != nil {
				log.Error().Err(err).Msg("failed to process due reminders")
			}
		case <-d.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

// ProcessDue queues every pending reminder whose fire time has passed and
// returns how many were queued.
func (d *NotificationDispatcher) ProcessDue(ctx context.Context, now time.Time) (int, error) {
	due, err := d.queue.DueReminders(ctx, now, dispatchBatchSize)
	if err != nil {
		return 0, err
	}
	if len(due) == 0 {
		return 0, nil
	}

	tokens, err := d.queue.DeviceTokens(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load device tokens: %w", err)
	}

	count := 0
	for _, r := range due {
		if d.DispatchReminder(r, tokens) {
			count++
		}
	}
	if count > 0 {
		log.Info().Int("count", count).Msg("processed due reminders")
	}
	return count, nil
}

func (d *NotificationDispatcher) cleanupDeliveredReminders(ctx context.Context) {
	defer d.wg.Done()
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			d.performCleanup(ctx)
		case <-d.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (d *NotificationDispatcher) performCleanup(ctx context.Context) {
	purged, err := d.queue.PurgeDeliveredBefore(ctx, time.Now().Add(-deliveredTTL))
	if err != nil {
		log.Error().Err(err).Msg("failed to clean up delivered reminders")
		return
	}
	if purged > 0 {
		log.Info().Int64("count", purged).Msg("cleaned up delivered reminders")
	}
}

// markAsFailed puts the reminder back in the queue until it has been tried
// maxDeliveryTries times.
func (d *NotificationDispatcher) markAsFailed(ctx context.Context, r *notification.Reminder, err error) {
	var retryAt *time.Time
	if r.RetryCount+1 < maxDeliveryTries {
		at := time.Now().Add(retryDelay)
		retryAt = &at
	}

	retries, dbErr := d.queue.MarkReminderFailed(ctx, r.Identifier, err.Error(), retryAt)
	if dbErr != nil {
		log.Error().Err(dbErr).Str("identifier", r.Identifier).Msg("failed to mark reminder as failed")
		return
	}

	if retryAt != nil {
		metrics.RemindersDelivered.WithLabelValues("retry").Inc()
		log.Info().Str("identifier", r.Identifier).Int("retry", retries).Time("retry_at", *retryAt).Msg("scheduled reminder retry")
		return
	}
	metrics.RemindersDelivered.WithLabelValues("failed").Inc()
}

func (d *NotificationDispatcher) ScheduleLocal(ctx context.Context, r *notification.Reminder) error {
	return d.queue.UpsertReminder(ctx, r)
}

func (d *NotificationDispatcher) Cancel(ctx context.Context, identifiers []string) error {
	deleted, err := d.queue.DeleteReminders(ctx, identifiers)
	if err != nil {
		return err
	}
	metrics.RemindersCancelled.Add(float64(deleted))
	return nil
}

func (d *NotificationDispatcher) CancelAll(ctx context.Context) error {
	deleted, err := d.queue.DeletePendingReminders(ctx)
	if err != nil {
		return err
	}
	metrics.RemindersCancelled.Add(float64(deleted))
	log.Info().Int64("count", deleted).Msg("cancelled all pending reminders")
	return nil
}

func (d *NotificationDispatcher) PendingReminders(ctx context.Context) ([]*notification.Reminder, error) {
	return d.queue.PendingReminders(ctx)
}

func (d *NotificationDispatcher) RegisterDevice(ctx context.Context, token notification.DeviceToken) error {
	return d.queue.AddDeviceToken(ctx, token)
}

// Stop the dispatcher gracefully
func (d *NotificationDispatcher) Stop() {
	d.stopOnce.Do(func() {
		log.Info().Msg("stopping notification dispatcher")
		close(d.stopChan)
		d.wg.Wait()
		log.Info().Msg("notification dispatcher stopped")
	})
}

// MockPushProvider logs instead of pushing. Used when FCM is not configured.
type MockPushProvider struct{}

func (m *MockPushProvider) SendPush(ctx context.Context, tokens []notification.DeviceToken, title, body string, data map[string]any) error {
	log.Info().Int("devices", len(tokens)).Str("title", title).Str("body", body).Msg("MOCK PUSH")
	return nil
}
