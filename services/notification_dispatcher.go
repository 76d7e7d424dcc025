package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"lifeQuestClient/internal/collection"
	"lifeQuestClient/internal/progress"
)

// DisplayTTL is how long a toast stays relevant. Older notifications are dropped.
const DisplayTTL = 3 * time.Second

var ErrQueueFull = errors.New("notification queue full")

type NotificationType string

const (
	NotificationXPGranted      NotificationType = "xp_granted"
	NotificationLevelUp        NotificationType = "level_up"
	NotificationMutationFailed NotificationType = "mutation_failed"
)

type Notification struct {
	ID        string           `json:"id"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Body      string           `json:"body,omitempty"`
	CreatedAt time.Time        `json:"createdAt"`
	ExpiresAt time.Time        `json:"expiresAt"`
}

func (n Notification) Expired(now time.Time) bool {
	return !n.ExpiresAt.IsZero() && now.After(n.ExpiresAt)
}

// Sink delivers a notification to one channel.
type Sink interface {
	Deliver(ctx context.Context, n Notification) error
}

type LogSink struct {
	logger *zap.Logger
}

func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Deliver(_ context.Context, n Notification) error {
	s.logger.Info(n.Title,
		zap.String("notification_id", n.ID),
		zap.String("type", string(n.Type)),
		zap.String("body", n.Body))
	return nil
}

// WriterSink prints one line per notification; writes are serialized.
type WriterSink struct {
	mu     sync.Mutex
	w      io.Writer
	format func(Notification) string
}

func NewWriterSink(w io.Writer, format func(Notification) string) *WriterSink {
	if format == nil {
		format = func(n Notification) string {
			if n.Body == "" {
				return n.Title
			}
			return n.Title + ": " + n.Body
		}
	}
	return &WriterSink{w: w, format: format}
}

func (s *WriterSink) Deliver(_ context.Context, n Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := fmt.Fprintln(s.w, s.format(n))
	return err
}

// NotificationDispatcher fans in-app notifications out to its sinks through a
// small worker pool.
type NotificationDispatcher struct {
	sinks    []Sink
	logger   *zap.Logger
	workers  int
	ttl      time.Duration
	now      func() time.Time
	jobQueue chan *DispatchJob
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	lastTotal atomic.Pointer[int]
}

type DispatchJob struct {
	Notification Notification
}

func NewNotificationDispatcher(logger *zap.Logger, sinks ...Sink) *NotificationDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &NotificationDispatcher{
		sinks:    sinks,
		logger:   logger,
		workers:  2,
		ttl:      DisplayTTL,
		now:      time.Now,
		jobQueue: make(chan *DispatchJob, 100),
		stopChan: make(chan struct{}),
	}
	d.startWorkers()
	return d
}

func (d *NotificationDispatcher) startWorkers() {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker(i)
	}
}

func (d *NotificationDispatcher) worker(id int) {
	defer d.wg.Done()
	for {
		select {
		case job := <-d.jobQueue:
			d.processJob(job)
		case <-d.stopChan:
			// deliver what is already queued
			for {
				select {
				case job := <-d.jobQueue:
					d.processJob(job)
				default:
					d.logger.Debug("notification worker stopped", zap.Int("worker", id))
					return
				}
			}
		}
	}
}

func (d *NotificationDispatcher) processJob(job *DispatchJob) {
	n := job.Notification
	if n.Expired(d.now()) {
		d.logger.Debug("dropping expired notification", zap.String("notification_id", n.ID))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), d.ttl)
	defer cancel()
	for _, sink := range d.sinks {
		if err := sink.Deliver(ctx, n); err != nil {
			d.logger.Warn("notification delivery failed",
				zap.String("notification_id", n.ID),
				zap.Error(err))
		}
	}
}

// Dispatch queues n, stamping its id and expiry when missing.
func (d *NotificationDispatcher) Dispatch(ctx context.Context, n Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = d.now()
	}
	if n.ExpiresAt.IsZero() {
		n.ExpiresAt = n.CreatedAt.Add(d.ttl)
	}

	select {
	case <-d.stopChan:
		return errors.New("notification dispatcher stopped")
	default:
	}

	select {
	case d.jobQueue <- &DispatchJob{Notification: n}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d.ttl):
		d.logger.Warn("failed to queue notification", zap.String("notification_id", n.ID))
		return ErrQueueFull
	}
}

// NotifyCompletion turns a completion event into an XP toast, plus a level-up
// toast when the new total crosses a level boundary. The boundary is checked
// against the last total seen, falling back to the total minus the grant.
func (d *NotificationDispatcher) NotifyCompletion(e collection.CompletionEvent) {
	ctx := context.Background()
	n := Notification{
		Type:  NotificationXPGranted,
		Title: fmt.Sprintf("+%d XP", e.Granted),
		Body:  fmt.Sprintf("%s completed", e.Collection),
	}
	if err := d.Dispatch(ctx, n); err != nil {
		d.logger.Warn("failed to dispatch completion", zap.Error(err))
	}

	if e.TotalXP == nil {
		return
	}
	total := *e.TotalXP
	before := total - e.Granted
	if last := d.lastTotal.Swap(&total); last != nil {
		before = *last
	}
	after := progress.DerivedLevel(*e.TotalXP)
	if after > progress.DerivedLevel(before) {
		lvl := Notification{
			Type:  NotificationLevelUp,
			Title: fmt.Sprintf("Level %d reached", after),
			Body:  fmt.Sprintf("%d XP to the next level", progress.XPToNextLevel(*e.TotalXP)),
		}
		if err := d.Dispatch(ctx, lvl); err != nil {
			d.logger.Warn("failed to dispatch level up", zap.Error(err))
		}
	}
}

// NotifyError reports a failed mutation as a dismissable toast.
func (d *NotificationDispatcher) NotifyError(err error) {
	if err == nil {
		return
	}
	n := Notification{Type: NotificationMutationFailed, Title: "Something went wrong", Body: err.Error()}
	if derr := d.Dispatch(context.Background(), n); derr != nil {
		d.logger.Warn("failed to dispatch error", zap.Error(derr))
	}
}

// Stop drains the queue and waits for the workers.
func (d *NotificationDispatcher) Stop() {
	d.stopOnce.Do(func() {
		close(d.stopChan)
		d.wg.Wait()
	})
}
