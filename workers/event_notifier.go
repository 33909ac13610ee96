// workers/event_notifier.go
package workers

import (
	"context"
	"log"
	"time"

	"guild-bot-system/models"
	"guild-bot-system/services"

	"github.com/go-co-op/gocron/v2"
)

// Messenger is the slice of the gateway the notifier needs; satisfied by
// services.GatewayNotifier and by fakes in tests.
type Messenger interface {
	SendEventReminder(ctx context.Context, event *models.ScheduledEvent) error
}

const (
	DefaultPollPeriod      = 5 * time.Minute
	DefaultDeliveryTimeout = 15 * time.Second
)

// EventNotifier polls for events entering their pre-start window and announces
// each one at most once. The notified-flag CAS is the commit point: everything
// before it is retryable on the next tick.
type EventNotifier struct {
	Events    *services.EventService
	Messenger Messenger

	Period          time.Duration
	DeliveryTimeout time.Duration
}

func NewEventNotifier(events *services.EventService, messenger Messenger) *EventNotifier {
	return &EventNotifier{
		Events:          events,
		Messenger:       messenger,
		Period:          DefaultPollPeriod,
		DeliveryTimeout: DefaultDeliveryTimeout,
	}
}

// Start runs the polling loop on a gocron schedule. The first tick waits for
// the ready gate (the gateway connection coming up); shutdown happens between
// ticks via ctx.
func (w *EventNotifier) Start(ctx context.Context, ready <-chan struct{}) error {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return err
	}
	// Singleton mode: a tick that outlives the period (slow gateway, large
	// batch) must finish before the next one starts, or overlapping ticks
	// would each deliver the same un-notified events.
	_, err = sched.NewJob(
		gocron.DurationJob(w.Period),
		gocron.NewTask(func() {
			w.RunTick(ctx)
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return err
	}

	go func() {
		select {
		case <-ready:
		case <-ctx.Done():
			return
		}
		log.Println("[SCHEDULER] Event notifier started")
		sched.Start()

		<-ctx.Done()
		if err := sched.Shutdown(); err != nil {
			log.Printf("[SCHEDULER] Shutdown error: %v", err)
		}
		log.Println("[SCHEDULER] Event notifier stopped")
	}()
	return nil
}

// RunTick performs one poll cycle. A failed delivery is logged and retried on
// a later tick; one event's failure never aborts the rest of the batch.
func (w *EventNotifier) RunTick(ctx context.Context) {
	now := time.Now().UTC()
	events, err := w.Events.DueForNotification(ctx, now)
	if err != nil {
		log.Printf("[SCHEDULER] DB error listing due events: %v", err)
		return
	}

	for i := range events {
		if ctx.Err() != nil {
			return
		}
		event := events[i]

		dctx, cancel := context.WithTimeout(ctx, w.DeliveryTimeout)
		err := w.Messenger.SendEventReminder(dctx, &event)
		cancel()
		if err != nil {
			log.Printf("[SCHEDULER] Delivery failed for event %s (%q), will retry: %v", event.ID, event.Title, err)
			continue
		}

		marked, err := w.Events.MarkNotified(ctx, event.ID)
		if err != nil {
			log.Printf("[SCHEDULER] Failed to mark event %s notified: %v", event.ID, err)
			continue
		}
		if !marked {
			log.Printf("[SCHEDULER] Event %s already marked notified elsewhere", event.ID)
			continue
		}
		log.Printf("[SCHEDULER] Reminder sent for event %q (starts %s)", event.Title, event.EventAt.Format(time.RFC3339))
	}
}
