package service

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"payremind/internal/notify"
	"payremind/internal/store"
)

// Digest pushes a daily summary of pending payments through the
// notification sinks at a fixed local time.
type Digest struct {
	store store.Store
	sinks []notify.Sink
	cron  *cron.Cron
	loc   *time.Location
}

func NewDigest(st store.Store, loc *time.Location, sinks ...notify.Sink) *Digest {
	return &Digest{
		store: st,
		sinks: sinks,
		cron:  cron.New(cron.WithLocation(loc)),
		loc:   loc,
	}
}

// Start registers the daily job at the given HH:MM time and starts the loop.
func (d *Digest) Start(timeStr string) error {
	spec, err := buildDailySpec(timeStr)
	if err != nil {
		return err
	}
	if _, err := d.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		d.send(ctx)
	}); err != nil {
		return fmt.Errorf("schedule digest: %w", err)
	}
	d.cron.Start()
	log.Printf("[info] digest: scheduled daily at %s", timeStr)
	return nil
}

// Stop halts the cron loop, waiting for a running job to finish.
func (d *Digest) Stop() {
	ctx := d.cron.Stop()
	<-ctx.Done()
}

func (d *Digest) send(ctx context.Context) {
	if err := d.store.LoadPending(ctx); err != nil {
		log.Printf("digest: load pending: %v", err)
		return
	}
	text := d.Summary(time.Now())
	if text == "" {
		return
	}

	content := notify.Content{
		Title:     "Payment digest",
		Body:      text,
		LargeBody: text,
		Summary:   "Your pending payments for today",
	}
	for _, sink := range d.sinks {
		if err := sink.Send(content); err != nil {
			log.Printf("digest: deliver: %v", err)
		}
	}
}

// Summary builds the human-readable digest of pending payments. Returns the
// empty string when nothing is pending.
func (d *Digest) Summary(now time.Time) string {
	pending := d.store.Pending()
	if len(pending) == 0 {
		return ""
	}

	now = now.In(d.loc)
	var total float64
	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("📋 Pending payments — %s\n", now.Format("2006-01-02")))

	for _, r := range pending {
		due := r.DueAt.In(d.loc)
		icon := "🟢"
		switch {
		case now.After(due):
			icon = "⚠️"
		case due.Sub(now) <= 48*time.Hour:
			icon = "⏳"
		}
		builder.WriteString(fmt.Sprintf("%s %s — %.2f, due %s\n", icon, r.Name, r.Value, due.Format("2006-01-02 15:04")))
		total += r.Value
	}

	builder.WriteString(fmt.Sprintf("Total owed: %.2f", total))
	return builder.String()
}

func buildDailySpec(timeStr string) (string, error) {
	parts := strings.Split(timeStr, ":")
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid time %q, expected HH:MM", timeStr)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return "", fmt.Errorf("invalid hour in %q", timeStr)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return "", fmt.Errorf("invalid minute in %q", timeStr)
	}
	// cron format: minute hour dom month dow
	return fmt.Sprintf("%d %d * * *", minute, hour), nil
}
