// Package notify delivers new-listing alerts to the configured sinks.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"listings_dashboard/internal/listing"
	"listings_dashboard/internal/metrics"
	"listings_dashboard/internal/model"
	"listings_dashboard/internal/novelty"
)

// Alert announces listings that just became new.
type Alert struct {
	Count    int             `json:"count"`
	Items    []model.Listing `json:"items"`
	Messages []string        `json:"messages"`
	At       time.Time       `json:"at"`
}

// NewAlert builds an alert from a novelty result.
func NewAlert(res novelty.Result, at time.Time) Alert {
	return Alert{
		Count:    res.Count(),
		Items:    res.Items,
		Messages: res.Messages,
		At:       at,
	}
}

// Text renders the alert as a plain-text chat message.
func (a Alert) Text() string {
	var b strings.Builder
	noun := "listing"
	if len(a.Items) == 0 {
		noun = "alert"
	}
	if a.Count == 1 {
		fmt.Fprintf(&b, "1 new %s", noun)
	} else {
		fmt.Fprintf(&b, "%d new %ss", a.Count, noun)
	}
	for _, l := range a.Items {
		b.WriteString("\n\n")
		b.WriteString(listing.AlertLine(l))
		if title := l.Title(); title != "" {
			fmt.Fprintf(&b, "\n%s", title)
		}
		if l.URL != "" {
			fmt.Fprintf(&b, "\n%s", l.URL)
		}
	}
	for _, m := range a.Messages {
		fmt.Fprintf(&b, "\n\n%s", m)
	}
	return b.String()
}

// Notifier is a destination for alerts.
type Notifier interface {
	Name() string
	SendAlert(ctx context.Context, alert Alert) error
	Close() error
}

// Multi fans alerts out to several notifiers.
type Multi struct {
	notifiers []Notifier
	log       *zap.Logger
	metrics   *metrics.Metrics
}

// NewMulti creates a Multi. Nil notifiers are skipped.
func NewMulti(log *zap.Logger, m *metrics.Metrics, notifiers ...Notifier) *Multi {
	var active []Notifier
	for _, n := range notifiers {
		if n != nil {
			active = append(active, n)
		}
	}
	return &Multi{notifiers: active, log: log, metrics: m}
}

// Name identifies the fan-out in logs.
func (m *Multi) Name() string {
	return "multi"
}

// SendAlert delivers the alert to every notifier. One failing sink does not
// stop delivery to the others.
func (m *Multi) SendAlert(ctx context.Context, alert Alert) error {
	var errs []error
	for _, n := range m.notifiers {
		result := "ok"
		if err := n.SendAlert(ctx, alert); err != nil {
			result = "error"
			m.log.Error("send alert", zap.String("sink", n.Name()), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", n.Name(), err))
		}
		if m.metrics != nil {
			m.metrics.Notifications.WithLabelValues(n.Name(), result).Inc()
		}
	}
	return errors.Join(errs...)
}

// Close closes every notifier and returns the joined errors.
func (m *Multi) Close() error {
	var errs []error
	for _, n := range m.notifiers {
		if err := n.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Count returns the number of active notifiers.
func (m *Multi) Count() int {
	return len(m.notifiers)
}
