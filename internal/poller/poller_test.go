package poller

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"listings_dashboard/internal/config"
	"listings_dashboard/internal/dashboard"
	"listings_dashboard/internal/gateway"
	"listings_dashboard/internal/metrics"
	"listings_dashboard/internal/model"
	"listings_dashboard/internal/notify"
	"listings_dashboard/internal/novelty"
	"listings_dashboard/internal/storage"
)

type mockHTTP struct {
	body  string
	calls atomic.Int32
}

func (m *mockHTTP) Do(_ *http.Request) (*http.Response, error) {
	m.calls.Add(1)
	return &http.Response{
		StatusCode: 200,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(bytes.NewBufferString(m.body)),
	}, nil
}

type fetchFunc func(ctx context.Context) (*gateway.Response, error)

func (f fetchFunc) FetchListings(ctx context.Context) (*gateway.Response, error) {
	return f(ctx)
}

type mockNotifier struct {
	mu     sync.Mutex
	alerts []notify.Alert
}

func (m *mockNotifier) Name() string { return "mock" }

func (m *mockNotifier) SendAlert(_ context.Context, alert notify.Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alerts = append(m.alerts, alert)
	return nil
}

func (m *mockNotifier) Close() error { return nil }

func (m *mockNotifier) getAlerts() []notify.Alert {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]notify.Alert{}, m.alerts...)
}

type mockBroadcaster struct {
	mu       sync.Mutex
	messages []notify.Message
}

func (m *mockBroadcaster) Broadcast(msg notify.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
}

type mockArchiver struct {
	mu      sync.Mutex
	batches [][]model.Listing
}

func (m *mockArchiver) Archive(_ context.Context, records []model.Listing, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches = append(m.batches, records)
	return nil
}

func loadFixture(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile("../../testdata/listings.json")
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	return string(data)
}

func newTestSession(t *testing.T) *dashboard.Session {
	t.Helper()
	s, err := storage.NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("new sqlite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	tr := novelty.NewTracker(s, zap.NewNop())
	if err := tr.Load(context.Background()); err != nil {
		t.Fatalf("load tracker: %v", err)
	}
	return dashboard.NewSession(tr, 6)
}

func jsonResponse(body string) *gateway.Response {
	return &gateway.Response{Status: 200, JSON: true, Body: []byte(body)}
}

func TestRefreshAppliesListingsAndNotifiesOnce(t *testing.T) {
	ctx := context.Background()
	session := newTestSession(t)
	httpClient := &mockHTTP{body: loadFixture(t)}
	gw := gateway.New(httpClient, &config.Config{ListingsWebhook: "https://hooks.example.com/listings"})
	notifier := &mockNotifier{}
	hub := &mockBroadcaster{}
	archive := &mockArchiver{}
	m := metrics.New()

	p := New(gw, session, notifier, zap.NewNop())
	p.SetBroadcaster(hub)
	p.SetArchiver(archive)
	p.SetMetrics(m)

	if err := p.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if err := p.Refresh(ctx); err != nil {
		t.Fatalf("second refresh: %v", err)
	}

	view := session.View(1, 0)
	if diff := cmp.Diff(3, view.Page.Total); diff != "" {
		t.Errorf("listing total mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(3, view.NewCount); diff != "" {
		t.Errorf("new count mismatch (-want +got):\n%s", diff)
	}

	alerts := notifier.getAlerts()
	if diff := cmp.Diff(1, len(alerts)); diff != "" {
		t.Fatalf("alert count mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(3, alerts[0].Count); diff != "" {
		t.Errorf("alert size mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(2, len(hub.messages)); diff != "" {
		t.Errorf("broadcast count mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(2, len(archive.batches)); diff != "" {
		t.Errorf("archive count mismatch (-want +got):\n%s", diff)
	}
	if got := testutil.ToFloat64(m.Refreshes.WithLabelValues(metrics.RefreshOK)); got != 2 {
		t.Errorf("ok refreshes = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.Listings); got != 3 {
		t.Errorf("listings gauge = %v, want 3", got)
	}
}

func TestRefreshNotifiesAgainAfterAcknowledge(t *testing.T) {
	ctx := context.Background()
	session := newTestSession(t)
	body := `[{"PostID": 1}]`
	notifier := &mockNotifier{}
	p := New(fetchFunc(func(context.Context) (*gateway.Response, error) {
		return jsonResponse(body), nil
	}), session, notifier, zap.NewNop())

	if err := p.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if _, err := session.AcknowledgeNew(ctx); err != nil {
		t.Fatalf("acknowledge: %v", err)
	}
	body = `[{"PostID": 1}, {"PostID": 2}]`
	if err := p.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	alerts := notifier.getAlerts()
	if diff := cmp.Diff(2, len(alerts)); diff != "" {
		t.Fatalf("alert count mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int64{2}, model.Identifiers(alerts[1].Items)); diff != "" {
		t.Errorf("second alert items mismatch (-want +got):\n%s", diff)
	}
}

func TestRefreshFetchError(t *testing.T) {
	ctx := context.Background()
	session := newTestSession(t)
	notifier := &mockNotifier{}
	m := metrics.New()
	p := New(fetchFunc(func(context.Context) (*gateway.Response, error) {
		return nil, errors.New("connection refused")
	}), session, notifier, zap.NewNop())
	p.SetMetrics(m)

	if err := p.Refresh(ctx); err == nil {
		t.Fatal("expected error, got nil")
	}

	view := session.View(1, 0)
	if diff := cmp.Diff([]string{dashboard.ConnectionErrorMsg}, view.AlertLog); diff != "" {
		t.Errorf("alert log mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(0, view.Page.Total); diff != "" {
		t.Errorf("expected no listings (-want +got):\n%s", diff)
	}
	if got := testutil.ToFloat64(m.Refreshes.WithLabelValues(metrics.RefreshError)); got != 1 {
		t.Errorf("error refreshes = %v, want 1", got)
	}
	if diff := cmp.Diff(1, len(notifier.getAlerts())); diff != "" {
		t.Errorf("fallback alert count mismatch (-want +got):\n%s", diff)
	}
}

func TestRefreshUpstreamStatusError(t *testing.T) {
	session := newTestSession(t)
	p := New(fetchFunc(func(context.Context) (*gateway.Response, error) {
		return &gateway.Response{Status: 503, Body: []byte("maintenance")}, nil
	}), session, nil, zap.NewNop())

	err := p.Refresh(context.Background())
	var upstream *gateway.UpstreamStatusError
	if !errors.As(err, &upstream) {
		t.Fatalf("expected UpstreamStatusError, got %v", err)
	}
	if diff := cmp.Diff(503, upstream.Status); diff != "" {
		t.Errorf("status mismatch (-want +got):\n%s", diff)
	}
}

func TestRefreshCancelsPredecessor(t *testing.T) {
	ctx := context.Background()
	session := newTestSession(t)

	started := make(chan struct{})
	cancelled := make(chan struct{})
	var calls atomic.Int32

	p := New(fetchFunc(func(ctx context.Context) (*gateway.Response, error) {
		if calls.Add(1) == 1 {
			close(started)
			<-ctx.Done()
			close(cancelled)
			return jsonResponse(`[{"PostID": 99}]`), nil
		}
		return jsonResponse(`[{"PostID": 7}]`), nil
	}), session, nil, zap.NewNop())

	p.start(ctx)
	<-started

	if err := p.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	select {
	case <-cancelled:
	case <-time.After(2 * time.Second):
		t.Fatal("first refresh was not cancelled")
	}
	p.wg.Wait()

	if diff := cmp.Diff([]int64{7}, model.Identifiers(session.Snapshot().Records)); diff != "" {
		t.Errorf("superseded result overwrote state (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(uint64(2), session.Snapshot().Seq); diff != "" {
		t.Errorf("seq mismatch (-want +got):\n%s", diff)
	}
}

func TestRunRefreshesOnEveryTick(t *testing.T) {
	session := newTestSession(t)
	var calls atomic.Int32
	p := New(fetchFunc(func(context.Context) (*gateway.Response, error) {
		calls.Add(1)
		return jsonResponse(`[]`), nil
	}), session, nil, zap.NewNop())
	p.SetTickInterval(10 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for calls.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("expected at least 3 refreshes, got %d", calls.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after context cancellation")
	}
}

func TestTriggerRefreshesImmediately(t *testing.T) {
	session := newTestSession(t)
	var calls atomic.Int32
	p := New(fetchFunc(func(context.Context) (*gateway.Response, error) {
		calls.Add(1)
		return jsonResponse(`[]`), nil
	}), session, nil, zap.NewNop())
	p.SetTickInterval(time.Hour)

	// Pending triggers coalesce and never block.
	p.Trigger()
	p.Trigger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	deadline := time.After(2 * time.Second)
	for calls.Load() < 2 {
		select {
		case <-deadline:
			t.Fatalf("expected initial and triggered refresh, got %d", calls.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}
}
