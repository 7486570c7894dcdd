package recordapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"healthmate/internal/domain"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	return &Client{BaseURL: ts.URL + "/", HTTPClient: ts.Client()}
}

func TestListByDateSendsQueryAndKeepsOrder(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/meal-logs/by-date" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.URL.Query().Get("log_date"); got != "2025-12-01" {
			t.Errorf("expected log_date 2025-12-01, got %q", got)
		}
		if got := r.URL.Query().Get("user_id"); got != "u1" {
			t.Errorf("expected user_id u1, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
  {"id":"b","user_id":"u1","log_date":"2025-12-01","meal_type":"lunch","meal_name":"Soup","calories":null},
  {"id":"a","user_id":"u1","log_date":"2025-12-01","meal_type":"breakfast","meal_name":"Oats","calories":320}
]`))
	})

	date, _ := domain.ParseLogDate("2025-12-01")
	logs, err := c.MealLogs().ListByDate(context.Background(), "u1", date)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(logs) != 2 || logs[0].ID != "b" || logs[1].ID != "a" {
		t.Fatalf("expected server order [b a], got %+v", logs)
	}
	if logs[0].Calories != nil {
		t.Errorf("expected null calories to stay nil")
	}
	if logs[1].Calories == nil || *logs[1].Calories != 320 {
		t.Errorf("expected 320 calories, got %v", logs[1].Calories)
	}
}

func TestCreateSendsNullsForOmittedFields(t *testing.T) {
	t.Parallel()

	var (
		mu   sync.Mutex
		body map[string]any
	)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/health-logs" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected JSON content type, got %q", ct)
		}
		raw, _ := io.ReadAll(r.Body)
		mu.Lock()
		if err := json.Unmarshal(raw, &body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		mu.Unlock()
		_, _ = w.Write([]byte(`{"id":"h1","user_id":"u1","log_date":"2025-12-01","steps":9000}`))
	})

	date, _ := domain.ParseLogDate("2025-12-01")
	steps := 9000
	draft := domain.HealthLogDraft{Steps: &steps}.Owned("u1", date)

	got, err := c.HealthLogs().Create(context.Background(), draft)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if got.ID != "h1" || got.Steps == nil || *got.Steps != 9000 {
		t.Errorf("unexpected record %+v", got)
	}

	mu.Lock()
	defer mu.Unlock()
	if body["user_id"] != "u1" || body["log_date"] != "2025-12-01" {
		t.Errorf("owner and date not sent: %v", body)
	}
	for _, k := range []string{"sleep_hours", "water_glasses", "mood_score", "weight", "notes"} {
		v, ok := body[k]
		if !ok || v != nil {
			t.Errorf("expected %s to be null, got %v (present=%v)", k, v, ok)
		}
	}
}

func TestNon2xxIsStatusError(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"boom"}`, http.StatusInternalServerError)
	})

	_, err := c.MealLogs().Week(context.Background(), "u1")
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected *StatusError, got %v", err)
	}
	if se.StatusCode != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", se.StatusCode)
	}
	if se.Error() != "request failed with status 500" {
		t.Errorf("unexpected message %q", se.Error())
	}
}

func TestSupplementalListingPaths(t *testing.T) {
	t.Parallel()

	var (
		mu    sync.Mutex
		paths []string
	)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.Path+"?"+r.URL.RawQuery)
		mu.Unlock()
		_, _ = w.Write([]byte(`null`))
	})

	res := c.HealthLogs()
	ctx := context.Background()
	for _, fn := range []func(context.Context, string) ([]domain.HealthLog, error){res.Today, res.Week, res.All} {
		logs, err := fn(ctx, "u7")
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(logs) != 0 {
			t.Errorf("expected no logs, got %d", len(logs))
		}
	}

	mu.Lock()
	defer mu.Unlock()
	want := []string{
		"/health-logs/today?user_id=u7",
		"/health-logs/week?user_id=u7",
		"/health-logs/all?user_id=u7",
	}
	if len(paths) != len(want) {
		t.Fatalf("expected %d requests, got %v", len(want), paths)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Errorf("request %d: expected %s, got %s", i, want[i], paths[i])
		}
	}
}

func TestSummaryAndStatus(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/coach/summary":
			if r.URL.Query().Get("user_id") != "u1" {
				t.Errorf("missing user_id")
			}
			_, _ = w.Write([]byte(`{"health_logs_count":2,"meal_logs_count":4,"summary":"Drink more water."}`))
		case "/health":
			_, _ = w.Write([]byte(`{"status":"ok","message":"running"}`))
		default:
			http.NotFound(w, r)
		}
	})

	sum, err := c.Summary(context.Background(), "u1")
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if sum.HealthLogsCount != 2 || sum.MealLogsCount != 4 || sum.Summary != "Drink more water." {
		t.Errorf("unexpected summary %+v", sum)
	}

	st, err := c.Status(context.Background())
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if st.Status != "ok" {
		t.Errorf("expected ok, got %+v", st)
	}
}
