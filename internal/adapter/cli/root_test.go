package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"healthmate/internal/app"
	"healthmate/internal/domain"
)

func TestRootHelp(t *testing.T) {
	buf := &bytes.Buffer{}
	root := NewRootCmd()
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs([]string{"--help"})

	if err := root.Execute(); err != nil {
		t.Fatalf("execute root help: %v", err)
	}
	for _, name := range []string{"login", "health", "meals", "coach"} {
		if !strings.Contains(buf.String(), name) {
			t.Errorf("expected %q in help output", name)
		}
	}
}

// fakeBackend serves the record API from memory.
type fakeBackend struct {
	mu     sync.Mutex
	health []domain.HealthLog
	meals  []domain.MealLog
}

func (b *fakeBackend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, domain.BackendStatus{Status: "ok", Message: "MyHealthMate API"})
	})
	mux.HandleFunc("POST /health-logs", func(w http.ResponseWriter, r *http.Request) {
		var d domain.HealthLogDraft
		if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		b.mu.Lock()
		h := domain.HealthLog{
			ID: fmt.Sprintf("h%d", len(b.health)+1), UserID: d.UserID, LogDate: d.LogDate,
			SleepHours: d.SleepHours, WaterGlasses: d.WaterGlasses, Steps: d.Steps,
			MoodScore: d.MoodScore, Weight: d.Weight, Notes: d.Notes,
		}
		b.health = append(b.health, h)
		b.mu.Unlock()
		writeJSON(w, h)
	})
	mux.HandleFunc("GET /health-logs/by-date", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		out := []domain.HealthLog{}
		for _, h := range b.health {
			if h.UserID == r.URL.Query().Get("user_id") && h.LogDate.String() == r.URL.Query().Get("log_date") {
				out = append(out, h)
			}
		}
		writeJSON(w, out)
	})
	mux.HandleFunc("POST /meal-logs", func(w http.ResponseWriter, r *http.Request) {
		var d domain.MealLogDraft
		if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		b.mu.Lock()
		m := domain.MealLog{
			ID: fmt.Sprintf("m%d", len(b.meals)+1), UserID: d.UserID, LogDate: d.LogDate,
			MealType: d.MealType, MealName: d.MealName, Calories: d.Calories,
			ProteinGrams: d.ProteinGrams, CarbsGrams: d.CarbsGrams, FatGrams: d.FatGrams, Notes: d.Notes,
		}
		b.meals = append(b.meals, m)
		b.mu.Unlock()
		writeJSON(w, m)
	})
	mux.HandleFunc("GET /meal-logs/by-date", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		out := []domain.MealLog{}
		for _, m := range b.meals {
			if m.UserID == r.URL.Query().Get("user_id") && m.LogDate.String() == r.URL.Query().Get("log_date") {
				out = append(out, m)
			}
		}
		writeJSON(w, out)
	})
	mux.HandleFunc("GET /meal-logs/week", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		out := []domain.MealLog{}
		for _, m := range b.meals {
			if m.UserID == r.URL.Query().Get("user_id") {
				out = append(out, m)
			}
		}
		writeJSON(w, out)
	})
	mux.HandleFunc("GET /coach/summary", func(w http.ResponseWriter, _ *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		writeJSON(w, domain.CoachSummary{
			HealthLogsCount: len(b.health),
			MealLogsCount:   len(b.meals),
			Summary:         "**Great** week.",
		})
	})
	return mux
}

func (b *fakeBackend) healthLogs() []domain.HealthLog {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]domain.HealthLog(nil), b.health...)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// setup points the CLI at a fresh backend, store and config directory and
// returns the path of a config file with short redirect delays.
func setup(t *testing.T) (*fakeBackend, string) {
	t.Helper()
	backend := &fakeBackend{}
	srv := httptest.NewServer(backend.handler())
	t.Cleanup(srv.Close)

	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	t.Setenv("HEALTHMATE_CONFIG", "")
	{
		wd, err := os.Getwd()
		if err != nil {
			t.Fatal(err)
		}
		if err := os.Chdir(t.TempDir()); err != nil {
			t.Fatal(err)
		}
		t.Cleanup(func() { _ = os.Chdir(wd) })
	}

	t.Setenv("BACKEND_URL", srv.URL)
	t.Setenv("IDENTITY_PROVIDER", "local")
	t.Setenv("LOCAL_JWT_SECRET", "0123456789abcdef0123")
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("DATABASE_URL", filepath.Join(home, "store", "healthmate.db"))
	t.Setenv("LOG_FILE", filepath.Join(home, "healthmate.log"))
	t.Setenv("LOG_CONSOLE", "false")

	cfg := filepath.Join(home, "config.yaml")
	yaml := "ui:\n  redirect_delay: 1ms\n  auth_redirect_delay: 1ms\n"
	if err := os.WriteFile(cfg, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return backend, cfg
}

func run(t *testing.T, cfg, stdin string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	root := NewRootCmd()
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--config", cfg}, args...))
	err := root.ExecuteContext(context.Background())
	return buf.String(), err
}

func mustRun(t *testing.T, cfg, stdin string, args ...string) string {
	t.Helper()
	out, err := run(t, cfg, stdin, args...)
	if err != nil {
		t.Fatalf("%s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return out
}

func TestEndToEnd_LocalProvider(t *testing.T) {
	backend, cfg := setup(t)

	out := mustRun(t, cfg, "", "signup", "--email", "sam@example.com", "--password", "password1", "--name", "Sam")
	if !strings.Contains(out, "Signup successful! Redirecting...") {
		t.Fatalf("unexpected signup output: %q", out)
	}
	out = mustRun(t, cfg, "", "whoami")
	if !strings.Contains(out, "sam@example.com") || !strings.Contains(out, "Sam") {
		t.Fatalf("unexpected whoami output: %q", out)
	}

	out = mustRun(t, cfg, "", "health", "add", "--date", "2026-10-01", "--sleep", "7.5", "--water", "8")
	if !strings.Contains(out, "Saved health log h1 for 2026-10-01.") || !strings.Contains(out, "7.5") {
		t.Fatalf("unexpected add output: %q", out)
	}
	if got := backend.healthLogs()[0]; got.Steps != nil || got.Notes != nil {
		t.Errorf("blank fields must be sent as null, got %+v", got)
	}

	out = mustRun(t, cfg, "", "health", "list", "--date", "2026-10-01")
	if !strings.Contains(out, "7.5") || !strings.Contains(out, "SLEEP") {
		t.Fatalf("unexpected list output: %q", out)
	}
	out = mustRun(t, cfg, "", "health", "list", "--date", "2026-10-02")
	if !strings.Contains(out, "No health logs.") {
		t.Fatalf("expected empty list, got %q", out)
	}

	if _, err := run(t, cfg, "", "meals", "add", "--type", "lunch"); err == nil || !strings.Contains(err.Error(), "meal_name is required") {
		t.Fatalf("expected meal_name validation error, got %v", err)
	}
	if _, err := run(t, cfg, "", "health", "add", "--steps", "many"); err == nil {
		t.Fatal("expected non-numeric steps to be rejected")
	}
	mustRun(t, cfg, "", "meals", "add", "--date", "2026-10-01", "--type", "Lunch", "--name", "Soup")
	out = mustRun(t, cfg, "", "meals", "add", "--date", "2026-10-01", "--type", "Lunch", "--name", "Salad", "--calories", "420")
	if !strings.Contains(out, "Salad") || strings.Index(out, "Salad") > strings.Index(out, "Soup") {
		t.Fatalf("expected the page with the new meal first, got %q", out)
	}
	out = mustRun(t, cfg, "", "meals", "week")
	if !strings.Contains(out, "Salad") || !strings.Contains(out, "lunch") {
		t.Fatalf("unexpected week output: %q", out)
	}

	out = mustRun(t, cfg, "", "coach")
	if !strings.Contains(out, "Health logs this week: 1") || !strings.Contains(out, "**Great** week.") {
		t.Fatalf("unexpected coach output: %q", out)
	}
	out = mustRun(t, cfg, "", "coach", "--html")
	if !strings.Contains(out, "<strong>Great</strong>") {
		t.Fatalf("unexpected coach html: %q", out)
	}
	out = mustRun(t, cfg, "", "status")
	if !strings.Contains(out, ": ok") {
		t.Fatalf("unexpected status output: %q", out)
	}

	out = mustRun(t, cfg, "", "logout")
	if !strings.Contains(out, "You have been logged out.") {
		t.Fatalf("unexpected logout output: %q", out)
	}
	_, err := run(t, cfg, "", "health", "list")
	var re *app.RedirectError
	if !errors.As(err, &re) || re.Target != app.TargetLogin {
		t.Fatalf("expected redirect to login, got %v", err)
	}
}

func TestLogin_PromptsForCredentials(t *testing.T) {
	_, cfg := setup(t)
	mustRun(t, cfg, "", "signup", "--email", "sam@example.com", "--password", "password1")
	mustRun(t, cfg, "", "logout")

	out := mustRun(t, cfg, "sam@example.com\npassword1\n", "login")
	if !strings.Contains(out, "Email: ") || !strings.Contains(out, "Login successful! Redirecting...") {
		t.Fatalf("unexpected login output: %q", out)
	}
	out = mustRun(t, cfg, "sam@example.com\nanything\n", "login")
	if !strings.Contains(out, "You are already logged in. Redirecting...") {
		t.Fatalf("expected login with an active session to succeed, got %q", out)
	}

	mustRun(t, cfg, "", "logout")
	if _, err := run(t, cfg, "sam@example.com\nwrong-password\n", "login"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
}

func TestShell_RedirectsToLoginThenLoads(t *testing.T) {
	backend, cfg := setup(t)
	mustRun(t, cfg, "", "signup", "--email", "sam@example.com", "--password", "password1")
	mustRun(t, cfg, "", "logout")

	stdin := strings.Join([]string{
		"sam@example.com",
		"password1",
		`add sleep=8 notes="long night"`,
		"add steps=lots",
		"list",
		"date next",
		"bogus",
		"quit",
	}, "\n") + "\n"
	out := mustRun(t, cfg, stdin, "health", "shell", "--date", "2026-10-01")

	for _, want := range []string{
		"You are not logged in. Redirecting to login...",
		"Login successful! Redirecting...",
		"health 2026-10-01> ",
		"Saved health log h1.",
		"long night",
		`steps: "lots" is not a whole number`,
		"health 2026-10-02> ",
		"No health logs.",
		`unknown command "bogus"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in shell output:\n%s", want, out)
		}
	}
	if n := len(backend.healthLogs()); n != 1 {
		t.Errorf("expected one created record, got %d", n)
	}
}

func TestShell_MemoryStore(t *testing.T) {
	_, cfg := setup(t)
	t.Setenv("STORE_DRIVER", "memory")

	// Nothing survives the signup run, so the shell starts logged out and
	// the login prompt fails for the unknown account until input ends.
	mustRun(t, cfg, "", "signup", "--email", "sam@example.com", "--password", "password1")
	_, err := run(t, cfg, "sam@example.com\npassword1\n", "health", "shell")
	if err == nil || !errors.Is(err, io.EOF) {
		t.Fatalf("expected the login prompt to hit end of input, got %v", err)
	}
}

func TestAdd_ShowsPageAfterFailedLoad(t *testing.T) {
	backend, cfg := setup(t)
	mustRun(t, cfg, "", "signup", "--email", "sam@example.com", "--password", "password1")

	// Every GET fails, so the first load errors while the create succeeds.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		backend.handler().ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)
	t.Setenv("BACKEND_URL", srv.URL)

	out := mustRun(t, cfg, "", "meals", "add", "--type", "snack", "--name", "Apple")
	if !strings.Contains(out, "Saved meal log m1") || !strings.Contains(out, "Apple") {
		t.Fatalf("expected the submit to go through after a failed load, got %q", out)
	}
}

func TestRecordCommands_ListingWindows(t *testing.T) {
	root := NewRootCmd()
	subcommands := func(parent string) map[string]bool {
		names := map[string]bool{}
		for _, c := range root.Commands() {
			if c.Name() != parent {
				continue
			}
			for _, sub := range c.Commands() {
				names[sub.Name()] = true
			}
		}
		return names
	}

	health := subcommands("health")
	for _, name := range []string{"list", "add", "today", "week", "all", "shell"} {
		if !health[name] {
			t.Errorf("expected health %s", name)
		}
	}
	meals := subcommands("meals")
	if !meals["today"] || !meals["week"] {
		t.Errorf("expected meals today and week, got %v", meals)
	}
	if meals["all"] {
		t.Error("meals has no all listing on the backend")
	}
}

func TestSplitArgs(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"list", []string{"list"}},
		{"  date   next ", []string{"date", "next"}},
		{`add notes="long night" sleep=8`, []string{"add", "notes=long night", "sleep=8"}},
		{`add notes='a "quoted" word'`, []string{"add", `notes=a "quoted" word`}},
		{`add notes=a\ b`, []string{"add", "notes=a b"}},
		{`add notes=""`, []string{"add", "notes="}},
	}
	for _, tc := range tests {
		got, err := splitArgs(tc.in)
		if err != nil {
			t.Fatalf("splitArgs(%q): %v", tc.in, err)
		}
		if strings.Join(got, "|") != strings.Join(tc.want, "|") || len(got) != len(tc.want) {
			t.Errorf("splitArgs(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}

	for _, bad := range []string{`add notes="open`, `add \`} {
		if _, err := splitArgs(bad); err == nil {
			t.Errorf("splitArgs(%q): expected error", bad)
		}
	}
}
