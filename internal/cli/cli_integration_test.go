package cli

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"tache-cli/internal/session"
)

// fakeService is an in-memory stand-in for the remote tâches service.
type fakeService struct {
	mu       sync.Mutex
	nextID   int
	tasks    []map[string]any
	reports  int
	requests int
}

func newFakeService() *fakeService {
	return &fakeService{nextID: 1}
}

func (s *fakeService) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/token/", func(w http.ResponseWriter, r *http.Request) {
		s.countRequest()
		var creds map[string]string
		_ = json.NewDecoder(r.Body).Decode(&creds)
		if creds["username"] != "alice" || creds["password"] != "s3cret" {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{"detail": "identifiants incorrects"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"token": "tok-test"})
	})

	mux.HandleFunc("/taches/", func(w http.ResponseWriter, r *http.Request) {
		s.countRequest()
		if !authorized(r) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch r.Method {
		case http.MethodGet:
			s.mu.Lock()
			defer s.mu.Unlock()
			_ = json.NewEncoder(w).Encode(s.tasks)
		case http.MethodPost:
			var body map[string]any
			_ = json.NewDecoder(r.Body).Decode(&body)
			s.mu.Lock()
			task := map[string]any{
				"id":          s.nextID,
				"titre":       body["titre"],
				"description": body["description"],
				"termine":     false,
			}
			s.nextID++
			s.tasks = append(s.tasks, task)
			s.mu.Unlock()
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(task)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/taches/{id}/", func(w http.ResponseWriter, r *http.Request) {
		s.countRequest()
		if !authorized(r) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		id, _ := strconv.Atoi(r.PathValue("id"))
		s.mu.Lock()
		defer s.mu.Unlock()
		idx := -1
		for i, task := range s.tasks {
			if task["id"] == id {
				idx = i
				break
			}
		}
		switch r.Method {
		case http.MethodDelete:
			if idx >= 0 {
				s.tasks = append(s.tasks[:idx], s.tasks[idx+1:]...)
			}
			w.WriteHeader(http.StatusNoContent)
		case http.MethodPatch:
			if idx < 0 {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			var patch map[string]any
			_ = json.NewDecoder(r.Body).Decode(&patch)
			for k, v := range patch {
				s.tasks[idx][k] = v
			}
			_ = json.NewEncoder(w).Encode(patch)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/start-report/", func(w http.ResponseWriter, r *http.Request) {
		s.countRequest()
		if !authorized(r) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		s.mu.Lock()
		s.reports = 0
		s.mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]string{"task_id": "job-1"})
	})

	mux.HandleFunc("/check-report-status/{id}/", func(w http.ResponseWriter, r *http.Request) {
		s.countRequest()
		if !authorized(r) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		s.mu.Lock()
		s.reports++
		n := s.reports
		s.mu.Unlock()
		switch {
		case n == 1:
			_ = json.NewEncoder(w).Encode(map[string]any{"state": "PENDING"})
		case n == 2:
			_ = json.NewEncoder(w).Encode(map[string]any{"state": "STARTED"})
		default:
			_ = json.NewEncoder(w).Encode(map[string]any{"state": "SUCCESS", "result": "rapport: 2 tâches"})
		}
	})

	return mux
}

func (s *fakeService) countRequest() {
	s.mu.Lock()
	s.requests++
	s.mu.Unlock()
}

func (s *fakeService) requestCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests
}

func authorized(r *http.Request) bool {
	return r.Header.Get("Authorization") == "Token tok-test"
}

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCLI_EndToEnd(t *testing.T) {
	svc := newFakeService()
	srv := httptest.NewServer(svc.handler())
	defer srv.Close()

	t.Setenv("TACHE_SESSION_FILE", filepath.Join(t.TempDir(), "session.json"))
	t.Setenv("TACHE_API", srv.URL)

	t.Run("commands require a session before any network call", func(t *testing.T) {
		before := svc.requestCount()
		_, err := runCmd(t, "tasks", "list")
		if err == nil || !strings.Contains(err.Error(), "not logged in") {
			t.Fatalf("expected not-logged-in error, got %v", err)
		}
		if svc.requestCount() != before {
			t.Fatal("unauthenticated command hit the network")
		}
	})

	t.Run("login rejects bad credentials without storing a token", func(t *testing.T) {
		_, err := runCmd(t, "login", "alice", "--password", "wrong")
		if err == nil {
			t.Fatal("expected error")
		}
		if tok, _, _ := session.LoadFile(); tok != "" {
			t.Fatalf("token stored despite failed login: %q", tok)
		}
	})

	t.Run("login stores the confirmed token", func(t *testing.T) {
		out, err := runCmd(t, "login", "alice", "--password", "s3cret")
		if err != nil {
			t.Fatalf("login: %v", err)
		}
		if !strings.Contains(out, `"loggedIn":true`) {
			t.Fatalf("output = %q", out)
		}
		if tok, _, _ := session.LoadFile(); tok != "tok-test" {
			t.Fatalf("stored token = %q", tok)
		}
	})

	t.Run("add and list", func(t *testing.T) {
		out, err := runCmd(t, "tasks", "add", "Acheter du pain", "--description", "boulangerie")
		if err != nil {
			t.Fatalf("add: %v", err)
		}
		if !strings.Contains(out, `"id":1`) {
			t.Fatalf("add output = %q", out)
		}

		if _, err := runCmd(t, "tasks", "add", "Relire le rapport"); err != nil {
			t.Fatalf("add: %v", err)
		}

		out, err = runCmd(t, "tasks", "list")
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if !strings.Contains(out, "Acheter du pain") || !strings.Contains(out, "Relire le rapport") {
			t.Fatalf("list output = %q", out)
		}
	})

	t.Run("toggle flips done", func(t *testing.T) {
		out, err := runCmd(t, "tasks", "toggle", "1")
		if err != nil {
			t.Fatalf("toggle: %v", err)
		}
		if !strings.Contains(out, `"done":true`) {
			t.Fatalf("toggle output = %q", out)
		}
		out, err = runCmd(t, "tasks", "toggle", "1")
		if err != nil {
			t.Fatalf("toggle: %v", err)
		}
		if !strings.Contains(out, `"done":false`) {
			t.Fatalf("second toggle output = %q", out)
		}
	})

	t.Run("set-title and set-description", func(t *testing.T) {
		out, err := runCmd(t, "tasks", "set-title", "1", "Acheter des croissants")
		if err != nil {
			t.Fatalf("set-title: %v", err)
		}
		if !strings.Contains(out, "Acheter des croissants") {
			t.Fatalf("output = %q", out)
		}
		if !strings.Contains(out, "boulangerie") {
			t.Fatalf("untouched description lost: %q", out)
		}

		if _, err := runCmd(t, "tasks", "set-description", "1", "avant 9h"); err != nil {
			t.Fatalf("set-description: %v", err)
		}
	})

	t.Run("rm deletes", func(t *testing.T) {
		if _, err := runCmd(t, "tasks", "rm", "2"); err != nil {
			t.Fatalf("rm: %v", err)
		}
		out, err := runCmd(t, "tasks", "list")
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if strings.Contains(out, "Relire le rapport") {
			t.Fatalf("deleted task still listed: %q", out)
		}
	})

	t.Run("report start polls to completion", func(t *testing.T) {
		out, err := runCmd(t, "report", "start", "--interval", "1ms")
		if err != nil {
			t.Fatalf("report start: %v", err)
		}
		if !strings.Contains(out, `"state":"succeeded"`) || !strings.Contains(out, "rapport: 2 tâches") {
			t.Fatalf("report output = %q", out)
		}
	})

	t.Run("report status single check", func(t *testing.T) {
		out, err := runCmd(t, "report", "status", "job-1")
		if err != nil {
			t.Fatalf("report status: %v", err)
		}
		if !strings.Contains(out, "SUCCESS") {
			t.Fatalf("output = %q", out)
		}
	})

	t.Run("logout deletes the token", func(t *testing.T) {
		if _, err := runCmd(t, "logout"); err != nil {
			t.Fatalf("logout: %v", err)
		}
		if tok, _, _ := session.LoadFile(); tok != "" {
			t.Fatalf("token survived logout: %q", tok)
		}
		if _, err := runCmd(t, "tasks", "list"); err == nil {
			t.Fatal("expected not-logged-in after logout")
		}
	})
}

func TestCLI_AddValidatesTitleLocally(t *testing.T) {
	svc := newFakeService()
	srv := httptest.NewServer(svc.handler())
	defer srv.Close()

	t.Setenv("TACHE_SESSION_FILE", filepath.Join(t.TempDir(), "session.json"))
	t.Setenv("TACHE_API", srv.URL)

	if _, err := runCmd(t, "login", "alice", "--password", "s3cret"); err != nil {
		t.Fatalf("login: %v", err)
	}

	before := svc.requestCount()
	_, err := runCmd(t, "tasks", "add", "   ")
	if err == nil || !strings.Contains(err.Error(), "title") {
		t.Fatalf("expected validation error, got %v", err)
	}
	if svc.requestCount() != before {
		t.Fatal("blank title reached the network")
	}
}

func TestCLI_ExpiredTokenDropsSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"detail": "token invalide"})
	}))
	defer srv.Close()

	t.Setenv("TACHE_SESSION_FILE", filepath.Join(t.TempDir(), "session.json"))
	t.Setenv("TACHE_API", srv.URL)

	if err := session.SaveFile("stale-token", srv.URL); err != nil {
		t.Fatalf("seed session: %v", err)
	}

	if _, err := runCmd(t, "tasks", "list"); err == nil {
		t.Fatal("expected error")
	}
	if tok, _, _ := session.LoadFile(); tok != "" {
		t.Fatalf("stale token kept: %q", tok)
	}
}
