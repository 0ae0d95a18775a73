package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"contest-service/internal/app"
	"contest-service/internal/domain"
	"contest-service/internal/infra/memory"
)

type testEnvelope struct {
	Status  string          `json:"status"`
	Data    json.RawMessage `json:"data"`
	Code    string          `json:"code"`
	Message string          `json:"message"`
}

func newTestService(t *testing.T) *app.ContestService {
	t.Helper()
	return app.NewContestService(memory.NewStore(), memory.NewSessionStore(0), app.Options{SelfRegister: true})
}

func doJSON(t *testing.T, method, url string, body any, token string) (int, testEnvelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequestWithContext(context.Background(), method, url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set(AdminTokenHeader, token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	var env testEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode %s %s: %v", method, url, err)
	}
	return resp.StatusCode, env
}

func decodeData(t *testing.T, env testEnvelope, dst any) {
	t.Helper()
	if err := json.Unmarshal(env.Data, dst); err != nil {
		t.Fatalf("decode data %s: %v", env.Data, err)
	}
}

func TestRESTContestFlow(t *testing.T) {
	const token = "secret"
	server := httptest.NewServer(NewRouter(newTestService(t), RouterOptions{AdminToken: token}))
	defer server.Close()
	api := server.URL + "/api"

	problem := map[string]any{"contestId": "A001", "sequence": 1, "body": "2+2?", "answer": "4", "points": 100}
	if status, _ := doJSON(t, http.MethodPost, api+"/admin/problems", problem, ""); status != http.StatusUnauthorized {
		t.Fatalf("expected 401 without admin token, got %d", status)
	}
	if status, env := doJSON(t, http.MethodPost, api+"/admin/problems", problem, token); status != http.StatusCreated {
		t.Fatalf("add problem: %d %+v", status, env)
	}
	status, env := doJSON(t, http.MethodPost, api+"/admin/problems",
		map[string]any{"contestId": "A001", "sequence": 2, "body": "Capital of Japan?", "answer": "Tokyo"}, token)
	if status != http.StatusCreated {
		t.Fatalf("add problem 2: %d %+v", status, env)
	}
	var added domain.Problem
	decodeData(t, env, &added)
	if added.Points != app.DefaultPoints {
		t.Fatalf("expected default points, got %d", added.Points)
	}
	if status, env := doJSON(t, http.MethodPost, api+"/admin/problems", problem, token); status != http.StatusConflict || env.Code != "duplicate_problem" {
		t.Fatalf("expected duplicate problem conflict, got %d %+v", status, env)
	}

	status, env = doJSON(t, http.MethodPost, api+"/sessions", map[string]string{"userId": "alice", "name": "Alice"}, "")
	if status != http.StatusCreated {
		t.Fatalf("join: %d %+v", status, env)
	}
	var joined joinResponse
	decodeData(t, env, &joined)
	if joined.View.Status != domain.StatusWaiting || len(joined.View.Problems) != 0 {
		t.Fatalf("expected waiting view without problems, got %+v", joined.View)
	}
	sessionURL := api + "/sessions/" + joined.SessionID

	if status, env := doJSON(t, http.MethodPost, sessionURL+"/submissions", map[string]string{"problemId": "A001_1", "answer": "4"}, ""); status != http.StatusConflict || env.Code != "contest_not_active" {
		t.Fatalf("expected refusal while waiting, got %d %+v", status, env)
	}

	start := map[string]any{"contestId": "A001", "durationMinutes": 30}
	if status, env := doJSON(t, http.MethodPost, api+"/admin/contest/start", start, token); status != http.StatusOK {
		t.Fatalf("start: %d %+v", status, env)
	}
	if status, env := doJSON(t, http.MethodPost, api+"/admin/contest/start", start, token); status != http.StatusConflict || env.Code != "invalid_transition" {
		t.Fatalf("expected second start refused, got %d %+v", status, env)
	}

	status, env = doJSON(t, http.MethodGet, sessionURL+"/view", nil, "")
	if status != http.StatusOK {
		t.Fatalf("view: %d %+v", status, env)
	}
	var vm domain.ViewModel
	decodeData(t, env, &vm)
	if vm.Status != domain.StatusActive || len(vm.Problems) != 2 || vm.RemainingSeconds == nil {
		t.Fatalf("unexpected active view %+v", vm)
	}

	submit := func(problemID, answer string) domain.SubmissionOutcome {
		t.Helper()
		status, env := doJSON(t, http.MethodPost, sessionURL+"/submissions", map[string]string{"problemId": problemID, "answer": answer}, "")
		if status != http.StatusOK {
			t.Fatalf("submit %s: %d %+v", problemID, status, env)
		}
		var outcome domain.SubmissionOutcome
		decodeData(t, env, &outcome)
		return outcome
	}
	if got := submit("A001_1", "5"); got.Verdict != domain.VerdictWrong || got.LockedUntil == nil {
		t.Fatalf("expected wrong verdict with lock, got %+v", got)
	}
	if got := submit("A001_1", "4"); got.Verdict != domain.VerdictLocked {
		t.Fatalf("expected locked verdict, got %+v", got)
	}
	if got := submit("A001_2", " Tokyo "); got.Verdict != domain.VerdictAccepted || got.Score != 100 || got.Awarded != 100 {
		t.Fatalf("expected accepted, got %+v", got)
	}

	if status, env := doJSON(t, http.MethodPost, sessionURL+"/submissions", map[string]string{"problemId": "B001_1", "answer": "x"}, ""); status != http.StatusNotFound || env.Code != "problem_not_found" {
		t.Fatalf("expected unknown problem 404, got %d %+v", status, env)
	}

	status, env = doJSON(t, http.MethodGet, api+"/standings", nil, "")
	if status != http.StatusOK {
		t.Fatalf("standings: %d %+v", status, env)
	}
	var board domain.Board
	decodeData(t, env, &board)
	if len(board.Standings) != 1 || board.Standings[0].Rank != 1 || board.Standings[0].Score != 100 {
		t.Fatalf("unexpected standings %+v", board.Standings)
	}
	if board.SolverCounts["A001_2"] != 1 {
		t.Fatalf("unexpected solver counts %+v", board.SolverCounts)
	}

	if status, _ := doJSON(t, http.MethodDelete, sessionURL, nil, ""); status != http.StatusOK {
		t.Fatalf("leave: %d", status)
	}
	if status, env := doJSON(t, http.MethodGet, sessionURL+"/view", nil, ""); status != http.StatusNotFound || env.Code != "session_not_found" {
		t.Fatalf("expected closed session, got %d %+v", status, env)
	}
}

func TestRESTValidationErrors(t *testing.T) {
	server := httptest.NewServer(NewRouter(newTestService(t), RouterOptions{}))
	defer server.Close()

	req, _ := http.NewRequest(http.MethodPost, server.URL+"/api/sessions", bytes.NewBufferString("{not json"))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed body, got %d", resp.StatusCode)
	}

	if status, env := doJSON(t, http.MethodPost, server.URL+"/api/sessions", map[string]string{"userId": "  "}, ""); status != http.StatusBadRequest || env.Code != "validation" {
		t.Fatalf("expected validation error for blank user id, got %d %+v", status, env)
	}
	if status, env := doJSON(t, http.MethodPost, server.URL+"/api/admin/contest/start", map[string]any{"contestId": ""}, ""); status != http.StatusBadRequest {
		t.Fatalf("expected validation error for blank contest id, got %d %+v", status, env)
	}
}

func TestStatusFromError(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{domain.ErrStoreUnavailable, http.StatusServiceUnavailable},
		{domain.ErrTransientWrite, http.StatusServiceUnavailable},
		{domain.ErrParticipantNotFound, http.StatusNotFound},
		{domain.ErrTimeUp, http.StatusConflict},
		{domain.CorruptRecordf("users", "score", "x"), http.StatusInternalServerError},
		{context.Canceled, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got, _ := statusFromError(tc.err); got != tc.status {
			t.Fatalf("%v: expected %d, got %d", tc.err, tc.status, got)
		}
	}
}

func TestStartUsesConfiguredDefaultDuration(t *testing.T) {
	server := httptest.NewServer(NewRouter(newTestService(t), RouterOptions{DefaultDuration: 2 * time.Hour}))
	defer server.Close()

	if status, env := doJSON(t, http.MethodPost, server.URL+"/api/admin/contest/start", map[string]any{"contestId": "A001"}, ""); status != http.StatusOK {
		t.Fatalf("start: %d %+v", status, env)
	}
	status, env := doJSON(t, http.MethodGet, server.URL+"/api/admin/status", nil, "")
	if status != http.StatusOK {
		t.Fatalf("status: %d %+v", status, env)
	}
	var state app.ContestState
	decodeData(t, env, &state)
	if state.RemainingSeconds == nil || *state.RemainingSeconds <= 3600 || *state.RemainingSeconds > 7200 {
		t.Fatalf("expected about two hours remaining, got %+v", state)
	}
}

func TestCORSAllowsConfiguredOrigins(t *testing.T) {
	server := httptest.NewServer(NewRouter(newTestService(t), RouterOptions{AllowedOrigins: []string{"https://contest.example"}}))
	defer server.Close()

	for origin, want := range map[string]string{
		"https://contest.example": "https://contest.example",
		"https://other.example":   "",
	} {
		req, _ := http.NewRequest(http.MethodGet, server.URL+"/healthz", nil)
		req.Header.Set("Origin", origin)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		resp.Body.Close()
		if got := resp.Header.Get("Access-Control-Allow-Origin"); got != want {
			t.Fatalf("origin %s: expected allow-origin %q, got %q", origin, want, got)
		}
	}
}
