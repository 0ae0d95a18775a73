package http

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"contest-service/internal/domain"
	"github.com/gorilla/websocket"
)

func TestWebSocketAnswerFlow(t *testing.T) {
	ctx := context.Background()
	service := newTestService(t)
	if _, err := service.AddProblem(ctx, domain.Problem{ContestID: "A001", Sequence: 1, Body: "2+2?", Answer: "4", Points: 100}); err != nil {
		t.Fatalf("add problem: %v", err)
	}
	if _, err := service.StartContest(ctx, "A001", 30*time.Minute); err != nil {
		t.Fatalf("start: %v", err)
	}

	server := httptest.NewServer(NewRouter(service, RouterOptions{ViewInterval: time.Minute}))
	defer server.Close()

	u := "ws" + server.URL[len("http"):] + "/ws?userId=u1&name=Alice"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	_, payload := readNext(conn, t, "session")
	if id, _ := payload["sessionId"].(string); id == "" {
		t.Fatalf("expected session id, got %v", payload)
	}
	_, view := readNext(conn, t, "view")
	if problems, _ := view["problems"].([]any); len(problems) != 1 {
		t.Fatalf("expected one problem in view, got %v", view["problems"])
	}

	answer := map[string]any{
		"type": "answer",
		"payload": map[string]any{
			"problemId": "A001_1",
			"answer":    "4",
		},
	}
	if err := conn.WriteJSON(answer); err != nil {
		t.Fatalf("write answer: %v", err)
	}

	// Expect answerResult and a refreshed view; a change-triggered view may interleave.
	answerSeen := false
	viewSeen := false
	for i := 0; i < 4 && !(answerSeen && viewSeen); i++ {
		typ, payload := readNext(conn, t, "")
		switch typ {
		case "answerResult":
			answerSeen = true
			if payload["verdict"] != string(domain.VerdictAccepted) {
				t.Fatalf("expected accepted verdict, got %v", payload)
			}
		case "view":
			if answerSeen {
				viewSeen = true
			}
		}
	}
	if !answerSeen || !viewSeen {
		t.Fatalf("expected answerResult and view, got answerResult=%v view=%v", answerSeen, viewSeen)
	}
}

func TestWebSocketRequiresUser(t *testing.T) {
	server := httptest.NewServer(NewRouter(newTestService(t), RouterOptions{}))
	defer server.Close()

	u := "ws" + server.URL[len("http"):] + "/ws"
	if _, _, err := websocket.DefaultDialer.Dial(u, nil); err == nil {
		t.Fatalf("expected handshake to fail without userId")
	}
}

func readNext(conn *websocket.Conn, t *testing.T, expect string) (string, map[string]any) {
	t.Helper()
	var msg struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if expect != "" && msg.Type != expect {
		t.Fatalf("expected type %s, got %s", expect, msg.Type)
	}
	return msg.Type, msg.Payload
}
