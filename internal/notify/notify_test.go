package notify

import (
	"strings"
	"sync"
	"testing"
	"time"

	"gopkg.in/gomail.v2"

	"xstar_farm/internal/config"
	"xstar_farm/internal/logbus"
	"xstar_farm/internal/model"
)

func TestEmailSendsQueuedSummaries(t *testing.T) {
	bus := logbus.New(16, false)
	defer bus.Close()

	var mu sync.Mutex
	var sent []*gomail.Message
	n := newEmail(config.EmailConfig{
		From: "bot@example.com",
		To:   []string{"ops@example.com"},
	}, bus, func(msg *gomail.Message) error {
		mu.Lock()
		sent = append(sent, msg)
		mu.Unlock()
		return nil
	})

	n.CycleFinished(CycleSummary{
		Cycle:     3,
		Succeeded: 2,
		Failed:    1,
		Duration:  90 * time.Second,
		Outcomes: []model.RunOutcome{
			{Index: 0, Session: "session_1", Success: true, DurationMs: 1200},
			{Index: 1, Session: "session_2", Error: "acquire token: boom"},
		},
	})
	n.Close()

	mu.Lock()
	defer mu.Unlock()
	if len(sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(sent))
	}
	subject := sent[0].GetHeader("Subject")
	if len(subject) != 1 || !strings.Contains(subject[0], "cycle 3") {
		t.Fatalf("subject = %v", subject)
	}
}

func TestRenderBodyListsOutcomes(t *testing.T) {
	body := renderBody(CycleSummary{
		Cycle:     1,
		Succeeded: 1,
		Failed:    1,
		Outcomes: []model.RunOutcome{
			{Index: 0, Session: "session_1", Success: true},
			{Index: 1, Session: "session_2", Error: "fetch profile: 500"},
		},
	})
	if !strings.Contains(body, "session_1") || !strings.Contains(body, "fetch profile: 500") {
		t.Fatalf("body missing outcome lines:\n%s", body)
	}
}
