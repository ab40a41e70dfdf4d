// Package notify pushes cycle summaries out by email. Sending happens on a
// background queue so a slow SMTP server never stalls the scheduler.
package notify

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"gopkg.in/gomail.v2"

	"xstar_farm/internal/config"
	"xstar_farm/internal/logbus"
	"xstar_farm/internal/model"
)

// CycleSummary describes one finished run over all accounts.
type CycleSummary struct {
	Cycle     int
	Succeeded int
	Failed    int
	Duration  time.Duration
	Outcomes  []model.RunOutcome
}

type Notifier interface {
	CycleFinished(summary CycleSummary)
	Close()
}

// Email delivers summaries over SMTP.
type Email struct {
	cfg   config.EmailConfig
	bus   *logbus.Bus
	queue chan CycleSummary

	closeOnce sync.Once
	done      chan struct{}

	// send delivers one message. Injected so tests skip SMTP.
	send func(msg *gomail.Message) error
}

func NewEmail(cfg config.EmailConfig, bus *logbus.Bus) *Email {
	dialer := gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.From, cfg.AuthCode)
	return newEmail(cfg, bus, func(msg *gomail.Message) error {
		return dialer.DialAndSend(msg)
	})
}

func newEmail(cfg config.EmailConfig, bus *logbus.Bus, send func(msg *gomail.Message) error) *Email {
	n := &Email{
		cfg:   cfg,
		bus:   bus,
		queue: make(chan CycleSummary, 16),
		done:  make(chan struct{}),
		send:  send,
	}
	go n.loop()
	return n
}

// CycleFinished enqueues the summary. When the queue is full the summary is
// dropped, the next cycle will carry fresher numbers anyway.
func (n *Email) CycleFinished(summary CycleSummary) {
	select {
	case n.queue <- summary:
	default:
		n.bus.Log("warn", fmt.Sprintf("Notify queue full, dropping cycle %d summary", summary.Cycle), nil)
	}
}

func (n *Email) Close() {
	n.closeOnce.Do(func() {
		close(n.queue)
		<-n.done
	})
}

func (n *Email) loop() {
	defer close(n.done)
	for summary := range n.queue {
		msg := gomail.NewMessage()
		msg.SetHeader("From", n.cfg.From)
		msg.SetHeader("To", n.cfg.To...)
		msg.SetHeader("Subject", fmt.Sprintf("xstar farm cycle %d: %d ok / %d failed",
			summary.Cycle, summary.Succeeded, summary.Failed))
		msg.SetBody("text/plain", renderBody(summary))

		if err := n.send(msg); err != nil {
			n.bus.Log("error", fmt.Sprintf("Sending cycle %d summary failed: %v", summary.Cycle, err), nil)
			continue
		}
		n.bus.Log("info", fmt.Sprintf("Cycle %d summary mailed to %s", summary.Cycle, strings.Join(n.cfg.To, ", ")), nil)
	}
}

func renderBody(summary CycleSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Cycle %d finished in %s\n", summary.Cycle, summary.Duration.Round(time.Second))
	fmt.Fprintf(&b, "Accounts: %d succeeded, %d failed\n\n", summary.Succeeded, summary.Failed)
	for _, out := range summary.Outcomes {
		status := "ok"
		if !out.Success {
			status = "failed: " + out.Error
		}
		fmt.Fprintf(&b, "  #%d %s (%dms) %s\n", out.Index+1, out.Session, out.DurationMs, status)
	}
	return b.String()
}
