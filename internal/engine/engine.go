// Package engine schedules account sessions. Accounts are run in batches no
// larger than the configured concurrency, each under its own timeout, and the
// whole sweep repeats forever with a sleep between cycles.
package engine

import (
	"context"
	"fmt"
	"math/rand"
	"runtime/debug"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"xstar_farm/internal/auth"
	"xstar_farm/internal/client"
	"xstar_farm/internal/config"
	"xstar_farm/internal/fingerprint"
	"xstar_farm/internal/identity"
	"xstar_farm/internal/logbus"
	"xstar_farm/internal/model"
	"xstar_farm/internal/notify"
	"xstar_farm/internal/session"
	"xstar_farm/internal/store/sqlite"
)

type Options struct {
	Config       *config.Config
	Accounts     []model.Credential
	Proxies      []string
	BaseURL      string
	GameBaseURL  string
	Bus          *logbus.Bus
	Store        *sqlite.Store
	Fingerprints *fingerprint.Manager
	Notifier     notify.Notifier
}

type Engine struct {
	opts       Options
	proxyMode  bool
	maxThreads int

	mu    sync.Mutex
	state model.CycleState

	// runAccount executes one account session and reports its outcome.
	// Replaced in tests.
	runAccount func(ctx context.Context, cred model.Credential, proxy string) model.RunOutcome
}

func New(opts Options) (*Engine, error) {
	if len(opts.Accounts) == 0 {
		return nil, fmt.Errorf("no accounts loaded")
	}
	proxyMode := len(opts.Proxies) > 0
	if proxyMode && len(opts.Accounts) > len(opts.Proxies) {
		return nil, fmt.Errorf("%d accounts but only %d proxies, one proxy per account is required",
			len(opts.Accounts), len(opts.Proxies))
	}

	maxThreads := opts.Config.Limits.MaxThreadsNoProxy
	if proxyMode {
		maxThreads = opts.Config.Limits.MaxThreads
	}
	if maxThreads <= 0 {
		maxThreads = 1
	}

	e := &Engine{
		opts:       opts,
		proxyMode:  proxyMode,
		maxThreads: maxThreads,
	}
	e.runAccount = e.runOne
	return e, nil
}

// State returns a snapshot of the current cycle for the monitor API.
func (e *Engine) State() model.CycleState {
	e.mu.Lock()
	defer e.mu.Unlock()
	st := e.state
	st.Outcomes = append([]model.RunOutcome(nil), e.state.Outcomes...)
	return st
}

// Run drives cycles until the context is canceled.
func (e *Engine) Run(ctx context.Context) error {
	for cycle := 1; ; cycle++ {
		e.opts.Bus.Log("info", fmt.Sprintf("Starting cycle %d over %d accounts (%d at a time)",
			cycle, len(e.opts.Accounts), e.maxThreads), nil)

		started := time.Now()
		outcomes := e.runCycle(ctx, cycle)
		if err := ctx.Err(); err != nil {
			return err
		}

		succeeded := 0
		for _, out := range outcomes {
			if out.Success {
				succeeded++
			}
		}
		e.opts.Bus.Log("info", fmt.Sprintf("Cycle %d finished: %d/%d accounts succeeded",
			cycle, succeeded, len(outcomes)), nil)
		if e.opts.Notifier != nil {
			e.opts.Notifier.CycleFinished(notify.CycleSummary{
				Cycle:     cycle,
				Succeeded: succeeded,
				Failed:    len(outcomes) - succeeded,
				Duration:  time.Since(started),
				Outcomes:  outcomes,
			})
		}

		sleep := e.opts.Config.Timing.CycleSleep()
		e.opts.Bus.Log("info", fmt.Sprintf("Sleeping %s before the next cycle...", sleep), nil)
		timer := time.NewTimer(sleep)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}

func (e *Engine) runCycle(ctx context.Context, cycle int) []model.RunOutcome {
	e.mu.Lock()
	e.state = model.CycleState{Running: true, Cycle: cycle, StartedMs: time.Now().UnixMilli()}
	e.mu.Unlock()

	var outcomes []model.RunOutcome
	accounts := e.opts.Accounts
	for start := 0; start < len(accounts); start += e.maxThreads {
		if ctx.Err() != nil {
			break
		}
		end := start + e.maxThreads
		if end > len(accounts) {
			end = len(accounts)
		}
		batch := accounts[start:end]

		results := make([]model.RunOutcome, len(batch))
		var wg sync.WaitGroup
		for i, cred := range batch {
			wg.Add(1)
			go func(slot int, cred model.Credential) {
				defer wg.Done()
				results[slot] = e.runGuarded(ctx, cred)
			}(i, cred)
		}
		wg.Wait()

		for _, out := range results {
			outcomes = append(outcomes, out)
			e.mu.Lock()
			e.state.Outcomes = append(e.state.Outcomes, out)
			e.mu.Unlock()
		}

		if end < len(accounts) {
			timer := time.NewTimer(e.opts.Config.Timing.BatchPause())
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
			}
		}
	}

	e.mu.Lock()
	e.state.Running = false
	e.mu.Unlock()
	return outcomes
}

// runGuarded wraps one account run with its timeout and a panic barrier so a
// single broken account never takes the cycle down.
func (e *Engine) runGuarded(ctx context.Context, cred model.Credential) (out model.RunOutcome) {
	proxy := ""
	if e.proxyMode {
		proxy = e.opts.Proxies[cred.Index]
	}

	started := time.Now()
	defer func() {
		if r := recover(); r != nil {
			e.opts.Bus.Log("error", fmt.Sprintf("Account %d panicked: %v\n%s", cred.Index+1, r, debug.Stack()), nil)
			out = model.RunOutcome{
				Index:      cred.Index,
				Session:    sessionName(cred.Index),
				Error:      fmt.Sprintf("panic: %v", r),
				DurationMs: time.Since(started).Milliseconds(),
			}
		}
	}()

	runCtx, cancel := context.WithTimeout(ctx, e.opts.Config.Timing.AccountTimeout())
	defer cancel()
	return e.runAccount(runCtx, cred, proxy)
}

func sessionName(index int) string {
	return fmt.Sprintf("session_%d", index+1)
}

// runOne builds the per-account stack and executes a full session. Caches
// are keyed by the user id embedded in the credential so a reordered
// accounts file still hits the same token and fingerprint entries; the
// positional name is only a fallback for unparseable payloads.
func (e *Engine) runOne(ctx context.Context, cred model.Credential, proxy string) model.RunOutcome {
	cfg := e.opts.Config
	started := time.Now()
	log := logbus.NewAccountLogger(e.opts.Bus, cred.Index)

	name := sessionName(cred.Index)
	id, idErr := identity.Parse(cred.Raw)
	if idErr == nil {
		name = id.ID
	}

	fail := func(err error) model.RunOutcome {
		return model.RunOutcome{
			Index:      cred.Index,
			Session:    name,
			Error:      err.Error(),
			ProxyIP:    log.ProxyIP(),
			DurationMs: time.Since(started).Milliseconds(),
		}
	}

	if e.proxyMode {
		lo, hi := cfg.Timing.StartDelayMinS, cfg.Timing.StartDelayMaxS
		delay := time.Duration(lo+rand.Intn(hi-lo+1)) * time.Second
		log.Info("Starting in %s...", delay)
		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return fail(ctx.Err())
		}
	}

	fp, err := e.opts.Fingerprints.ForSession(ctx, name)
	if err != nil {
		log.Error("Can't prepare device fingerprint: %v", err)
		return fail(err)
	}

	apiClient := client.New(client.Options{
		BaseURL:     e.opts.BaseURL,
		GameBaseURL: e.opts.GameBaseURL,
		Timeout:     cfg.Endpoint.Timeout(),
		RetryCount:  cfg.Endpoint.Retry.Count,
		RetryWait:   cfg.Endpoint.Retry.Wait(),
		Proxy:       proxy,
		Fingerprint: fp,
		Limiter:     rate.NewLimiter(rate.Limit(cfg.Limits.PerAccountQPS), cfg.Limits.PerAccountBurst),
		Log:         log,
	})

	if e.proxyMode {
		ip, err := apiClient.CheckProxyIP(ctx)
		if err != nil {
			log.Error("Proxy check failed, skipping account: %v", err)
			return fail(fmt.Errorf("proxy check: %w", err))
		}
		log.Info("Egress IP: %s", ip)
	}

	if idErr == nil {
		log.Info("Running account %s (%s)", id.FullName(), id.ID)
	} else {
		log.Warn("Can't read identity from credential: %v", idErr)
	}

	tokens := auth.NewManager(e.opts.Store, apiClient, log, name, cred.Raw)
	sess := session.New(session.Options{
		Index:  cred.Index,
		Client: apiClient,
		Tokens: tokens,
		Log:    log,
		Bot:    cfg.Bot,
		Timing: cfg.Timing,
	})

	if err := sess.Run(ctx); err != nil {
		return fail(err)
	}
	return model.RunOutcome{
		Index:      cred.Index,
		Session:    name,
		Success:    true,
		ProxyIP:    log.ProxyIP(),
		DurationMs: time.Since(started).Milliseconds(),
	}
}
