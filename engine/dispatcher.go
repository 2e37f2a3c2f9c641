package engine

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"
)

// Dispatcher coordinates the engine tiers with staged escalation: the fast
// HTTP engine starts immediately and the browser engine joins the race only
// after its escalation delay, so static pages never pay the rendering cost.
// The first successful result wins and cancels the rest.
type Dispatcher struct {
	engines          []Engine
	escalationDelays []time.Duration
	memory           *DomainMemory
}

// NewDispatcher creates a Dispatcher. engines[i] starts after
// escalationDelays[i] from the race beginning; the first delay should be 0.
// Missing delays default to 0 (immediate start).
func NewDispatcher(engines []Engine, escalationDelays []time.Duration, memory *DomainMemory) *Dispatcher {
	delays := make([]time.Duration, len(engines))
	copy(delays, escalationDelays)
	return &Dispatcher{
		engines:          engines,
		escalationDelays: delays,
		memory:           memory,
	}
}

// Dispatch fetches the page, trying the engine remembered for the domain
// first and falling back to a full race. Returns the last error when every
// engine fails.
func (d *Dispatcher) Dispatch(ctx context.Context, req *FetchRequest) (*FetchResult, error) {
	domain := extractDomain(req.URL)

	if d.memory != nil {
		if remembered := d.memory.Get(domain); remembered != "" {
			for _, eng := range d.engines {
				if eng.Name() != remembered {
					continue
				}
				result, err := eng.Fetch(ctx, req)
				if err == nil {
					return result, nil
				}
				slog.Debug("remembered engine failed, racing all tiers",
					"domain", domain, "engine", remembered, "error", err)
				d.memory.Delete(domain)
				break
			}
		}
	}

	result, err := d.race(ctx, req)
	if err == nil && d.memory != nil {
		d.memory.Set(domain, result.EngineName)
	}
	return result, err
}

// race starts every engine with its escalation delay and returns the first
// success.
func (d *Dispatcher) race(ctx context.Context, req *FetchRequest) (*FetchResult, error) {
	type raceOutcome struct {
		result *FetchResult
		err    error
	}

	raceCtx, raceCancel := context.WithCancel(ctx)
	defer raceCancel()

	outcomes := make(chan raceOutcome, len(d.engines))
	var wg sync.WaitGroup

	for i, eng := range d.engines {
		delay := d.escalationDelays[i]
		wg.Add(1)
		go func(e Engine, delay time.Duration) {
			defer wg.Done()

			if delay > 0 {
				select {
				case <-raceCtx.Done():
					return
				case <-time.After(delay):
				}
			}
			select {
			case <-raceCtx.Done():
				return
			default:
			}

			result, err := e.Fetch(raceCtx, req)
			outcomes <- raceOutcome{result: result, err: err}
		}(eng, delay)
	}

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	var lastErr error
	for oc := range outcomes {
		if oc.err != nil {
			// Prefer reporting a status error over a cancellation from
			// losing engines.
			var se *StatusError
			if lastErr == nil || errors.As(oc.err, &se) {
				lastErr = oc.err
			}
			continue
		}
		raceCancel()
		slog.Debug("engine won race", "engine", oc.result.EngineName, "url", req.URL)
		return oc.result, nil
	}

	if lastErr == nil {
		lastErr = ctx.Err()
	}
	return nil, lastErr
}

// extractDomain returns the lowercased hostname of rawURL, without any
// userinfo or www. prefix, or "" when the URL does not parse.
func extractDomain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	return strings.TrimPrefix(host, "www.")
}
