// Package browser owns a fixed pool of isolated headless Chrome sessions.
// Each session is its own OS process with exactly one page; callers acquire
// a whole session, so two goroutines can never share a render context.
package browser

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
)

// ErrNoSessions is returned when every browser in the pool has died.
var ErrNoSessions = errors.New("no live browser sessions")

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
}

type Session struct {
	ID     int
	ctx    context.Context
	cancel context.CancelFunc // browser context
	stop   context.CancelFunc // exec allocator, kills the process
}

// Run executes chromedp actions on this session's page under a timeout.
// A deadline error with the session still alive is an item-level failure;
// callers should check Alive to tell the two apart.
func (s *Session) Run(timeout time.Duration, actions ...chromedp.Action) error {
	tctx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()
	return chromedp.Run(tctx, actions...)
}

func (s *Session) Alive() bool {
	return s.ctx.Err() == nil
}

type Pool struct {
	logger *slog.Logger

	mu   sync.Mutex
	live int
	free chan *Session
	all  []*Session
}

// NewPool launches size isolated Chrome processes. Individual launch
// failures are tolerated; zero successful launches fails the whole run.
func NewPool(ctx context.Context, size int, headless bool, logger *slog.Logger) (*Pool, error) {
	if size < 1 {
		size = 1
	}
	p := &Pool{
		logger: logger,
		free:   make(chan *Session, size),
	}

	ua := userAgents[rand.Intn(len(userAgents))]
	for i := 0; i < size; i++ {
		s, err := launch(ctx, i, headless, ua)
		if err != nil {
			logger.Warn("Browser launch failed", "session", i, "err", err)
			continue
		}
		p.all = append(p.all, s)
		p.free <- s
		p.live++
	}
	if p.live == 0 {
		return nil, errors.New("no browser sessions could be launched")
	}
	logger.Info("Browser pool ready", "sessions", p.live)
	return p, nil
}

func launch(ctx context.Context, id int, headless bool, ua string) (*Session, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent(ua),
	)
	allocCtx, stop := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, cancel := chromedp.NewContext(allocCtx)

	// Force the process to actually start so launch failures surface here,
	// not on the first navigation.
	if err := chromedp.Run(browserCtx); err != nil {
		cancel()
		stop()
		return nil, err
	}
	return &Session{ID: id, ctx: browserCtx, cancel: cancel, stop: stop}, nil
}

// Acquire hands out an exclusive session, skipping over any that died while
// parked. It fails once the pool is empty of live sessions.
func (p *Pool) Acquire(ctx context.Context) (*Session, error) {
	for {
		if p.Live() == 0 {
			return nil, ErrNoSessions
		}
		select {
		case s := <-p.free:
			if !s.Alive() {
				p.Retire(s)
				continue
			}
			return s, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(500 * time.Millisecond):
			// Re-check the live count; sessions may have been retired while
			// we were blocked.
		}
	}
}

func (p *Pool) Release(s *Session) {
	if !s.Alive() {
		p.Retire(s)
		return
	}
	p.free <- s
}

// Retire removes a dead session from the pool permanently. Outstanding work
// the session was carrying is the caller's to requeue.
func (p *Pool) Retire(s *Session) {
	s.cancel()
	s.stop()
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, known := range p.all {
		if known == s {
			p.all = append(p.all[:i], p.all[i+1:]...)
			p.live--
			p.logger.Warn("Browser session retired", "session", s.ID, "remaining", p.live)
			return
		}
	}
}

func (p *Pool) Live() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.live
}

func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, s := range p.all {
		s.cancel()
		s.stop()
	}
	p.all = nil
	p.live = 0
}
