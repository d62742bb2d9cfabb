// Package browser drives one Chromium page through go-rod and publishes the
// API responses it observes.
package browser

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"golang.org/x/time/rate"

	"github.com/okian/sofascout/internal/domain/model"
	"github.com/okian/sofascout/internal/domain/payload"
	"github.com/okian/sofascout/pkg/logger"
	"github.com/okian/sofascout/pkg/metrics"
)

// Publisher accepts observed exchanges.
type Publisher interface {
	Publish(ctx context.Context, e *model.Exchange) bool
}

type pending struct {
	url    string
	status int
}

// Session owns the browser, its incognito context and one page.
type Session struct {
	opts     Options
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
	router   *rod.HijackRouter
	pub      Publisher
	limiter  *rate.Limiter
	logger   logger.Logger

	mu       sync.Mutex
	inflight map[proto.NetworkRequestID]pending

	cancel    context.CancelFunc
	closeOnce sync.Once
}

// Open launches Chromium, opens an incognito page and starts publishing
// finished API responses to pub. Close must be called on every path.
func Open(ctx context.Context, opts Options, pub Publisher) (*Session, error) {
	opts.defaults()
	s := &Session{
		opts:     opts,
		pub:      pub,
		logger:   opts.Logger,
		inflight: make(map[proto.NetworkRequestID]pending),
		limiter:  rate.NewLimiter(rate.Inf, 1),
	}
	if opts.FetchRate > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(opts.FetchRate), 1)
	}

	s.launcher = launcher.New().Headless(opts.Headless)
	if opts.Bin != "" {
		s.launcher = s.launcher.Bin(opts.Bin)
	}
	controlURL, err := s.launcher.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch chromium: %w", err)
	}

	// events outlive a single call; they stop on Close
	eventsCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel

	s.browser = rod.New().ControlURL(controlURL).Context(eventsCtx)
	if err := s.browser.Connect(); err != nil {
		s.Close()
		return nil, fmt.Errorf("connect to chromium: %w", err)
	}

	if err := s.openPage(); err != nil {
		s.Close()
		return nil, err
	}
	s.observe(eventsCtx)

	if opts.Home != "" {
		if err := s.Navigate(ctx, opts.Home); err != nil {
			s.Close()
			return nil, fmt.Errorf("open home page: %w", err)
		}
	}
	s.logger.Info(ctx, "browser session ready", logger.Bool("headless", opts.Headless))
	return s, nil
}

func (s *Session) openPage() error {
	incognito, err := s.browser.Incognito()
	if err != nil {
		return fmt.Errorf("incognito context: %w", err)
	}
	page, err := incognito.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return fmt.Errorf("create page: %w", err)
	}
	s.page = page

	if s.opts.UserAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: s.opts.UserAgent}); err != nil {
			return fmt.Errorf("set user agent: %w", err)
		}
	}
	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             viewportWidth,
		Height:            viewportHeight,
		DeviceScaleFactor: 1.0,
	}); err != nil {
		s.logger.Warn(context.Background(), "failed to set viewport", logger.Error(err))
	}

	s.router = page.HijackRequests()
	for _, rt := range []proto.NetworkResourceType{proto.NetworkResourceTypeImage, proto.NetworkResourceTypeFont, proto.NetworkResourceTypeMedia} {
		if err := s.router.Add("*", rt, func(h *rod.Hijack) {
			h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
		}); err != nil {
			return fmt.Errorf("block %s requests: %w", rt, err)
		}
	}
	go s.router.Run()
	return nil
}

// observe pairs responseReceived with loadingFinished: the body is only
// readable once loading has finished.
func (s *Session) observe(ctx context.Context) {
	if err := (proto.NetworkEnable{}).Call(s.page); err != nil {
		s.logger.Warn(ctx, "network domain not enabled", logger.Error(err))
	}
	page := s.page.Context(ctx)
	wait := page.EachEvent(
		func(ev *proto.NetworkResponseReceived) {
			if ev.Response == nil || !strings.Contains(ev.Response.URL, s.opts.APIRoot) {
				return
			}
			s.mu.Lock()
			s.inflight[ev.RequestID] = pending{url: ev.Response.URL, status: ev.Response.Status}
			s.mu.Unlock()
		},
		func(ev *proto.NetworkLoadingFinished) {
			s.mu.Lock()
			p, ok := s.inflight[ev.RequestID]
			delete(s.inflight, ev.RequestID)
			s.mu.Unlock()
			if !ok {
				return
			}
			id := ev.RequestID
			e := model.NewExchange(string(id), p.url, p.status, func() ([]byte, error) {
				return s.responseBody(id)
			})
			s.pub.Publish(ctx, e)
		},
		func(ev *proto.NetworkLoadingFailed) {
			s.mu.Lock()
			delete(s.inflight, ev.RequestID)
			s.mu.Unlock()
		},
	)
	go wait()
}

func (s *Session) responseBody(id proto.NetworkRequestID) ([]byte, error) {
	res, err := proto.NetworkGetResponseBody{RequestID: id}.Call(s.page)
	if err != nil {
		return nil, fmt.Errorf("response body %s: %w", id, err)
	}
	if res.Base64Encoded {
		b, err := base64.StdEncoding.DecodeString(res.Body)
		if err != nil {
			return nil, fmt.Errorf("decode body %s: %w", id, err)
		}
		return b, nil
	}
	return []byte(res.Body), nil
}

// Navigate loads url and waits for the load event.
func (s *Session) Navigate(ctx context.Context, url string) error {
	p := s.page.Context(ctx).Timeout(s.opts.NavigationTimeout)
	defer p.CancelTimeout()

	if err := p.Navigate(url); err != nil {
		metrics.RecordNavigation("error")
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	if err := p.WaitLoad(); err != nil {
		metrics.RecordNavigation("error")
		return fmt.Errorf("wait load %s: %w", url, err)
	}
	metrics.RecordNavigation("ok")
	s.logger.Debug(ctx, "navigated", logger.String("url", url))
	return nil
}

// ClickTab clicks the first link, button or tab whose text is label. It
// reports false when no such element appears within the tab timeout.
func (s *Session) ClickTab(ctx context.Context, label string) (bool, error) {
	p := s.page.Context(ctx).Timeout(s.opts.TabTimeout)
	defer p.CancelTimeout()

	el, err := p.ElementR(`a, button, div[role="tab"]`, tabLabelPattern(label))
	if err != nil {
		var nf *rod.ElementNotFoundError
		if errors.As(err, &nf) || errors.Is(err, context.DeadlineExceeded) {
			return false, nil
		}
		return false, fmt.Errorf("find tab %q: %w", label, err)
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return false, fmt.Errorf("click tab %q: %w", label, err)
	}
	return true, nil
}

const fetchJS = `async (u) => {
	const r = await fetch(u, { credentials: 'include' });
	return { status: r.status, body: r.ok ? await r.text() : '' };
}`

// Fetch requests url from inside the page, so it carries the page's cookies
// and origin, and decodes the JSON answer.
func (s *Session) Fetch(ctx context.Context, url string) (payload.Value, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return payload.Value{}, fmt.Errorf("fetch %s: %w", url, err)
	}

	start := time.Now()
	res, err := s.page.Context(ctx).Timeout(s.opts.NavigationTimeout).Evaluate(rod.Eval(fetchJS, url).ByPromise())
	ms := float64(time.Since(start).Milliseconds())
	if err != nil {
		metrics.RecordFetch("error", ms)
		return payload.Value{}, fmt.Errorf("fetch %s: %w", url, err)
	}

	status := res.Value.Get("status").Int()
	if status != model.StatusOK {
		metrics.RecordFetch(strconv.Itoa(status), ms)
		return payload.Value{}, &StatusError{URL: url, Status: status}
	}
	v, err := payload.Parse([]byte(res.Value.Get("body").Str()))
	if err != nil {
		metrics.RecordFetch("invalid", ms)
		return payload.Value{}, fmt.Errorf("fetch %s: %w", url, err)
	}
	metrics.RecordFetch("ok", ms)
	return v, nil
}

// HTML returns the current document.
func (s *Session) HTML(ctx context.Context) (string, error) {
	html, err := s.page.Context(ctx).HTML()
	if err != nil {
		return "", fmt.Errorf("read html: %w", err)
	}
	return html, nil
}

// Text returns the rendered text of the body.
func (s *Session) Text(ctx context.Context) (string, error) {
	p := s.page.Context(ctx).Timeout(s.opts.TabTimeout)
	defer p.CancelTimeout()
	body, err := p.Element("body")
	if err != nil {
		return "", fmt.Errorf("find body: %w", err)
	}
	text, err := body.Text()
	if err != nil {
		return "", fmt.Errorf("read text: %w", err)
	}
	return text, nil
}

// Close releases the page, the browser and the launched process. It is safe
// to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		if s.router != nil {
			_ = s.router.Stop()
		}
		if s.page != nil {
			_ = s.page.Close()
		}
		if s.browser != nil {
			_ = s.browser.Close()
		}
		if s.cancel != nil {
			s.cancel()
		}
		if s.launcher != nil {
			s.launcher.Kill()
			s.launcher.Cleanup()
		}
	})
}

// tabLabelPattern is the case-insensitive JS regexp matching an element
// whose whole text is label.
func tabLabelPattern(label string) string {
	return `/^\s*` + strings.ReplaceAll(regexp.QuoteMeta(label), "/", `\/`) + `\s*$/i`
}
