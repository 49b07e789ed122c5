package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/scrapeloop/sessiond/internal/common"
	"github.com/scrapeloop/sessiond/internal/interfaces"
	"github.com/scrapeloop/sessiond/internal/jar"
	"github.com/scrapeloop/sessiond/internal/models"
)

// JarSource resolves a session id to its cookie jar.
type JarSource interface {
	Jar(sessionID string) *jar.Jar
}

// ProfileApplier injects a session's profile into an outgoing request.
type ProfileApplier interface {
	Apply(sessionID string, req *models.Request) error
}

// HTTPEngine is the built-in download-and-schedule implementation. Each
// download runs with the session's jar bound as the client cookie jar, the
// session profile applied, and per-host rate limiting.
type HTTPEngine struct {
	config  *common.EngineConfig
	logger  arbor.ILogger
	jars    JarSource
	applier ProfileApplier // nil when profile sync is disabled

	limiterMu sync.Mutex
	limiters  map[string]*rate.Limiter

	scheduleMu   sync.RWMutex
	scheduleNext func()
}

// New creates an HTTP engine. The jar source is attached after construction
// via SetJarSource since the session service and engine reference each other.
func New(config *common.EngineConfig, logger arbor.ILogger) *HTTPEngine {
	return &HTTPEngine{
		config:   config,
		logger:   logger,
		limiters: make(map[string]*rate.Limiter),
	}
}

// SetJarSource attaches the session jar resolver.
func (e *HTTPEngine) SetJarSource(jars JarSource) {
	e.jars = jars
}

// SetProfileApplier attaches the profile injection hook.
func (e *HTTPEngine) SetProfileApplier(applier ProfileApplier) {
	e.applier = applier
}

// OnScheduleNext registers the scheduler nudge invoked by ScheduleNext.
func (e *HTTPEngine) OnScheduleNext(fn func()) {
	e.scheduleMu.Lock()
	defer e.scheduleMu.Unlock()
	e.scheduleNext = fn
}

// ScheduleNext nudges the scheduler registered via OnScheduleNext. A no-op
// when nothing is registered.
func (e *HTTPEngine) ScheduleNext() {
	e.scheduleMu.RLock()
	fn := e.scheduleNext
	e.scheduleMu.RUnlock()

	if fn != nil {
		fn()
	}
}

// Download dispatches a single request through the session's network identity.
func (e *HTTPEngine) Download(ctx context.Context, req *models.Request) (*models.Response, error) {
	if req.URL == "" {
		return nil, fmt.Errorf("request URL is required")
	}

	if e.applier != nil {
		if err := e.applier.Apply(req.SessionID, req); err != nil {
			if errors.Is(err, interfaces.ErrSessionNotFound) {
				e.logger.Debug().Str("session_id", req.SessionID).Msg("No profile assigned, dispatching without one")
			} else {
				return nil, fmt.Errorf("failed to apply profile: %w", err)
			}
		}
	}

	parsed, err := url.Parse(req.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid request URL: %w", err)
	}

	if err := e.limiterFor(parsed.Hostname()).Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait cancelled: %w", err)
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	for key, values := range req.Headers {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}
	if httpReq.Header.Get("User-Agent") == "" && e.config.UserAgent != "" {
		httpReq.Header.Set("User-Agent", e.config.UserAgent)
	}

	client, err := e.clientFor(req)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close()

	var bodyReader io.Reader = resp.Body
	if e.config.MaxBodySize > 0 {
		bodyReader = io.LimitReader(resp.Body, int64(e.config.MaxBodySize))
	}

	body, err := io.ReadAll(bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	e.logger.Debug().
		Str("session_id", req.SessionID).
		Str("url", req.URL).
		Int("status", resp.StatusCode).
		Msg("Download complete")

	return &models.Response{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       body,
		Request:    req,
	}, nil
}

// clientFor builds an http.Client bound to the session's jar, with the
// request's proxy meta applied to the transport.
func (e *HTTPEngine) clientFor(req *models.Request) (*http.Client, error) {
	client := &http.Client{
		Timeout: e.config.RequestTimeout,
	}

	if e.jars != nil && req.SessionID != "" {
		client.Jar = jar.NewHTTPJar(e.jars.Jar(req.SessionID))
	}

	if proxyAddr, ok := req.Meta["proxy"].(string); ok && proxyAddr != "" {
		proxyURL, err := url.Parse(proxyAddr)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy address %q: %w", proxyAddr, err)
		}
		client.Transport = &http.Transport{
			Proxy: http.ProxyURL(proxyURL),
		}
	}

	return client, nil
}

// limiterFor returns the per-host rate limiter, creating it on first use.
func (e *HTTPEngine) limiterFor(host string) *rate.Limiter {
	e.limiterMu.Lock()
	defer e.limiterMu.Unlock()

	limiter, ok := e.limiters[host]
	if !ok {
		if e.config.RequestDelay > 0 {
			limiter = rate.NewLimiter(rate.Every(e.config.RequestDelay), 1)
		} else {
			limiter = rate.NewLimiter(rate.Inf, 1)
		}
		e.limiters[host] = limiter
	}
	return limiter
}
