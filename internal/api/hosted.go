package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"agility-scorer/internal/config"
	"agility-scorer/internal/constants"
	"agility-scorer/internal/domain"
	"agility-scorer/internal/session"

	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"
)

const sessionsTable = "/rest/v1/live_sessions"

// HostedClient stores session records in a PostgREST style table and
// follows changes by polling.
type HostedClient struct {
	baseURL  string
	apiKey   string
	interval time.Duration
	client   *fasthttp.Client
	logger   zerolog.Logger
}

// StatusError is a non-2xx answer from the hosted backend.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("hosted API error: %d %s", e.Status, e.Body)
}

func NewHostedClient(cfg *config.Config, logger zerolog.Logger) *HostedClient {
	interval := cfg.HostedPollInterval
	if interval <= 0 {
		interval = constants.HostedPollInterval
	}
	return &HostedClient{
		baseURL:  strings.TrimRight(cfg.HostedURL, "/"),
		apiKey:   cfg.HostedAPIKey,
		interval: interval,
		client: &fasthttp.Client{
			MaxConnsPerHost:     16,
			ReadTimeout:         10 * time.Second,
			WriteTimeout:        10 * time.Second,
			MaxIdleConnDuration: 1 * time.Minute,
		},
		logger: logger,
	}
}

func (c *HostedClient) Create(ctx context.Context, rec domain.SessionRecord) error {
	rec.UpdatedAt = time.Now().UTC()
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode session record: %w", err)
	}
	_, err = doRequest[json.RawMessage](ctx, c, fasthttp.MethodPost, c.baseURL+sessionsTable, body)
	var se *StatusError
	if errors.As(err, &se) && se.Status == fasthttp.StatusConflict {
		return fmt.Errorf("%w: %s", domain.ErrSessionExists, rec.Code)
	}
	if err != nil {
		c.logger.Error().Err(err).Str("code", rec.Code).Msg("failed to create hosted session")
		return fmt.Errorf("failed to create hosted session: %w", err)
	}
	return nil
}

func (c *HostedClient) Fetch(ctx context.Context, code string) (domain.SessionRecord, error) {
	rows, err := doRequest[[]domain.SessionRecord](ctx, c, fasthttp.MethodGet, c.rowURL(code)+"&select=*", nil)
	if err != nil {
		c.logger.Error().Err(err).Str("code", code).Msg("failed to fetch hosted session")
		return domain.SessionRecord{}, fmt.Errorf("failed to fetch hosted session: %w", err)
	}
	if len(*rows) == 0 {
		return domain.SessionRecord{}, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, code)
	}
	return (*rows)[0], nil
}

func (c *HostedClient) Push(ctx context.Context, rec domain.SessionRecord) error {
	rec.UpdatedAt = time.Now().UTC()
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode session record: %w", err)
	}
	rows, err := doRequest[[]domain.SessionRecord](ctx, c, fasthttp.MethodPatch, c.rowURL(rec.Code), body)
	if err != nil {
		c.logger.Error().Err(err).Str("code", rec.Code).Msg("failed to push hosted session")
		return fmt.Errorf("failed to push hosted session: %w", err)
	}
	if len(*rows) == 0 {
		return fmt.Errorf("%w: %s", domain.ErrSessionNotFound, rec.Code)
	}
	return nil
}

// Subscribe polls the row and calls h whenever its content changes. The
// row as it is now serves as the baseline and is not delivered.
func (c *HostedClient) Subscribe(ctx context.Context, code string, h session.Handler) (session.Subscription, error) {
	current, err := c.Fetch(ctx, code)
	if err != nil {
		return nil, err
	}
	last, err := json.Marshal(current)
	if err != nil {
		return nil, fmt.Errorf("failed to encode session record: %w", err)
	}

	pollCtx, cancel := context.WithCancel(context.Background())
	p := &poller{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(p.done)
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()
		for {
			select {
			case <-pollCtx.Done():
				return
			case <-ticker.C:
			}
			reqCtx, reqCancel := context.WithTimeout(pollCtx, c.interval)
			rec, err := c.Fetch(reqCtx, code)
			reqCancel()
			if err != nil {
				if pollCtx.Err() == nil {
					c.logger.Warn().Err(err).Str("code", code).Msg("hosted session poll failed")
				}
				continue
			}
			raw, err := json.Marshal(rec)
			if err != nil || bytes.Equal(raw, last) {
				continue
			}
			last = raw
			h(rec)
		}
	}()
	return p, nil
}

type poller struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func (p *poller) Close() error {
	p.once.Do(func() {
		p.cancel()
		<-p.done
	})
	return nil
}

func (c *HostedClient) rowURL(code string) string {
	return c.baseURL + sessionsTable + "?code=eq." + url.QueryEscape(code)
}

func doRequest[T any](ctx context.Context, client *HostedClient, method, uri string, body []byte) (*T, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(uri)
	req.Header.SetMethod(method)
	req.Header.Set("apikey", client.apiKey)
	req.Header.Set("Authorization", "Bearer "+client.apiKey)
	req.Header.Set("Prefer", "return=representation")
	if body != nil {
		req.Header.SetContentType("application/json")
		req.SetBody(body)
	}

	deadline, ok := ctx.Deadline()
	if ok {
		if err := client.client.DoDeadline(req, resp, deadline); err != nil {
			return nil, err
		}
	} else {
		if err := client.client.Do(req, resp); err != nil {
			return nil, err
		}
	}

	if code := resp.StatusCode(); code < 200 || code > 299 {
		return nil, &StatusError{Status: code, Body: string(resp.Body())}
	}

	var result T
	if len(resp.Body()) == 0 {
		return &result, nil
	}
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, err
	}
	return &result, nil
}
