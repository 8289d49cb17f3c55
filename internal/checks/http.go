package checks

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"slices"
	"time"

	"github.com/spboyer/checkerd/internal/models"
)

const (
	defaultHTTPTimeout = 10 * time.Second
	// maxBodyBytes bounds how much of a response body_must_match inspects.
	maxBodyBytes = 1 << 20
)

type HTTPCheckArgs struct {
	Name string `mapstructure:"-"`
	URL  string `mapstructure:"url"`
	// ExpectStatus lists the acceptable status codes. Defaults to 200.
	ExpectStatus  []int             `mapstructure:"expect_status"`
	Headers       map[string]string `mapstructure:"headers"`
	BodyMustMatch string            `mapstructure:"body_must_match"`
	Timeout       time.Duration     `mapstructure:"timeout"`
}

// httpCheck issues a GET and reports a failure when the endpoint is
// unreachable, answers with an unexpected status, or (optionally) when the
// body does not match a pattern.
type httpCheck struct {
	name         string
	url          string
	expectStatus []int
	headers      map[string]string
	bodyRe       *regexp.Regexp
	client       *http.Client
}

func NewHTTPCheck(args HTTPCheckArgs) (*httpCheck, error) {
	if args.URL == "" {
		return nil, fmt.Errorf("http check '%s' must have a 'url'", args.Name)
	}

	expect := args.ExpectStatus
	if len(expect) == 0 {
		expect = []int{http.StatusOK}
	}

	var bodyRe *regexp.Regexp
	if args.BodyMustMatch != "" {
		re, err := regexp.Compile(args.BodyMustMatch)
		if err != nil {
			return nil, fmt.Errorf("http check '%s' has an invalid 'body_must_match': %w", args.Name, err)
		}
		bodyRe = re
	}

	return &httpCheck{
		name:         args.Name,
		url:          args.URL,
		expectStatus: expect,
		headers:      args.Headers,
		bodyRe:       bodyRe,
		client:       &http.Client{Timeout: timeoutOrDefault(args.Timeout, defaultHTTPTimeout)},
	}, nil
}

func (h *httpCheck) Name() string { return h.name }
func (h *httpCheck) Kind() Kind   { return KindHTTP }

func (h *httpCheck) Run(ctx context.Context) ([]models.CheckerFailure, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.url, nil)
	if err != nil {
		return nil, fmt.Errorf("building request for %s: %w", h.url, err)
	}
	for k, v := range h.headers {
		req.Header.Set(k, v)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return []models.CheckerFailure{
			models.NewFailure(fmt.Sprintf("GET %s failed", h.url)).
				WithSubtext(err.Error()).
				WithData(map[string]any{"url": h.url}),
		}, nil
	}
	defer resp.Body.Close()

	if !slices.Contains(h.expectStatus, resp.StatusCode) {
		return []models.CheckerFailure{
			models.NewFailure(fmt.Sprintf("GET %s returned %d", h.url, resp.StatusCode)).
				WithData(map[string]any{"url": h.url, "status": resp.StatusCode}),
		}, nil
	}

	if h.bodyRe == nil {
		return nil, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("reading body of %s: %w", h.url, err)
	}
	if !h.bodyRe.Match(body) {
		return []models.CheckerFailure{
			models.NewFailure(fmt.Sprintf("GET %s body does not match %s", h.url, h.bodyRe)).
				WithData(map[string]any{"url": h.url}),
		}, nil
	}
	return nil, nil
}
