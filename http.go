package trafficlight

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
)

type HTTPHookConfig struct {
	URL                string            `yaml:"url"`
	Method             string            `yaml:"method"`
	Headers            map[string]string `yaml:"headers"`
	Body               string            `yaml:"body"`
	ExpectCode         string            `yaml:"expect_code"`
	ExpectPattern      string            `yaml:"expect_pattern"`
	NoCheckCertificate bool              `yaml:"no_check_certificate"`
}

// HTTPHook notifies an HTTP endpoint. Without a configured body it sends the
// current State as JSON.
type HTTPHook struct {
	URL                string
	Method             string
	Headers            map[string]string
	Body               string
	ExpectCodeFunc     func(code int) bool
	ExpectPattern      *regexp.Regexp
	Timeout            time.Duration
	NoCheckCertificate bool

	name string
}

type notification struct {
	Phase    Phase `json:"phase"`
	Crossing int   `json:"crossing"`
}

func NewHTTPHook(cfg *HookConfig) (*HTTPHook, error) {
	h := &HTTPHook{
		name:               cfg.Name,
		Method:             cfg.HTTP.Method,
		Timeout:            cfg.Timeout,
		NoCheckCertificate: cfg.HTTP.NoCheckCertificate,
		Headers:            cfg.HTTP.Headers,
		Body:               cfg.HTTP.Body,
	}
	u, err := url.Parse(cfg.HTTP.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid url %s: %w", cfg.HTTP.URL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid url %s: scheme must be http or https", cfg.HTTP.URL)
	}
	h.URL = u.String()

	if pt := cfg.HTTP.ExpectPattern; pt != "" {
		h.ExpectPattern, err = regexp.Compile(pt)
		if err != nil {
			return nil, fmt.Errorf("invalid expect_pattern %s: %w", pt, err)
		}
	}
	if h.Method == "" {
		h.Method = http.MethodPost
	}
	if cfg.HTTP.ExpectCode == "" {
		h.ExpectCodeFunc = func(code int) bool {
			return code >= 200 && code < 400
		}
	} else {
		h.ExpectCodeFunc, err = newExpectCodeFunc(cfg.HTTP.ExpectCode)
		if err != nil {
			return nil, fmt.Errorf("invalid expect_code %s: %w", cfg.HTTP.ExpectCode, err)
		}
	}
	return h, nil
}

func (h *HTTPHook) Name() string {
	return h.name
}

func (h *HTTPHook) Run(ctx context.Context) error {
	logger := newLoggerFromContext(ctx).With("name", h.name, "module", "httphook")

	ctx, cancel := context.WithTimeout(ctx, h.Timeout)
	defer cancel()

	body, contentType := h.Body, ""
	if body == "" {
		b, err := json.Marshal(newNotification(ctx))
		if err != nil {
			return fmt.Errorf("failed to encode notification: %w", err)
		}
		body, contentType = string(b), "application/json"
	}
	req, err := http.NewRequestWithContext(ctx, h.Method, h.URL, strings.NewReader(body))
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for name, value := range h.Headers {
		req.Header.Set(name, value)
	}
	req.Header.Set("User-Agent", "trafficlight/"+Version)

	client := &http.Client{
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: h.NoCheckCertificate},
		},
	}
	logger.Debug(fmt.Sprintf("http request %s %s", req.Method, req.URL))
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if !h.ExpectCodeFunc(resp.StatusCode) {
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("expect code not match: %d", resp.StatusCode)
	}
	if h.ExpectPattern == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	rb, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read body failed: %w", err)
	}
	if !h.ExpectPattern.Match(rb) {
		return fmt.Errorf("expect pattern not match: %s", h.ExpectPattern.String())
	}
	return nil
}

func newNotification(ctx context.Context) notification {
	n := notification{Phase: PhaseGreen}
	if s, ok := ctx.Value(stateKey).(*State); ok {
		n.Phase, n.Crossing = s.Phase, s.Crossing
	}
	return n
}

// newExpectCodeFunc parses a string of comma separated HTTP status codes and
// returns a function that checks if the given code is in the list.
// e.g. "200,201,202-204,300-399"
func newExpectCodeFunc(codes string) (func(code int) bool, error) {
	type codeRange struct{ lower, upper int }
	var ranges []codeRange
	for _, r := range strings.Split(codes, ",") {
		r = strings.TrimSpace(r)
		lo, hi, isRange := strings.Cut(r, "-")
		lower, err := strconv.Atoi(strings.TrimSpace(lo))
		if err != nil {
			return nil, errors.New("invalid code: " + r)
		}
		upper := lower
		if isRange {
			if upper, err = strconv.Atoi(strings.TrimSpace(hi)); err != nil {
				return nil, errors.New("invalid range: " + r)
			}
		}
		if upper < lower {
			return nil, errors.New("invalid range: " + r)
		}
		ranges = append(ranges, codeRange{lower, upper})
	}
	return func(code int) bool {
		for _, r := range ranges {
			if r.lower <= code && code <= r.upper {
				return true
			}
		}
		return false
	}, nil
}
