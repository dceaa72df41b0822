package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"docvault/internal/config"
)

const (
	gatewayAttempts   = 2
	gatewayRetryDelay = 500 * time.Millisecond
	maxErrorBody      = 64 << 10
)

// ipfsStore talks to a Kubo daemon over its HTTP RPC API and falls back to a
// public gateway for reads. It is safe for concurrent use by multiple goroutines.
type ipfsStore struct {
	apiURL     string
	gatewayURL string

	client        *http.Client
	gatewayClient *http.Client

	callTimeout    time.Duration
	gatewayTimeout time.Duration
	retryDelay     time.Duration
	tempDir        string

	logger zerolog.Logger
}

// NewIPFS creates a content store backed by the Kubo daemon at cfg.IPFSAPIURL.
func NewIPFS(cfg config.ContentStoreConfig, logger zerolog.Logger) (ContentStore, error) {
	return newIPFS(cfg, logger)
}

func newIPFS(cfg config.ContentStoreConfig, logger zerolog.Logger) (*ipfsStore, error) {
	if cfg.IPFSAPIURL == "" {
		return nil, fmt.Errorf("ipfs api url is required")
	}
	if _, err := url.Parse(cfg.IPFSAPIURL); err != nil {
		return nil, fmt.Errorf("parse ipfs api url: %w", err)
	}

	gatewayTimeout := cfg.GatewayTimeout
	if gatewayTimeout <= 0 {
		gatewayTimeout = cfg.CallTimeout
	}

	transport := otelhttp.NewTransport(http.DefaultTransport)
	return &ipfsStore{
		apiURL:         strings.TrimRight(cfg.IPFSAPIURL, "/"),
		gatewayURL:     strings.TrimRight(cfg.GatewayURL, "/"),
		client:         &http.Client{Transport: transport},
		gatewayClient:  &http.Client{Transport: transport},
		callTimeout:    cfg.CallTimeout,
		gatewayTimeout: gatewayTimeout,
		retryDelay:     gatewayRetryDelay,
		tempDir:        cfg.TempDir,
		logger:         logger.With().Str("component", "ipfs").Logger(),
	}, nil
}

// rpcError is the error body Kubo returns with non-200 responses.
type rpcError struct {
	Status  int    `json:"-"`
	Message string `json:"Message"`
	Code    int    `json:"Code"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("ipfs rpc status %d: %s", e.Status, e.Message)
}

// Store adds the content with raw leaves and CIDv1. The add call pins recursively
// in the same request, so the CID is pinned once a response arrives.
func (s *ipfsStore) Store(ctx context.Context, r io.Reader, size int64) (string, error) {
	if r == nil {
		return "", fmt.Errorf("reader is nil")
	}
	ctx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()

	body, contentType := multipartBody(r)
	q := url.Values{
		"cid-version": {"1"},
		"raw-leaves":  {"true"},
		"pin":         {"true"},
		"quieter":     {"true"},
	}
	resp, err := s.rpc(ctx, "add", q, body, contentType)
	if err != nil {
		return "", fmt.Errorf("%w: add: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	var added struct {
		Name string `json:"Name"`
		Hash string `json:"Hash"`
		Size string `json:"Size"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&added); err != nil {
		return "", fmt.Errorf("%w: decode add response: %v", ErrUnavailable, err)
	}
	if added.Hash == "" {
		return "", fmt.Errorf("%w: add returned no cid", ErrUnavailable)
	}

	s.logger.Debug().Str("cid", added.Hash).Int64("size", size).Msg("content added and pinned")
	return added.Hash, nil
}

// Fetch tries the local daemon first and the public gateway second.
func (s *ipfsStore) Fetch(ctx context.Context, addr, displayName string) (*Handle, error) {
	addr, err := ParseAddress(addr)
	if err != nil {
		return nil, err
	}

	h, localErr := s.fetchLocal(ctx, addr, displayName)
	if localErr == nil {
		return h, nil
	}
	s.logger.Warn().Err(localErr).Str("cid", addr).Msg("local fetch failed, trying gateway")

	h, gwErr := s.fetchGateway(ctx, addr, displayName)
	if gwErr == nil {
		s.logger.Info().Str("cid", addr).Msg("content fetched from gateway")
		return h, nil
	}
	if errors.Is(gwErr, ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, addr)
	}
	return nil, fmt.Errorf("%w: local: %v; gateway: %v", ErrUnavailable, localErr, gwErr)
}

func (s *ipfsStore) fetchLocal(ctx context.Context, addr, name string) (*Handle, error) {
	ctx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()

	// offline keeps the daemon from searching the network; the gateway covers that.
	resp, err := s.rpc(ctx, "cat", url.Values{"arg": {addr}, "offline": {"true"}}, nil, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return Spool(s.tempDir, name, resp.Body)
}

func (s *ipfsStore) fetchGateway(ctx context.Context, addr, name string) (*Handle, error) {
	if s.gatewayURL == "" {
		return nil, fmt.Errorf("no gateway configured")
	}
	target := s.gatewayURL + "/ipfs/" + url.PathEscape(addr)

	attempt := func() (*Handle, error) {
		ctx, cancel := context.WithTimeout(ctx, s.gatewayTimeout)
		defer cancel()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		resp, err := s.gatewayClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return nil, backoff.Permanent(ErrNotFound)
		case resp.StatusCode != http.StatusOK:
			return nil, fmt.Errorf("gateway status %d", resp.StatusCode)
		}
		return Spool(s.tempDir, name, resp.Body)
	}

	return backoff.Retry(ctx, attempt,
		backoff.WithBackOff(backoff.NewConstantBackOff(s.retryDelay)),
		backoff.WithMaxTries(gatewayAttempts),
	)
}

// Unpin removes the pin on addr. "not pinned" answers are treated as success.
func (s *ipfsStore) Unpin(ctx context.Context, addr string) error {
	addr, err := ParseAddress(addr)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()

	resp, err := s.rpc(ctx, "pin/rm", url.Values{"arg": {addr}}, nil, "")
	if err != nil {
		var rerr *rpcError
		if errors.As(err, &rerr) && strings.Contains(rerr.Message, "not pinned") {
			return nil
		}
		return fmt.Errorf("%w: unpin %s: %v", ErrUnavailable, addr, err)
	}
	drain(resp)
	return nil
}

// GC runs repo/gc and collects the CIDs the daemon reports as removed.
func (s *ipfsStore) GC(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()

	resp, err := s.rpc(ctx, "repo/gc", nil, nil, "")
	if err != nil {
		return nil, fmt.Errorf("%w: gc: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	var (
		removed []string
		errs    []error
	)
	dec := json.NewDecoder(resp.Body)
	for {
		var line struct {
			Key struct {
				CID string `json:"/"`
			} `json:"Key"`
			Error string `json:"Error"`
		}
		if err := dec.Decode(&line); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return removed, fmt.Errorf("decode gc stream: %w", err)
		}
		if line.Error != "" {
			errs = append(errs, errors.New(line.Error))
			continue
		}
		if line.Key.CID != "" {
			removed = append(removed, line.Key.CID)
		}
	}
	return removed, errors.Join(errs...)
}

func (s *ipfsStore) rpc(ctx context.Context, cmd string, q url.Values, body io.Reader, contentType string) (*http.Response, error) {
	target := s.apiURL + "/api/v0/" + cmd
	if len(q) > 0 {
		target += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		rerr := &rpcError{Status: resp.StatusCode}
		if err := json.NewDecoder(io.LimitReader(resp.Body, maxErrorBody)).Decode(rerr); err != nil {
			rerr.Message = http.StatusText(resp.StatusCode)
		}
		return nil, rerr
	}
	return resp, nil
}

// multipartBody streams r as a single "file" part without buffering it in memory.
func multipartBody(r io.Reader) (io.Reader, string) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		part, err := mw.CreateFormFile("file", "content")
		if err == nil {
			_, err = io.Copy(part, r)
		}
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()
	return pr, mw.FormDataContentType()
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
	_ = resp.Body.Close()
}
