// Package httpfetch baixa imagens remotas com proteção contra SSRF: a URL é
// validada antes da requisição, a cada redirect e no IP efetivamente conectado.
package httpfetch

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"syscall"
	"time"

	domainerrors "github.com/rafabene/avantpro-avatars/internal/domain/errors"
	"github.com/rafabene/avantpro-avatars/internal/domain/ports"
)

// Options configura o Fetcher
type Options struct {
	Timeout              time.Duration
	AllowPrivateNetworks bool
	MaxRedirects         int
	UserAgent            string
}

// Fetcher implementa ports.RemoteFetcher
type Fetcher struct {
	follow     *http.Client
	noFollow   *http.Client
	validation URLValidationOptions
	userAgent  string
	logger     ports.Logger
}

// New cria um Fetcher. Proxies de ambiente são ignorados: um proxy esconderia
// o IP de destino da checagem de conexão.
func New(opts Options, logger ports.Logger) *Fetcher {
	validation := URLValidationOptions{
		AllowLocalhost:       opts.AllowPrivateNetworks,
		AllowPrivateNetworks: opts.AllowPrivateNetworks,
	}

	dialer := &net.Dialer{
		Timeout: opts.Timeout,
		Control: func(network, address string, _ syscall.RawConn) error {
			return checkDialAddress(address, validation)
		},
	}

	transport := &http.Transport{
		Proxy:                 nil,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          50,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: opts.Timeout,
	}

	maxRedirects := opts.MaxRedirects
	f := &Fetcher{
		validation: validation,
		userAgent:  opts.UserAgent,
		logger:     logger,
	}
	f.noFollow = &http.Client{
		Timeout:   opts.Timeout,
		Transport: transport,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	f.follow = &http.Client{
		Timeout:   opts.Timeout,
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) > maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			if _, err := ValidateOutboundURL(req.URL.String(), validation); err != nil {
				return fmt.Errorf("%w: redirect to %s: %v", domainerrors.ErrSSRFRejected, req.URL.Redacted(), err)
			}
			return nil
		},
	}

	return f
}

// Fetch faz o GET e grava o corpo num arquivo temporário limitado a
// opts.MaxBytes. Veja ports.RemoteFetcher para a taxonomia de erros.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string, opts ports.FetchOptions) (*ports.Download, error) {
	target, err := ValidateOutboundURL(rawURL, f.validation)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domainerrors.ErrSSRFRejected, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "image/*")
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	client := f.noFollow
	if opts.FollowRedirects {
		client = f.follow
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &domainerrors.HTTPStatusError{StatusCode: resp.StatusCode, URL: target.Redacted()}
	}

	if opts.MaxBytes > 0 && resp.ContentLength > opts.MaxBytes {
		return nil, fmt.Errorf("%w: content-length %d exceeds %d", domainerrors.ErrRemoteTooLarge, resp.ContentLength, opts.MaxBytes)
	}

	download, err := f.spool(resp.Body, opts.MaxBytes)
	if err != nil {
		return nil, err
	}
	download.ContentType = resp.Header.Get("Content-Type")
	download.FinalURL = resp.Request.URL.String()

	f.logger.Debug("remote image fetched", "url", target.Redacted(), "size", download.Size)
	return download, nil
}

func (f *Fetcher) spool(body io.Reader, maxBytes int64) (*ports.Download, error) {
	tmp, err := os.CreateTemp("", "avatar-fetch-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	download := &ports.Download{File: tmp}

	reader := body
	if maxBytes > 0 {
		reader = io.LimitReader(body, maxBytes+1)
	}

	n, err := io.Copy(tmp, reader)
	if err != nil {
		download.Cleanup()
		return nil, err
	}
	if maxBytes > 0 && n > maxBytes {
		download.Cleanup()
		return nil, fmt.Errorf("%w: body exceeds %d bytes", domainerrors.ErrRemoteTooLarge, maxBytes)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		download.Cleanup()
		return nil, err
	}

	download.Size = n
	return download, nil
}

// checkDialAddress valida o IP resolvido no momento da conexão
func checkDialAddress(address string, opts URLValidationOptions) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return fmt.Errorf("%w: %v", domainerrors.ErrSSRFRejected, err)
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return fmt.Errorf("%w: unresolved address %s", domainerrors.ErrSSRFRejected, host)
	}
	if err := checkIP(ip, opts); err != nil {
		return fmt.Errorf("%w: %v", domainerrors.ErrSSRFRejected, err)
	}
	return nil
}
