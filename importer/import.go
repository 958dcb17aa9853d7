package importer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/arednch/nodemon/data"
)

const (
	sysInfoPath = "/a/sysinfo"

	// Upper bound for a status document; large meshes report long host lists.
	maxBodySize = 8 << 20
)

// Client fetches the status document of AREDN nodes. The zero value is usable
// and relies on http.DefaultClient.
type Client struct {
	HTTP *http.Client
}

func NewClient() *Client {
	return &Client{
		HTTP: &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
			},
			// Redirects usually lead to the legacy UI which is not supported.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// StatusURL builds the status endpoint URL for an address. The address is a
// hostname or IP and may carry a scheme and/or port ("https://node:8443").
func StatusURL(address string) (string, error) {
	s := strings.TrimSpace(address)
	if s == "" {
		return "", errors.New("empty address")
	}
	if !strings.Contains(s, "://") {
		s = "http://" + s
	}
	u, err := url.Parse(s)
	if err != nil {
		return "", err
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("no host in address %q", address)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if p := u.Port(); p != "" {
		if n, err := strconv.Atoi(p); err != nil || n < 1 || n > 65535 {
			return "", fmt.Errorf("invalid port %q", p)
		}
	}

	return (&url.URL{
		Scheme:   u.Scheme,
		Host:     u.Host,
		Path:     sysInfoPath,
		RawQuery: url.Values{"link_info": {"1"}, "nodes": {"1"}}.Encode(),
	}).String(), nil
}

// Fetch issues a single GET against the status endpoint of address. It never
// retries; every failure is returned as a *FetchError.
func (c *Client) Fetch(ctx context.Context, address string, timeout time.Duration) (data.RawPayload, error) {
	u, err := StatusURL(address)
	if err != nil {
		return nil, &FetchError{Kind: KindUnreachable, Address: address, Err: err}
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &FetchError{Kind: KindUnreachable, Address: address, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	hc := c.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, &FetchError{Kind: transportKind(ctx, err), Address: address, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))
		return nil, &FetchError{Kind: KindBadStatus, Address: address, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize+1))
	if err != nil {
		return nil, &FetchError{Kind: transportKind(ctx, err), Address: address, Err: err}
	}
	if len(body) > maxBodySize {
		return nil, &FetchError{Kind: KindMalformedResponse, Address: address, Err: errors.New("response too large")}
	}

	payload, err := decode(body)
	if err != nil {
		return nil, &FetchError{Kind: KindMalformedResponse, Address: address, Err: err}
	}
	return payload, nil
}

func transportKind(ctx context.Context, err error) FetchErrorKind {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return KindTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return KindTimeout
	}
	return KindUnreachable
}

// decode accepts only a JSON object as top level value.
func decode(b []byte) (data.RawPayload, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected JSON object, got %T", v)
	}
	return data.RawPayload(obj), nil
}

// ReadFromFile reads a status document saved to disk (e.g. with curl).
func ReadFromFile(path string) (data.RawPayload, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	payload, err := decode(b)
	if err != nil {
		return nil, &FetchError{Kind: KindMalformedResponse, Address: path, Err: err}
	}
	return payload, nil
}
