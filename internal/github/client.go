package github

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"golang.org/x/oauth2"

	"github.com/snapp-incubator/updatelog/internal/config"
	"github.com/snapp-incubator/updatelog/internal/metrics"
)

const (
	// DefaultBaseURL is the public GitHub REST endpoint.
	DefaultBaseURL = "https://api.github.com"

	mediaType = "application/vnd.github.v3+json"
	userAgent = "updatelog"
)

// File is a file read through the Contents API.
type File struct {
	Content []byte // decoded
	SHA     string
}

// PutRequest creates or replaces a file. SHA must be the current revision
// when the file already exists and empty when it does not.
type PutRequest struct {
	Message string
	Content []byte // raw, encoded by PutFile
	Branch  string // defaults to the configured branch
	SHA     string
}

// Client talks to the Contents API of one repository.
type Client struct {
	cfg     config.GitHub
	baseURL string
	base    *http.Client
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client to another API root (GitHub Enterprise, tests).
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithHTTPClient sets the client whose transport carries the authenticated requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.base = hc
		}
	}
}

// NewClient creates a client for the repository described by cfg.
// Requests carry cfg.Token as a bearer token.
func NewClient(cfg config.GitHub, opts ...Option) *Client {
	c := &Client{
		cfg:     cfg,
		baseURL: DefaultBaseURL,
		base:    http.DefaultClient,
	}
	for _, o := range opts {
		o(c)
	}

	rt := c.base.Transport
	if rt == nil {
		rt = http.DefaultTransport
	}
	c.http = &http.Client{
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token}),
			Base:   rt,
		},
		Timeout:       c.base.Timeout,
		CheckRedirect: c.base.CheckRedirect,
		Jar:           c.base.Jar,
	}
	return c
}

func (c *Client) contentsURL(path string) string {
	segs := strings.Split(strings.Trim(path, "/"), "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return fmt.Sprintf("%s/repos/%s/%s/contents/%s",
		c.baseURL, url.PathEscape(c.cfg.Username), url.PathEscape(c.cfg.Repo), strings.Join(segs, "/"))
}

// GetFile reads path on the configured branch.
func (c *Client) GetFile(ctx context.Context, path string) (*File, error) {
	u := c.contentsURL(path) + "?ref=" + url.QueryEscape(c.cfg.BranchOrDefault())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	status, body, err := c.do(req, "get")
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if status < 200 || status > 299 {
		return nil, newAPIError("get", status, body)
	}

	sha := gjson.GetBytes(body, "sha")
	if !sha.Exists() || sha.String() == "" {
		return nil, fmt.Errorf("%w: no sha in contents of %q", ErrDecode, path)
	}
	if enc := gjson.GetBytes(body, "encoding").String(); enc != "" && enc != "base64" {
		return nil, fmt.Errorf("%w: unsupported encoding %q for %q", ErrDecode, enc, path)
	}

	content, err := DecodeContent(gjson.GetBytes(body, "content").String())
	if err != nil {
		return nil, err
	}
	return &File{Content: content, SHA: sha.String()}, nil
}

// PutFile creates or replaces path and returns the new revision.
func (c *Client) PutFile(ctx context.Context, path string, r PutRequest) (string, error) {
	branch := r.Branch
	if branch == "" {
		branch = c.cfg.BranchOrDefault()
	}

	payload, err := putBody(r.Message, EncodeContent(r.Content), branch, r.SHA)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.contentsURL(path), bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	status, body, err := c.do(req, "put")
	if err != nil {
		return "", err
	}
	if status < 200 || status > 299 {
		return "", newAPIError("put", status, body)
	}
	return gjson.GetBytes(body, "content.sha").String(), nil
}

func putBody(message, content, branch, sha string) ([]byte, error) {
	b := []byte(`{}`)
	var err error
	if b, err = sjson.SetBytes(b, "message", message); err != nil {
		return nil, err
	}
	if b, err = sjson.SetBytes(b, "content", content); err != nil {
		return nil, err
	}
	if b, err = sjson.SetBytes(b, "branch", branch); err != nil {
		return nil, err
	}
	if sha != "" {
		if b, err = sjson.SetBytes(b, "sha", sha); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func (c *Client) do(req *http.Request, op string) (int, []byte, error) {
	req.Header.Set("Accept", mediaType)
	req.Header.Set("User-Agent", userAgent)

	start := time.Now()
	res, err := c.http.Do(req)
	metrics.RemoteReqDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.RemoteReqCounter.WithLabelValues(op, "error").Inc()
		return 0, nil, fmt.Errorf("%w: %s: %v", ErrUnavailable, op, err)
	}
	defer func() { _ = res.Body.Close() }()

	metrics.RemoteReqCounter.WithLabelValues(op, strconv.Itoa(res.StatusCode)).Inc()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %s: reading body: %v", ErrUnavailable, op, err)
	}
	return res.StatusCode, body, nil
}

func newAPIError(op string, status int, body []byte) *APIError {
	e := &APIError{Op: op, StatusCode: status}
	if gjson.ValidBytes(body) {
		e.Message = gjson.GetBytes(body, "message").String()
	}
	return e
}

// EncodeContent encodes raw file bytes the way the Contents API expects them.
func EncodeContent(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

// DecodeContent decodes API content, which may be split over several lines.
func DecodeContent(s string) ([]byte, error) {
	s = strings.NewReplacer("\n", "", "\r", "").Replace(s)
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return b, nil
}
