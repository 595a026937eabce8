// Package contentapi implements docstore.Store on top of a repository
// "contents" HTTP API (GitHub shape). The blob SHA returned by the API is the
// revision token; the API itself rejects writes that present a stale SHA.
package contentapi

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MrSnakeDoc/sitedir/internal/docstore"
	"github.com/MrSnakeDoc/sitedir/internal/logger"
	"github.com/MrSnakeDoc/sitedir/internal/utils"
)

// Config carries everything the client needs. Nothing is read from the environment here.
type Config struct {
	BaseURL        string // ex: https://api.github.com
	Owner          string
	Repo           string
	Branch         string
	Token          string
	PathPrefix     string // optional folder prefix inside the repository
	CommitterName  string
	CommitterEmail string
	Timeout        time.Duration
}

// HTTPDoer is satisfied by *http.Client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// APIError is returned for non-2xx answers that do not map to a docstore sentinel.
type APIError struct {
	Method  string
	Path    string
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("content api: %s %s: status %d: %s", e.Method, e.Path, e.Status, e.Message)
}

type Client struct {
	cfg    Config
	http   HTTPDoer
	logger logger.Logger
}

var _ docstore.Store = (*Client)(nil)

// New validates cfg and builds a client. httpClient may be nil.
func New(cfg Config, httpClient HTTPDoer, log logger.Logger) (*Client, error) {
	if cfg.Owner == "" || cfg.Repo == "" {
		return nil, errors.New("content api: owner and repo are required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.github.com"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Branch == "" {
		cfg.Branch = "main"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{cfg: cfg, http: httpClient, logger: log}, nil
}

type contentResponse struct {
	Type     string `json:"type"`
	Encoding string `json:"encoding"`
	Content  string `json:"content"`
	SHA      string `json:"sha"`
}

type committer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type putRequest struct {
	Message   string     `json:"message"`
	Content   string     `json:"content"`
	SHA       string     `json:"sha,omitempty"`
	Branch    string     `json:"branch,omitempty"`
	Committer *committer `json:"committer,omitempty"`
}

type putResponse struct {
	Content struct {
		SHA string `json:"sha"`
	} `json:"content"`
}

type deleteRequest struct {
	Message   string     `json:"message"`
	SHA       string     `json:"sha"`
	Branch    string     `json:"branch,omitempty"`
	Committer *committer `json:"committer,omitempty"`
}

type errorResponse struct {
	Message string `json:"message"`
}

func (c *Client) Read(ctx context.Context, path string) (docstore.Document, error) {
	path = docstore.CleanPath(path)
	endpoint := c.endpoint(path) + "?ref=" + url.QueryEscape(c.cfg.Branch)

	resp, err := c.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return docstore.Document{}, err
	}
	defer utils.Close(resp.Body)

	if resp.StatusCode == http.StatusNotFound {
		return docstore.Document{}, docstore.ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return docstore.Document{}, c.apiError(http.MethodGet, path, resp)
	}

	var body contentResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return docstore.Document{}, fmt.Errorf("content api: decode %s: %w", path, err)
	}
	if body.Type != "" && body.Type != "file" {
		return docstore.Document{}, fmt.Errorf("content api: %s is a %s, not a file", path, body.Type)
	}

	// Files above 1 MB come back without content; fetch the raw blob instead.
	if body.Encoding == "none" {
		content, err := c.readRaw(ctx, path)
		if err != nil {
			return docstore.Document{}, err
		}
		return docstore.Document{Path: path, Content: content, Revision: body.SHA}, nil
	}

	content, err := decodeContent(body)
	if err != nil {
		return docstore.Document{}, fmt.Errorf("content api: %s: %w", path, err)
	}

	return docstore.Document{Path: path, Content: content, Revision: body.SHA}, nil
}

func (c *Client) Write(ctx context.Context, path string, content []byte, expected *string) (string, error) {
	path = docstore.CleanPath(path)

	req := putRequest{
		Message:   commitMessage("update", path),
		Content:   base64.StdEncoding.EncodeToString(content),
		Branch:    c.cfg.Branch,
		Committer: c.committer(),
	}
	if expected != nil {
		req.SHA = *expected
	} else {
		req.Message = commitMessage("create", path)
	}

	resp, err := c.do(ctx, http.MethodPut, c.endpoint(path), req)
	if err != nil {
		return "", err
	}
	defer utils.Close(resp.Body)

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
	case http.StatusConflict:
		return "", docstore.ErrConflict
	case http.StatusUnprocessableEntity:
		// "sha wasn't supplied" on create, "does not match" on update.
		if expected == nil {
			return "", docstore.ErrAlreadyExists
		}
		return "", docstore.ErrConflict
	case http.StatusNotFound:
		if expected != nil {
			return "", docstore.ErrConflict
		}
		return "", c.apiError(http.MethodPut, path, resp)
	default:
		return "", c.apiError(http.MethodPut, path, resp)
	}

	var body putResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("content api: decode put %s: %w", path, err)
	}
	if body.Content.SHA == "" {
		return "", fmt.Errorf("content api: put %s: response carried no sha", path)
	}

	c.logger.Debug("document written",
		logger.String("path", path),
		logger.String("revision", body.Content.SHA))

	return body.Content.SHA, nil
}

func (c *Client) Delete(ctx context.Context, path string, expected string) error {
	path = docstore.CleanPath(path)

	req := deleteRequest{
		Message:   commitMessage("delete", path),
		SHA:       expected,
		Branch:    c.cfg.Branch,
		Committer: c.committer(),
	}

	resp, err := c.do(ctx, http.MethodDelete, c.endpoint(path), req)
	if err != nil {
		return err
	}
	defer utils.Close(resp.Body)

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent:
		return nil
	case http.StatusNotFound:
		return docstore.ErrNotFound
	case http.StatusConflict, http.StatusUnprocessableEntity:
		return docstore.ErrConflict
	default:
		return c.apiError(http.MethodDelete, path, resp)
	}
}

func (c *Client) readRaw(ctx context.Context, path string) ([]byte, error) {
	endpoint := c.endpoint(path) + "?ref=" + url.QueryEscape(c.cfg.Branch)
	resp, err := c.send(ctx, http.MethodGet, endpoint, nil, mediaRaw)
	if err != nil {
		return nil, err
	}
	defer utils.Close(resp.Body)

	if resp.StatusCode == http.StatusNotFound {
		return nil, docstore.ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, c.apiError(http.MethodGet, path, resp)
	}
	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("content api: read raw %s: %w", path, err)
	}
	return content, nil
}

func (c *Client) endpoint(path string) string {
	full := path
	if prefix := docstore.CleanPath(c.cfg.PathPrefix); prefix != "" {
		full = prefix + "/" + path
	}
	segments := strings.Split(full, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return fmt.Sprintf("%s/repos/%s/%s/contents/%s",
		c.cfg.BaseURL, url.PathEscape(c.cfg.Owner), url.PathEscape(c.cfg.Repo), strings.Join(segments, "/"))
}

func (c *Client) committer() *committer {
	if c.cfg.CommitterName == "" || c.cfg.CommitterEmail == "" {
		return nil
	}
	return &committer{Name: c.cfg.CommitterName, Email: c.cfg.CommitterEmail}
}

const (
	mediaJSON = "application/vnd.github+json"
	mediaRaw  = "application/vnd.github.raw+json"
)

func (c *Client) do(ctx context.Context, method, endpoint string, payload any) (*http.Response, error) {
	return c.send(ctx, method, endpoint, payload, mediaJSON)
}

func (c *Client) send(ctx context.Context, method, endpoint string, payload any, accept string) (*http.Response, error) {
	var body io.Reader = http.NoBody
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("content api: encode %s request: %w", method, err)
		}
		body = bytes.NewReader(buf)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("content api: new request: %w", err)
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("content api: %s %s: %w", method, endpoint, err)
	}
	resp.Body = &utils.CancelOnClose{ReadCloser: resp.Body, Cancel: cancel}
	return resp, nil
}

func (c *Client) apiError(method, path string, resp *http.Response) error {
	var body errorResponse
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(raw, &body); err != nil || body.Message == "" {
		body.Message = strings.TrimSpace(string(raw))
	}
	return &APIError{Method: method, Path: path, Status: resp.StatusCode, Message: body.Message}
}

func decodeContent(body contentResponse) ([]byte, error) {
	switch body.Encoding {
	case "base64", "":
		// The API wraps base64 at 60 columns.
		clean := strings.NewReplacer("\n", "", "\r", "").Replace(body.Content)
		out, err := base64.StdEncoding.DecodeString(clean)
		if err != nil {
			return nil, fmt.Errorf("decode base64: %w", err)
		}
		return out, nil
	case "utf-8", "utf8":
		return []byte(body.Content), nil
	default:
		return nil, fmt.Errorf("unsupported encoding %q", body.Encoding)
	}
}

func commitMessage(verb, path string) string {
	return fmt.Sprintf("sitedir: %s %s", verb, path)
}
