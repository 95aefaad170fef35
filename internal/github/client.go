// Package github is a thin client for the repository contents and Actions
// endpoints used to push a project and collect its build artifact.
package github

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-git/go-git/v5/plumbing"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"oneclick/internal/models"
)

const (
	DefaultBaseURL = "https://api.github.com"

	apiVersion   = "2022-11-28"
	mediaType    = "application/vnd.github+json"
	maxErrorBody = 64 << 10

	// DefaultMaxArtifactBytes caps artifact downloads.
	DefaultMaxArtifactBytes int64 = 512 << 20
)

// Client issues authenticated calls against the GitHub REST API. It holds no
// per-repository state; every call takes the credential to use.
type Client struct {
	baseURL          string
	http             *http.Client
	userAgent        string
	branch           string
	maxArtifactBytes int64
	commitMessage    func(path string) string
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua = strings.TrimSpace(ua); ua != "" {
			c.userAgent = ua
		}
	}
}

// WithBranch commits to the given branch instead of the repository default.
func WithBranch(branch string) Option {
	return func(c *Client) {
		c.branch = strings.TrimSpace(branch)
	}
}

func WithMaxArtifactBytes(n int64) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxArtifactBytes = n
		}
	}
}

func WithCommitMessage(fn func(path string) string) Option {
	return func(c *Client) {
		if fn != nil {
			c.commitMessage = fn
		}
	}
}

func NewClient(baseURL string, opts ...Option) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:          baseURL,
		http:             &http.Client{Timeout: 60 * time.Second},
		userAgent:        "oneclick-studio",
		maxArtifactBytes: DefaultMaxArtifactBytes,
		commitMessage: func(path string) string {
			return fmt.Sprintf("Update %s via OneClick Studio", path)
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BlobSHA returns the git blob id GitHub reports as a file's sha.
func BlobSHA(content string) string {
	return plumbing.ComputeHash(plumbing.BlobObject, []byte(content)).String()
}

// CheckRepository reports whether the repository is reachable with the
// credential. A non-2xx answer yields false together with the status error
// so callers can show the provider's reason.
func (c *Client) CheckRepository(ctx context.Context, cred models.RepoCredential) (bool, error) {
	err := c.do(ctx, "check repository", cred, http.MethodGet, c.repoURL(cred), nil, nil)
	if err != nil {
		return false, err
	}
	return true, nil
}

// GetFile reads and decodes a file from the default branch.
func (c *Client) GetFile(ctx context.Context, cred models.RepoCredential, path string) (*FileContent, error) {
	out, err := c.stat(ctx, cred, path)
	if err != nil {
		return nil, err
	}
	content, err := decodeContent(out.Content, out.Encoding)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return &FileContent{Path: path, SHA: out.SHA, Content: content}, nil
}

// stat reads a file's contents entry without decoding it. Files above 1 MB
// come back with encoding "none" and no content but still carry their sha.
func (c *Client) stat(ctx context.Context, cred models.RepoCredential, path string) (*contentResponse, error) {
	var out contentResponse
	endpoint := c.contentsURL(cred, path)
	if c.branch != "" {
		endpoint += "?ref=" + url.QueryEscape(c.branch)
	}
	if err := c.do(ctx, "get "+path, cred, http.MethodGet, endpoint, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpsertFile creates or replaces path with content. The current sha is read
// first because the API rejects updates that omit it.
func (c *Client) UpsertFile(ctx context.Context, cred models.RepoCredential, path, content string) (*UpsertResult, error) {
	path = strings.TrimLeft(strings.TrimSpace(path), "/")
	if path == "" {
		return nil, errors.New("path is required")
	}

	var sha string
	existing, err := c.stat(ctx, cred, path)
	switch {
	case err == nil:
		sha = existing.SHA
		if existing.Encoding != "none" && sha == BlobSHA(content) {
			return &UpsertResult{Path: path, ContentSHA: sha, Skipped: true}, nil
		}
	case errors.Is(err, ErrNotFound):
	default:
		return nil, err
	}

	req := putContentRequest{
		Message: c.commitMessage(path),
		Content: base64.StdEncoding.EncodeToString([]byte(content)),
		SHA:     sha,
		Branch:  c.branch,
	}
	var out putContentResponse
	if err := c.do(ctx, "put "+path, cred, http.MethodPut, c.contentsURL(cred, path), req, &out); err != nil {
		return nil, err
	}
	return &UpsertResult{Path: path, ContentSHA: out.Content.SHA, CommitSHA: out.Commit.SHA}, nil
}

// LatestRun returns the newest workflow run, or nil when there is none.
func (c *Client) LatestRun(ctx context.Context, cred models.RepoCredential, filter RunFilter) (*WorkflowRun, error) {
	q := url.Values{}
	q.Set("per_page", "1")
	if filter.HeadSHA != "" {
		q.Set("head_sha", filter.HeadSHA)
	}
	if filter.Branch != "" {
		q.Set("branch", filter.Branch)
	}
	var out runsResponse
	if err := c.do(ctx, "list runs", cred, http.MethodGet, c.repoURL(cred)+"/actions/runs?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	if len(out.WorkflowRuns) == 0 {
		return nil, nil
	}
	run := out.WorkflowRuns[0]
	return &run, nil
}

// ListArtifacts returns the artifacts uploaded by run.
func (c *Client) ListArtifacts(ctx context.Context, cred models.RepoCredential, run *WorkflowRun) ([]Artifact, error) {
	if run == nil {
		return nil, errors.New("run is required")
	}
	endpoint := run.ArtifactsURL
	if endpoint == "" {
		endpoint = c.repoURL(cred) + "/actions/runs/" + strconv.FormatInt(run.ID, 10) + "/artifacts"
	}
	var out artifactsResponse
	if err := c.do(ctx, "list artifacts", cred, http.MethodGet, endpoint, nil, &out); err != nil {
		return nil, err
	}
	return out.Artifacts, nil
}

// FetchArtifactBytes downloads an artifact archive. Redirects to blob
// storage are followed; net/http drops the Authorization header when the
// host changes.
func (c *Client) FetchArtifactBytes(ctx context.Context, cred models.RepoCredential, downloadURL string) ([]byte, error) {
	const op = "download artifact"
	resp, err := c.send(ctx, op, cred, http.MethodGet, downloadURL, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxArtifactBytes+1))
	if err != nil {
		return nil, networkError(op, err)
	}
	if int64(len(data)) > c.maxArtifactBytes {
		return nil, fmt.Errorf("%s: archive exceeds %d bytes", op, c.maxArtifactBytes)
	}
	return data, nil
}

func (c *Client) do(ctx context.Context, op string, cred models.RepoCredential, method, endpoint string, body, out any) error {
	resp, err := c.send(ctx, op, cred, method, endpoint, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

// send performs the request and converts non-2xx answers into *APIError.
// On success the caller owns the response body.
func (c *Client) send(ctx context.Context, op string, cred models.RepoCredential, method, endpoint string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("%s: encode request: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(cred.Token))
	req.Header.Set("Accept", mediaType)
	req.Header.Set("X-GitHub-Api-Version", apiVersion)
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, networkError(op, err)
	}
	log.Debug().
		Str("op", op).
		Str("method", method).
		Int("status", resp.StatusCode).
		Dur("took", time.Since(start)).
		Msg("github request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, statusError(op, resp, readErrorMessage(resp.Body))
	}
	return resp, nil
}

func (c *Client) repoURL(cred models.RepoCredential) string {
	t := cred.Trimmed()
	return c.baseURL + "/repos/" + url.PathEscape(t.Owner) + "/" + url.PathEscape(t.Repo)
}

func (c *Client) contentsURL(cred models.RepoCredential, path string) string {
	segments := strings.Split(strings.TrimLeft(path, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return c.repoURL(cred) + "/contents/" + strings.Join(segments, "/")
}

func readErrorMessage(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, maxErrorBody))
	if err != nil || len(data) == 0 {
		return ""
	}
	var payload errorResponse
	if err := json.Unmarshal(data, &payload); err != nil {
		return ""
	}
	return strings.TrimSpace(payload.Message)
}

// decodeContent undoes the contents API encoding. GitHub wraps base64 at 60
// columns, so line breaks are stripped before decoding.
func decodeContent(content, encoding string) (string, error) {
	switch encoding {
	case "", "base64":
		cleaned := strings.NewReplacer("\n", "", "\r", "").Replace(content)
		raw, err := base64.StdEncoding.DecodeString(cleaned)
		if err != nil {
			return "", err
		}
		return string(raw), nil
	case "none":
		return "", ErrTooLarge
	default:
		return content, nil
	}
}
