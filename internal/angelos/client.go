// Package angelos is the HTTP client for the Angelos RAG service, the remote
// search index mirroring local knowledge resources.
package angelos

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// apiKeyHeader carries the static shared secret on every request.
const apiKeyHeader = "x-api-key"

// SyncError reports a failed remote index call. StatusCode is zero for
// transport errors.
type SyncError struct {
	Endpoint   string
	StatusCode int
	Err        error
}

func (e *SyncError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("remote index call %s returned status %d", e.Endpoint, e.StatusCode)
	}
	return fmt.Sprintf("remote index call %s failed: %v", e.Endpoint, e.Err)
}

func (e *SyncError) Unwrap() error { return e.Err }

// Client is the remote index operations surface used by the sync services.
type Client interface {
	AddWebsite(ctx context.Context, req AddWebsiteRequest) error
	AddWebsiteBatch(ctx context.Context, reqs []AddWebsiteRequest) error
	UpdateWebsite(ctx context.Context, id string, req EditWebsiteRequest) error
	RefreshWebsite(ctx context.Context, id, content string) error
	DeleteWebsite(ctx context.Context, id string) error
	DeleteWebsiteBatch(ctx context.Context, ids []string) error

	AddDocument(ctx context.Context, req AddDocumentRequest) error
	EditDocument(ctx context.Context, id string, req EditDocumentRequest) error
	DeleteDocument(ctx context.Context, id string) error
	DeleteDocumentBatch(ctx context.Context, ids []string) error

	AddSampleQuestion(ctx context.Context, req AddSampleQuestionRequest) error
	AddSampleQuestionBatch(ctx context.Context, reqs []AddSampleQuestionRequest) error
	EditSampleQuestion(ctx context.Context, id string, req EditSampleQuestionRequest) error
	DeleteSampleQuestion(ctx context.Context, id string) error
	DeleteSampleQuestionBatch(ctx context.Context, ids []string) error
}

// HTTPClient implements Client against a live Angelos instance.
type HTTPClient struct {
	baseURL string
	secret  string
	client  *http.Client
	logger  *zap.Logger
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient returns a client for the Angelos service at baseURL,
// authenticating with the given shared secret.
func NewHTTPClient(baseURL, secret string, timeout time.Duration, logger *zap.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		secret:  secret,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// AddWebsite indexes a new website.
func (c *HTTPClient) AddWebsite(ctx context.Context, req AddWebsiteRequest) error {
	return c.send(ctx, http.MethodPost, "/knowledge/website/add", req)
}

// AddWebsiteBatch indexes multiple websites in one call.
func (c *HTTPClient) AddWebsiteBatch(ctx context.Context, reqs []AddWebsiteRequest) error {
	return c.send(ctx, http.MethodPost, "/knowledge/website/addBatch", reqs)
}

// UpdateWebsite updates a website's title and study programs.
func (c *HTTPClient) UpdateWebsite(ctx context.Context, id string, req EditWebsiteRequest) error {
	return c.send(ctx, http.MethodPost, "/knowledge/website/"+id+"/update", req)
}

// RefreshWebsite replaces a website's indexed content.
func (c *HTTPClient) RefreshWebsite(ctx context.Context, id, content string) error {
	return c.send(ctx, http.MethodPost, "/knowledge/website/"+id+"/refresh", refreshContentRequest{Content: content})
}

// DeleteWebsite removes a website from the index.
func (c *HTTPClient) DeleteWebsite(ctx context.Context, id string) error {
	return c.send(ctx, http.MethodDelete, "/knowledge/website/"+id+"/delete", nil)
}

// DeleteWebsiteBatch removes multiple websites. An empty id list is a no-op.
func (c *HTTPClient) DeleteWebsiteBatch(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return c.send(ctx, http.MethodDelete, "/knowledge/website/deleteBatch", ids)
}

// AddDocument indexes a new document.
func (c *HTTPClient) AddDocument(ctx context.Context, req AddDocumentRequest) error {
	return c.send(ctx, http.MethodPost, "/knowledge/document/add", req)
}

// EditDocument updates a document's metadata.
func (c *HTTPClient) EditDocument(ctx context.Context, id string, req EditDocumentRequest) error {
	return c.send(ctx, http.MethodPost, "/knowledge/document/"+id+"/edit", req)
}

// DeleteDocument removes a document from the index.
func (c *HTTPClient) DeleteDocument(ctx context.Context, id string) error {
	return c.send(ctx, http.MethodDelete, "/knowledge/document/"+id+"/delete", nil)
}

// DeleteDocumentBatch removes multiple documents. An empty id list is a no-op.
func (c *HTTPClient) DeleteDocumentBatch(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return c.send(ctx, http.MethodDelete, "/knowledge/document/deleteBatch", ids)
}

// AddSampleQuestion indexes a new sample question.
func (c *HTTPClient) AddSampleQuestion(ctx context.Context, req AddSampleQuestionRequest) error {
	return c.send(ctx, http.MethodPost, "/knowledge/sample-question/add", req)
}

// AddSampleQuestionBatch indexes multiple sample questions in one call.
func (c *HTTPClient) AddSampleQuestionBatch(ctx context.Context, reqs []AddSampleQuestionRequest) error {
	return c.send(ctx, http.MethodPost, "/knowledge/sample-question/addBatch", reqs)
}

// EditSampleQuestion updates a sample question.
func (c *HTTPClient) EditSampleQuestion(ctx context.Context, id string, req EditSampleQuestionRequest) error {
	return c.send(ctx, http.MethodPost, "/knowledge/sample-question/"+id+"/edit", req)
}

// DeleteSampleQuestion removes a sample question from the index.
func (c *HTTPClient) DeleteSampleQuestion(ctx context.Context, id string) error {
	return c.send(ctx, http.MethodDelete, "/knowledge/sample-question/"+id+"/delete", nil)
}

// DeleteSampleQuestionBatch removes multiple sample questions. An empty id
// list is a no-op.
func (c *HTTPClient) DeleteSampleQuestionBatch(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return c.send(ctx, http.MethodDelete, "/knowledge/sample-question/deleteBatch", ids)
}

// send issues one request and maps any non-2xx outcome to a SyncError.
func (c *HTTPClient) send(ctx context.Context, method, path string, body any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return &SyncError{Endpoint: path, Err: err}
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &SyncError{Endpoint: path, Err: err}
	}
	req.Header.Set(apiKeyHeader, c.secret)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return &SyncError{Endpoint: path, Err: err}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("remote index call failed",
			zap.String("endpoint", path),
			zap.Int("status", resp.StatusCode),
		)
		return &SyncError{Endpoint: path, StatusCode: resp.StatusCode}
	}
	return nil
}
