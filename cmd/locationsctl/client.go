package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	apierrors "github.com/pribylovaa/locations-gateway/internal/errors"
	"github.com/pribylovaa/locations-gateway/internal/models"
	"github.com/pribylovaa/locations-gateway/internal/tree"
)

// gatewayClient — REST-клиент locations-gateway.
type gatewayClient struct {
	baseURL string
	token   string
	http    *http.Client
}

func newGatewayClient(baseURL, token string, timeout time.Duration) *gatewayClient {
	return &gatewayClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *gatewayClient) Tree(ctx context.Context) (tree.View, error) {
	var v tree.View
	err := c.call(ctx, http.MethodGet, "/locations/tree", nil, "", &v)
	return v, err
}

func (c *gatewayClient) Expand(ctx context.Context, level models.Level, id int64) (tree.View, error) {
	var v tree.View
	err := c.call(ctx, http.MethodPost, fmt.Sprintf("/locations/%s/%d/expand", level, id), nil, "", &v)
	return v, err
}

func (c *gatewayClient) Search(ctx context.Context, query string) (models.SearchResult, error) {
	var res models.SearchResult
	err := c.call(ctx, http.MethodGet, "/locations/search?q="+url.QueryEscape(query), nil, "", &res)
	return res, err
}

func (c *gatewayClient) Import(ctx context.Context, level models.Level, parentID int64, filename string, data []byte) (models.BulkResult, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if parentID > 0 {
		if err := mw.WriteField("parent_id", strconv.FormatInt(parentID, 10)); err != nil {
			return models.BulkResult{}, err
		}
	}
	fw, err := mw.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return models.BulkResult{}, err
	}
	if _, err := fw.Write(data); err != nil {
		return models.BulkResult{}, err
	}
	if err := mw.Close(); err != nil {
		return models.BulkResult{}, err
	}

	var res models.BulkResult
	err = c.call(ctx, http.MethodPost, fmt.Sprintf("/locations/%s/bulk", level), &buf, mw.FormDataContentType(), &res)
	return res, err
}

// call выполняет запрос и декодирует JSON-ответ в out.
// Ответ об ошибке шлюза превращается в ошибку с его code и message.
func (c *gatewayClient) call(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode >= 300 {
		var e apierrors.ErrorResponse
		if json.Unmarshal(raw, &e) == nil && e.Error.Code != "" {
			return fmt.Errorf("%s %s: %s: %s", method, path, e.Error.Code, e.Error.Message)
		}
		return fmt.Errorf("%s %s: http status %d", method, path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}

	return json.Unmarshal(raw, out)
}
