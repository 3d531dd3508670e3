// upstream — REST-клиент marketplace API для иерархии локаций.
package upstream

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pribylovaa/locations-gateway/internal/metrics"
	"github.com/pribylovaa/locations-gateway/internal/models"
	"github.com/pribylovaa/locations-gateway/internal/upstream/transport"
)

// maxBody — предел читаемого тела ответа.
const maxBody = 8 << 20

// Options — параметры клиента.
type Options struct {
	BaseURL   string
	UserAgent string
	Device    transport.Device
	// Timeout — таймаут одного исходящего запроса (если у ctx нет дедлайна).
	Timeout time.Duration
	Logger  *slog.Logger
	Metrics *metrics.Metrics
	// Base — нижележащий транспорт; nil — http.DefaultTransport.
	Base http.RoundTripper
}

// Client — клиент marketplace API.
type Client struct {
	base *url.URL
	http *http.Client
}

// New собирает клиент с цепочкой транспорта: metadata -> logging -> metrics -> timeout.
func New(opts Options) (*Client, error) {
	const op = "upstream/New"

	raw := strings.TrimSpace(opts.BaseURL)
	if raw == "" {
		return nil, fmt.Errorf("%s: empty base url", op)
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	base, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: parse base url: %w", op, err)
	}
	if base.Host == "" {
		return nil, fmt.Errorf("%s: base url without host: %q", op, opts.BaseURL)
	}

	mws := []transport.Middleware{
		transport.WithMetadata(opts.UserAgent, opts.Device),
		transport.WithLogging(opts.Logger),
	}
	if opts.Metrics != nil {
		mws = append(mws, transport.WithMetrics(opts.Metrics.UpstreamRequests, opts.Metrics.UpstreamDuration))
	}
	mws = append(mws, transport.WithTimeout(opts.Timeout))

	return &Client{
		base: base,
		http: &http.Client{Transport: transport.Chain(opts.Base, mws...)},
	}, nil
}

// Children — страница детей уровня level под parentID (0 для стран).
func (c *Client) Children(ctx context.Context, level models.Level, parentID int64, page, size int) (*models.Page, error) {
	const op = "upstream/Children"

	ep, err := endpointsFor(level)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("size", strconv.Itoa(size))
	if parentID > 0 && ep.parentParam != "" {
		q.Set(ep.parentParam, strconv.FormatInt(parentID, 10))
	}

	body, err := c.do(ctx, http.MethodGet, ep.list, q, nil, "")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	res, err := Normalize(level, body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	for i := range res.Items {
		res.Items[i].ParentID = parentID
	}

	return res, nil
}

// Search — поиск по одному уровню.
func (c *Client) Search(ctx context.Context, level models.Level, query string, page, size int) ([]models.Location, error) {
	const op = "upstream/Search"

	ep, err := endpointsFor(level)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	q := url.Values{}
	q.Set("query", query)
	q.Set("page", strconv.Itoa(page))
	q.Set("size", strconv.Itoa(size))

	body, err := c.do(ctx, http.MethodGet, ep.search, q, nil, "")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	res, err := Normalize(level, body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return res.Items, nil
}

// Create — add<Level>. flag передаётся только для стран.
func (c *Client) Create(ctx context.Context, level models.Level, parentID int64, name, flag string) (models.Location, error) {
	const op = "upstream/Create"

	ep, err := endpointsFor(level)
	if err != nil {
		return models.Location{}, fmt.Errorf("%s: %w", op, err)
	}

	q := url.Values{}
	q.Set("name", name)
	if flag != "" && level == models.LevelCountries {
		q.Set("flag", flag)
	}
	if ep.parentParam != "" {
		q.Set(ep.parentParam, strconv.FormatInt(parentID, 10))
	}

	body, err := c.do(ctx, http.MethodPost, ep.add, q, nil, "")
	if err != nil {
		return models.Location{}, fmt.Errorf("%s: %w", op, err)
	}

	loc, ok := decodeLocation(level, body)
	if !ok {
		loc = models.Location{Name: name, Flag: flag, Level: level}
	}
	loc.ParentID = parentID

	return loc, nil
}

// Rename — update<Level>/{id}?name=.
func (c *Client) Rename(ctx context.Context, level models.Level, id int64, name string) (models.Location, error) {
	const op = "upstream/Rename"

	ep, err := endpointsFor(level)
	if err != nil {
		return models.Location{}, fmt.Errorf("%s: %w", op, err)
	}

	q := url.Values{}
	q.Set("name", name)

	body, err := c.do(ctx, http.MethodPut, ep.update+"/"+strconv.FormatInt(id, 10), q, nil, "")
	if err != nil {
		return models.Location{}, fmt.Errorf("%s: %w", op, err)
	}

	loc, ok := decodeLocation(level, body)
	if !ok {
		loc = models.Location{ID: id, Name: name, Level: level}
	}

	return loc, nil
}

// Delete — delete<Level>/{id}.
func (c *Client) Delete(ctx context.Context, level models.Level, id int64) error {
	const op = "upstream/Delete"

	ep, err := endpointsFor(level)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if _, err := c.do(ctx, http.MethodDelete, ep.remove+"/"+strconv.FormatInt(id, 10), nil, nil, ""); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// BulkCreate — addBulk<Level>: JSON-файл multipart-полем "file".
func (c *Client) BulkCreate(ctx context.Context, level models.Level, parentID int64, filename string, data []byte) (models.BulkResult, error) {
	const op = "upstream/BulkCreate"

	ep, err := endpointsFor(level)
	if err != nil {
		return models.BulkResult{}, fmt.Errorf("%s: %w", op, err)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return models.BulkResult{}, fmt.Errorf("%s: form file: %w", op, err)
	}
	if _, err := part.Write(data); err != nil {
		return models.BulkResult{}, fmt.Errorf("%s: form write: %w", op, err)
	}
	if err := mw.Close(); err != nil {
		return models.BulkResult{}, fmt.Errorf("%s: form close: %w", op, err)
	}

	q := url.Values{}
	if parentID > 0 && ep.parentParam != "" {
		q.Set(ep.parentParam, strconv.FormatInt(parentID, 10))
	}

	body, err := c.do(ctx, http.MethodPost, ep.bulk, q, &buf, mw.FormDataContentType())
	if err != nil {
		return models.BulkResult{}, fmt.Errorf("%s: %w", op, err)
	}

	return models.BulkResult{
		Level:    level,
		ParentID: parentID,
		Filename: filename,
		Imported: countImported(level, body),
	}, nil
}

func (c *Client) do(ctx context.Context, method, path string, q url.Values, body io.Reader, contentType string) ([]byte, error) {
	u := c.base.JoinPath(path)
	if len(q) > 0 {
		u.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Status: resp.StatusCode, Message: errorMessage(data)}
	}

	return data, nil
}

// IsStatus сообщает, вернул ли апстрим данный HTTP-статус.
func IsStatus(err error, status int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Status == status
}
