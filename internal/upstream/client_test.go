package upstream

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pribylovaa/locations-gateway/internal/metrics"
	"github.com/pribylovaa/locations-gateway/internal/models"
	"github.com/pribylovaa/locations-gateway/internal/upstream/transport"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

// recorder — httptest-апстрим, запоминающий последний запрос.
type recorder struct {
	mu     sync.Mutex
	method string
	path   string
	query  map[string]string
	header http.Header
	body   []byte
	ctype  string

	status int
	reply  string
}

func (rec *recorder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rec.mu.Lock()
	rec.method = r.Method
	rec.path = r.URL.Path
	rec.query = make(map[string]string)
	for k := range r.URL.Query() {
		rec.query[k] = r.URL.Query().Get(k)
	}
	rec.header = r.Header.Clone()
	rec.ctype = r.Header.Get("Content-Type")
	rec.body, _ = io.ReadAll(r.Body)
	status, reply := rec.status, rec.reply
	rec.mu.Unlock()

	if status == 0 {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, reply)
}

func newClient(t *testing.T, rec *recorder) *Client {
	t.Helper()

	srv := httptest.NewServer(rec)
	t.Cleanup(srv.Close)

	c, err := New(Options{
		BaseURL:   srv.URL,
		UserAgent: "locations-gateway",
		Device:    transport.Device{ID: "dev-1", Type: "Desktop", Model: "Server"},
		Timeout:   time.Second,
	})
	require.NoError(t, err)
	return c
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	_, err := New(Options{})
	require.Error(t, err)

	_, err = New(Options{BaseURL: "http://"})
	require.Error(t, err)

	c, err := New(Options{BaseURL: "marketplace.local:8080"})
	require.NoError(t, err)
	require.Equal(t, "http", c.base.Scheme)
}

func TestChildren_RequestShape(t *testing.T) {
	t.Parallel()

	rec := &recorder{reply: `{"districts":[{"id":3,"name":"Kampala"},{"id":"4","title":"Wakiso"}]}`}
	c := newClient(t, rec)

	ctx := transport.WithRequestContext(context.Background(), "rid-1", "tok-1", "admin")
	page, err := c.Children(ctx, models.LevelDistricts, 1, 2, 10)
	require.NoError(t, err)

	require.Equal(t, http.MethodGet, rec.method)
	require.Equal(t, "/api/v1/getDistricts", rec.path)
	require.Equal(t, map[string]string{"page": "2", "size": "10", "country": "1"}, rec.query)
	require.Equal(t, "Bearer tok-1", rec.header.Get("Authorization"))
	require.Equal(t, "rid-1", rec.header.Get("X-Request-Id"))
	require.Equal(t, "dev-1", rec.header.Get("X-Device-ID"))
	require.Equal(t, "locations-gateway", rec.header.Get("User-Agent"))

	require.Equal(t, []models.Location{
		{ID: 3, Name: "Kampala", Level: models.LevelDistricts, ParentID: 1},
		{ID: 4, Name: "Wakiso", Level: models.LevelDistricts, ParentID: 1},
	}, page.Items)
	require.Nil(t, page.HasMore)
}

func TestChildren_CountriesWithoutParent(t *testing.T) {
	t.Parallel()

	rec := &recorder{reply: `[{"id":1,"name":"Uganda","flag":"🇺🇬"}]`}
	c := newClient(t, rec)

	page, err := c.Children(context.Background(), models.LevelCountries, 0, 0, 10)
	require.NoError(t, err)

	require.Equal(t, "/api/v1/getCountries", rec.path)
	require.Equal(t, map[string]string{"page": "0", "size": "10"}, rec.query)
	require.Len(t, page.Items, 1)
	require.Equal(t, "🇺🇬 Uganda", page.Items[0].Title())
}

func TestChildren_StatusErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		want   error
	}{
		{name: "401", status: http.StatusUnauthorized, want: ErrUnauthenticated},
		{name: "403", status: http.StatusForbidden, want: ErrForbidden},
		{name: "404", status: http.StatusNotFound, want: ErrNotFound},
		{name: "400", status: http.StatusBadRequest, want: ErrInvalidArgument},
		{name: "422", status: http.StatusUnprocessableEntity, want: ErrInvalidArgument},
		{name: "409", status: http.StatusConflict, want: ErrConflict},
		{name: "502", status: http.StatusBadGateway, want: ErrUnavailable},
		{name: "418", status: http.StatusTeapot, want: ErrBadResponse},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			rec := &recorder{status: tc.status, reply: `{"message":"nope"}`}
			c := newClient(t, rec)

			_, err := c.Children(context.Background(), models.LevelCounties, 7, 0, 10)
			require.ErrorIs(t, err, tc.want)
			require.True(t, IsStatus(err, tc.status))
			require.Contains(t, err.Error(), "nope")
		})
	}
}

func TestChildren_NetworkError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := New(Options{BaseURL: url, Timeout: time.Second})
	require.NoError(t, err)

	_, err = c.Children(context.Background(), models.LevelCountries, 0, 0, 10)
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestChildren_InvalidJSON(t *testing.T) {
	t.Parallel()

	c := newClient(t, &recorder{reply: `{"items":[`})

	_, err := c.Children(context.Background(), models.LevelCountries, 0, 0, 10)
	require.ErrorIs(t, err, ErrBadResponse)
}

func TestSearch_RequestShape(t *testing.T) {
	t.Parallel()

	rec := &recorder{reply: `{"content":[{"id":11,"name":"Nakawa"}],"last":true}`}
	c := newClient(t, rec)

	items, err := c.Search(context.Background(), models.LevelVillages, "naka wa", 0, 10)
	require.NoError(t, err)

	require.Equal(t, "/api/v1/searchVillages", rec.path)
	require.Equal(t, map[string]string{"query": "naka wa", "page": "0", "size": "10"}, rec.query)
	require.Equal(t, []models.Location{{ID: 11, Name: "Nakawa", Level: models.LevelVillages}}, items)
}

func TestCreate_RequestShape(t *testing.T) {
	t.Parallel()

	rec := &recorder{reply: `{"id":42,"name":"Gulu"}`}
	c := newClient(t, rec)

	loc, err := c.Create(context.Background(), models.LevelDistricts, 1, "Gulu", "ignored")
	require.NoError(t, err)

	require.Equal(t, http.MethodPost, rec.method)
	require.Equal(t, "/api/v1/addDistrict", rec.path)
	require.Equal(t, map[string]string{"name": "Gulu", "country": "1"}, rec.query)
	require.Equal(t, models.Location{ID: 42, Name: "Gulu", Level: models.LevelDistricts, ParentID: 1}, loc)
}

func TestCreate_CountryWithFlag_EmptyReply(t *testing.T) {
	t.Parallel()

	rec := &recorder{reply: ``}
	c := newClient(t, rec)

	loc, err := c.Create(context.Background(), models.LevelCountries, 0, "Kenya", "🇰🇪")
	require.NoError(t, err)

	require.Equal(t, "/api/v1/addCountry", rec.path)
	require.Equal(t, map[string]string{"name": "Kenya", "flag": "🇰🇪"}, rec.query)
	require.Equal(t, "Kenya", loc.Name)
	require.Equal(t, models.LevelCountries, loc.Level)
}

func TestRename_RequestShape(t *testing.T) {
	t.Parallel()

	rec := &recorder{reply: `{"data":{"id":5,"name":"Mengo"}}`}
	c := newClient(t, rec)

	loc, err := c.Rename(context.Background(), models.LevelParishes, 5, "Mengo")
	require.NoError(t, err)

	require.Equal(t, http.MethodPut, rec.method)
	require.Equal(t, "/api/v1/updateParish/5", rec.path)
	require.Equal(t, map[string]string{"name": "Mengo"}, rec.query)
	require.Equal(t, int64(5), loc.ID)
}

func TestDelete_RequestShape(t *testing.T) {
	t.Parallel()

	rec := &recorder{reply: `{"message":"deleted"}`}
	c := newClient(t, rec)

	require.NoError(t, c.Delete(context.Background(), models.LevelSubcounties, 9))
	require.Equal(t, http.MethodDelete, rec.method)
	require.Equal(t, "/api/v1/deleteSubcounty/9", rec.path)
}

func TestBulkCreate_Multipart(t *testing.T) {
	t.Parallel()

	rec := &recorder{reply: `[{"id":1,"name":"a"},{"id":2,"name":"b"}]`}
	c := newClient(t, rec)

	data := []byte(`[{"name":"a"},{"name":"b"}]`)
	res, err := c.BulkCreate(context.Background(), models.LevelCounties, 3, "counties.json", data)
	require.NoError(t, err)

	require.Equal(t, "/api/v1/addBulkCounties", rec.path)
	require.Equal(t, map[string]string{"district": "3"}, rec.query)
	require.True(t, strings.HasPrefix(rec.ctype, "multipart/form-data"))
	require.Contains(t, string(rec.body), `filename="counties.json"`)
	require.Contains(t, string(rec.body), string(data))

	require.Equal(t, models.BulkResult{
		Level:    models.LevelCounties,
		ParentID: 3,
		Filename: "counties.json",
		Imported: 2,
	}, res)
}

func TestBulkCreate_CountReply(t *testing.T) {
	t.Parallel()

	c := newClient(t, &recorder{reply: `{"count":17}`})

	res, err := c.BulkCreate(context.Background(), models.LevelCountries, 0, "c.json", []byte(`[]`))
	require.NoError(t, err)
	require.Equal(t, 17, res.Imported)
}

func TestClient_Metrics(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(&recorder{reply: `[]`})
	defer srv.Close()

	m := metrics.New(prometheus.NewRegistry())
	c, err := New(Options{BaseURL: srv.URL, Metrics: m})
	require.NoError(t, err)

	_, err = c.Children(context.Background(), models.LevelCountries, 0, 0, 10)
	require.NoError(t, err)
	require.Equal(t, 1.0, testutil.ToFloat64(m.UpstreamRequests.WithLabelValues("200", "get")))
}

func TestEndpoints_AllLevels(t *testing.T) {
	t.Parallel()

	want := map[models.Level][2]string{
		models.LevelCountries:   {"/api/v1/getCountries", ""},
		models.LevelDistricts:   {"/api/v1/getDistricts", "country"},
		models.LevelCounties:    {"/api/v1/getCounties", "district"},
		models.LevelSubcounties: {"/api/v1/getSubcounties", "county"},
		models.LevelParishes:    {"/api/v1/getParishes", "subcounty"},
		models.LevelVillages:    {"/api/v1/getVillages", "parish"},
	}

	for _, l := range models.Levels() {
		ep, err := endpointsFor(l)
		require.NoError(t, err)
		require.Equal(t, want[l][0], ep.list)
		require.Equal(t, want[l][1], ep.parentParam)
	}

	_, err := endpointsFor(models.Level(0))
	require.ErrorIs(t, err, models.ErrUnknownLevel)
}

func TestStatusError_Message(t *testing.T) {
	t.Parallel()

	require.Equal(t, "upstream: http status 500", (&StatusError{Status: 500}).Error())

	b, _ := json.Marshal(map[string]string{"error": "bad"})
	require.Equal(t, "bad", errorMessage(b))
	require.Empty(t, errorMessage([]byte("oops")))
}
