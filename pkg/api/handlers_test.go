package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/ssargent/qsolog/pkg/adif"
	"github.com/ssargent/qsolog/pkg/qso"
	"github.com/ssargent/qsolog/pkg/query"
	"github.com/ssargent/qsolog/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const testAPIKey = "test-key"

const adifHeader = "Generated-By: QSO Log\r\nADIF_VER: 3.1.4\r\nPROGRAMID: QSO Log\r\nPROGRAMVERSION: 1.0\r\n<EOH>\r\n"

const k1abcADIF = adifHeader +
	"<CALL:5>K1ABC<QSO_DATE:8>20240115<TIME_ON:4>1430<BAND:3>20m<MODE:3>SSB<eor>\r\n"

var testNow = time.Date(2024, 1, 20, 12, 0, 30, 0, time.UTC)

type testServer struct {
	*Server
	logbook *storage.MemoryStorage
	handler http.Handler
}

func newTestServer(t *testing.T, config ServerConfig) *testServer {
	t.Helper()
	lb := storage.NewMemoryStorage()
	require.NoError(t, lb.EnsureDefaultStations(context.Background()))
	t.Cleanup(func() { _ = lb.Close() })

	if config.APIKey == "" {
		config.APIKey = testAPIKey
	}
	s := NewServer(lb, config, Options{
		Logger:   zaptest.NewLogger(t),
		Registry: prometheus.NewRegistry(),
		Now:      func() time.Time { return testNow },
	})
	return &testServer{Server: s, logbook: lb, handler: s.Routes()}
}

func (ts *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("X-API-Key", testAPIKey)
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)
	return w
}

func (ts *testServer) seed(t *testing.T, contacts ...qso.Contact) []qso.Contact {
	t.Helper()
	for i := range contacts {
		require.NoError(t, ts.logbook.Create(context.Background(), &contacts[i]))
	}
	return contacts
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

// decode unmarshals the response envelope and, when v is non-nil, its data.
func decode(t *testing.T, w *httptest.ResponseRecorder, v any) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	if v != nil {
		require.NoError(t, json.Unmarshal(env.Data, v))
	}
	return env
}

func contactAt(call, band, mode string, ts time.Time) qso.Contact {
	return qso.Contact{Callsign: call, Band: band, Mode: mode, Timestamp: qso.Some(ts)}
}

func TestServer_handleHealth(t *testing.T) {
	ts := newTestServer(t, ServerConfig{})

	w := ts.do(t, http.MethodGet, "/api/v1/health", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	env := decode(t, w, &body)
	assert.True(t, env.Success)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, float64(0), body["contacts"])
}

func TestServer_handleHealth_ClosedLogbook(t *testing.T) {
	ts := newTestServer(t, ServerConfig{})
	require.NoError(t, ts.logbook.Close())

	w := ts.do(t, http.MethodGet, "/api/v1/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestServer_handleCatalog(t *testing.T) {
	ts := newTestServer(t, ServerConfig{})

	var cat CatalogResponse
	decode(t, ts.do(t, http.MethodGet, "/api/v1/catalog", ""), &cat)
	assert.NotEmpty(t, cat.Bands)
	assert.NotEmpty(t, cat.Modes)
	assert.NotEmpty(t, cat.QSLMethods)
}

func TestServer_CreateContact(t *testing.T) {
	ts := newTestServer(t, ServerConfig{})
	home, err := storage.DefaultStation(context.Background(), ts.logbook)
	require.NoError(t, err)

	w := ts.do(t, http.MethodPost, "/api/v1/contacts",
		`{"callsign":"k1abc","band":"20m","mode":"SSB","rst_sent":"59","frequency_mhz":14.2}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var c qso.Contact
	decode(t, w, &c)
	assert.NotEmpty(t, c.ID)
	assert.Equal(t, "K1ABC", c.Callsign)
	assert.Equal(t, home.ID, c.StationID)
	assert.Equal(t, qso.Some(time.Date(2024, 1, 20, 12, 0, 0, 0, time.UTC)), c.Timestamp)
	assert.Equal(t, qso.Some(14.2), c.FrequencyMHz)

	stored, err := ts.logbook.Get(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, "K1ABC", stored.Callsign)
}

func TestServer_CreateContact_Rejected(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantError string
	}{
		{"malformed json", `{"callsign":`, "Invalid JSON request"},
		{"unknown field", `{"callsign":"K1ABC","band":"20m","mode":"SSB","color":"red"}`, "Invalid JSON request"},
		{"missing callsign", `{"band":"20m","mode":"SSB"}`, "Callsign is required"},
		{"unknown band", `{"callsign":"K1ABC","band":"21m","mode":"SSB"}`, "Band is not a valid band: 21m"},
		{"bad rst", `{"callsign":"K1ABC","band":"20m","mode":"SSB","rst_sent":"09"}`, "RSTSent"},
		{"unknown station", `{"callsign":"K1ABC","band":"20m","mode":"SSB","station_id":"nope"}`, "Not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, ServerConfig{})
			w := ts.do(t, http.MethodPost, "/api/v1/contacts", tt.body)

			env := decode(t, w, nil)
			assert.False(t, env.Success)
			assert.Contains(t, env.Error, tt.wantError)
			if tt.wantError == "Not found" {
				assert.Equal(t, http.StatusNotFound, w.Code)
			} else {
				assert.Equal(t, http.StatusBadRequest, w.Code)
			}

			n, err := ts.logbook.Count(context.Background())
			require.NoError(t, err)
			assert.Zero(t, n)
		})
	}
}

func TestServer_ContactLifecycle(t *testing.T) {
	ts := newTestServer(t, ServerConfig{})
	seeded := ts.seed(t, contactAt("K1ABC", "20m", "SSB", testNow.Add(-time.Hour)))
	id := seeded[0].ID

	var got qso.Contact
	decode(t, ts.do(t, http.MethodGet, "/api/v1/contacts/"+id, ""), &got)
	assert.Equal(t, "K1ABC", got.Callsign)

	w := ts.do(t, http.MethodPut, "/api/v1/contacts/"+id,
		`{"callsign":"K1ABC","band":"40m","mode":"CW","notes":"worked again"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &got)
	assert.Equal(t, "40m", got.Band)
	assert.Equal(t, "worked again", got.Notes)
	// The stored timestamp survives an update that omits it.
	assert.Equal(t, seeded[0].Timestamp, got.Timestamp)

	w = ts.do(t, http.MethodDelete, "/api/v1/contacts/"+id, "")
	require.Equal(t, http.StatusOK, w.Code)

	for _, method := range []string{http.MethodGet, http.MethodDelete} {
		w = ts.do(t, method, "/api/v1/contacts/"+id, "")
		assert.Equal(t, http.StatusNotFound, w.Code, method)
	}
	w = ts.do(t, http.MethodPut, "/api/v1/contacts/"+id, `{"callsign":"K1ABC","band":"20m","mode":"SSB"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_ListContacts(t *testing.T) {
	ts := newTestServer(t, ServerConfig{})
	ts.seed(t,
		contactAt("K1ABC", "20m", "SSB", testNow.Add(-time.Hour)),
		contactAt("W1AW", "40m", "CW", testNow.Add(-48*time.Hour)),
		contactAt("VE3XYZ", "20m", "FT8", testNow.AddDate(0, -2, 0)),
		qso.Contact{Callsign: "NOTIME", Band: "20m", Mode: "SSB"},
	)

	tests := []struct {
		query string
		want  []string
	}{
		{"", []string{"K1ABC", "W1AW", "VE3XYZ"}},
		{"?band=20m", []string{"K1ABC", "VE3XYZ"}},
		{"?mode=CW", []string{"W1AW"}},
		{"?search=ve3", []string{"VE3XYZ"}},
		{"?range=today", []string{"K1ABC"}},
		{"?range=week", []string{"K1ABC", "W1AW"}},
		{"?band=20m&range=month", []string{"K1ABC"}},
		{"?qsl=sent", nil},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			var list ContactList
			w := ts.do(t, http.MethodGet, "/api/v1/contacts"+tt.query, "")
			require.Equal(t, http.StatusOK, w.Code)
			decode(t, w, &list)

			var calls []string
			for _, c := range list.Contacts {
				calls = append(calls, c.Callsign)
			}
			assert.Equal(t, tt.want, calls)
			assert.Equal(t, 4, list.Total)
		})
	}
}

func TestServer_ListContacts_BadFilter(t *testing.T) {
	ts := newTestServer(t, ServerConfig{})

	for _, q := range []string{"?range=decade", "?qsl=maybe"} {
		w := ts.do(t, http.MethodGet, "/api/v1/contacts"+q, "")
		assert.Equal(t, http.StatusBadRequest, w.Code, q)
	}
}

func TestServer_Import(t *testing.T) {
	ts := newTestServer(t, ServerConfig{})

	var res ImportResponse
	w := ts.do(t, http.MethodPost, "/api/v1/import", k1abcADIF)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &res)
	assert.Equal(t, 1, res.ImportedCount)
	assert.False(t, res.Preview)
	assert.Equal(t, "Successfully imported 1 QSO(s)", res.Summary)

	w = ts.do(t, http.MethodPost, "/api/v1/import", k1abcADIF)
	require.Equal(t, http.StatusOK, w.Code)
	res = ImportResponse{}
	decode(t, w, &res)
	assert.Zero(t, res.ImportedCount)
	assert.Equal(t, 1, res.DuplicateCount)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, adif.DuplicateFound, res.Warnings[0].Kind)

	n, err := ts.logbook.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestServer_ImportPreview(t *testing.T) {
	ts := newTestServer(t, ServerConfig{})
	doc := k1abcADIF +
		"<CALL:4>W1AW<QSO_DATE:8>20240115<TIME_ON:4>1500<BAND:3>40m<MODE:2>CW<eor>\r\n"

	var res ImportResponse
	w := ts.do(t, http.MethodPost, "/api/v1/import?preview=true", doc)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &res)
	assert.True(t, res.Preview)
	assert.Equal(t, 2, res.ImportedCount)
	assert.Contains(t, res.Summary, "Would import 2 QSO(s)")

	n, err := ts.logbook.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestServer_Import_Rejected(t *testing.T) {
	t.Run("not adif", func(t *testing.T) {
		ts := newTestServer(t, ServerConfig{})
		w := ts.do(t, http.MethodPost, "/api/v1/import", "CALL,BAND\nK1ABC,20m\n")
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

		var res ImportResponse
		env := decode(t, w, &res)
		assert.False(t, env.Success)
		assert.Equal(t, adif.ErrInvalidFormat.Error(), env.Error)
		assert.Equal(t, 1, res.ErrorCount)
	})

	t.Run("too large", func(t *testing.T) {
		ts := newTestServer(t, ServerConfig{MaxImportBytes: 16})
		w := ts.do(t, http.MethodPost, "/api/v1/import", k1abcADIF)
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	})

	t.Run("bad preview flag", func(t *testing.T) {
		ts := newTestServer(t, ServerConfig{})
		w := ts.do(t, http.MethodPost, "/api/v1/import?preview=perhaps", k1abcADIF)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestServer_ExportADIF(t *testing.T) {
	ts := newTestServer(t, ServerConfig{})
	ts.seed(t,
		contactAt("K1ABC", "20m", "SSB", testNow.Add(-time.Hour)),
		contactAt("W1AW", "40m", "CW", testNow.Add(-2*time.Hour)),
	)

	w := ts.do(t, http.MethodGet, "/api/v1/export/adif?band=40m", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="qsolog-20240120.adi"`, w.Header().Get("Content-Disposition"))

	body := w.Body.String()
	assert.True(t, strings.HasPrefix(body, "Generated-By: QSO Log\r\n"))
	assert.Contains(t, body, "<CALL:4>W1AW")
	assert.NotContains(t, body, "K1ABC")

	// A filter that matches nothing exports the whole log.
	w = ts.do(t, http.MethodGet, "/api/v1/export/adif?band=6m", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, strings.Count(w.Body.String(), "<eor>"))
}

func TestServer_ExportADIF_RoundTrip(t *testing.T) {
	src := newTestServer(t, ServerConfig{})
	src.seed(t, contactAt("K1ABC", "20m", "SSB", testNow.Add(-time.Hour)))
	exported := src.do(t, http.MethodGet, "/api/v1/export/adif", "").Body.String()

	dst := newTestServer(t, ServerConfig{})
	var res ImportResponse
	decode(t, dst.do(t, http.MethodPost, "/api/v1/import", exported), &res)
	assert.Equal(t, 1, res.ImportedCount)
	assert.Empty(t, res.Warnings)
}

func TestServer_ExportCSV(t *testing.T) {
	ts := newTestServer(t, ServerConfig{})
	ts.seed(t, contactAt("K1ABC", "20m", "SSB", time.Date(2024, 1, 15, 14, 30, 0, 0, time.UTC)))

	w := ts.do(t, http.MethodGet, "/api/v1/export/csv", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))

	lines := strings.Split(strings.TrimSuffix(w.Body.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "Date,Time,Callsign"))
	assert.True(t, strings.HasPrefix(lines[1], "2024-01-15,14:30,K1ABC,20m,SSB"))
}

func TestServer_Stats(t *testing.T) {
	ts := newTestServer(t, ServerConfig{})
	sent := contactAt("W1AW", "40m", "CW", testNow.Add(-time.Hour))
	sent.QSLSent = true
	ts.seed(t,
		contactAt("K1ABC", "20m", "SSB", testNow.Add(-time.Hour)),
		contactAt("K1ABC", "20m", "FT8", testNow.Add(-24*time.Hour)),
		sent,
	)

	var a query.Analytics
	decode(t, ts.do(t, http.MethodGet, "/api/v1/stats", ""), &a)
	assert.Equal(t, 3, a.Total)
	assert.Equal(t, map[string]int{"20m": 2, "40m": 1}, a.ByBand)
	assert.Equal(t, 2, a.UniqueCallsigns)
	assert.Equal(t, 1, a.QSLSent)
	assert.Equal(t, map[string]int{"2024-01-20": 2, "2024-01-19": 1}, a.ByDay)
}

func TestServer_Stations(t *testing.T) {
	ts := newTestServer(t, ServerConfig{})

	var stations []qso.StationProfile
	decode(t, ts.do(t, http.MethodGet, "/api/v1/stations", ""), &stations)
	require.Len(t, stations, 3)

	w := ts.do(t, http.MethodPost, "/api/v1/stations",
		`{"name":"Field Day","operator_callsign":"w1aw","default_band":"40m","default_mode":"CW","is_default":true}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var st qso.StationProfile
	decode(t, w, &st)
	assert.NotEmpty(t, st.ID)
	assert.Equal(t, "W1AW", st.OperatorCallsign)

	def, err := storage.DefaultStation(context.Background(), ts.logbook)
	require.NoError(t, err)
	assert.Equal(t, st.ID, def.ID)

	// Contacts logged without a station pick up the new default.
	var c qso.Contact
	decode(t, ts.do(t, http.MethodPost, "/api/v1/contacts", `{"callsign":"K1ABC","band":"40m","mode":"CW"}`), &c)
	assert.Equal(t, st.ID, c.StationID)
	assert.Equal(t, "W1AW", c.OperatorCallsign)

	st.Rig = "IC-705"
	body, err := json.Marshal(st)
	require.NoError(t, err)
	w = ts.do(t, http.MethodPost, "/api/v1/stations", string(body))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestServer_Stations_Rejected(t *testing.T) {
	ts := newTestServer(t, ServerConfig{})

	for _, body := range []string{
		`{"name":""}`,
		`{"name":"Bad","default_band":"21m"}`,
		`{"name":"Bad","default_mode":"SMOKE"}`,
		`not json`,
	} {
		w := ts.do(t, http.MethodPost, "/api/v1/stations", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
}
