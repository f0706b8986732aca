package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
	"github.com/ssargent/qsolog/pkg/catalog"
	"github.com/ssargent/qsolog/pkg/csvexport"
	"github.com/ssargent/qsolog/pkg/qso"
	"github.com/ssargent/qsolog/pkg/query"
	"github.com/ssargent/qsolog/pkg/storage"
	"go.uber.org/zap"
)

// CatalogResponse lists the values manual entry accepts.
type CatalogResponse struct {
	Bands      []catalog.Band      `json:"bands"`
	Modes      []catalog.Mode      `json:"modes"`
	QSLMethods []catalog.QSLMethod `json:"qsl_methods"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	n, err := s.logbook.Count(r.Context())
	if err != nil {
		s.metrics.RecordHealthCheck(false)
		sendError(w, "Logbook unavailable", http.StatusServiceUnavailable)
		return
	}
	s.metrics.RecordHealthCheck(true)
	s.metrics.SetContacts(n)
	sendSuccess(w, map[string]any{"status": "healthy", "contacts": n})
}

func (s *Server) handleCatalog(w http.ResponseWriter, _ *http.Request) {
	sendSuccess(w, CatalogResponse{
		Bands:      s.catalog.Bands(),
		Modes:      s.catalog.Modes(),
		QSLMethods: s.catalog.QSLMethods(),
	})
}

// filterFromQuery reads search, band, mode, station, range and qsl.
func filterFromQuery(q url.Values) (query.Filter, error) {
	f := query.Filter{
		Search:    strings.TrimSpace(q.Get("search")),
		Band:      q.Get("band"),
		Mode:      q.Get("mode"),
		StationID: q.Get("station"),
	}
	var err error
	if f.DateRange, err = query.ParseDateRange(q.Get("range")); err != nil {
		return query.Filter{}, err
	}
	if f.QSL, err = query.ParseQSLFilter(q.Get("qsl")); err != nil {
		return query.Filter{}, err
	}
	return f, nil
}

// listContacts loads the logbook and records the store timing.
func (s *Server) listContacts(r *http.Request) ([]qso.Contact, error) {
	start := time.Now()
	contacts, err := s.logbook.List(r.Context())
	s.metrics.RecordStoreOperation("list", err == nil, time.Since(start))
	if err == nil {
		s.metrics.SetContacts(len(contacts))
	}
	return contacts, err
}

func (s *Server) handleListContacts(w http.ResponseWriter, r *http.Request) {
	f, err := filterFromQuery(r.URL.Query())
	if err != nil {
		sendError(w, err.Error(), http.StatusBadRequest)
		return
	}
	contacts, err := s.listContacts(r)
	if err != nil {
		s.internalError(w, "list contacts", err)
		return
	}
	matched := f.Apply(contacts, s.now())
	sendSuccess(w, ContactList{Contacts: matched, Total: len(contacts)})
}

func (s *Server) handleGetContact(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	start := time.Now()
	c, err := s.logbook.Get(r.Context(), id)
	s.metrics.RecordStoreOperation("get", err == nil, time.Since(start))
	if err != nil {
		s.storeError(w, "get contact", err)
		return
	}
	sendSuccess(w, c)
}

// decodeEntry reads and validates a manual entry from the request body.
func (s *Server) decodeEntry(w http.ResponseWriter, r *http.Request) (qso.Entry, bool) {
	var e qso.Entry
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&e); err != nil {
		sendError(w, "Invalid JSON request", http.StatusBadRequest)
		return qso.Entry{}, false
	}
	if err := s.entries.Validate(e); err != nil {
		sendError(w, err.Error(), http.StatusBadRequest)
		return qso.Entry{}, false
	}
	return e, true
}

func (s *Server) handleCreateContact(w http.ResponseWriter, r *http.Request) {
	e, ok := s.decodeEntry(w, r)
	if !ok {
		return
	}

	station, err := s.stationFor(r, e.StationID)
	if err != nil {
		s.storeError(w, "resolve station", err)
		return
	}

	c := e.Contact(station, s.now())
	start := time.Now()
	err = s.logbook.Create(r.Context(), &c)
	s.metrics.RecordStoreOperation("create", err == nil, time.Since(start))
	if err != nil {
		s.internalError(w, "create contact", err)
		return
	}
	sendCreated(w, c)
}

// stationFor returns the named station, or the default one when id is
// empty. A logbook without stations yields nil.
func (s *Server) stationFor(r *http.Request, id string) (*qso.StationProfile, error) {
	if id == "" {
		st, err := storage.DefaultStation(r.Context(), s.logbook)
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		return st, err
	}
	stations, err := s.logbook.Stations(r.Context())
	if err != nil {
		return nil, err
	}
	for i := range stations {
		if stations[i].ID == id {
			return &stations[i], nil
		}
	}
	return nil, errors.Wrapf(storage.ErrNotFound, "station %s", id)
}

func (s *Server) handleUpdateContact(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	existing, err := s.logbook.Get(r.Context(), id)
	if err != nil {
		s.storeError(w, "get contact", err)
		return
	}

	e, ok := s.decodeEntry(w, r)
	if !ok {
		return
	}
	updated := e.ApplyTo(existing)
	updated.ID = id

	start := time.Now()
	err = s.logbook.Update(r.Context(), &updated)
	s.metrics.RecordStoreOperation("update", err == nil, time.Since(start))
	if err != nil {
		s.storeError(w, "update contact", err)
		return
	}
	sendSuccess(w, updated)
}

func (s *Server) handleDeleteContact(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	start := time.Now()
	err := s.logbook.Delete(r.Context(), id)
	s.metrics.RecordStoreOperation("delete", err == nil, time.Since(start))
	if err != nil {
		s.storeError(w, "delete contact", err)
		return
	}
	sendSuccess(w, map[string]string{"id": id, "status": "deleted"})
}

// handleImport accepts an ADIF document as the raw request body. With
// ?preview=true nothing is written.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	preview := false
	if v := r.URL.Query().Get("preview"); v != "" {
		var err error
		if preview, err = strconv.ParseBool(v); err != nil {
			sendError(w, "Invalid preview flag", http.StatusBadRequest)
			return
		}
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.config.MaxImportBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			sendError(w, fmt.Sprintf("ADIF document exceeds %d bytes", tooLarge.Limit), http.StatusRequestEntityTooLarge)
			return
		}
		sendError(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	start := time.Now()
	operation := "import"
	var res ImportResponse
	if preview {
		operation = "preview"
		res.ImportResult, err = s.codec.Preview(r.Context(), string(body), s.logbook)
		if err != nil {
			s.metrics.RecordStoreOperation(operation, false, time.Since(start))
			s.internalError(w, "preview import", err)
			return
		}
	} else {
		res.ImportResult = s.codec.Import(r.Context(), string(body), s.logbook)
		s.refreshContactGauge(r.Context())
	}
	s.metrics.RecordStoreOperation(operation, true, time.Since(start))
	s.metrics.RecordImport(res.ImportResult)
	res.Summary = res.ImportResult.Summary()

	if res.FormatFailed() {
		sendFailure(w, http.StatusUnprocessableEntity, res.Errors[0].Message, res)
		return
	}
	sendSuccess(w, res)
}

// exportSet applies the request's filter, falling back to the whole log
// when nothing matches.
func (s *Server) exportSet(w http.ResponseWriter, r *http.Request) ([]qso.Contact, bool) {
	f, err := filterFromQuery(r.URL.Query())
	if err != nil {
		sendError(w, err.Error(), http.StatusBadRequest)
		return nil, false
	}
	contacts, err := s.listContacts(r)
	if err != nil {
		s.internalError(w, "list contacts", err)
		return nil, false
	}
	return f.ExportSet(contacts, s.now()), true
}

func (s *Server) handleExportADIF(w http.ResponseWriter, r *http.Request) {
	contacts, ok := s.exportSet(w, r)
	if !ok {
		return
	}
	setAttachment(w, "text/plain; charset=utf-8", s.exportName("adi"))
	if err := s.codec.ExportTo(w, contacts); err != nil {
		s.log.Warn("write adif export", zap.Error(err))
	}
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	contacts, ok := s.exportSet(w, r)
	if !ok {
		return
	}
	setAttachment(w, "text/csv; charset=utf-8", s.exportName("csv"))
	if err := csvexport.Write(w, contacts); err != nil {
		s.log.Warn("write csv export", zap.Error(err))
	}
}

func (s *Server) exportName(ext string) string {
	return fmt.Sprintf("qsolog-%s.%s", s.now().UTC().Format("20060102"), ext)
}

func setAttachment(w http.ResponseWriter, contentType, filename string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	contacts, err := s.listContacts(r)
	if err != nil {
		s.internalError(w, "list contacts", err)
		return
	}
	sendSuccess(w, query.Summarize(contacts, s.now()))
}

func (s *Server) handleListStations(w http.ResponseWriter, r *http.Request) {
	stations, err := s.logbook.Stations(r.Context())
	if err != nil {
		s.internalError(w, "list stations", err)
		return
	}
	sendSuccess(w, stations)
}

func (s *Server) handlePutStation(w http.ResponseWriter, r *http.Request) {
	var st qso.StationProfile
	if err := json.NewDecoder(r.Body).Decode(&st); err != nil {
		sendError(w, "Invalid JSON request", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(st.Name) == "" {
		sendError(w, "name is required", http.StatusBadRequest)
		return
	}
	if st.DefaultBand != "" && !s.catalog.IsBand(st.DefaultBand) {
		sendError(w, fmt.Sprintf("unknown band %q", st.DefaultBand), http.StatusBadRequest)
		return
	}
	if st.DefaultMode != "" && !s.catalog.IsMode(st.DefaultMode) {
		sendError(w, fmt.Sprintf("unknown mode %q", st.DefaultMode), http.StatusBadRequest)
		return
	}
	st.OperatorCallsign = strings.ToUpper(st.OperatorCallsign)

	created := st.ID == ""
	if err := s.logbook.PutStation(r.Context(), &st); err != nil {
		s.internalError(w, "put station", err)
		return
	}
	if created {
		sendCreated(w, st)
		return
	}
	sendSuccess(w, st)
}

// storeError maps storage.ErrNotFound to 404 and anything else to 500.
func (s *Server) storeError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		sendError(w, "Not found", http.StatusNotFound)
		return
	}
	s.internalError(w, op, err)
}

func (s *Server) internalError(w http.ResponseWriter, op string, err error) {
	s.log.Error(op, zap.Error(err))
	sendError(w, fmt.Sprintf("Failed to %s: %v", op, err), http.StatusInternalServerError)
}
