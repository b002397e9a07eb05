package main

import (
	"context"
	"errors"
	"html/template"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/newamsterdamtech/b-fashion-brands-puts/pkg/cache"
	"github.com/newamsterdamtech/b-fashion-brands-puts/pkg/logging"
	"github.com/newamsterdamtech/b-fashion-brands-puts/pkg/puts"
	"github.com/newamsterdamtech/b-fashion-brands-puts/pkg/reconcile"
	"github.com/newamsterdamtech/b-fashion-brands-puts/pkg/sheet"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// lineFetcher is the part of the collector the web server needs.
type lineFetcher interface {
	CollectAll(ctx context.Context) ([]puts.Line, error)
}

// webServer serves the two-step fetch and merge workflow.
type webServer struct {
	fetcher  lineFetcher
	store    cache.Store
	cacheTTL time.Duration
	logger   zerolog.Logger
}

func newWebServer(fetcher lineFetcher, store cache.Store, ttl time.Duration) *webServer {
	return &webServer{
		fetcher:  fetcher,
		store:    store,
		cacheTTL: ttl,
		logger:   logging.NewLogger("web"),
	}
}

func (s *webServer) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/fetch", s.handleFetch)
	mux.HandleFunc("/lines/", s.handleLinesCSV)
	mux.HandleFunc("/merge", s.handleMerge)
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

type indexData struct {
	Error string
	RunID string
}

type resultData struct {
	RunID     string
	Puts      int
	Lines     int
	FetchedAt string
	TTL       string
}

func (s *webServer) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	s.renderIndex(w, http.StatusOK, indexData{})
}

func (s *webServer) handleFetch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	lines, err := s.fetcher.CollectAll(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("Fetch run failed")
		s.renderIndex(w, http.StatusBadGateway, indexData{
			Error: "Fetching lines from Itsperfect failed. Check the server log and try again.",
		})
		return
	}

	runID := uuid.NewString()
	entry := &cache.Entry{Lines: lines, FetchedAt: time.Now().UTC()}
	if err := s.store.Set(r.Context(), runID, entry, s.cacheTTL); err != nil {
		s.logger.Error().Err(err).Str("run_id", runID).Msg("Storing fetch run failed")
		s.renderIndex(w, http.StatusInternalServerError, indexData{
			Error: "The fetched lines could not be stored. Check the server log and try again.",
		})
		return
	}

	s.logger.Info().
		Str("run_id", runID).
		Int("puts", countPuts(lines)).
		Int("lines", len(lines)).
		Msg("Fetch run stored")

	s.renderResult(w, resultData{
		RunID:     runID,
		Puts:      countPuts(lines),
		Lines:     len(lines),
		FetchedAt: entry.FetchedAt.Format("2006-01-02 15:04 MST"),
		TTL:       s.cacheTTL.String(),
	})
}

func (s *webServer) handleLinesCSV(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	name := strings.TrimPrefix(r.URL.Path, "/lines/")
	if !strings.HasSuffix(name, ".csv") {
		http.NotFound(w, r)
		return
	}
	runID := strings.TrimSuffix(name, ".csv")
	if runID == "" {
		http.NotFound(w, r)
		return
	}

	entry, err := s.store.Get(r.Context(), runID)
	if errors.Is(err, cache.ErrCacheMiss) {
		http.Error(w, "run expired or unknown, fetch again", http.StatusNotFound)
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Str("run_id", runID).Msg("Line cache lookup failed")
		http.Error(w, "cache lookup failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment",
		map[string]string{"filename": "lines-" + runID + ".csv"}))
	if err := puts.WriteCSV(w, entry.Lines); err != nil {
		s.logger.Error().Err(err).Str("run_id", runID).Msg("Writing CSV response failed")
	}
}

func (s *webServer) handleMerge(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		s.renderIndex(w, http.StatusBadRequest, indexData{
			Error: "The upload could not be read. Try again.",
		})
		return
	}

	runID := strings.TrimSpace(r.FormValue("run_id"))
	if runID == "" {
		s.renderIndex(w, http.StatusBadRequest, indexData{
			Error: "A run id is required. Fetch the lines first.",
		})
		return
	}

	entry, err := s.store.Get(r.Context(), runID)
	if errors.Is(err, cache.ErrCacheMiss) {
		s.renderIndex(w, http.StatusGone, indexData{
			Error: "That fetch run has expired or does not exist. Fetch the lines again.",
		})
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Str("run_id", runID).Msg("Line cache lookup failed")
		s.renderIndex(w, http.StatusInternalServerError, indexData{
			Error: "The line cache could not be read. Check the server log and try again.",
			RunID: runID,
		})
		return
	}

	file, header, err := r.FormFile("sheet")
	if err != nil {
		s.renderIndex(w, http.StatusBadRequest, indexData{
			Error: "A checklist workbook upload is required.",
			RunID: runID,
		})
		return
	}
	defer file.Close()

	table, err := sheet.LoadReader(file)
	if err != nil {
		s.logger.Warn().Err(err).Str("filename", header.Filename).Msg("Uploaded workbook rejected")
		s.renderIndex(w, http.StatusBadRequest, indexData{
			Error: "The uploaded file could not be read as an xlsx workbook.",
			RunID: runID,
		})
		return
	}

	summary := reconcile.Reconcile(table, entry.Lines)

	s.logger.Info().
		Str("run_id", runID).
		Int("rows", summary.Rows).
		Int("lines", summary.Lines).
		Int("put_filled", summary.PutFilled).
		Int("quantity_filled", summary.QuantityFilled).
		Int("unmatched", summary.Unmatched).
		Msg("Merge complete")

	name := "checklist_updated.xlsx"
	if header.Filename != "" {
		name = updatedName(filepath.Base(header.Filename))
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment",
		map[string]string{"filename": name}))
	if err := table.Write(w); err != nil {
		s.logger.Error().Err(err).Str("run_id", runID).Msg("Writing workbook response failed")
	}
}

func (s *webServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func (s *webServer) renderIndex(w http.ResponseWriter, status int, data indexData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := indexTemplate.Execute(w, data); err != nil {
		s.logger.Error().Err(err).Msg("Rendering index page failed")
	}
}

func (s *webServer) renderResult(w http.ResponseWriter, data resultData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := resultTemplate.Execute(w, data); err != nil {
		s.logger.Error().Err(err).Msg("Rendering result page failed")
	}
}

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>putsync</title>
<style>
body { font-family: sans-serif; max-width: 40em; margin: 2em auto; padding: 0 1em; }
.error { color: #b00020; border: 1px solid #b00020; padding: 0.5em; }
label { display: block; margin: 0.5em 0; }
</style>
</head>
<body>
<h1>PUT reconciliation</h1>
{{if .Error}}<p class="error">{{.Error}}</p>{{end}}

<h2>Step 1: fetch open PUT lines</h2>
<form method="post" action="/fetch">
<button type="submit">Fetch lines</button>
</form>
<p>Fetching walks every open PUT and can take a few minutes on large tenants.</p>

<h2>Step 2: merge into a checklist</h2>
<form method="post" action="/merge" enctype="multipart/form-data">
<label>Run id <input name="run_id" value="{{.RunID}}" required></label>
<label>Checklist <input type="file" name="sheet" accept=".xlsx" required></label>
<button type="submit">Merge and download</button>
</form>
</body>
</html>
`))

var resultTemplate = template.Must(template.New("result").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>putsync - lines fetched</title>
<style>
body { font-family: sans-serif; max-width: 40em; margin: 2em auto; padding: 0 1em; }
label { display: block; margin: 0.5em 0; }
</style>
</head>
<body>
<h1>Lines fetched</h1>
<p>Run <code>{{.RunID}}</code>: {{.Lines}} lines across {{.Puts}} open PUTs, fetched at {{.FetchedAt}}.</p>
<p><a href="/lines/{{.RunID}}.csv">Download the CSV artifact</a>. The run stays available for {{.TTL}}.</p>

<h2>Step 2: merge into a checklist</h2>
<form method="post" action="/merge" enctype="multipart/form-data">
<input type="hidden" name="run_id" value="{{.RunID}}">
<label>Checklist <input type="file" name="sheet" accept=".xlsx" required></label>
<button type="submit">Merge and download</button>
</form>
<p><a href="/">Back to start</a></p>
</body>
</html>
`))
