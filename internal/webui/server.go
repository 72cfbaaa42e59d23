// Package webui serves a small HTML upload form and a JSON API around the
// validator.
//
// Routes:
//
//	GET  /              upload form
//	POST /validate      validates the uploaded file; renders the result inline
//	POST /api/validate  validates the request body (raw or multipart "file")
//	                    and returns the report as JSON
//	GET  /api/versions  supported schema versions
package webui

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/CMSgov/hpt-validator-sub001/internal/runner"
	"github.com/CMSgov/hpt-validator-sub001/internal/storage"
	"github.com/CMSgov/hpt-validator-sub001/internal/validator"
)

// Config controls server startup and request defaults.
type Config struct {
	Addr string

	// Job labels metrics and stored runs (default "hptvalidate-web").
	Job string

	// Version is used when a request does not name one.
	Version string

	// MaxErrors is the default error budget; requests may lower or raise it.
	MaxErrors int

	// MaxUploadBytes bounds a request body (default 1 GiB).
	MaxUploadBytes int64

	// Repo stores run history when non-nil.
	Repo storage.Repository

	Verbose bool
}

// Server wraps http.Server for convenience.
type Server struct {
	cfg  Config
	mux  *http.ServeMux
	tmpl *template.Template
}

// NewServer constructs a Server with routes and the embedded template.
func NewServer(cfg Config) *Server {
	if cfg.Job == "" {
		cfg.Job = "hptvalidate-web"
	}
	if cfg.Version == "" {
		versions := validator.SupportedVersions()
		cfg.Version = versions[len(versions)-1]
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 1 << 30
	}
	s := &Server{
		cfg: cfg,
		mux: http.NewServeMux(),
		tmpl: template.Must(template.New("index").Funcs(template.FuncMap{
			"kind": func(v validator.Violation) string {
				if v.Warning {
					return "warning"
				}
				return "error"
			},
		}).Parse(indexHTML)),
	}
	s.routes()
	return s
}

// Handler exposes the routes, mainly for tests.
func (s *Server) Handler() http.Handler { return s.mux }

// ListenAndServe starts the HTTP server. Large uploads take a while, so
// only the header read is time-bounded.
func (s *Server) ListenAndServe() error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv.ListenAndServe()
}

func (s *Server) routes() {
	s.mux.HandleFunc("/", s.handleIndex)
	s.mux.HandleFunc("/validate", s.handleValidate)
	s.mux.HandleFunc("/api/validate", s.handleAPIValidate)
	s.mux.HandleFunc("/api/versions", s.handleVersions)
}

// page is the template data.
type page struct {
	Versions  []string
	Version   string
	MaxErrors int
	Format    string
	Report    *runner.Report
	Error     string
}

func (s *Server) page() page {
	return page{
		Versions:  validator.SupportedVersions(),
		Version:   s.cfg.Version,
		MaxErrors: s.cfg.MaxErrors,
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	s.render(w, http.StatusOK, s.page())
}

// handleValidate processes the upload form and renders a results page.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)

	data := s.page()
	params, err := s.params(r.FormValue)
	if err != nil {
		data.Error = err.Error()
		s.render(w, http.StatusBadRequest, data)
		return
	}
	data.Version, data.MaxErrors, data.Format = params.version, params.maxErrors, string(params.format)

	f, hdr, err := r.FormFile("file")
	if err != nil {
		data.Error = "choose a CSV or JSON file to validate"
		s.render(w, http.StatusBadRequest, data)
		return
	}
	defer f.Close()

	rep, err := s.validate(r.Context(), params, upload{name: hdr.Filename, body: f})
	if err != nil {
		data.Error = err.Error()
		s.render(w, statusFor(err), data)
		return
	}
	data.Report = &rep
	s.render(w, http.StatusOK, data)
}

// handleAPIValidate returns the report as JSON so scripts can curl it:
//
//	curl --data-binary @mrf.csv 'localhost:8080/api/validate?version=2.2&name=mrf.csv'
func (s *Server) handleAPIValidate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSONError(w, http.StatusMethodNotAllowed, "use POST")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)

	q := r.URL.Query()
	params, err := s.params(q.Get)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	src := upload{name: q.Get("name"), body: r.Body}
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		f, hdr, err := r.FormFile("file")
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "multipart upload needs a \"file\" part")
			return
		}
		defer f.Close()
		src = upload{name: hdr.Filename, body: f}
	}
	if src.name == "" {
		src.name = "upload"
	}

	rep, err := s.validate(r.Context(), params, src)
	if err != nil {
		writeJSONError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) handleVersions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"versions": validator.SupportedVersions(),
		"default":  s.cfg.Version,
	})
}

type requestParams struct {
	version   string
	maxErrors int
	format    validator.Format
}

// params reads version, max_errors and format through get, which is
// either a form or a query accessor.
func (s *Server) params(get func(string) string) (requestParams, error) {
	p := requestParams{version: s.cfg.Version, maxErrors: s.cfg.MaxErrors}
	if v := strings.TrimSpace(get("version")); v != "" {
		if _, ok := validator.LookupVersion(v); !ok {
			return p, fmt.Errorf("unsupported version %q; supported: %s", v, strings.Join(validator.SupportedVersions(), ", "))
		}
		p.version = v
	}
	if v := strings.TrimSpace(get("max_errors")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return p, fmt.Errorf("max_errors must be a non-negative integer, got %q", v)
		}
		p.maxErrors = n
	}
	if v := strings.TrimSpace(get("format")); v != "" && v != "auto" {
		f, err := validator.ParseFormat(v)
		if err != nil {
			return p, err
		}
		p.format = f
	}
	return p, nil
}

func (s *Server) validate(ctx context.Context, p requestParams, src upload) (runner.Report, error) {
	run := &runner.Runner{
		Repo:    s.cfg.Repo,
		Job:     s.cfg.Job,
		Version: p.version,
		Format:  p.format,
		Options: validator.Options{MaxErrors: p.maxErrors},
		Verbose: s.cfg.Verbose,
	}
	rep, err := run.Validate(ctx, src)
	if err != nil {
		log.Printf("webui: name=%s error=%v", src.name, err)
	}
	return rep, err
}

// upload adapts a request body to datasource.Source.
type upload struct {
	name string
	body io.Reader
}

func (u upload) Name() string { return u.name }

func (u upload) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return io.NopCloser(u.body), nil
}

func statusFor(err error) int {
	var tooBig *http.MaxBytesError
	switch {
	case errors.As(err, &tooBig):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, validator.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, context.Canceled):
		return 499
	}
	return http.StatusUnprocessableEntity
}

func (s *Server) render(w http.ResponseWriter, status int, data page) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.tmpl.Execute(w, data); err != nil {
		log.Printf("webui: template error=%v", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		log.Printf("webui: encode error=%v", err)
	}
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

//go:embed index.tmpl.html
var indexHTML string
