package web

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"golang.org/x/net/xsrftoken"

	"github.com/JonMunkholm/etl/internal/apierror"
	"github.com/JonMunkholm/etl/internal/core"
	"github.com/JonMunkholm/etl/internal/host"
	"github.com/JonMunkholm/etl/internal/hostapi"
	"github.com/JonMunkholm/etl/internal/importer"
	"github.com/JonMunkholm/etl/internal/logging"
	"github.com/JonMunkholm/etl/internal/view"
)

// CSRF token of the import form.
const (
	csrfField  = "csrf_token"
	csrfAction = "csvimport"
)

var (
	errInvalidFormToken = errors.New("invalid form token")
	errPluginDenied     = errors.New("permission denied: the profile cannot use the CSV import")
)

// partial is one view of a page with its data, rendered in list order.
type partial struct {
	name string
	data map[string]any
}

// ImportResponse is the body of a JSON import.
type ImportResponse struct {
	File    string                   `json:"file"`
	Errors  map[int][]apierror.Error `json:"errors"`
	Success bool                     `json:"success"`
}

type healthResponse struct {
	Status    string             `json:"status"`
	Error     string             `json:"error,omitempty"`
	ItemTypes int                `json:"item_types"`
	Imports   core.LimiterStatus `json:"imports"`
}

// newImport builds the controller of one request. The host adapter keeps the
// errors of the record being imported, so it is never shared between requests.
func (s *Server) newImport() *core.CSVImport {
	api := hostapi.New(s.catalog, s.cfg.Host.DocBaseURL)
	return core.NewCSVImport(
		importer.NewByAPI(api),
		importer.NewExtractorByAPI(api, s.catalog.Store()),
		core.Options{
			PlanInputName:      s.cfg.Upload.PlanInputName,
			FileInputName:      s.cfg.Upload.FileInputName,
			DelimiterInputName: s.cfg.Upload.DelimiterInputName,
			DefaultDelimiter:   s.cfg.Upload.DefaultDelimiter,
			MaxFileSize:        s.cfg.Upload.MaxFileSize,
			Encoding:           s.cfg.Upload.Encoding,
		},
	)
}

// requirePluginRight rejects profiles without the import right.
func (s *Server) requirePluginRight(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := SessionFromContext(r.Context())
		if !ok {
			s.respondError(w, r, errors.New("no session"), http.StatusInternalServerError)
			return
		}
		allowed, err := s.authz.CanUsePlugin(sess.Profile)
		if err != nil {
			s.respondError(w, r, err, http.StatusInternalServerError)
			return
		}
		if !allowed {
			s.respondError(w, r, errPluginDenied, http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, menuPath, http.StatusFound)
}

// handleCSVImport shows the form, or imports the posted file and shows the
// form followed by the report. A failed import shows its error above the form.
func (s *Server) handleCSVImport(w http.ResponseWriter, r *http.Request) {
	sess, _ := SessionFromContext(r.Context())
	imp := s.newImport()

	var in core.FormInput
	if r.Method == http.MethodPost {
		form, err := parseForm(w, r, s.cfg.Upload.MaxRequestSize)
		if err != nil {
			s.respondError(w, r, err, formStatus(err))
			return
		}
		defer form.cleanup()

		token, _ := form.Value(csrfField)
		if !xsrftoken.Valid(token, s.csrfKey, sess.UserID, csrfAction) {
			s.respondError(w, r, errInvalidFormToken, http.StatusForbidden)
			return
		}
		in = form
	}

	formView := partial{view.CSVImportForm, s.formViewData(imp, sess, in)}
	if imp.ChooseAction(in) != core.ActionUploadCSV {
		s.renderPartials(w, r, http.StatusOK, []partial{formView})
		return
	}

	err := s.withImportSlot(r.Context(), func(ctx context.Context) error {
		return imp.UploadFromForm(ctx, sess, in)
	})
	if err != nil {
		status, message := http.StatusBadRequest, ""
		if fb, ok := apierror.AsFeedback(err); ok {
			message = fb.Message
		} else {
			status, message = statusFor(err), core.FormatUserError(err)
		}
		logging.FromContext(r.Context()).Warn("csv import failed",
			"plan", imp.PlanName(in),
			"error", err,
			"code", core.MapError(err).Code,
		)
		errorView := partial{view.CSVImportError, map[string]any{"errors": []string{message}}}
		s.renderPartials(w, r, status, []partial{errorView, formView})
		return
	}

	s.renderPartials(w, r, http.StatusOK, []partial{
		formView,
		{view.CSVImportReport, imp.PrepareReportViewData(in)},
	})
}

// handleAPIImport imports the posted file as items of the plan in the path
// and answers with the per-row report.
func (s *Server) handleAPIImport(w http.ResponseWriter, r *http.Request) {
	sess, _ := SessionFromContext(r.Context())
	plan := chi.URLParam(r, "plan")
	imp := s.newImport()

	form, err := parseForm(w, r, s.cfg.Upload.MaxRequestSize)
	if err != nil {
		s.respondError(w, r, err, formStatus(err))
		return
	}
	defer form.cleanup()

	file, ok := form.File(imp.Options().FileInputName)
	if !ok {
		s.respondError(w, r, apierror.Feedback("No file provided. Please select a CSV file to upload."), http.StatusBadRequest)
		return
	}

	err = s.withImportSlot(r.Context(), func(ctx context.Context) error {
		rc, err := file.Open()
		if err != nil {
			return err
		}
		defer rc.Close()
		return imp.ImportCSV(ctx, sess, plan, rc, imp.Delimiter(form))
	})
	if err != nil {
		status := statusFor(err)
		if _, ok := apierror.AsFeedback(err); ok {
			status = http.StatusBadRequest
		}
		s.respondError(w, r, err, status)
		return
	}

	errs := imp.Errors()
	writeJSON(w, r, http.StatusOK, ImportResponse{
		File:    file.Filename(),
		Errors:  errs,
		Success: len(errs) == 0,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	resp := healthResponse{
		Status:    "ok",
		ItemTypes: s.catalog.Types().Count(),
		Imports:   s.limiter.Status(),
	}
	status := http.StatusOK
	if err := s.catalog.Store().Ping(ctx); err != nil {
		logging.FromContext(r.Context()).Error("health check failed", "error", err)
		resp.Status, resp.Error = "unavailable", err.Error()
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, r, status, resp)
}

// withImportSlot runs fn while holding an import slot.
func (s *Server) withImportSlot(ctx context.Context, fn func(context.Context) error) error {
	if err := s.limiter.Acquire(ctx); err != nil {
		return err
	}
	defer s.limiter.Release()
	return fn(ctx)
}

func (s *Server) formViewData(imp *core.CSVImport, sess *host.Session, in core.FormInput) map[string]any {
	data := imp.PrepareFormViewData(in)
	data["submit_url"] = menuPath
	data["csrf_token"] = xsrftoken.Generate(s.csrfKey, sess.UserID, csrfAction)
	data["plans"] = s.catalog.Types().All()
	return data
}

// renderPartials renders parts in order inside the page shell.
func (s *Server) renderPartials(w http.ResponseWriter, r *http.Request, status int, parts []partial) {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		html, err := s.views.Load(p.name, p.data)
		if err != nil {
			s.respondError(w, r, err, http.StatusInternalServerError)
			return
		}
		out = append(out, html)
	}
	s.renderPage(w, r, status, out)
}

// formStatus is the status of a request body that could not be parsed.
func formStatus(err error) int {
	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}
