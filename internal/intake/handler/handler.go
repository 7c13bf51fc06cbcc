// Package handler serves the applicant upload form and the submissions API.
package handler

import (
	"context"
	"embed"
	stderrors "errors"
	"html/template"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/cvintake/cvintake-backend/internal/intake/domain"
	"github.com/cvintake/cvintake-backend/internal/intake/service"
	"github.com/cvintake/cvintake-backend/pkg/config"
	"github.com/cvintake/cvintake-backend/pkg/errors"
	"github.com/cvintake/cvintake-backend/pkg/httputil"
	"github.com/cvintake/cvintake-backend/pkg/i18n"
	"github.com/cvintake/cvintake-backend/pkg/logger"
	"github.com/go-chi/chi/v5"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// formOverhead is the request allowance for the text fields and multipart framing
const formOverhead = 1 << 20

// Submitter is the intake service as seen by the handlers
type Submitter interface {
	Submit(ctx context.Context, req service.SubmitRequest) (*domain.Submission, error)
	Get(ctx context.Context, id string) (*domain.Submission, error)
}

// Handler handles the upload form and submission API
type Handler struct {
	service Submitter
	upload  config.UploadConfig
	log     *logger.Logger
}

// NewHandler creates a new intake handler
func NewHandler(svc Submitter, upload config.UploadConfig, log *logger.Logger) *Handler {
	return &Handler{service: svc, upload: upload, log: log}
}

// Routes mounts the form pages and the JSON API
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.ShowForm)
	r.Post("/", h.SubmitForm)
	r.Get("/success", h.Success)

	r.Route("/api/v1/submissions", func(r chi.Router) {
		r.Post("/", h.Create)
		r.Get("/{id}", h.Get)
	})
}

// applicantForm is the text part of the upload form
type applicantForm struct {
	Name  string `form:"name" validate:"required,max=255"`
	Email string `form:"email" validate:"required,email,max=255"`
	Phone string `form:"phone" validate:"required,phone"`
}

// formPage is the data rendered by form.html
type formPage struct {
	L      *i18n.Localizer
	Form   applicantForm
	Accept string
	Error  string
	Fields map[string]string
}

// successPage is the data rendered by success.html
type successPage struct {
	L      *i18n.Localizer
	Notice string
}

// ShowForm handles GET /
func (h *Handler) ShowForm(w http.ResponseWriter, r *http.Request) {
	h.renderForm(w, r, http.StatusOK, applicantForm{}, nil)
}

// SubmitForm handles POST /
// Accepts multipart form with name, email, phone and the cv file.
// Success redirects to /success; a partially processed CV adds ?notice=<warning>.
func (h *Handler) SubmitForm(w http.ResponseWriter, r *http.Request) {
	form, req, err := h.parse(w, r)
	if err == nil {
		var sub *domain.Submission
		if sub, err = h.service.Submit(r.Context(), req); err == nil {
			target := "/success"
			if len(sub.Warnings) > 0 {
				target += "?notice=" + url.QueryEscape(sub.Warnings[0])
			}
			http.Redirect(w, r, target, http.StatusSeeOther)
			return
		}
	}

	h.logFailure(r, err)
	h.renderForm(w, r, httputil.StatusCode(err), form, err)
}

// Success handles GET /success
func (h *Handler) Success(w http.ResponseWriter, r *http.Request) {
	page := successPage{L: i18n.LocalizerFromContext(r.Context())}
	switch notice := domain.Warning(r.URL.Query().Get("notice")); notice {
	case domain.WarningStorageFailed, domain.WarningSheetFailed, domain.WarningWebhookFailed, domain.WarningFollowUpFailed:
		page.Notice = page.L.T("notices." + string(notice))
	}
	h.render(w, http.StatusOK, "success.html", page)
}

// Create handles POST /api/v1/submissions
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	_, req, err := h.parse(w, r)
	if err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}

	sub, err := h.service.Submit(r.Context(), req)
	if err != nil {
		h.logFailure(r, err)
		httputil.ErrorLocalized(w, r, err)
		return
	}

	httputil.Created(w, sub)
}

// Get handles GET /api/v1/submissions/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	sub, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.logFailure(r, err)
		httputil.ErrorLocalized(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, sub)
}

// parse reads and validates the multipart form. The file is read into memory
// and never written to disk by the handler.
func (h *Handler) parse(w http.ResponseWriter, r *http.Request) (applicantForm, service.SubmitRequest, error) {
	var form applicantForm
	r.Body = http.MaxBytesReader(w, r.Body, h.upload.MaxSize+formOverhead)

	if err := r.ParseMultipartForm(h.upload.MaxSize); err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			return form, service.SubmitRequest{}, errors.PayloadTooLarge(h.maxSizeMB())
		}
		return form, service.SubmitRequest{}, errors.BadRequestKey("errors.invalid_form").WithCause(err)
	}

	form = applicantForm{
		Name:  strings.TrimSpace(r.FormValue("name")),
		Email: strings.TrimSpace(r.FormValue("email")),
		Phone: strings.TrimSpace(r.FormValue("phone")),
	}
	if err := httputil.Validate(form); err != nil {
		return form, service.SubmitRequest{}, err
	}

	file, header, err := r.FormFile("cv")
	if err != nil {
		return form, service.SubmitRequest{}, errors.BadRequestKey("errors.no_file")
	}
	defer file.Close()

	if header.Size > h.upload.MaxSize {
		return form, service.SubmitRequest{}, errors.PayloadTooLarge(h.maxSizeMB())
	}
	if !h.allowed(header.Filename) {
		return form, service.SubmitRequest{}, errors.UnsupportedMediaType()
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return form, service.SubmitRequest{}, errors.BadRequestKey("errors.invalid_form").WithCause(err)
	}

	return form, service.SubmitRequest{
		Name:     form.Name,
		Email:    form.Email,
		Phone:    form.Phone,
		Filename: header.Filename,
		Data:     data,
	}, nil
}

func (h *Handler) allowed(filename string) bool {
	idx := strings.LastIndex(filename, ".")
	if idx < 0 {
		return false
	}
	ext := strings.ToLower(filename[idx+1:])
	for _, a := range h.upload.AllowedExtensions {
		if ext == strings.ToLower(a) {
			return true
		}
	}
	return false
}

func (h *Handler) accept() string {
	exts := make([]string, len(h.upload.AllowedExtensions))
	for i, e := range h.upload.AllowedExtensions {
		exts[i] = "." + e
	}
	return strings.Join(exts, ",")
}

func (h *Handler) maxSizeMB() int64 {
	return h.upload.MaxSize >> 20
}

func (h *Handler) renderForm(w http.ResponseWriter, r *http.Request, status int, form applicantForm, err error) {
	page := formPage{
		L:      i18n.LocalizerFromContext(r.Context()),
		Form:   form,
		Accept: h.accept(),
	}

	if err != nil {
		var appErr *errors.AppError
		if errors.As(err, &appErr) {
			page.Error = appErr.Localize(r.Context())
			page.Fields = appErr.Details
		} else {
			page.Error = page.L.T("errors.internal")
		}
	}

	h.render(w, status, "form.html", page)
}

func (h *Handler) render(w http.ResponseWriter, status int, name string, data interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := templates.ExecuteTemplate(w, name, data); err != nil {
		h.log.Error().Err(err).Str("template", name).Msg("failed to render template")
	}
}

func (h *Handler) logFailure(r *http.Request, err error) {
	log := h.log.WithRequestID(httputil.GetRequestID(r.Context()))
	if httputil.StatusCode(err) >= http.StatusInternalServerError {
		log.Error().Err(err).Msg("submission failed")
		return
	}
	log.Info().Err(err).Msg("submission rejected")
}
