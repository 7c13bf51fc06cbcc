package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cvintake/cvintake-backend/internal/intake/domain"
	"github.com/cvintake/cvintake-backend/internal/intake/service"
	"github.com/cvintake/cvintake-backend/pkg/config"
	apperrors "github.com/cvintake/cvintake-backend/pkg/errors"
	"github.com/cvintake/cvintake-backend/pkg/httputil"
	"github.com/cvintake/cvintake-backend/pkg/i18n"
	"github.com/cvintake/cvintake-backend/pkg/logger"
	"github.com/cvintake/cvintake-backend/pkg/testutil"
	"github.com/go-chi/chi/v5"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	got      *service.SubmitRequest
	warnings []string
	err      error
	stored   map[string]*domain.Submission
}

func (f *fakeService) Submit(ctx context.Context, req service.SubmitRequest) (*domain.Submission, error) {
	f.got = &req
	if f.err != nil {
		return nil, f.err
	}
	sub := &domain.Submission{
		ID:             "2f0c3c7e-8a4f-4a57-9d3e-1f2a3b4c5d6e",
		ApplicantName:  req.Name,
		ApplicantEmail: req.Email,
		Filename:       req.Filename,
		Format:         domain.FormatPDF,
		Status:         domain.StatusCompleted,
		Warnings:       pq.StringArray(f.warnings),
	}
	if len(f.warnings) > 0 {
		sub.Status = domain.StatusPartial
	}
	return sub, nil
}

func (f *fakeService) Get(ctx context.Context, id string) (*domain.Submission, error) {
	if sub, ok := f.stored[id]; ok {
		return sub, nil
	}
	return nil, apperrors.NotFound("submission")
}

func newRouter(svc Submitter, maxSize int64) http.Handler {
	h := NewHandler(svc, config.UploadConfig{MaxSize: maxSize, AllowedExtensions: []string{"pdf", "docx"}}, logger.Nop())
	r := chi.NewRouter()
	r.Use(httputil.RequestID)
	r.Use(i18n.Middleware)
	h.Routes(r)
	return r
}

func pdfUpload() *testutil.Upload {
	return &testutil.Upload{Field: "cv", Filename: "cv.pdf", Content: testutil.BuildPDF(testutil.SampleCVLines())}
}

func TestShowForm(t *testing.T) {
	router := newRouter(&fakeService{}, 16<<20)

	rr := testutil.ExecuteRequest(router, newGet("/", ""))
	testutil.AssertStatus(t, rr, http.StatusOK)
	assert.Contains(t, rr.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rr.Body.String(), "Submit your CV")
	assert.Contains(t, rr.Body.String(), `accept=".pdf,.docx"`)
	assert.Contains(t, rr.Body.String(), `enctype="multipart/form-data"`)

	rr = testutil.ExecuteRequest(router, newGet("/", "de-DE,de;q=0.9"))
	assert.Contains(t, rr.Body.String(), "Lebenslauf einreichen")
	assert.Contains(t, rr.Body.String(), `lang="de"`)
}

func TestSubmitForm_Redirects(t *testing.T) {
	t.Run("completed", func(t *testing.T) {
		svc := &fakeService{}
		router := newRouter(svc, 16<<20)

		req := testutil.NewMultipartRequest(t, http.MethodPost, "/", testutil.ApplicantFields(), pdfUpload())
		rr := testutil.ExecuteRequest(router, req)

		testutil.AssertStatus(t, rr, http.StatusSeeOther)
		assert.Equal(t, "/success", rr.Header().Get("Location"))

		require.NotNil(t, svc.got)
		assert.Equal(t, "Jane Doe", svc.got.Name)
		assert.Equal(t, "jane.doe@example.com", svc.got.Email)
		assert.Equal(t, "+49 30 1234 5678", svc.got.Phone)
		assert.Equal(t, "cv.pdf", svc.got.Filename)
		assert.Equal(t, pdfUpload().Content, svc.got.Data)
	})

	t.Run("partial carries the first warning", func(t *testing.T) {
		router := newRouter(&fakeService{warnings: []string{"sheet_failed", "webhook_failed"}}, 16<<20)

		req := testutil.NewMultipartRequest(t, http.MethodPost, "/", testutil.ApplicantFields(), pdfUpload())
		rr := testutil.ExecuteRequest(router, req)

		testutil.AssertStatus(t, rr, http.StatusSeeOther)
		assert.Equal(t, "/success?notice=sheet_failed", rr.Header().Get("Location"))
	})
}

func TestSubmitForm_Rejections(t *testing.T) {
	invalidEmail := testutil.ApplicantFields()
	invalidEmail["email"] = "not-an-email"

	missingPhone := testutil.ApplicantFields()
	delete(missingPhone, "phone")

	tests := []struct {
		name       string
		fields     map[string]string
		upload     *testutil.Upload
		serviceErr error
		status     int
		contains   []string
	}{
		{
			name:     "invalid email keeps entered values",
			fields:   invalidEmail,
			upload:   pdfUpload(),
			status:   http.StatusBadRequest,
			contains: []string{"Please check the highlighted fields.", "must be a valid email address", `value="Jane Doe"`},
		},
		{
			name:     "missing phone",
			fields:   missingPhone,
			upload:   pdfUpload(),
			status:   http.StatusBadRequest,
			contains: []string{"this field is required"},
		},
		{
			name:     "missing file",
			fields:   testutil.ApplicantFields(),
			status:   http.StatusBadRequest,
			contains: []string{"Please attach your CV."},
		},
		{
			name:     "unsupported extension",
			fields:   testutil.ApplicantFields(),
			upload:   &testutil.Upload{Field: "cv", Filename: "cv.txt", Content: []byte("hello")},
			status:   http.StatusUnsupportedMediaType,
			contains: []string{"Only PDF and DOCX files are accepted."},
		},
		{
			name:       "unreadable document",
			fields:     testutil.ApplicantFields(),
			upload:     pdfUpload(),
			serviceErr: apperrors.Unprocessable("errors.unreadable"),
			status:     http.StatusUnprocessableEntity,
			contains:   []string{"We could not read your CV."},
		},
		{
			name:       "internal failure",
			fields:     testutil.ApplicantFields(),
			upload:     pdfUpload(),
			serviceErr: apperrors.Internal("db down"),
			status:     http.StatusInternalServerError,
			contains:   []string{"An unexpected error occurred."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newRouter(&fakeService{err: tt.serviceErr}, 16<<20)

			req := testutil.NewMultipartRequest(t, http.MethodPost, "/", tt.fields, tt.upload)
			rr := testutil.ExecuteRequest(router, req)

			testutil.AssertStatus(t, rr, tt.status)
			assert.Contains(t, rr.Header().Get("Content-Type"), "text/html")
			for _, s := range tt.contains {
				assert.Contains(t, rr.Body.String(), s)
			}
		})
	}
}

func TestSubmitForm_TooLarge(t *testing.T) {
	svc := &fakeService{}
	router := newRouter(svc, 1<<10)

	upload := &testutil.Upload{Field: "cv", Filename: "cv.pdf", Content: append([]byte("%PDF-"), make([]byte, 4<<10)...)}
	req := testutil.NewMultipartRequest(t, http.MethodPost, "/", testutil.ApplicantFields(), upload)
	rr := testutil.ExecuteRequest(router, req)

	testutil.AssertStatus(t, rr, http.StatusRequestEntityTooLarge)
	assert.Contains(t, rr.Body.String(), "The file is too large.")
	assert.Nil(t, svc.got)
}

func TestSuccess(t *testing.T) {
	router := newRouter(&fakeService{}, 16<<20)

	rr := testutil.ExecuteRequest(router, newGet("/success", ""))
	testutil.AssertStatus(t, rr, http.StatusOK)
	assert.Contains(t, rr.Body.String(), "Thank you")
	assert.NotContains(t, rr.Body.String(), `class="notice"`)

	rr = testutil.ExecuteRequest(router, newGet("/success?notice=sheet_failed", ""))
	assert.Contains(t, rr.Body.String(), "could not be added to our review list")

	rr = testutil.ExecuteRequest(router, newGet("/success?notice=errors.internal", ""))
	assert.NotContains(t, rr.Body.String(), `class="notice"`)
}

func TestCreate_API(t *testing.T) {
	router := newRouter(&fakeService{}, 16<<20)

	req := testutil.NewMultipartRequest(t, http.MethodPost, "/api/v1/submissions", testutil.ApplicantFields(), pdfUpload())
	rr := testutil.ExecuteRequest(router, req)

	testutil.AssertStatus(t, rr, http.StatusCreated)
	var resp struct {
		Success bool              `json:"success"`
		Data    domain.Submission `json:"data"`
	}
	testutil.ParseJSONBody(t, rr, &resp)
	assert.True(t, resp.Success)
	assert.Equal(t, "2f0c3c7e-8a4f-4a57-9d3e-1f2a3b4c5d6e", resp.Data.ID)
	assert.Equal(t, domain.StatusCompleted, resp.Data.Status)
}

func TestCreate_APIValidation(t *testing.T) {
	router := newRouter(&fakeService{}, 16<<20)

	fields := testutil.ApplicantFields()
	fields["email"] = ""
	req := testutil.NewMultipartRequest(t, http.MethodPost, "/api/v1/submissions", fields, pdfUpload())
	req.Header.Set("Accept-Language", "de")
	rr := testutil.ExecuteRequest(router, req)

	testutil.AssertStatus(t, rr, http.StatusBadRequest)
	var resp httputil.Response
	testutil.ParseJSONBody(t, rr, &resp)
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
	assert.Contains(t, resp.Error.Details, "email")
}

func TestGet_API(t *testing.T) {
	stored := &domain.Submission{ID: "2f0c3c7e-8a4f-4a57-9d3e-1f2a3b4c5d6e", Status: domain.StatusPartial}
	router := newRouter(&fakeService{stored: map[string]*domain.Submission{stored.ID: stored}}, 16<<20)

	rr := testutil.ExecuteRequest(router, newGet("/api/v1/submissions/"+stored.ID, ""))
	testutil.AssertStatus(t, rr, http.StatusOK)
	assert.Contains(t, rr.Body.String(), `"status":"partial"`)

	rr = testutil.ExecuteRequest(router, newGet("/api/v1/submissions/unknown", ""))
	testutil.AssertStatus(t, rr, http.StatusNotFound)
	assert.True(t, strings.Contains(rr.Body.String(), "NOT_FOUND"))
}

func newGet(path, acceptLanguage string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if acceptLanguage != "" {
		req.Header.Set("Accept-Language", acceptLanguage)
	}
	return req
}
