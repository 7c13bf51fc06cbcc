package domain

import (
	"strings"
	"time"

	"github.com/lib/pq"
)

// Format is the uploaded document type, derived from the file extension
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
)

// ContentType returns the MIME type stored alongside the uploaded object
func (f Format) ContentType() string {
	switch f {
	case FormatPDF:
		return "application/pdf"
	case FormatDOCX:
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	default:
		return "application/octet-stream"
	}
}

// FormatFromFilename maps a filename's extension to a Format.
// ok is false for anything other than .pdf and .docx.
func FormatFromFilename(filename string) (Format, bool) {
	idx := strings.LastIndex(filename, ".")
	if idx < 0 {
		return "", false
	}
	switch f := Format(strings.ToLower(filename[idx+1:])); f {
	case FormatPDF, FormatDOCX:
		return f, true
	default:
		return "", false
	}
}

// SubmissionStatus represents the processing state of a submission
type SubmissionStatus string

const (
	StatusReceived  SubmissionStatus = "received"
	StatusCompleted SubmissionStatus = "completed"
	StatusPartial   SubmissionStatus = "partial"
	StatusFailed    SubmissionStatus = "failed"
)

// Warning names a best-effort step that failed without failing the submission
type Warning string

const (
	WarningStorageFailed  Warning = "storage_failed"
	WarningSheetFailed    Warning = "sheet_failed"
	WarningWebhookFailed  Warning = "webhook_failed"
	WarningFollowUpFailed Warning = "followup_failed"
)

// PersonalInfo holds contact details found in a CV. Absent fields are nil.
type PersonalInfo struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
	Phone *string `json:"phone"`
}

// CVData is the structured view of a CV sent downstream and stored with the submission
type CVData struct {
	PersonalInfo   PersonalInfo `json:"personal_info"`
	Education      []string     `json:"education"`
	Qualifications []string     `json:"qualifications"`
	Projects       []string     `json:"projects"`
	PublicLink     string       `json:"cv_public_link"`
}

// Submission is one applicant upload and the outcome of processing it
type Submission struct {
	ID             string           `db:"id" json:"id"`
	ApplicantName  string           `db:"applicant_name" json:"applicant_name"`
	ApplicantEmail string           `db:"applicant_email" json:"applicant_email"`
	ApplicantPhone string           `db:"applicant_phone" json:"applicant_phone"`
	Filename       string           `db:"filename" json:"filename"`
	Format         Format           `db:"format" json:"format"`
	SizeBytes      int64            `db:"size_bytes" json:"size_bytes"`
	Status         SubmissionStatus `db:"status" json:"status"`
	PublicURL      string           `db:"public_url" json:"public_url,omitempty"`
	Warnings       pq.StringArray   `db:"warnings" json:"warnings"`
	Error          *string          `db:"error" json:"error,omitempty"`
	CVData         *CVData          `db:"-" json:"cv_data,omitempty"`
	CreatedAt      time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time        `db:"updated_at" json:"updated_at"`
}

// AddWarning records a failed best-effort step
func (s *Submission) AddWarning(w Warning) {
	s.Warnings = append(s.Warnings, string(w))
}

// Settle sets the final status from the recorded warnings
func (s *Submission) Settle() {
	if len(s.Warnings) == 0 {
		s.Status = StatusCompleted
		return
	}
	s.Status = StatusPartial
}

// FollowUp is a pending or sent review notification for one applicant email
type FollowUp struct {
	ID           string     `db:"id" json:"id"`
	SubmissionID *string    `db:"submission_id" json:"submission_id,omitempty"`
	Email        string     `db:"email" json:"email"`
	DueAt        time.Time  `db:"due_at" json:"due_at"`
	SentAt       *time.Time `db:"sent_at" json:"sent_at,omitempty"`
	Attempts     int        `db:"attempts" json:"attempts"`
	LastError    *string    `db:"last_error" json:"last_error,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
}

// SheetRow is one spreadsheet row per submission
type SheetRow struct {
	Name           *string
	Email          *string
	Phone          *string
	Education      []string
	Qualifications []string
	Projects       []string
	FileLink       string
}

// NewSheetRow builds the row from extracted CV data
func NewSheetRow(cv CVData) SheetRow {
	return SheetRow{
		Name:           cv.PersonalInfo.Name,
		Email:          cv.PersonalInfo.Email,
		Phone:          cv.PersonalInfo.Phone,
		Education:      cv.Education,
		Qualifications: cv.Qualifications,
		Projects:       cv.Projects,
		FileLink:       cv.PublicLink,
	}
}

// Values returns the cells in column order: name, email, phone, education,
// qualifications, projects, file link. Absent fields are empty strings and
// lists are newline-joined.
func (r SheetRow) Values() []interface{} {
	return []interface{}{
		deref(r.Name),
		deref(r.Email),
		deref(r.Phone),
		strings.Join(r.Education, "\n"),
		strings.Join(r.Qualifications, "\n"),
		strings.Join(r.Projects, "\n"),
		r.FileLink,
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
