package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func ptr(s string) *string { return &s }

func TestFormatFromFilename(t *testing.T) {
	tests := []struct {
		filename string
		want     Format
		ok       bool
	}{
		{"cv.pdf", FormatPDF, true},
		{"CV.PDF", FormatPDF, true},
		{"my.resume.docx", FormatDOCX, true},
		{"cv.doc", "", false},
		{"cv", "", false},
		{"pdf", "", false},
		{"cv.pdf.exe", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			got, ok := FormatFromFilename(tt.filename)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSheetRow_Values(t *testing.T) {
	t.Run("full row", func(t *testing.T) {
		row := NewSheetRow(CVData{
			PersonalInfo:   PersonalInfo{Name: ptr("Jane Doe"), Email: ptr("jane@example.com"), Phone: ptr("555-123-4567")},
			Education:      []string{"MIT", "BSc 2015"},
			Qualifications: []string{"Go"},
			Projects:       []string{"Acme", "", "Globex"},
			PublicLink:     "https://bucket.s3.amazonaws.com/id/cv.pdf",
		})

		assert.Equal(t, []interface{}{
			"Jane Doe", "jane@example.com", "555-123-4567",
			"MIT\nBSc 2015", "Go", "Acme\n\nGlobex",
			"https://bucket.s3.amazonaws.com/id/cv.pdf",
		}, row.Values())
	})

	t.Run("absent fields are empty", func(t *testing.T) {
		assert.Equal(t, []interface{}{"", "", "", "", "", "", ""}, SheetRow{}.Values())
	})
}

func TestSubmission_Settle(t *testing.T) {
	s := &Submission{Status: StatusReceived}
	s.Settle()
	assert.Equal(t, StatusCompleted, s.Status)

	s.AddWarning(WarningSheetFailed)
	s.Settle()
	assert.Equal(t, StatusPartial, s.Status)
	assert.Equal(t, []string{"sheet_failed"}, []string(s.Warnings))
}
