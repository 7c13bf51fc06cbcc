// Package extractor splits plain CV text into named sections and pulls
// contact details out of it. It performs no I/O and is safe for concurrent use.
package extractor

import (
	"regexp"
	"sort"
	"strings"

	"github.com/cvintake/cvintake-backend/internal/intake/domain"
)

// Section names a block of a CV introduced by a header line
type Section string

const (
	SectionEducation      Section = "education"
	SectionQualifications Section = "qualifications"
	SectionExperience     Section = "experience"
	SectionContact        Section = "contact"
	SectionSummary        Section = "summary"
)

// Sections maps each matched section to its content lines
type Sections map[Section][]string

// sectionHeader pairs a section with a pattern matching any of its aliases as whole words
type sectionHeader struct {
	section Section
	pattern *regexp.Regexp
}

// defaultAliases is the header vocabulary in matching order. When a line
// matches several sections, the earliest entry here wins.
var defaultAliases = []struct {
	section Section
	aliases []string
}{
	{SectionEducation, []string{"education", "academic background", "degrees", "academic history"}},
	{SectionQualifications, []string{"skills", "qualifications", "technical skills", "certifications", "expertise"}},
	{SectionExperience, []string{"projects", "experience", "work experience", "employment history", "internship"}},
	{SectionContact, []string{"contact", "personal information", "contact details"}},
	{SectionSummary, []string{"summary", "professional summary", "profile", "objective"}},
}

var (
	// digits and separators are Unicode aware: PDF text often spaces phone
	// numbers with U+00A0 or U+202F
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	phonePattern = regexp.MustCompile(`\+?\p{Nd}{1,3}[-.\s\p{Zs}]?\(?\p{Nd}{1,4}\)?[-.\s\p{Zs}]?\p{Nd}{1,4}[-.\s\p{Zs}]?\p{Nd}{1,4}`)
	namePattern  = regexp.MustCompile(`(?i)Name:[\s\p{Zs}]*(.*)`)
	// lines carrying an email, a web address or a digit run are not names
	notNamePattern = regexp.MustCompile(`@|www|\p{Nd}{3}`)
)

// nameCandidateLines is how many leading lines are considered for an unlabeled name
const nameCandidateLines = 3

// Extractor holds the compiled header vocabulary. The zero value is not usable; call New.
type Extractor struct {
	headers []sectionHeader
}

// New compiles the default header vocabulary
func New() *Extractor {
	headers := make([]sectionHeader, 0, len(defaultAliases))
	for _, h := range defaultAliases {
		quoted := make([]string, len(h.aliases))
		for i, a := range h.aliases {
			quoted[i] = regexp.QuoteMeta(a)
		}
		headers = append(headers, sectionHeader{
			section: h.section,
			pattern: regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`),
		})
	}
	return &Extractor{headers: headers}
}

// Result is everything extracted from one CV text
type Result struct {
	Sections       Sections
	PersonalInfo   domain.PersonalInfo
	Education      []string
	Qualifications []string
	Projects       []string
}

// CVData converts the result to the downstream payload shape
func (r Result) CVData(publicLink string) domain.CVData {
	return domain.CVData{
		PersonalInfo:   r.PersonalInfo,
		Education:      r.Education,
		Qualifications: r.Qualifications,
		Projects:       r.Projects,
		PublicLink:     publicLink,
	}
}

// Extract runs a single section pass and derives every projection from it
func (e *Extractor) Extract(text string) Result {
	lines := splitLines(text)
	sections := e.sections(lines)
	return Result{
		Sections:       sections,
		PersonalInfo:   personalInfo(text, lines, sections),
		Education:      sections.get(SectionEducation),
		Qualifications: sections.get(SectionQualifications),
		Projects:       sections.get(SectionExperience),
	}
}

// ExtractSections maps each header found in text to the lines beneath it.
// A line heads at most one section and only the first header line per
// section counts. Sections without a header are omitted.
func (e *Extractor) ExtractSections(text string) Sections {
	return e.sections(splitLines(text))
}

// Education returns the education section, or an empty slice
func (e *Extractor) Education(text string) []string {
	return e.ExtractSections(text).get(SectionEducation)
}

// Qualifications returns the qualifications section, or an empty slice
func (e *Extractor) Qualifications(text string) []string {
	return e.ExtractSections(text).get(SectionQualifications)
}

// Projects returns the experience section, or an empty slice
func (e *Extractor) Projects(text string) []string {
	return e.ExtractSections(text).get(SectionExperience)
}

// ContactInfo returns the contact section, or an empty slice
func (e *Extractor) ContactInfo(text string) []string {
	return e.ExtractSections(text).get(SectionContact)
}

// PersonalInfo finds name, email and phone in text, falling back to the
// contact section for email and phone and to the opening lines for the name.
func (e *Extractor) PersonalInfo(text string) domain.PersonalInfo {
	lines := splitLines(text)
	return personalInfo(text, lines, e.sections(lines))
}

type headerHit struct {
	section Section
	line    int
}

func (e *Extractor) sections(lines []string) Sections {
	claimed := make(map[Section]bool, len(e.headers))
	var hits []headerHit

	for i, line := range lines {
		for _, h := range e.headers {
			if claimed[h.section] {
				continue
			}
			if h.pattern.MatchString(line) {
				claimed[h.section] = true
				hits = append(hits, headerHit{section: h.section, line: i})
				break
			}
		}
	}

	// spans run from one hit to the next in line order
	sort.SliceStable(hits, func(a, b int) bool { return hits[a].line < hits[b].line })

	out := make(Sections, len(hits))
	for k, hit := range hits {
		end := len(lines)
		if k+1 < len(hits) {
			end = hits[k+1].line
		}
		out[hit.section] = trimBlank(lines[hit.line+1 : end])
	}
	return out
}

func (s Sections) get(section Section) []string {
	if lines, ok := s[section]; ok {
		return lines
	}
	return []string{}
}

func personalInfo(text string, lines []string, sections Sections) domain.PersonalInfo {
	var info domain.PersonalInfo
	contact := strings.Join(sections[SectionContact], "\n")

	if m := emailPattern.FindString(text); m != "" {
		info.Email = &m
	} else if m := emailPattern.FindString(contact); m != "" {
		info.Email = &m
	}

	if m := phonePattern.FindString(text); m != "" {
		info.Phone = &m
	} else if m := phonePattern.FindString(contact); m != "" {
		info.Phone = &m
	}

	// a Name: label settles the name even when nothing follows it
	if m := namePattern.FindStringSubmatch(text); m != nil {
		name := strings.TrimSpace(m[1])
		info.Name = &name
	} else {
		for i := 0; i < len(lines) && i < nameCandidateLines; i++ {
			name := strings.TrimSpace(lines[i])
			if name != "" && !notNamePattern.MatchString(lines[i]) {
				info.Name = &name
				break
			}
		}
	}

	return info
}

func splitLines(text string) []string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

// trimBlank drops whitespace-only lines from both ends, keeping interior ones.
// The result is a fresh non-nil slice.
func trimBlank(lines []string) []string {
	start, end := 0, len(lines)
	for start < end && strings.TrimSpace(lines[start]) == "" {
		start++
	}
	for end > start && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}
	out := make([]string, end-start)
	copy(out, lines[start:end])
	return out
}
