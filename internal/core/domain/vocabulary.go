package domain

import "strings"

// DepartmentEntry maps one canonical department name to every spelling that
// appears in historical records.
type DepartmentEntry struct {
	Canonical string   `yaml:"canonical" json:"canonical"`
	Variants  []string `yaml:"variants" json:"variants"`
}

// Vocabulary is the controlled vocabulary the classifier and executor share:
// canonical departments with historical spelling variants, known project types,
// and synonym tables for severity and status words.
type Vocabulary struct {
	Departments  []DepartmentEntry `yaml:"departments"`
	ProjectTypes []string          `yaml:"project_types"`

	severitySynonyms map[string]Severity
	statusSynonyms   map[string]FindingStatus
}

// DefaultVocabulary returns the built-in tables. A YAML file may replace the
// department and project-type sections; the synonym tables are fixed.
func DefaultVocabulary() *Vocabulary {
	v := &Vocabulary{
		Departments: []DepartmentEntry{
			{Canonical: "Finance", Variants: []string{"Finance", "Keuangan", "FAD"}},
			{Canonical: "Human Resources", Variants: []string{"Human Resources", "HR", "SDM"}},
			{Canonical: "Operations", Variants: []string{"Operations", "Ops", "Operasional"}},
			{Canonical: "Procurement", Variants: []string{"Procurement", "Purchasing", "Pengadaan"}},
			{Canonical: "Information Technology", Variants: []string{"Information Technology", "IT", "TI"}},
			{Canonical: "Legal", Variants: []string{"Legal", "Hukum"}},
			{Canonical: "Marketing", Variants: []string{"Marketing", "Pemasaran"}},
		},
		ProjectTypes: []string{"Hotel", "Hospital", "School", "Office", "Mall", "Apartment"},
	}
	v.buildSynonyms()
	return v
}

// Normalize must be called after replacing Departments or ProjectTypes from an
// external file so the lookup tables stay consistent.
func (v *Vocabulary) Normalize() {
	v.buildSynonyms()
}

func (v *Vocabulary) buildSynonyms() {
	v.severitySynonyms = map[string]Severity{
		"critical":  SeverityCritical,
		"urgent":    SeverityCritical,
		"severe":    SeverityCritical,
		"high":      SeverityHigh,
		"high risk": SeverityHigh,
		"major":     SeverityHigh,
		"medium":    SeverityMedium,
		"moderate":  SeverityMedium,
		"low":       SeverityLow,
		"low risk":  SeverityLow,
		"minor":     SeverityLow,
	}
	v.statusSynonyms = map[string]FindingStatus{
		"open":        StatusOpen,
		"outstanding": StatusOpen,
		"unresolved":  StatusOpen,
		"in progress": StatusInProgress,
		"ongoing":     StatusInProgress,
		"closed":      StatusClosed,
		"resolved":    StatusClosed,
		"completed":   StatusClosed,
	}
}

// SeverityFor resolves a severity word or phrase; the lookup is
// case-insensitive.
func (v *Vocabulary) SeverityFor(word string) (Severity, bool) {
	s, ok := v.severitySynonyms[strings.ToLower(strings.TrimSpace(word))]
	return s, ok
}

func (v *Vocabulary) StatusFor(word string) (FindingStatus, bool) {
	s, ok := v.statusSynonyms[strings.ToLower(strings.TrimSpace(word))]
	return s, ok
}

// CanonicalDepartment resolves any known spelling to its canonical name.
func (v *Vocabulary) CanonicalDepartment(name string) (string, bool) {
	needle := strings.ToLower(strings.TrimSpace(name))
	if needle == "" {
		return "", false
	}
	for _, entry := range v.Departments {
		if strings.ToLower(entry.Canonical) == needle {
			return entry.Canonical, true
		}
		for _, variant := range entry.Variants {
			if strings.ToLower(variant) == needle {
				return entry.Canonical, true
			}
		}
	}
	return "", false
}

// DepartmentVariants returns every known spelling for a canonical department,
// the canonical name included. An unknown department yields itself so the
// executor still issues one query.
func (v *Vocabulary) DepartmentVariants(canonical string) []string {
	for _, entry := range v.Departments {
		if strings.EqualFold(entry.Canonical, canonical) {
			if len(entry.Variants) == 0 {
				return []string{entry.Canonical}
			}
			return entry.Variants
		}
	}
	return []string{canonical}
}

// ProjectTypeFor resolves a token against the known project types. Simple
// plural forms ("hotels") resolve to their singular entry.
func (v *Vocabulary) ProjectTypeFor(word string) (string, bool) {
	needle := strings.ToLower(strings.TrimSpace(word))
	if needle == "" {
		return "", false
	}
	singular := strings.TrimSuffix(needle, "s")
	for _, pt := range v.ProjectTypes {
		lower := strings.ToLower(pt)
		if lower == needle || lower == singular {
			return pt, true
		}
	}
	return "", false
}
