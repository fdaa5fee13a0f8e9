package research

import (
	"regexp"
	"strings"

	"prospect/internal/scrape"
)

// Hints are person details mined from profile-flavored snippet text. When
// the network authwalls direct access, search-engine snippets still leak
// headline, education and location; consumers use these to backfill fields
// the structured channels left empty.
type Hints struct {
	Education string
	Location  string
	Headline  string
}

func (h Hints) Empty() bool {
	return h.Education == "" && h.Location == "" && h.Headline == ""
}

var educationPatterns = []*regexp.Regexp{
	// "Educacion: Universidad de Atacama" (enriched-snippet format)
	regexp.MustCompile(`(?i)educaci[oó]n:\s*(.+?)(?:\||$|\.|Ubicaci[oó]n|Logros|Cargo|Empresa|Trayectoria)`),
	// institution names
	regexp.MustCompile(`(?i)(?:Universidad|Pontificia|Instituto|Escuela|Facultad|UTFSM|USACH|U\. de|PUC|UC)[^|.]*`),
	// degrees
	regexp.MustCompile(`(?i)(?:Ingenier[oa]\s+Civil[^|.]*|MBA[^|.]*|M[aá]ster[^|.]*|Mag[ií]ster[^|.]*|Doctorad[oa][^|.]*|Licenciad[oa][^|.]*)`),
}

var locationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)ubicaci[oó]n:\s*([^|.]+?)(?:\||$|\.)`),
	regexp.MustCompile(`(?i)(?:^|\||\.\s+)((?:Santiago|Antofagasta|Calama|Copiap[oó]|La Serena|Vi[ñn]a del Mar|Valpara[ií]so|Concepci[oó]n|Temuco|Rancagua|Iquique|Arica|Puerto Montt|Punta Arenas)(?:\s*,\s*(?:Chile|Regi[oó]n\s+[^|.]+))?)`),
	regexp.MustCompile(`(?i)(?:^|\||\.\s+)(Chile)(?:\s*\||$|\.)`),
}

// "Name - Headline | LinkedIn" title shape
var headlinePattern = regexp.MustCompile(`[-–—]\s*(.+?)(?:\s*\|\s*LinkedIn|\s*$)`)

var careerPattern = regexp.MustCompile(`(?i)trayectoria:\s*(.+?)(?:\||$|Educaci[oó]n|Logros)`)

// ExtractHints mines education/location/headline from items that carry
// profile data: the profile channel itself, plus general-search results
// that landed on a profile URL.
func ExtractHints(items []scrape.Item) Hints {
	var texts []string
	for _, it := range items {
		fromProfile := it.Source == scrape.TagProfile ||
			strings.Contains(it.URL, "linkedin.com")
		if fromProfile && (it.Title != "" || it.Snippet != "") {
			texts = append(texts, it.Title+" "+it.Snippet)
		}
	}
	if len(texts) == 0 {
		return Hints{}
	}

	combined := strings.Join(texts, " | ")
	return Hints{
		Education: extractEducation(combined),
		Location:  extractLocation(combined),
		Headline:  extractHeadline(texts),
	}
}

func extractEducation(text string) string {
	var results []string
	for _, pattern := range educationPatterns {
		for _, match := range pattern.FindAllStringSubmatch(text, -1) {
			hit := match[0]
			if len(match) > 1 && match[1] != "" {
				hit = match[1]
			}
			clean := strings.Trim(strings.TrimSpace(hit), "|.,; ")
			if len(clean) > 3 && !contains(results, clean) {
				results = append(results, clean)
			}
		}
	}
	if len(results) > 3 {
		results = results[:3]
	}
	return strings.Join(results, ". ")
}

func extractLocation(text string) string {
	for _, pattern := range locationPatterns {
		if match := pattern.FindStringSubmatch(text); match != nil {
			loc := strings.Trim(strings.TrimSpace(match[1]), "|.,; ")
			if len(loc) >= 3 {
				return loc
			}
		}
	}
	return ""
}

// extractHeadline pulls the longest plausible headline from profile titles
// ("Name - Headline | LinkedIn") and enriched-snippet career fields.
func extractHeadline(texts []string) string {
	var headlines []string
	for _, text := range texts {
		if match := headlinePattern.FindStringSubmatch(text); match != nil {
			h := strings.Trim(strings.TrimSpace(match[1]), "| ")
			if len(h) > 5 {
				headlines = append(headlines, h)
			}
		}
		if match := careerPattern.FindStringSubmatch(text); match != nil {
			h := strings.Trim(strings.TrimSpace(match[1]), "|.,; ")
			if len(h) > 5 {
				headlines = append(headlines, h)
			}
		}
	}

	best := ""
	for _, h := range headlines {
		if len(h) > len(best) {
			best = h
		}
	}
	return best
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
