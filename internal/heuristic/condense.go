// internal/heuristic/condense.go
package heuristic

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

const (
	NotesTitle           = "# Important Notes"
	defaultSectionTitle  = "Document"
	minBulletsPerSection = 3

	// Auto parameters switch at this many extracted lines.
	LongDocumentLines = 1200
)

var (
	headingPattern     = regexp.MustCompile(`^(#+\s|[A-Z][A-Z0-9 \-]{4,}$|[0-9]+\.\s)`)
	headingHashPrefix  = regexp.MustCompile(`^#+\s*`)
	bulletMarkerPrefix = regexp.MustCompile(`^\s*[-•]\s*`)
)

// Section is a heading and the content lines found under it.
type Section struct {
	Title string
	Lines []string
}

// CondenseParams controls how much of each section survives.
type CondenseParams struct {
	Ratio      float64
	MaxBullets int
}

// AutoParams picks condensation parameters from the document length.
func AutoParams(text string) CondenseParams {
	lines := len(splitLines(text))
	if lines < 1 {
		lines = 1
	}
	if lines > LongDocumentLines {
		return CondenseParams{Ratio: 0.25, MaxBullets: 8}
	}
	return CondenseParams{Ratio: 0.35, MaxBullets: 10}
}

// ClampParams bounds caller-supplied parameters to ratio [0.1, 0.6] and
// max bullets [1, 20].
func ClampParams(ratio float64, maxBullets int) CondenseParams {
	if math.IsNaN(ratio) {
		ratio = 0.1
	}
	ratio = math.Max(0.1, math.Min(0.6, ratio))
	if maxBullets < 1 {
		maxBullets = 1
	}
	if maxBullets > 20 {
		maxBullets = 20
	}
	return CondenseParams{Ratio: ratio, MaxBullets: maxBullets}
}

// IsHeading reports whether a trimmed line opens a new section: a markdown
// '#' heading, an all-caps line of at least five characters, or "N. ".
func IsHeading(line string) bool {
	return headingPattern.MatchString(line)
}

// DetectSections groups the non-blank lines of text under their nearest
// preceding heading. Leading content goes under "Document". When no content
// line is found at all, every non-blank line becomes one "Document" section.
func DetectSections(text string) []Section {
	lines := splitLines(text)
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}

	var sections []Section
	cur := Section{Title: defaultSectionTitle}
	for _, ln := range lines {
		switch {
		case IsHeading(ln):
			if len(cur.Lines) > 0 {
				sections = append(sections, cur)
			}
			cur = Section{Title: headingHashPrefix.ReplaceAllString(ln, "")}
		case ln != "":
			cur.Lines = append(cur.Lines, ln)
		}
	}
	if len(cur.Lines) > 0 {
		sections = append(sections, cur)
	}

	if len(sections) == 0 {
		all := Section{Title: defaultSectionTitle}
		for _, ln := range lines {
			if ln != "" {
				all.Lines = append(all.Lines, ln)
			}
		}
		if len(all.Lines) > 0 {
			sections = append(sections, all)
		}
	}
	return sections
}

// KeepCount is round(ratio*n) floored at 3 and capped at maxBullets and n.
func KeepCount(n int, p CondenseParams) int {
	keep := int(math.Round(p.Ratio * float64(n)))
	if keep < minBulletsPerSection {
		keep = minBulletsPerSection
	}
	maxBullets := p.MaxBullets
	if maxBullets < 1 {
		maxBullets = 1
	}
	if keep > maxBullets {
		keep = maxBullets
	}
	if keep > n {
		keep = n
	}
	return keep
}

// RankLines orders lines bullet-looking first, then longest first. Equal
// lines keep their document order.
func RankLines(lines []string) []string {
	ranked := append([]string(nil), lines...)
	sort.SliceStable(ranked, func(i, j int) bool {
		bi, bj := looksLikeBullet(ranked[i]), looksLikeBullet(ranked[j])
		if bi != bj {
			return bi
		}
		return utf8.RuneCountInString(ranked[i]) > utf8.RuneCountInString(ranked[j])
	})
	return ranked
}

// Condense turns raw document text into bulleted markdown notes. Text with
// no non-blank line yields "".
func Condense(text string, p CondenseParams) string {
	sections := DetectSections(text)
	if len(sections) == 0 {
		return ""
	}

	md := []string{NotesTitle}
	for _, sec := range sections {
		if len(sec.Lines) == 0 {
			continue
		}
		keep := RankLines(sec.Lines)[:KeepCount(len(sec.Lines), p)]
		md = append(md, "\n## "+sec.Title)
		for _, s := range keep {
			md = append(md, "- "+bulletMarkerPrefix.ReplaceAllString(s, ""))
		}
	}
	return strings.Join(md, "\n")
}

func looksLikeBullet(s string) bool {
	s = strings.TrimSpace(s)
	return strings.HasPrefix(s, "-") || strings.HasPrefix(s, "•")
}

// lineBreaks folds every line boundary onto "\n": CR, CRLF, VT, FF, the
// file/group/record separators, NEL and the Unicode line and paragraph
// separators.
var lineBreaks = strings.NewReplacer(
	"\r\n", "\n", "\r", "\n", "\v", "\n", "\f", "\n",
	"\x1c", "\n", "\x1d", "\n", "\x1e", "\n",
	"\u0085", "\n", "\u2028", "\n", "\u2029", "\n",
)

func splitLines(text string) []string {
	text = lineBreaks.Replace(text)
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}
