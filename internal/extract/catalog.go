package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// sectionSeparator divides serialized catalog page sections.
const sectionSeparator = "----------------------------------------"

// studyPlanMarkers identify cohort-scoped study plan sections, which are
// deduplicated by recency so that superseded cohort plans are not indexed.
var studyPlanMarkers = []string{
	"Studienplan für Studienbeginn",
	"Studienplan ab Studienbeginn",
	"Studienbeginn ab",
}

// studyPlanYearCutoff: once a kept study plan's cohort year is at or below
// this, following study plan sections in the same run are skipped.
const studyPlanYearCutoff = 2019

var yearPattern = regexp.MustCompile(`\b(\d{4})\b`)

type catalogHeading struct {
	text  string
	level int
}

// ParseCatalogPage extracts text from a course-catalog page: the page title,
// then each direct child block of the #content container serialized with its
// heading hierarchy, separated by a divider line. Consecutive cohort study
// plan sections older than the cutoff are dropped.
func ParseCatalogPage(payload string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(payload))
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(strings.TrimSpace(doc.Find("title").First().Text()))
	b.WriteString("\n\n")

	contentDiv := doc.Find("#content").First()
	if contentDiv.Length() == 0 {
		return "", fmt.Errorf("content container not found")
	}

	blocks := contentDiv.Children()
	pageHeading := ""
	skipFollowingStudyPlans := false
	var previousStartYear *int

	for i := 0; i < blocks.Length(); i++ {
		heading, text := extractSection(blocks.Eq(i), pageHeading)

		if isStudyPlanHeading(heading) {
			startYear := parseStartYear(heading)
			if skipFollowingStudyPlans {
				if previousStartYear != nil && *previousStartYear <= studyPlanYearCutoff {
					continue
				}
				previousStartYear = startYear
			} else {
				previousStartYear = startYear
				skipFollowingStudyPlans = true
			}
		} else {
			// a non-study-plan section breaks the run
			skipFollowingStudyPlans = false
		}

		if i == 0 {
			pageHeading = heading
		}
		b.WriteString(text)
		b.WriteString("\n\n")
		b.WriteString(sectionSeparator)
		b.WriteString("\n\n")
	}

	return b.String(), nil
}

// extractSection serializes one content block. Headings maintain a level stack
// whose joined form qualifies tables; paragraph and list item text already
// serialized inside a table is not repeated. Returns the block's first heading
// and its serialized text.
func extractSection(block *goquery.Selection, pageHeading string) (heading, text string) {
	var content []string
	var stack []catalogHeading
	if pageHeading != "" {
		stack = append(stack, catalogHeading{text: pageHeading, level: 1})
	}
	sectionHeading := ""
	var tableTexts []string

	for _, sel := range allElements(block) {
		tag := goquery.NodeName(sel)
		switch {
		case isHeadingTag(tag):
			headingText := normalizedText(sel)
			level := int(tag[1] - '0')
			if sectionHeading == "" {
				sectionHeading = headingText
			}
			for len(stack) > 0 && stack[len(stack)-1].level >= level {
				stack = stack[:len(stack)-1]
			}
			stack = append(stack, catalogHeading{text: headingText, level: level})
			content = append(content, "\n"+headingText, hierarchyString(stack))
		case tag == "p":
			if t := normalizedText(sel); t != "" && !coveredByTable(tableTexts, t) {
				content = append(content, t)
			}
		case tag == "li":
			if t := normalizedText(sel); t != "" && !coveredByTable(tableTexts, t) {
				content = append(content, "- "+t)
			}
		case tag == "table":
			tableText := serializeTable(sel)
			content = append(content, "Table ("+hierarchyString(stack)+"):\n"+tableText+"\n")
			tableTexts = append(tableTexts, tableText)
		}
	}

	return sectionHeading, strings.TrimSpace(strings.Join(content, "\n"))
}

// serializeTable renders header and body rows pipe-delimited, one row per
// line. A cell holding a link is rendered as "text (href)"; empty cells keep a
// single space so column positions stay visible.
func serializeTable(table *goquery.Selection) string {
	var rows []string

	table.Find("thead tr").Each(func(_ int, tr *goquery.Selection) {
		var cells []string
		tr.Find("th").Each(func(_ int, th *goquery.Selection) {
			t := normalizedText(th)
			if t == "" {
				t = " "
			}
			cells = append(cells, t)
		})
		rows = append(rows, strings.Join(cells, " | "))
	})

	table.Find("tbody tr").Each(func(_ int, tr *goquery.Selection) {
		var cells []string
		tr.Find("td").Each(func(_ int, td *goquery.Selection) {
			var t string
			if link := td.Find("a").First(); link.Length() > 0 {
				href, _ := link.Attr("href")
				t = normalizedText(link) + " (" + href + ")"
			} else {
				t = normalizedText(td)
			}
			t = strings.TrimSpace(t)
			if t == "" {
				t = " "
			}
			cells = append(cells, t)
		})
		rows = append(rows, strings.Join(cells, " | "))
	})

	return strings.Join(rows, "\n")
}

// allElements returns the block itself followed by all descendant elements in
// document order.
func allElements(block *goquery.Selection) []*goquery.Selection {
	out := []*goquery.Selection{block}
	block.Find("*").Each(func(_ int, sel *goquery.Selection) {
		out = append(out, sel)
	})
	return out
}

func hierarchyString(stack []catalogHeading) string {
	parts := make([]string, len(stack))
	for i, h := range stack {
		parts[i] = h.text
	}
	return strings.Join(parts, " > ")
}

func isStudyPlanHeading(heading string) bool {
	for _, marker := range studyPlanMarkers {
		if strings.Contains(heading, marker) {
			return true
		}
	}
	return false
}

// parseStartYear returns the first 4-digit number in heading, or nil when
// the heading carries no cohort year.
func parseStartYear(heading string) *int {
	m := yearPattern.FindStringSubmatch(heading)
	if m == nil {
		return nil
	}
	year, err := strconv.Atoi(m[1])
	if err != nil {
		return nil
	}
	return &year
}

func coveredByTable(tableTexts []string, text string) bool {
	for _, t := range tableTexts {
		if strings.Contains(t, text) {
			return true
		}
	}
	return false
}

// normalizedText returns the selection's text with whitespace collapsed to
// single spaces.
func normalizedText(sel *goquery.Selection) string {
	return strings.Join(strings.Fields(sel.Text()), " ")
}
