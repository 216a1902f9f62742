package extract

import (
	"strings"
	"testing"
)

func TestParseGenericPage_HeadingsAndText(t *testing.T) {
	payload := `<html><body><h1>Welcome</h1><p>Hello world.</p></body></html>`
	got, err := ParseGenericPage(payload)
	if err != nil {
		t.Fatal(err)
	}
	if got != "Welcome\nHello world.\n" {
		t.Errorf("unexpected output: %q", got)
	}
}

func TestParseGenericPage_HeadingIndentation(t *testing.T) {
	payload := `<h1>Title</h1><h2>Subheading</h2><p>Text.</p>`
	got, err := ParseGenericPage(payload)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "\n    Subheading\n") {
		t.Errorf("h2 should be indented by 4 spaces, got %q", got)
	}
}

func TestParseGenericPage_Lists(t *testing.T) {
	payload := `<p>Options:</p><ul><li>One</li><li>Two</li></ul>`
	got, err := ParseGenericPage(payload)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "- One\n  - Two") {
		t.Errorf("list items should become dash lines, got %q", got)
	}
}

func TestParseGenericPage_BeginMarkerSlicing(t *testing.T) {
	payload := `<p>Cookie banner</p><p>Navigation</p> TYPO3SEARCH_begin<h1>Title</h1><p>Body text.</p>`
	got, err := ParseGenericPage(payload)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(got, "Cookie banner") || strings.Contains(got, "Navigation") {
		t.Errorf("content before the begin marker should be discarded, got %q", got)
	}
	if !strings.Contains(got, "Body text.") {
		t.Errorf("content after the begin marker should survive, got %q", got)
	}
}

func TestParseGenericPage_FooterTruncation(t *testing.T) {
	payload := `<h1>Title</h1><p>Body text.</p><p>Footer TYPO3SEARCH_end junk after</p>`
	got, err := ParseGenericPage(payload)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(got, "junk after") {
		t.Errorf("text after the footer marker should be cut, got %q", got)
	}
	if !strings.Contains(got, "Body text.") {
		t.Errorf("body text should survive truncation, got %q", got)
	}
}

func TestParseGenericPage_TruncatesAtLastMarker(t *testing.T) {
	payload := `<p>Intro TYPO3SEARCH_end more content</p><p>Tail studium spam prevention @tum.de footer</p>`
	got, err := ParseGenericPage(payload)
	if err != nil {
		t.Fatal(err)
	}
	// the last marker wins, so text between the two markers stays
	if !strings.Contains(got, "more content") {
		t.Errorf("content before the last marker should survive, got %q", got)
	}
	if strings.Contains(got, "footer") {
		t.Errorf("text after the last marker should be cut, got %q", got)
	}
}

func TestParseGenericPage_SkipsScripts(t *testing.T) {
	payload := `<p>Visible</p><script>var tracking = "hidden";</script><style>.x{color:red}</style>`
	got, err := ParseGenericPage(payload)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(got, "tracking") || strings.Contains(got, "color") {
		t.Errorf("script and style contents should not appear, got %q", got)
	}
}

func TestParseGenericPage_DropsWindowFlowLines(t *testing.T) {
	payload := `<p>Visible</p><p>window.flowplayer setup line</p>`
	got, err := ParseGenericPage(payload)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(got, "window.flow") {
		t.Errorf("window.flow lines should be dropped, got %q", got)
	}
	if !strings.Contains(got, "Visible") {
		t.Errorf("regular text should survive, got %q", got)
	}
}

func TestParseGenericPage_CollapsesBlankRuns(t *testing.T) {
	payload := `<h1>A</h1><h2>B</h2><h3>C</h3><p>Text.</p>`
	got, err := ParseGenericPage(payload)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(got, "\n\n\n") {
		t.Errorf("runs of three or more newlines should be collapsed, got %q", got)
	}
}
