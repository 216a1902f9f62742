package extract

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// contentBeginMarker is the CMS comment preceding the real page content.
// When present, everything before it is discarded before parsing.
const contentBeginMarker = "TYPO3SEARCH_begin"

// footerMarkers delimit trailing boilerplate. Extracted text is truncated at
// the last occurrence of any of them.
var footerMarkers = []string{"TYPO3SEARCH_end", "studium spam prevention @tum.de"}

var multiNewlines = regexp.MustCompile(`\n{3,}`)

// ParseGenericPage converts an HTML payload into indented plain text. Headings
// become indented lines, lists become "- item" lines, and runs of blank lines
// are collapsed. Trailing site boilerplate is cut at the footer markers.
func ParseGenericPage(payload string) (string, error) {
	if pos := strings.Index(payload, contentBeginMarker); pos != -1 {
		payload = payload[pos+len(contentBeginMarker):]
	}

	root, err := html.Parse(strings.NewReader(payload))
	if err != nil {
		return "", err
	}

	var content []string
	walkGeneric(root, &content, 0)

	structured := strings.Join(content, "\n")
	structured = strings.ReplaceAll(structured, "\n\n", "\n")
	structured = multiNewlines.ReplaceAllString(structured, "\n\n")

	return truncateBoilerplate(strings.TrimSpace(structured)), nil
}

// walkGeneric recursively renders node children into content lines. Loose text
// is joined onto the previous line unless that line ended a block.
func walkGeneric(node *html.Node, content *[]string, level int) {
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		switch child.Type {
		case html.TextNode:
			text := strings.TrimSpace(child.Data)
			if text == "" {
				continue
			}
			if last := len(*content) - 1; last >= 0 && !strings.HasSuffix((*content)[last], "\n") {
				(*content)[last] += " " + text
			} else {
				*content = append(*content, strings.Repeat(" ", level)+text)
			}
		case html.ElementNode:
			tag := child.Data
			switch {
			case isHeadingTag(tag):
				headingLevel := int(tag[1] - '0')
				indent := strings.Repeat(" ", (headingLevel-1)*4)
				*content = append(*content, "\n"+indent+nodeText(child)+"\n")
			case tag == "p":
				if text := nodeText(child); text != "" {
					*content = append(*content, strings.Repeat(" ", level)+text+"\n")
				}
			case tag == "ul" || tag == "ol":
				for li := child.FirstChild; li != nil; li = li.NextSibling {
					if li.Type == html.ElementNode && li.Data == "li" {
						*content = append(*content, strings.Repeat(" ", level+2)+"- "+nodeText(li))
					}
				}
			case tag == "script" || tag == "style" || tag == "noscript":
				// script and style payloads are text nodes in this parser; they
				// are not page content
			default:
				walkGeneric(child, content, level)
			}
		}
	}
}

// truncateBoilerplate cuts s at the last footer marker occurrence and drops
// inline tracking lines.
func truncateBoilerplate(s string) string {
	cut := -1
	for _, marker := range footerMarkers {
		if idx := strings.LastIndex(s, marker); idx > cut {
			cut = idx
		}
	}
	if cut != -1 {
		s = s[:cut]
	}

	var filtered strings.Builder
	for _, line := range strings.Split(s, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "window.flow") {
			continue
		}
		filtered.WriteString(line)
		filtered.WriteByte('\n')
	}
	return filtered.String()
}

func isHeadingTag(tag string) bool {
	return len(tag) == 2 && tag[0] == 'h' && tag[1] >= '1' && tag[1] <= '6'
}

// nodeText returns the whitespace-normalized text of a node and its
// descendants, excluding script and style contents.
func nodeText(node *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteByte(' ')
			return
		}
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(node)
	return strings.Join(strings.Fields(sb.String()), " ")
}
