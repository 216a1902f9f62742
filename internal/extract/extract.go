// Package extract converts raw knowledge sources (HTML pages, uploaded
// documents) into normalized plain text for fingerprinting and indexing.
package extract

import (
	"context"
	"fmt"
	"strings"
)

// catalogHostFragment selects the structured course-catalog walker. Links on
// any other host go through the generic walker.
const catalogHostFragment = "cit.tum.de"

// Website parser types, attached to the resource when pushed to the remote index.
const (
	TypeCatalog = "CIT"
	TypeGeneric = "other"
)

// ExtractionError reports a failed source fetch or parse. Retryable is true
// for transient failures (network errors, bad status); false for terminal ones
// (corrupt file, missing content container).
type ExtractionError struct {
	Source    string
	Retryable bool
	Err       error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed for %s: %v", e.Source, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// ParseResult is the outcome of a website extraction: the normalized text and
// the parser type that produced it.
type ParseResult struct {
	Content string
	Type    string
}

// WebsiteExtractor fetches a link and extracts normalized text using the
// walker selected by the link's host.
type WebsiteExtractor struct {
	fetcher *Fetcher
}

// NewWebsiteExtractor returns an extractor using the given fetcher.
func NewWebsiteExtractor(fetcher *Fetcher) *WebsiteExtractor {
	return &WebsiteExtractor{fetcher: fetcher}
}

// Extract fetches link and returns its normalized text and parser type.
// Fetch failures are retryable ExtractionErrors; parse failures are terminal.
func (e *WebsiteExtractor) Extract(ctx context.Context, link string) (*ParseResult, error) {
	payload, err := e.fetcher.Fetch(ctx, link)
	if err != nil {
		return nil, err
	}
	if strings.Contains(link, catalogHostFragment) {
		content, err := ParseCatalogPage(payload)
		if err != nil {
			return nil, &ExtractionError{Source: link, Err: err}
		}
		return &ParseResult{Content: content, Type: TypeCatalog}, nil
	}
	content, err := ParseGenericPage(payload)
	if err != nil {
		return nil, &ExtractionError{Source: link, Err: err}
	}
	return &ParseResult{Content: content, Type: TypeGeneric}, nil
}
