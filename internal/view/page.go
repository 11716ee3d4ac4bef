package view

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownPage is returned for a navigation selector outside the four views.
var ErrUnknownPage = errors.New("view: unknown page")

// Page is the navigation selection. The set is closed.
type Page int

const (
	InsightPrediction Page = iota
	TrendChart
	SelectedDateData
	About
)

// Pages lists every page in navigation order.
func Pages() []Page {
	return []Page{InsightPrediction, TrendChart, SelectedDateData, About}
}

// Slug is the URL and CLI name of the page.
func (p Page) Slug() string {
	switch p {
	case InsightPrediction:
		return "insight"
	case TrendChart:
		return "trend"
	case SelectedDateData:
		return "data"
	case About:
		return "about"
	}
	return fmt.Sprintf("page(%d)", int(p))
}

// Title is the navigation label.
func (p Page) Title() string {
	switch p {
	case InsightPrediction:
		return "Insight & Prediction"
	case TrendChart:
		return "Price & Sentiment Trend"
	case SelectedDateData:
		return "Selected Date Data"
	case About:
		return "About"
	}
	return ""
}

// NeedsDate reports whether the page is scoped to a selected date.
func (p Page) NeedsDate() bool {
	return p == InsightPrediction || p == SelectedDateData
}

// Valid reports whether p is one of the declared pages.
func (p Page) Valid() bool {
	return p >= InsightPrediction && p <= About
}

func (p Page) String() string {
	return p.Slug()
}

// MarshalText encodes the page by slug.
func (p Page) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownPage, int(p))
	}
	return []byte(p.Slug()), nil
}

// ParsePage resolves a slug.
func ParsePage(s string) (Page, error) {
	slug := strings.ToLower(strings.TrimSpace(s))
	for _, p := range Pages() {
		if p.Slug() == slug {
			return p, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownPage, s)
}
