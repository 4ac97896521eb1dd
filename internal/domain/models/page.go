package models

import (
	"strings"
	"time"
)

const (
	DefaultPageLimit = 100
	MaxPageLimit     = 1000
)

// Page selects a window of a listing. Limit <= 0 means unbounded.
type Page struct {
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

// All is the unbounded page
var All = Page{}

// Normalize clamps a client-supplied page to sane bounds
func (p Page) Normalize() Page {
	if p.Offset < 0 {
		p.Offset = 0
	}
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	return p
}

// Bounds returns the [start, end) slice indexes of the page over n items
func (p Page) Bounds(n int) (int, int) {
	start := p.Offset
	if start < 0 {
		start = 0
	}
	if start > n {
		start = n
	}
	end := n
	if p.Limit > 0 && start+p.Limit < n {
		end = start + p.Limit
	}
	return start, end
}

// Paginate applies a page to an already filtered slice
func Paginate[T any](items []T, p Page) []T {
	start, end := p.Bounds(len(items))
	return items[start:end]
}

func inRange(t time.Time, from, to *time.Time) bool {
	if from != nil && t.Before(*from) {
		return false
	}
	if to != nil && t.After(*to) {
		return false
	}
	return true
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
