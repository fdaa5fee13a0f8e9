// Package scrape implements the source adapters: one per public information
// channel, all behind the same Source capability. Adapters own their own
// fallback chains and degrade to an empty slice on any failure.
package scrape

import "context"

// Tag identifies which channel produced an item.
type Tag string

const (
	TagGeneral   Tag = "general-search"
	TagNews      Tag = "news"
	TagProfile   Tag = "profile"
	TagCorporate Tag = "corporate"
	TagKnowledge Tag = "knowledge"
)

// Query is the immutable input to one acquisition run.
type Query struct {
	Name     string
	Company  string
	Role     string
	Location string
}

// Item is one raw evidence fragment. Adapters create items and may enrich
// their own items post-fetch (only ever replacing fields with strictly
// longer values); nothing downstream mutates them.
type Item struct {
	URL       string
	Title     string
	Snippet   string
	Source    Tag
	Timestamp string // free text, e.g. "hace 2 semanas"
}

// Source is the uniform adapter capability. Search never returns an error:
// internal failures are logged and collapse to an empty list.
type Source interface {
	Tag() Tag
	Search(ctx context.Context, q Query) []Item
}
