// Package feed loads a group's publications page by page and enriches each
// page with view counts fetched in one batch per page.
package feed

import (
	"context"
	"time"
)

type PublicationType string

const (
	Post    PublicationType = "POST"
	Comment PublicationType = "COMMENT"
	Mirror  PublicationType = "MIRROR"
	Quote   PublicationType = "QUOTE"
)

type OrderBy string

const (
	Latest       OrderBy = "LATEST"
	TopCommented OrderBy = "TOP_COMMENTED"
	TopMirrored  OrderBy = "TOP_MIRRORED"
	TopReacted   OrderBy = "TOP_REACTED"
)

// Limit is the page size enum accepted by the item source.
type Limit string

const (
	Ten        Limit = "Ten"
	TwentyFive Limit = "TwentyFive"
	Fifty      Limit = "Fifty"
)

// Size returns the number of items the limit stands for, 0 if unknown.
func (l Limit) Size() int {
	switch l {
	case Ten:
		return 10
	case TwentyFive:
		return 25
	case Fifty:
		return 50
	}
	return 0
}

// Group selects publications tagged with any of Tags.
type Group struct {
	ID   string
	Name string
	Tags []string
}

// Item is one publication. ID is its identity; the rest is payload.
type Item struct {
	ID        string
	Author    string
	Content   string
	CreatedAt time.Time
}

type PageRequest struct {
	Types   []PublicationType
	Tags    []string // one-of
	OrderBy OrderBy
	Limit   Limit
	Cursor  string // empty for the first page
}

// Page is one response of the item source. Empty Next means no more pages.
type Page struct {
	Items []Item
	Next  string
}

// IDs returns the page's item ids in order.
func (p Page) IDs() []string {
	ids := make([]string, 0, len(p.Items))
	for _, it := range p.Items {
		ids = append(ids, it.ID)
	}
	return ids
}

type ViewCount struct {
	ID    string `json:"id"`
	Views int64  `json:"views"`
}

// ItemSource is the paginated remote publication service.
type ItemSource interface {
	Explore(ctx context.Context, req PageRequest) (Page, error)
}

// ViewCounter resolves view counts for a batch of item ids. Ids without a
// count may be omitted from the result.
type ViewCounter interface {
	ViewCounts(ctx context.Context, ids []string) ([]ViewCount, error)
}
