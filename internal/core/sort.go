package core

import (
	"sort"
	"strings"

	"github.com/jmylchreest/stackbox/internal/model"
)

// SortField represents a field to sort by.
type SortField string

const (
	SortByCreated SortField = "created"
	SortByClosed  SortField = "closed"
	SortByKind    SortField = "kind"
	SortByTitle   SortField = "title"
)

// SortOrder represents ascending or descending order.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// SortOptions specifies sorting criteria.
type SortOptions struct {
	Field SortField
	Order SortOrder
}

// DefaultSortOptions sorts newest first.
func DefaultSortOptions() SortOptions {
	return SortOptions{Field: SortByCreated, Order: SortDesc}
}

// Sort sorts records in place. Ties on the creation second fall back to
// the UID, which is time ordered.
func Sort(records []model.Record, opts SortOptions) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if opts.Order == SortDesc {
			a, b = b, a
		}

		switch opts.Field {
		case SortByClosed:
			return a.ClosedAt < b.ClosedAt
		case SortByKind:
			return a.Kind < b.Kind
		case SortByTitle:
			return strings.ToLower(a.Title) < strings.ToLower(b.Title)
		default:
			if a.CreatedAt == b.CreatedAt {
				return a.UID < b.UID
			}
			return a.CreatedAt < b.CreatedAt
		}
	})
}

// ParseSortField parses a sort field, defaulting to created.
func ParseSortField(s string) SortField {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "closed", "c":
		return SortByClosed
	case "kind", "k":
		return SortByKind
	case "title", "t":
		return SortByTitle
	default:
		return SortByCreated
	}
}

// ParseSortOrder parses a sort order, defaulting to descending.
func ParseSortOrder(s string) SortOrder {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "asc", "ascending", "a":
		return SortAsc
	default:
		return SortDesc
	}
}
