package core

import (
	"testing"

	"github.com/jmylchreest/stackbox/internal/model"
	"github.com/stretchr/testify/assert"
)

func uids(records []model.Record) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.UID)
	}
	return out
}

func TestSort(t *testing.T) {
	base := []model.Record{
		{UID: "a", Kind: "small", Title: "beta", CreatedAt: 200, ClosedAt: 300},
		{UID: "b", Kind: "big", Title: "Alpha", CreatedAt: 100, ClosedAt: 400},
		{UID: "c", Kind: "message", Title: "gamma", CreatedAt: 200},
	}

	tests := []struct {
		name     string
		opts     SortOptions
		expected []string
	}{
		{"default newest first", DefaultSortOptions(), []string{"c", "a", "b"}},
		{"created asc", SortOptions{Field: SortByCreated, Order: SortAsc}, []string{"b", "a", "c"}},
		{"closed desc", SortOptions{Field: SortByClosed, Order: SortDesc}, []string{"b", "a", "c"}},
		{"kind asc", SortOptions{Field: SortByKind, Order: SortAsc}, []string{"b", "c", "a"}},
		{"title asc ignores case", SortOptions{Field: SortByTitle, Order: SortAsc}, []string{"b", "a", "c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := append([]model.Record(nil), base...)
			Sort(records, tt.opts)
			assert.Equal(t, tt.expected, uids(records))
		})
	}
}

func TestParseSort(t *testing.T) {
	assert.Equal(t, SortByClosed, ParseSortField("closed"))
	assert.Equal(t, SortByKind, ParseSortField("K"))
	assert.Equal(t, SortByTitle, ParseSortField("title"))
	assert.Equal(t, SortByCreated, ParseSortField("whatever"))

	assert.Equal(t, SortAsc, ParseSortOrder("ascending"))
	assert.Equal(t, SortDesc, ParseSortOrder(""))
}
