package core

import (
	"slices"
	"strings"

	"github.com/jmylchreest/stackbox/internal/model"
)

// LookupByUID finds a record by UID.
func LookupByUID(records []model.Record, uid string) *model.Record {
	for i := range records {
		if records[i].UID == uid {
			return &records[i]
		}
	}
	return nil
}

// LookupByIndex finds a record by its 1-based position.
func LookupByIndex(records []model.Record, index int) *model.Record {
	idx := index - 1
	if idx < 0 || idx >= len(records) {
		return nil
	}
	return &records[idx]
}

// Search returns records whose title or content contains term, ignoring case.
func Search(records []model.Record, term string) []model.Record {
	if term == "" {
		return records
	}

	term = strings.ToLower(term)
	var result []model.Record
	for _, r := range records {
		if strings.Contains(strings.ToLower(r.Title), term) ||
			strings.Contains(strings.ToLower(r.Content), term) {
			result = append(result, r)
		}
	}
	return result
}

// UniqueApps returns the distinct app names, sorted case-insensitively.
func UniqueApps(records []model.Record) []string {
	seen := make(map[string]bool)
	var apps []string

	for _, r := range records {
		if r.AppName != "" && !seen[r.AppName] {
			seen[r.AppName] = true
			apps = append(apps, r.AppName)
		}
	}

	slices.SortFunc(apps, func(a, b string) int {
		return strings.Compare(strings.ToLower(a), strings.ToLower(b))
	})
	return apps
}

// CountByKind tallies records per kind name.
func CountByKind(records []model.Record) map[string]int {
	counts := make(map[string]int)
	for _, r := range records {
		counts[r.Kind]++
	}
	return counts
}
