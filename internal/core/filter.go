// Package core provides filtering, sorting, and lookup over history records.
package core

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jmylchreest/stackbox/internal/model"
)

// FilterOp represents a comparison operator.
type FilterOp string

const (
	FilterOpEqual     FilterOp = "="  // Exact match
	FilterOpNotEqual  FilterOp = "!=" // Not equal
	FilterOpContains  FilterOp = "~"  // Contains substring
	FilterOpRegex     FilterOp = "~=" // Regex match
	FilterOpGreater   FilterOp = ">"  // Greater than
	FilterOpLess      FilterOp = "<"  // Less than
	FilterOpGreaterEq FilterOp = ">=" // Greater than or equal
	FilterOpLessEq    FilterOp = "<=" // Less than or equal
)

// FilterCondition is a single "field op value" test.
type FilterCondition struct {
	Field    string
	Operator FilterOp
	Value    string

	regex    *regexp.Regexp
	boolVal  bool
	since    time.Time
	lifetime time.Duration
}

// FilterExpr is a list of conditions ANDed together.
type FilterExpr struct {
	Conditions []FilterCondition
}

// ParseDuration parses a duration with day and week suffixes
// (48h, 7d, 1w). "0" and "" mean no limit.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)

	if s == "0" || s == "" {
		return 0, nil
	}

	if daysStr, found := strings.CutSuffix(s, "d"); found {
		days, err := strconv.Atoi(daysStr)
		if err != nil {
			return 0, fmt.Errorf("invalid duration: %s", s)
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}

	if weeksStr, found := strings.CutSuffix(s, "w"); found {
		weeks, err := strconv.Atoi(weeksStr)
		if err != nil {
			return 0, fmt.Errorf("invalid duration: %s", s)
		}
		return time.Duration(weeks) * 7 * 24 * time.Hour, nil
	}

	return time.ParseDuration(s)
}

// ParseFilter parses "field=value,field2~value2".
//
// Fields: kind, source, app, title, content, reason, button, color,
// closed (bool), created (relative duration), lifetime (duration).
// Operators: = != ~ ~= > < >= <=
//
// Examples:
//   - "kind=small"
//   - "title~deploy,reason=expired"
//   - "created>1h" - created within the last hour
//   - "lifetime>=30s,closed=true"
func ParseFilter(expr string) (*FilterExpr, error) {
	filter := &FilterExpr{}
	if expr == "" {
		return filter, nil
	}

	for part := range strings.SplitSeq(expr, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		cond, err := parseCondition(part)
		if err != nil {
			return nil, err
		}
		filter.Conditions = append(filter.Conditions, cond)
	}

	return filter, nil
}

func parseCondition(s string) (FilterCondition, error) {
	// Longest operators first so "!=" is not read as "=".
	operators := []FilterOp{
		FilterOpNotEqual,
		FilterOpGreaterEq,
		FilterOpLessEq,
		FilterOpRegex,
		FilterOpEqual,
		FilterOpContains,
		FilterOpGreater,
		FilterOpLess,
	}

	for _, op := range operators {
		idx := strings.Index(s, string(op))
		if idx > 0 {
			cond := FilterCondition{
				Field:    strings.ToLower(strings.TrimSpace(s[:idx])),
				Operator: op,
				Value:    strings.TrimSpace(s[idx+len(op):]),
			}
			if err := cond.init(); err != nil {
				return FilterCondition{}, err
			}
			return cond, nil
		}
	}

	return FilterCondition{}, fmt.Errorf("invalid filter condition: %s (missing operator)", s)
}

func (c *FilterCondition) init() error {
	switch c.Field {
	case "kind", "type":
		c.Field = "kind"
	case "source", "src":
		c.Field = "source"
	case "app", "app_name":
		c.Field = "app"
	case "title", "summary":
		c.Field = "title"
	case "content", "body":
		c.Field = "content"
	case "reason", "button", "color":
	case "closed":
		c.boolVal = parseBool(c.Value)
	case "created", "time", "ts":
		c.Field = "created"
		dur, err := ParseDuration(c.Value)
		if err != nil {
			return fmt.Errorf("invalid created value: %w", err)
		}
		c.since = time.Now().Add(-dur)
	case "lifetime":
		dur, err := ParseDuration(c.Value)
		if err != nil {
			return fmt.Errorf("invalid lifetime value: %w", err)
		}
		c.lifetime = dur
	default:
		return fmt.Errorf("unknown filter field: %s", c.Field)
	}

	if c.Operator == FilterOpRegex {
		re, err := regexp.Compile(c.Value)
		if err != nil {
			return fmt.Errorf("invalid regex: %w", err)
		}
		c.regex = re
	}

	return nil
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "1", "y", "t":
		return true
	default:
		return false
	}
}

// Match reports whether r satisfies every condition.
func (f *FilterExpr) Match(r model.Record) bool {
	for _, cond := range f.Conditions {
		if !cond.Match(r) {
			return false
		}
	}
	return true
}

// Match reports whether r satisfies the condition.
func (c *FilterCondition) Match(r model.Record) bool {
	switch c.Field {
	case "kind":
		return c.matchString(r.Kind)
	case "source":
		return c.matchString(r.Source)
	case "app":
		return c.matchString(r.AppName)
	case "title":
		return c.matchString(r.Title)
	case "content":
		return c.matchString(r.Content)
	case "reason":
		return c.matchString(r.Reason)
	case "button":
		return c.matchString(r.Button)
	case "color":
		return c.matchString(r.Color)
	case "closed":
		return c.matchBool(r.IsClosed())
	case "created":
		return c.matchTime(r.CreatedTime())
	case "lifetime":
		return r.IsClosed() && c.matchDuration(r.Lifetime())
	default:
		return false
	}
}

func (c *FilterCondition) matchString(v string) bool {
	switch c.Operator {
	case FilterOpEqual:
		return v == c.Value
	case FilterOpNotEqual:
		return v != c.Value
	case FilterOpContains:
		return strings.Contains(strings.ToLower(v), strings.ToLower(c.Value))
	case FilterOpRegex:
		return c.regex != nil && c.regex.MatchString(v)
	default:
		return false
	}
}

func (c *FilterCondition) matchBool(v bool) bool {
	switch c.Operator {
	case FilterOpEqual:
		return v == c.boolVal
	case FilterOpNotEqual:
		return v != c.boolVal
	default:
		return false
	}
}

// matchTime compares against now minus the parsed duration, so
// "created>1h" reads as "newer than one hour ago".
func (c *FilterCondition) matchTime(v time.Time) bool {
	switch c.Operator {
	case FilterOpGreater:
		return v.After(c.since)
	case FilterOpLess:
		return v.Before(c.since)
	case FilterOpGreaterEq:
		return !v.Before(c.since)
	case FilterOpLessEq:
		return !v.After(c.since)
	default:
		return false
	}
}

func (c *FilterCondition) matchDuration(v time.Duration) bool {
	switch c.Operator {
	case FilterOpEqual:
		return v == c.lifetime
	case FilterOpNotEqual:
		return v != c.lifetime
	case FilterOpGreater:
		return v > c.lifetime
	case FilterOpLess:
		return v < c.lifetime
	case FilterOpGreaterEq:
		return v >= c.lifetime
	case FilterOpLessEq:
		return v <= c.lifetime
	default:
		return false
	}
}

// FilterWithExpr returns the records matching expr.
func FilterWithExpr(records []model.Record, expr *FilterExpr) []model.Record {
	if expr == nil || len(expr.Conditions) == 0 {
		return records
	}

	result := make([]model.Record, 0, len(records))
	for _, r := range records {
		if expr.Match(r) {
			result = append(result, r)
		}
	}
	return result
}
