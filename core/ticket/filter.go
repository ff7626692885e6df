package ticket

import (
	"net/url"
	"strconv"
	"strings"
)

// Query parameter names of a filter
const (
	ParameterStatus   = "status"
	ParameterCategory = "category"
	ParameterPriority = "priority"
	ParameterSearch   = "search"
)

// Filter selects a subset of tickets by facets and free text. Empty facets match everything.
type Filter struct {
	Status   Status
	Category Category
	Priority Priority
	Search   string
}

// FilterFromValues reads a filter from URL query values. Unknown facet values are kept
// as they are, they simply match no ticket.
func FilterFromValues(values url.Values) Filter {
	return Filter{
		Status:   Status(values.Get(ParameterStatus)),
		Category: Category(values.Get(ParameterCategory)),
		Priority: Priority(values.Get(ParameterPriority)),
		Search:   values.Get(ParameterSearch),
	}
}

// Values returns the filter as URL query values. Only non-empty facets are set.
func (f Filter) Values() url.Values {
	values := url.Values{}
	f.SetValues(values)
	return values
}

// SetValues replaces the filter parameters in values and leaves all other parameters alone
func (f Filter) SetValues(values url.Values) {
	values.Del(ParameterStatus)
	values.Del(ParameterCategory)
	values.Del(ParameterPriority)
	values.Del(ParameterSearch)
	if f.Status != "" {
		values.Set(ParameterStatus, string(f.Status))
	}
	if f.Category != "" {
		values.Set(ParameterCategory, string(f.Category))
	}
	if f.Priority != "" {
		values.Set(ParameterPriority, string(f.Priority))
	}
	if f.Search != "" {
		values.Set(ParameterSearch, f.Search)
	}
}

// IsEmpty returns true if the filter matches every ticket
func (f Filter) IsEmpty() bool {
	return f.Status == "" && f.Category == "" && f.Priority == "" && strings.TrimSpace(f.Search) == ""
}

// Match returns true if the ticket passes all facets and the search text
func (f Filter) Match(t Ticket) bool {
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if f.Category != "" && t.Category != f.Category {
		return false
	}
	if f.Priority != "" && t.Priority != f.Priority {
		return false
	}
	search := strings.ToLower(strings.TrimSpace(f.Search))
	if search == "" {
		return true
	}
	return strings.Contains(strconv.FormatInt(t.ID, 10), search) ||
		strings.Contains(strings.ToLower(t.Title), search) ||
		strings.Contains(strings.ToLower(t.Description), search) ||
		strings.Contains(strings.ToLower(t.Author), search) ||
		(t.Agent != "" && strings.Contains(strings.ToLower(t.Agent), search))
}

// Apply returns the matching tickets in their original order
func (f Filter) Apply(tickets []Ticket) []Ticket {
	if f.IsEmpty() {
		return tickets
	}
	result := []Ticket{}
	for _, t := range tickets {
		if f.Match(t) {
			result = append(result, t)
		}
	}
	return result
}
