package ticket

import (
	"fmt"

	"github.com/goccy/go-json"
)

// Role is the role of a portal user. It gates which ticket fields a user may edit.
type Role string

// all supported roles
const (
	RoleClient Role = "CLIENT"
	RoleAgent  Role = "AGENT"
)

// Roles returns all roles
func Roles() []Role {
	return []Role{RoleClient, RoleAgent}
}

// Valid returns true if the role is known
func (r Role) Valid() bool {
	return r == RoleClient || r == RoleAgent
}

// Label returns the human readable form of the role
func (r Role) Label() string {
	switch r {
	case RoleClient:
		return "Client"
	case RoleAgent:
		return "Agent"
	}
	return string(r)
}

// ParseRole parses a role from its wire name
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("%s is not a valid role", s)
	}
	return r, nil
}

// Status is the life cycle state of a ticket
type Status string

// all supported states
const (
	StatusOpen       Status = "OPEN"
	StatusInProgress Status = "IN_PROGRESS"
	StatusResolved   Status = "RESOLVED"
	StatusClosed     Status = "CLOSED"
)

// Statuses returns all states in display order
func Statuses() []Status {
	return []Status{StatusOpen, StatusInProgress, StatusResolved, StatusClosed}
}

// Valid returns true if the status is known
func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusResolved, StatusClosed:
		return true
	}
	return false
}

// Label returns the human readable form of the status
func (s Status) Label() string {
	switch s {
	case StatusOpen:
		return "Open"
	case StatusInProgress:
		return "In Progress"
	case StatusResolved:
		return "Resolved"
	case StatusClosed:
		return "Closed"
	}
	return string(s)
}

// ParseStatus parses a status from its wire name
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.Valid() {
		return "", fmt.Errorf("%s is not a valid status", s)
	}
	return st, nil
}

// UnmarshalJSON is a custom JSON unmarshaller which rejects unknown states
func (s *Status) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	st, err := ParseStatus(str)
	if err != nil {
		return err
	}
	*s = st
	return nil
}

// Category classifies a ticket
type Category string

// all supported categories
const (
	CategoryBug            Category = "BUG"
	CategoryFeatureRequest Category = "FEATURE_REQUEST"
	CategoryTechnicalIssue Category = "TECHNICAL_ISSUE"
	CategoryAccount        Category = "ACCOUNT"
)

// Categories returns all categories in display order
func Categories() []Category {
	return []Category{CategoryBug, CategoryFeatureRequest, CategoryTechnicalIssue, CategoryAccount}
}

// Valid returns true if the category is known
func (c Category) Valid() bool {
	switch c {
	case CategoryBug, CategoryFeatureRequest, CategoryTechnicalIssue, CategoryAccount:
		return true
	}
	return false
}

// Label returns the human readable form of the category
func (c Category) Label() string {
	switch c {
	case CategoryBug:
		return "Bug"
	case CategoryFeatureRequest:
		return "Feature Request"
	case CategoryTechnicalIssue:
		return "Technical Issue"
	case CategoryAccount:
		return "Account"
	}
	return string(c)
}

// ParseCategory parses a category from its wire name
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if !c.Valid() {
		return "", fmt.Errorf("%s is not a valid category", s)
	}
	return c, nil
}

// UnmarshalJSON is a custom JSON unmarshaller which rejects unknown categories
func (c *Category) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	cat, err := ParseCategory(str)
	if err != nil {
		return err
	}
	*c = cat
	return nil
}

// Priority is the urgency of a ticket
type Priority string

// all supported priorities
const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
)

// Priorities returns all priorities in display order
func Priorities() []Priority {
	return []Priority{PriorityLow, PriorityMedium, PriorityHigh}
}

// Valid returns true if the priority is known
func (p Priority) Valid() bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

// Label returns the human readable form of the priority
func (p Priority) Label() string {
	switch p {
	case PriorityLow:
		return "Low"
	case PriorityMedium:
		return "Medium"
	case PriorityHigh:
		return "High"
	}
	return string(p)
}

// Level returns 1 for low, 2 for medium and 3 for high priority. It is
// the number of filled dots in a priority display.
func (p Priority) Level() int {
	switch p {
	case PriorityLow:
		return 1
	case PriorityMedium:
		return 2
	case PriorityHigh:
		return 3
	}
	return 0
}

// ParsePriority parses a priority from its wire name
func ParsePriority(s string) (Priority, error) {
	p := Priority(s)
	if !p.Valid() {
		return "", fmt.Errorf("%s is not a valid priority", s)
	}
	return p, nil
}

// UnmarshalJSON is a custom JSON unmarshaller which rejects unknown priorities
func (p *Priority) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	pr, err := ParsePriority(str)
	if err != nil {
		return err
	}
	*p = pr
	return nil
}
