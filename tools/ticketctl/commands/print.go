package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/relabs-tech/ticketportal/core/ticket"
)

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed, color.Bold)
	bold   = color.New(color.Bold)
)

var statusColors = map[ticket.Status]*color.Color{
	ticket.StatusOpen:       color.New(color.FgBlack, color.BgGreen),
	ticket.StatusInProgress: color.New(color.FgBlack, color.BgYellow),
	ticket.StatusResolved:   color.New(color.FgWhite, color.BgBlue),
	ticket.StatusClosed:     color.New(color.FgWhite, color.BgHiBlack),
}

var categoryColors = map[ticket.Category]*color.Color{
	ticket.CategoryBug:            color.New(color.FgRed),
	ticket.CategoryFeatureRequest: color.New(color.FgMagenta),
	ticket.CategoryTechnicalIssue: color.New(color.FgYellow),
	ticket.CategoryAccount:        color.New(color.FgCyan),
}

var priorityColors = map[ticket.Priority]*color.Color{
	ticket.PriorityLow:    color.New(color.FgGreen),
	ticket.PriorityMedium: color.New(color.FgYellow),
	ticket.PriorityHigh:   color.New(color.FgRed, color.Bold),
}

func success(w io.Writer, format string, a ...interface{}) {
	green.Fprintf(w, "✓ "+format, a...)
}

func warning(w io.Writer, format string, a ...interface{}) {
	yellow.Fprintf(w, format, a...)
}

// pad pads before coloring, escape sequences would break the column width
func pad(s string, width int) string {
	if n := len([]rune(s)); n < width {
		return s + strings.Repeat(" ", width-n)
	}
	return s
}

func statusPill(s ticket.Status, width int) string {
	if c, ok := statusColors[s]; ok {
		return c.Sprint(pad(" "+s.Label()+" ", width))
	}
	return pad(string(s), width)
}

func categoryPill(cat ticket.Category, width int) string {
	if c, ok := categoryColors[cat]; ok {
		return c.Sprint(pad(cat.Label(), width))
	}
	return pad(string(cat), width)
}

func priorityDots(p ticket.Priority) string {
	dots := ""
	for i := range ticket.Priorities() {
		if i < p.Level() {
			dots += "●"
		} else {
			dots += "○"
		}
	}
	if c, ok := priorityColors[p]; ok {
		return c.Sprint(dots)
	}
	return dots
}

func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) > width {
		return string(r[:width-3]) + "..."
	}
	return s
}

func printTable(w io.Writer, tickets []ticket.Ticket, total int) {
	bold.Fprintf(w, "%-6s %-30s %-13s %-17s %-8s %-20s %s\n", "ID", "TITLE", "STATUS", "CATEGORY", "PRIORITY", "AUTHOR", "AGENT")
	for _, t := range tickets {
		fmt.Fprintf(w, "%-6d %-30s %s %s %-8s %-20s %s\n",
			t.ID, pad(truncate(t.Title, 30), 30), statusPill(t.Status, 13), categoryPill(t.Category, 17),
			priorityDots(t.Priority)+"     ", t.Author, t.Agent)
	}
	fmt.Fprintf(w, "\nTotal tickets: %d\n", total)
}

func printTicket(w io.Writer, t ticket.Ticket) {
	bold.Fprintf(w, "%s\n\n", t.Title)
	if t.Description != "" {
		fmt.Fprintf(w, "%s\n\n", t.Description)
	}
	fmt.Fprintf(w, "%-10s %d\n", "ID", t.ID)
	fmt.Fprintf(w, "%-10s %s\n", "Status", statusPill(t.Status, 0))
	fmt.Fprintf(w, "%-10s %s\n", "Category", categoryPill(t.Category, 0))
	fmt.Fprintf(w, "%-10s %s %s\n", "Priority", priorityDots(t.Priority), t.Priority.Label())
	fmt.Fprintf(w, "%-10s %s\n", "Author", t.Author)
	fmt.Fprintf(w, "%-10s %s\n", "Agent", t.Agent)
	fmt.Fprintf(w, "%-10s %s\n", "Created", t.CreatedAt.Local().Format("2006-01-02 15:04"))
	fmt.Fprintf(w, "%-10s %s\n", "Modified", t.UpdatedAt.Local().Format("2006-01-02 15:04"))
}
