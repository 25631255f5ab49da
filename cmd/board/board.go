package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/menuportal/backend/internal/menu"
	"github.com/menuportal/backend/internal/models"
)

var columns = []models.OrderStatus{models.OrderStatusNew, models.OrderStatusPreparing, models.OrderStatusReady}

// renderBoard draws the kanban. Completed orders are not shown. stale is the last poll error, shown
// above the last good data.
func renderBoard(w io.Writer, orders []models.LiveOrder, now time.Time, newWindow time.Duration, stale error) {
	byStatus := make(map[models.OrderStatus][]models.LiveOrder, len(columns))
	for _, o := range orders {
		byStatus[o.Status] = append(byStatus[o.Status], o)
	}
	if stale != nil {
		fmt.Fprintf(w, "! refresh failed, showing last data: %v\n", stale)
	}
	for _, status := range columns {
		list := byStatus[status]
		sort.Slice(list, func(i, j int) bool { return list[i].PlacedAt.Before(list[j].PlacedAt) })
		fmt.Fprintf(w, "== %s (%d) ==\n", status, len(list))
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		for _, o := range list {
			marker := ""
			if now.Sub(o.PlacedAt) < newWindow {
				marker = "NEW!"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%.2f %s\t%s\n", shortID(o), tableLabel(o), lineSummary(o), o.Total, o.Currency, marker)
		}
		tw.Flush()
	}
}

// renderMenu draws the signage view of a public menu.
func renderMenu(w io.Writer, m *menu.PublicMenu, stale error) {
	if stale != nil {
		fmt.Fprintf(w, "! refresh failed, showing last data: %v\n", stale)
	}
	if m == nil {
		return
	}
	if m.Restaurant != nil {
		fmt.Fprintf(w, "%s\n\n", strings.ToUpper(m.Restaurant.Name))
	}
	for _, c := range m.Categories {
		fmt.Fprintf(w, "%s\n", c.Name)
		items := append([]models.MenuItem{}, c.Items...)
		for _, s := range c.SubCategories {
			items = append(items, s.Items...)
		}
		for _, it := range items {
			suffix := ""
			if it.SoldOut {
				suffix = "  (sold out)"
			}
			fmt.Fprintf(w, "  %-32s %8.2f %s%s\n", it.Name, it.Price, it.Currency, suffix)
		}
	}
}

func shortID(o models.LiveOrder) string {
	return strings.ToUpper(o.ID.String()[:8])
}

func tableLabel(o models.LiveOrder) string {
	if o.TableNumber != "" {
		return "table " + o.TableNumber
	}
	if o.CustomerName != "" {
		return o.CustomerName
	}
	return "-"
}

func lineSummary(o models.LiveOrder) string {
	parts := make([]string, 0, len(o.Items))
	for _, l := range o.Items {
		parts = append(parts, fmt.Sprintf("%dx %s", l.Quantity, l.Name))
	}
	return strings.Join(parts, ", ")
}
