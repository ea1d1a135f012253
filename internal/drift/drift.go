// Package drift diagnoses divergence between the optimistic cached order view
// and the backend's truth. It only reports; nothing here writes the cache or
// the backend, because optimistic views are allowed to be stale until their
// TTL runs out.
package drift

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/calibworks/calibtrack/pkg/models"
)

type Analyzer struct {
	logger *logrus.Logger
}

func NewAnalyzer(logger *logrus.Logger) *Analyzer {
	return &Analyzer{logger: logger}
}

// Report is the outcome of one cached-versus-backend comparison. Orders are
// identified by order number; a logical order is the set of lines sharing one.
type Report struct {
	CachedLines      int             `json:"cachedLines"`
	BackendLines     int             `json:"backendLines"`
	CachedOrders     int             `json:"cachedOrders"`
	BackendOrders    int             `json:"backendOrders"`
	MatchingOrders   int             `json:"matchingOrders"`
	OnlyInCache      []string        `json:"onlyInCache"`
	OnlyInBackend    []string        `json:"onlyInBackend"`
	FieldMismatches  []FieldMismatch `json:"fieldMismatches"`
	SyncPercentage   float64         `json:"syncPercentage"`
	PendingWriteHint bool            `json:"pendingWriteHint"`
	GeneratedAt      time.Time       `json:"generatedAt"`
}

// FieldMismatch records one field-level difference inside an order present on
// both sides.
type FieldMismatch struct {
	OrderNumber  string      `json:"orderNumber"`
	Field        string      `json:"field"`
	CachedValue  interface{} `json:"cachedValue"`
	BackendValue interface{} `json:"backendValue"`
}

// orderGroup is the per-order-number aggregate the comparison works on.
// Status and archive state are kept as per-line counts, not a single sampled
// value, so one divergent line inside an order still surfaces in the report.
type orderGroup struct {
	lines        int
	statusCounts map[models.OrderStatus]int
	archived     int
	totalAmount  float64
	tempIDs      int
}

func groupByNumber(lines []models.OrderLine) map[string]*orderGroup {
	groups := make(map[string]*orderGroup)
	for _, line := range lines {
		g, ok := groups[line.OrderNumber]
		if !ok {
			g = &orderGroup{statusCounts: make(map[models.OrderStatus]int)}
			groups[line.OrderNumber] = g
		}
		g.lines++
		g.statusCounts[line.Status]++
		if line.IsArchived {
			g.archived++
		}
		g.totalAmount += line.TotalAmount
		if strings.HasPrefix(line.ID, "tmp-") {
			g.tempIDs++
		}
	}
	return groups
}

// statusSummary renders a group's status distribution in a stable order.
func statusSummary(g *orderGroup) string {
	statuses := make([]string, 0, len(g.statusCounts))
	for status := range g.statusCounts {
		statuses = append(statuses, string(status))
	}
	sort.Strings(statuses)
	parts := make([]string, 0, len(statuses))
	for _, status := range statuses {
		parts = append(parts, fmt.Sprintf("%s:%d", status, g.statusCounts[models.OrderStatus(status)]))
	}
	return strings.Join(parts, " ")
}

func sameStatusCounts(a, b *orderGroup) bool {
	if len(a.statusCounts) != len(b.statusCounts) {
		return false
	}
	for status, count := range a.statusCounts {
		if b.statusCounts[status] != count {
			return false
		}
	}
	return true
}

// Compare builds a drift report between the cached optimistic view and a
// fresh backend read of the same collection.
func (a *Analyzer) Compare(cached, backend []models.OrderLine) *Report {
	report := &Report{
		CachedLines:     len(cached),
		BackendLines:    len(backend),
		OnlyInCache:     []string{},
		OnlyInBackend:   []string{},
		FieldMismatches: []FieldMismatch{},
		GeneratedAt:     time.Now(),
	}

	cachedGroups := groupByNumber(cached)
	backendGroups := groupByNumber(backend)
	report.CachedOrders = len(cachedGroups)
	report.BackendOrders = len(backendGroups)

	for number, cg := range cachedGroups {
		bg, ok := backendGroups[number]
		if !ok {
			report.OnlyInCache = append(report.OnlyInCache, number)
			// A cached order built entirely from temporary ids is a
			// background create that has not landed yet.
			if cg.tempIDs == cg.lines {
				report.PendingWriteHint = true
			}
			continue
		}
		report.FieldMismatches = append(report.FieldMismatches, compareGroups(number, cg, bg)...)
	}
	for number := range backendGroups {
		if _, ok := cachedGroups[number]; !ok {
			report.OnlyInBackend = append(report.OnlyInBackend, number)
		}
	}
	sort.Strings(report.OnlyInCache)
	sort.Strings(report.OnlyInBackend)

	mismatched := make(map[string]bool)
	for _, m := range report.FieldMismatches {
		mismatched[m.OrderNumber] = true
	}
	common := 0
	for number := range cachedGroups {
		if _, ok := backendGroups[number]; ok {
			common++
			if !mismatched[number] {
				report.MatchingOrders++
			}
		}
	}

	union := len(cachedGroups) + len(backendGroups) - common
	if union > 0 {
		report.SyncPercentage = float64(report.MatchingOrders) / float64(union) * 100
	}

	a.logger.WithFields(logrus.Fields{
		"cached_orders":    report.CachedOrders,
		"backend_orders":   report.BackendOrders,
		"matching_orders":  report.MatchingOrders,
		"field_mismatches": len(report.FieldMismatches),
		"sync_percentage":  report.SyncPercentage,
	}).Info("Drift comparison completed")

	return report
}

func compareGroups(number string, cached, backend *orderGroup) []FieldMismatch {
	var mismatches []FieldMismatch

	if cached.lines != backend.lines {
		mismatches = append(mismatches, FieldMismatch{
			OrderNumber:  number,
			Field:        "lineCount",
			CachedValue:  cached.lines,
			BackendValue: backend.lines,
		})
	}
	if !sameStatusCounts(cached, backend) {
		mismatches = append(mismatches, FieldMismatch{
			OrderNumber:  number,
			Field:        "status",
			CachedValue:  statusSummary(cached),
			BackendValue: statusSummary(backend),
		})
	}
	if cached.archived != backend.archived {
		mismatches = append(mismatches, FieldMismatch{
			OrderNumber:  number,
			Field:        "isArchived",
			CachedValue:  cached.archived,
			BackendValue: backend.archived,
		})
	}
	if math.Abs(cached.totalAmount-backend.totalAmount) > 0.01 {
		mismatches = append(mismatches, FieldMismatch{
			OrderNumber:  number,
			Field:        "totalAmount",
			CachedValue:  cached.totalAmount,
			BackendValue: backend.totalAmount,
		})
	}
	return mismatches
}

// GenerateReport renders a report as JSON or as a human-readable summary.
func (a *Analyzer) GenerateReport(report *Report, format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case "json":
		return json.MarshalIndent(report, "", "  ")
	case "summary":
		return a.summary(report), nil
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

func (a *Analyzer) summary(report *Report) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "ORDER DRIFT REPORT\n")
	fmt.Fprintf(&b, "Generated: %s\n\n", report.GeneratedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "Cached orders:   %d (%d lines)\n", report.CachedOrders, report.CachedLines)
	fmt.Fprintf(&b, "Backend orders:  %d (%d lines)\n", report.BackendOrders, report.BackendLines)
	fmt.Fprintf(&b, "Matching orders: %d (%.1f%% in sync)\n\n", report.MatchingOrders, report.SyncPercentage)
	fmt.Fprintf(&b, "Only in cache:   %s\n", listOrNone(report.OnlyInCache))
	fmt.Fprintf(&b, "Only in backend: %s\n", listOrNone(report.OnlyInBackend))
	if report.PendingWriteHint {
		fmt.Fprintf(&b, "\nNote: some cache-only orders carry temporary ids; a background create is likely still in flight.\n")
	}
	if len(report.FieldMismatches) > 0 {
		fmt.Fprintf(&b, "\nFIELD MISMATCHES\n")
		for _, m := range report.FieldMismatches {
			fmt.Fprintf(&b, "  %s %s: cached=%v backend=%v\n", m.OrderNumber, m.Field, m.CachedValue, m.BackendValue)
		}
	}
	return []byte(b.String())
}

func listOrNone(numbers []string) string {
	if len(numbers) == 0 {
		return "none"
	}
	return strings.Join(numbers, ", ")
}
