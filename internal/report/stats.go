package report

import (
	"github.com/shiftpages/funneltrace/internal/model"
)

// ComputeStats aggregates stored events into funnel statistics.
// The input order does not matter; counts and rates are computed from
// scratch on every call.
func ComputeStats(events []model.StoredEvent) *model.FunnelStats {
	stats := &model.FunnelStats{
		VisitsByDay:     map[string]int{},
		VisitsByCountry: map[string]int{},
		VisitsByPage:    map[string]int{},
		ClicksByButton:  map[string]int{},
		Variants:        map[string]*model.VariantStats{},
	}

	visitors := map[string]struct{}{}
	variantVisitors := map[string]map[string]struct{}{}
	var totalDuration, exitsWithDuration int

	for i := range events {
		ev := &events[i].Event
		stats.TotalEvents++

		if ev.VisitorID != "" {
			visitors[ev.VisitorID] = struct{}{}
		}

		var vs *model.VariantStats
		if ev.HookVariant != "" {
			vs = stats.Variants[ev.HookVariant]
			if vs == nil {
				vs = &model.VariantStats{}
				stats.Variants[ev.HookVariant] = vs
				variantVisitors[ev.HookVariant] = map[string]struct{}{}
			}
			if ev.VisitorID != "" {
				variantVisitors[ev.HookVariant][ev.VisitorID] = struct{}{}
			}
		}

		switch ev.Event {
		case model.EventPageVisit:
			stats.PageVisits++
			stats.VisitsByDay[ev.Timestamp.UTC().Format("2006-01-02")]++
			if ev.Country != "" {
				stats.VisitsByCountry[ev.Country]++
			}
			if ev.Page != "" {
				stats.VisitsByPage[ev.Page]++
			}
			if vs != nil {
				vs.Visits++
			}
		case model.EventPageExit:
			stats.PageExits++
			if ev.Duration != nil {
				totalDuration += *ev.Duration
				exitsWithDuration++
			}
		case model.EventButtonClick:
			stats.ButtonClicks++
			if ev.ButtonName != "" {
				stats.ClicksByButton[ev.ButtonName]++
			}
			if vs != nil {
				vs.Clicks++
			}
		case model.EventRegistration:
			stats.Registrations++
			if vs != nil {
				vs.Registrations++
			}
		}
	}

	stats.UniqueVisitors = len(visitors)

	if exitsWithDuration > 0 {
		stats.AverageDuration = float64(totalDuration) / float64(exitsWithDuration)
	}

	for id, vs := range stats.Variants {
		vs.UniqueVisitors = len(variantVisitors[id])
		if vs.Visits > 0 {
			vs.ConversionRate = float64(vs.Registrations) / float64(vs.Visits)
		}
	}

	// Drop empty maps so encoded output stays compact.
	if len(stats.VisitsByDay) == 0 {
		stats.VisitsByDay = nil
	}
	if len(stats.VisitsByCountry) == 0 {
		stats.VisitsByCountry = nil
	}
	if len(stats.VisitsByPage) == 0 {
		stats.VisitsByPage = nil
	}
	if len(stats.ClicksByButton) == 0 {
		stats.ClicksByButton = nil
	}
	if len(stats.Variants) == 0 {
		stats.Variants = nil
	}

	return stats
}
