package challenge

import (
	"sort"
	"time"

	"strava-challenge/internal/strava"
	"strava-challenge/internal/units"
)

// Summarize annotates a single activity with its raw and converted miles
func Summarize(a strava.Activity, loc *time.Location) ActivitySummary {
	miles := units.ForActivity(a.Distance, a.Category())
	return ActivitySummary{
		ID:                a.ID,
		Name:              a.Name,
		Type:              a.Category(),
		Date:              a.LocalStart(loc).Format(time.RFC3339),
		Distance:          miles.RawMiles,
		ConvertedDistance: miles.ConvertedMiles,
		IsCycling:         miles.IsWheeled,
	}
}

// DailyTotals sums converted miles per local calendar day, keeping only
// days within [start, end] inclusive. The result is ordered by date.
func DailyTotals(activities []strava.Activity, start, end time.Time, loc *time.Location) []DailyTotal {
	first := start.In(loc).Format(DateLayout)
	last := end.In(loc).Format(DateLayout)

	byDay := make(map[string]float64)
	for _, a := range activities {
		day := a.LocalStart(loc).Format(DateLayout)
		if day < first || day > last {
			continue
		}
		byDay[day] += units.ForActivity(a.Distance, a.Category()).ConvertedMiles
	}

	totals := make([]DailyTotal, 0, len(byDay))
	for day, miles := range byDay {
		totals = append(totals, DailyTotal{Date: day, Distance: miles})
	}
	sort.Slice(totals, func(i, j int) bool {
		return totals[i].Date < totals[j].Date
	})
	return totals
}

// TypeBreakdown groups every activity by category
func TypeBreakdown(activities []strava.Activity) map[string]TypeTotals {
	types := make(map[string]TypeTotals)
	for _, a := range activities {
		miles := units.ForActivity(a.Distance, a.Category())
		t := types[a.Category()]
		t.Count++
		t.Distance += miles.ConvertedMiles
		t.RawDistance += miles.RawMiles
		t.ConvertedDistance += miles.ConvertedMiles
		types[a.Category()] = t
	}
	return types
}

// TotalMiles sums converted miles over activities that report a distance
func TotalMiles(activities []strava.Activity) float64 {
	var total float64
	for _, a := range activities {
		if a.Distance > 0 {
			total += units.ForActivity(a.Distance, a.Category()).ConvertedMiles
		}
	}
	return total
}

// Today returns converted miles and summaries for activities starting at
// or after midnight
func Today(activities []strava.Activity, midnight time.Time, loc *time.Location) (float64, []ActivitySummary) {
	var miles float64
	list := []ActivitySummary{}
	for _, a := range activities {
		if a.LocalStart(loc).Before(midnight) {
			continue
		}
		s := Summarize(a, loc)
		miles += s.ConvertedDistance
		list = append(list, s)
	}
	return miles, list
}

// Recent summarizes the first n activities of a most-recent-first list
func Recent(activities []strava.Activity, n int, loc *time.Location) []ActivitySummary {
	if n > len(activities) {
		n = len(activities)
	}
	if n < 0 {
		n = 0
	}
	recent := make([]ActivitySummary, 0, n)
	for _, a := range activities[:n] {
		recent = append(recent, Summarize(a, loc))
	}
	return recent
}

// BuildAggregate runs every aggregation over the window listing (fetched
// since the challenge start) and the today listing (fetched since local
// midnight of now)
func BuildAggregate(cfg Config, window, today []strava.Activity, now time.Time) Aggregate {
	loc := cfg.location()
	midnight := startOfDay(now.In(loc))
	todayMiles, todayList := Today(today, midnight, loc)

	return Aggregate{
		TotalMiles:       TotalMiles(window),
		TotalActivities:  len(window),
		ActivityTypes:    TypeBreakdown(window),
		DailyActivities:  DailyTotals(window, cfg.StartDate, cfg.EndDate, loc),
		TodayMiles:       todayMiles,
		TodayActivities:  todayList,
		RecentActivities: Recent(window, RecentActivitiesLimit, loc),
	}
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
