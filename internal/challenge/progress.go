package challenge

import (
	"math"
	"time"
)

// CalculateProgress derives the day counts, pace and projections for
// now. Day arithmetic runs on wall-clock times in the challenge location
// so DST changes never shift a day count.
func CalculateProgress(cfg Config, totalMiles, todayMiles float64, now time.Time) Progress {
	loc := cfg.location()
	start := wallClock(cfg.StartDate, loc)
	end := wallClock(cfg.EndDate, loc)
	effective := wallClock(now, loc)
	if effective.Before(start) {
		effective = start
	}
	if effective.After(end) {
		effective = end
	}

	var p Progress
	p.TotalDays = ceilDays(end.Sub(start))
	if p.TotalDays < 0 {
		p.TotalDays = 0
	}
	p.DaysPassed = clamp(ceilDays(effective.Sub(start)), 0, p.TotalDays)
	p.DaysRemaining = clamp(ceilDays(end.Sub(effective)), 0, p.TotalDays)

	if cfg.GoalMiles > 0 {
		p.ProgressPercentage = totalMiles / cfg.GoalMiles * 100
	}
	if p.TotalDays > 0 {
		p.TimePercentage = float64(p.DaysPassed) / float64(p.TotalDays) * 100
	}
	if p.DaysPassed > 0 {
		p.MilesPerDay = totalMiles / float64(p.DaysPassed)
	}
	// negative once the goal is passed
	if p.DaysRemaining > 0 {
		p.RequiredPacePerDay = (cfg.GoalMiles - totalMiles) / float64(p.DaysRemaining)
	}
	p.ProjectedTotal = p.MilesPerDay * float64(p.TotalDays)

	p.TodayMilesRemaining = math.Max(0, cfg.DailyGoal-todayMiles)
	p.TodayPercentComplete = 100
	if cfg.DailyGoal > 0 {
		p.TodayPercentComplete = math.Min(100, todayMiles/cfg.DailyGoal*100)
	}
	return p
}

// wallClock re-expresses t's wall clock in loc as a UTC instant
func wallClock(t time.Time, loc *time.Location) time.Time {
	l := t.In(loc)
	return time.Date(l.Year(), l.Month(), l.Day(), l.Hour(), l.Minute(), l.Second(), l.Nanosecond(), time.UTC)
}

func ceilDays(d time.Duration) int {
	return int(math.Ceil(d.Hours() / 24))
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
