package challenge

import "time"

// RecentActivitiesLimit is how many activities the recent list carries
const RecentActivitiesLimit = 5

// DateLayout is the calendar-date format used for the challenge window and
// daily totals
const DateLayout = "2006-01-02"

// Config describes one challenge. StartDate and EndDate are midnights in
// Location.
type Config struct {
	StartDate time.Time
	EndDate   time.Time
	GoalMiles float64
	DailyGoal float64
	Location  *time.Location
}

func (c Config) location() *time.Location {
	if c.Location == nil {
		return time.Local
	}
	return c.Location
}

// ActivitySummary is one activity as shown in the recent and today lists
type ActivitySummary struct {
	ID                int64   `json:"id"`
	Name              string  `json:"name"`
	Type              string  `json:"type"`
	Date              string  `json:"date"`
	Distance          float64 `json:"distance"`          // raw miles
	ConvertedDistance float64 `json:"convertedDistance"` // miles toward the goal
	IsCycling         bool    `json:"isCycling"`
}

// DailyTotal is the converted distance for one challenge-local day
type DailyTotal struct {
	Date     string  `json:"date"`
	Distance float64 `json:"distance"`
}

// TypeTotals accumulates one activity category. Distance mirrors
// ConvertedDistance and is what counts toward the goal.
type TypeTotals struct {
	Count             int     `json:"count"`
	Distance          float64 `json:"distance"`
	RawDistance       float64 `json:"rawDistance"`
	ConvertedDistance float64 `json:"convertedDistance"`
}

// Aggregate is everything derived from the fetched activity lists
type Aggregate struct {
	TotalMiles       float64               `json:"totalMiles"`
	TotalActivities  int                   `json:"totalActivities"`
	ActivityTypes    map[string]TypeTotals `json:"activityTypes"`
	DailyActivities  []DailyTotal          `json:"dailyActivities"`
	TodayMiles       float64               `json:"todayMiles"`
	TodayActivities  []ActivitySummary     `json:"todayActivities"`
	RecentActivities []ActivitySummary     `json:"recentActivities"`
}

// Progress holds the per-request challenge metrics
type Progress struct {
	TotalDays            int     `json:"totalDays"`
	DaysRemaining        int     `json:"daysRemaining"`
	DaysPassed           int     `json:"daysPassed"`
	ProgressPercentage   float64 `json:"progressPercentage"`
	TimePercentage       float64 `json:"timePercentage"`
	MilesPerDay          float64 `json:"milesPerDay"`
	RequiredPacePerDay   float64 `json:"requiredPacePerDay"`
	ProjectedTotal       float64 `json:"projectedTotal"`
	TodayMilesRemaining  float64 `json:"todayMilesRemaining"`
	TodayPercentComplete float64 `json:"todayPercentComplete"`
}

// Meta describes how the response was produced
type Meta struct {
	CachedResponse  bool       `json:"cachedResponse"`
	FetchDurationMs int64      `json:"fetchDurationMs"`
	CacheItems      int        `json:"cacheItems"`
	Timestamp       time.Time  `json:"timestamp"`
	NextRefreshAt   *time.Time `json:"nextRefreshAt"`
}

// Stats is the full challenge response
type Stats struct {
	StartDate string  `json:"startDate"`
	EndDate   string  `json:"endDate"`
	GoalMiles float64 `json:"goalMiles"`
	DailyGoal float64 `json:"dailyGoal"`
	Progress
	Aggregate
	Meta Meta `json:"_meta"`
}
