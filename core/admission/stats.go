package admission

import (
	"strconv"
	"time"
)

type (
	MonthCount struct {
		Label string `json:"label"` // e.g. "Jan 2026"
		Count int    `json:"count"`
	}

	Statistics struct {
		Total     int            `json:"total"`
		ByStatus  map[Status]int `json:"byStatus"`
		ByProgram map[string]int `json:"byProgram"`
		ByGender  map[string]int `json:"byGender"`
		// Monthly is a rolling histogram of the last 6 calendar months,
		// oldest first.
		Monthly []MonthCount `json:"monthly"`
		// AcceptanceRate is accepted/total*100 with one decimal place,
		// "0" when there are no applications.
		AcceptanceRate string `json:"acceptanceRate"`
	}
)

// ComputeStatistics is a pure aggregation over the given applications.
func ComputeStatistics(apps []Application) Statistics {
	stats := Statistics{
		Total:     len(apps),
		ByStatus:  make(map[Status]int),
		ByProgram: make(map[string]int),
		ByGender:  make(map[string]int),
	}

	// month buckets, oldest first, ending with the current calendar month
	now := nowFunc()
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	monthIdx := make(map[string]int, 6)
	for i := 5; i >= 0; i-- {
		label := first.AddDate(0, -i, 0).Format("Jan 2006")
		monthIdx[label] = len(stats.Monthly)
		stats.Monthly = append(stats.Monthly, MonthCount{Label: label})
	}

	var accepted int
	for _, app := range apps {
		stats.ByStatus[app.Status]++
		stats.ByProgram[app.Program]++
		stats.ByGender[app.Gender]++
		if app.Status == StatusAccepted {
			accepted++
		}
		if idx, ok := monthIdx[app.CreatedAt.Format("Jan 2006")]; ok {
			stats.Monthly[idx].Count++
		}
	}

	if stats.Total == 0 {
		stats.AcceptanceRate = "0"
	} else {
		rate := float64(accepted) / float64(stats.Total) * 100
		stats.AcceptanceRate = strconv.FormatFloat(rate, 'f', 1, 64)
	}
	return stats
}
