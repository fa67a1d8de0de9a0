package admission

import (
	"reflect"
	"testing"
	"time"
)

func TestComputeStatistics(t *testing.T) {
	nowFunc = func() time.Time { return time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC) }
	defer func() { nowFunc = func() time.Time { return time.Now().UTC() } }()

	mkApp := func(status Status, program, gender string, createdAt time.Time) Application {
		return Application{Status: status, Program: program, Gender: gender, CreatedAt: createdAt}
	}
	apps := []Application{
		mkApp(StatusAccepted, "Sciences", "female", time.Date(2026, 8, 2, 0, 0, 0, 0, time.UTC)),
		mkApp(StatusAccepted, "Sciences", "male", time.Date(2026, 7, 15, 0, 0, 0, 0, time.UTC)),
		mkApp(StatusPending, "Arts", "female", time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)),
		mkApp(StatusRejected, "Arts", "female", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)), // outside the window
	}

	stats := ComputeStatistics(apps)

	if stats.Total != 4 {
		t.Errorf("Total = %d, want 4", stats.Total)
	}
	if stats.ByStatus[StatusAccepted] != 2 || stats.ByStatus[StatusPending] != 1 || stats.ByStatus[StatusRejected] != 1 {
		t.Errorf("ByStatus = %v", stats.ByStatus)
	}
	if stats.ByProgram["Sciences"] != 2 || stats.ByProgram["Arts"] != 2 {
		t.Errorf("ByProgram = %v", stats.ByProgram)
	}
	if stats.ByGender["female"] != 3 || stats.ByGender["male"] != 1 {
		t.Errorf("ByGender = %v", stats.ByGender)
	}
	if stats.AcceptanceRate != "50.0" {
		t.Errorf("AcceptanceRate = %q, want 50.0", stats.AcceptanceRate)
	}

	want := []MonthCount{
		{Label: "Mar 2026", Count: 1},
		{Label: "Apr 2026"},
		{Label: "May 2026"},
		{Label: "Jun 2026"},
		{Label: "Jul 2026", Count: 1},
		{Label: "Aug 2026", Count: 1},
	}
	if !reflect.DeepEqual(stats.Monthly, want) {
		t.Errorf("Monthly = %v, want %v", stats.Monthly, want)
	}
}

func TestComputeStatisticsEmpty(t *testing.T) {
	stats := ComputeStatistics(nil)
	if stats.Total != 0 {
		t.Errorf("Total = %d, want 0", stats.Total)
	}
	if stats.AcceptanceRate != "0" {
		t.Errorf("AcceptanceRate = %q, want 0", stats.AcceptanceRate)
	}
	if len(stats.Monthly) != 6 {
		t.Errorf("Monthly has %d buckets, want 6", len(stats.Monthly))
	}
}

func TestStatusValid(t *testing.T) {
	for _, status := range Statuses {
		if !status.Valid() {
			t.Errorf("Status(%q).Valid() = false", status)
		}
	}
	if Status("approved").Valid() {
		t.Error(`Status("approved").Valid() = true`)
	}
}
