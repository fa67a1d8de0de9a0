package admission

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"
)

func exportFixtures() []Application {
	now := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	return []Application{
		{
			ID: "APP-20260820-00001", FirstName: "Amani", LastName: "Mwangi",
			Program: "Sciences", Email: "amani@test.test", Status: StatusPending,
			CreatedAt: now, UpdatedAt: now,
		},
		{
			ID: "APP-20260820-00002", FirstName: "Jo", LastName: `O'Neil, "JJ"`,
			Program: "Arts", Email: "jo@test.test", Status: StatusAccepted,
			Response:  &Response{Text: "Congrats,\nwelcome!", Author: "admin@shule.test", RespondedAt: now},
			CreatedAt: now, UpdatedAt: now,
		},
	}
}

func TestExportCSV(t *testing.T) {
	apps := exportFixtures()

	var buf bytes.Buffer
	if err := ExportCSV(&buf, apps); err != nil {
		t.Fatalf("ExportCSV() failed: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("reading csv back failed: %v", err)
	}
	if len(records) != len(apps)+1 {
		t.Fatalf("ExportCSV() wrote %d records, want %d", len(records), len(apps)+1)
	}
	for i, rec := range records {
		if len(rec) != len(exportHeader) {
			t.Errorf("record %d has %d columns, want %d", i, len(rec), len(exportHeader))
		}
	}

	// quotes, commas and newlines survive the round trip
	row := records[2]
	if row[1] != "Jo" || row[2] != `O'Neil, "JJ"` {
		t.Errorf("name columns = %q, %q", row[1], row[2])
	}
	if row[23] != "Congrats,\nwelcome!" {
		t.Errorf("response column = %q", row[23])
	}
}

func TestExportFilename(t *testing.T) {
	name := ExportFilename("csv")
	if !strings.HasPrefix(name, "admission_applications_") || !strings.HasSuffix(name, ".csv") {
		t.Errorf("ExportFilename() = %q", name)
	}
}
