package admission

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
)

var exportHeader = []string{
	"id", "firstName", "lastName", "gender", "birthDate", "nationality",
	"idType", "idNumber", "program", "previousSchool", "graduationYear", "gpa",
	"email", "phone", "address", "city", "country",
	"emergencyName", "emergencyRelation", "emergencyPhone",
	"photoUrl", "recommendationUrl",
	"status", "responseText", "responseAuthor", "createdAt", "updatedAt",
}

func exportRow(app Application) []string {
	var respText, respAuthor string
	if app.Response != nil {
		respText = app.Response.Text
		respAuthor = app.Response.Author
	}
	return []string{
		app.ID, app.FirstName, app.LastName, app.Gender, app.BirthDate, app.Nationality,
		app.IDType, app.IDNumber, app.Program, app.PreviousSchool, app.GraduationYear, app.GPA,
		app.Email, app.Phone, app.Address, app.City, app.Country,
		app.EmergencyName, app.EmergencyRelation, app.EmergencyPhone,
		app.PhotoURL, app.RecommendationURL,
		string(app.Status), respText, respAuthor,
		app.CreatedAt.Format(time.RFC3339), app.UpdatedAt.Format(time.RFC3339),
	}
}

// ExportFilename returns the download filename for an export in the given
// format ("csv" or "xlsx").
func ExportFilename(format string) string {
	return fmt.Sprintf("admission_applications_%s.%s", time.Now().UTC().Format("2006-01-02"), format)
}

// ExportCSV writes a header row plus one row per application. Free-text
// fields containing quotes or separators are escaped by the csv writer.
func ExportCSV(w io.Writer, apps []Application) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return errors.Wrap(err, "writing csv header")
	}
	for _, app := range apps {
		if err := cw.Write(exportRow(app)); err != nil {
			return errors.Wrap(err, "writing csv row")
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "flushing csv")
}

// ExportXLSX writes the same columns as ExportCSV into a spreadsheet.
func ExportXLSX(w io.Writer, apps []Application) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Applications"
	idx, err := f.NewSheet(sheet)
	if err != nil {
		return errors.Wrap(err, "creating sheet")
	}
	f.SetActiveSheet(idx)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return errors.Wrap(err, "dropping default sheet")
	}

	writeRow := func(rowNum int, values []string) error {
		cell, err := excelize.CoordinatesToCellName(1, rowNum)
		if err != nil {
			return err
		}
		row := make([]interface{}, len(values))
		for i, v := range values {
			row[i] = v
		}
		return f.SetSheetRow(sheet, cell, &row)
	}

	if err := writeRow(1, exportHeader); err != nil {
		return errors.Wrap(err, "writing xlsx header")
	}
	for i, app := range apps {
		if err := writeRow(i+2, exportRow(app)); err != nil {
			return errors.Wrap(err, "writing xlsx row")
		}
	}
	return errors.Wrap(f.Write(w), "writing workbook")
}
