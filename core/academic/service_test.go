package academic

import (
	"context"
	"testing"

	"github.com/shulehq/shule/core"
	inmemdoc "github.com/shulehq/shule/storage/docstore/inmem"
)

var adminCaller = core.Caller{ID: "admin-1", Email: "admin@shule.test", IsAdmin: true}

func setupService() (*Service, *inmemdoc.DB) {
	db := inmemdoc.Open()
	return NewService(db, core.NopLogger{}), db
}

func mustCreateSubject(t *testing.T, svc *Service, name, code string) Subject {
	t.Helper()
	sub, err := svc.CreateSubject(context.Background(), adminCaller, NewSubject{
		Name: name, Code: code, Level: "secondary",
	})
	if err != nil {
		t.Fatalf("CreateSubject(%q) failed: %v", name, err)
	}
	return sub
}

func mustCreateClass(t *testing.T, svc *Service, grade, section string, capacity int, subjectIDs ...string) Class {
	t.Helper()
	cls, err := svc.CreateClass(context.Background(), adminCaller, NewClass{
		Name: "Form " + grade + section, Grade: grade, Section: section,
		Capacity: capacity, SubjectIDs: subjectIDs,
	})
	if err != nil {
		t.Fatalf("CreateClass(%q, %q) failed: %v", grade, section, err)
	}
	return cls
}

func addStudentDoc(t *testing.T, db *inmemdoc.DB, id string) {
	t.Helper()
	err := db.Set(context.Background(), StudentCollection, id, studentRef{ID: id, SubjectIDs: []string{}})
	if err != nil {
		t.Fatalf("seeding student %q failed: %v", id, err)
	}
}

func TestCreateSubject(t *testing.T) {
	svc, _ := setupService()
	ctx := context.Background()

	sub := mustCreateSubject(t, svc, "Mathematics", "MATH101")
	if sub.ID == "" {
		t.Error("CreateSubject() did not assign an ID")
	}

	if _, err := svc.CreateSubject(ctx, core.Caller{}, NewSubject{Name: "Y", Code: "Y1", Level: "x"}); err != core.ErrPermissionDenied {
		t.Errorf("CreateSubject() as non-admin error = %v, want %v", err, core.ErrPermissionDenied)
	}

	// names are unique, case-sensitively: an exact duplicate conflicts, a
	// different casing does not
	if _, err := svc.CreateSubject(ctx, adminCaller, NewSubject{Name: "Mathematics", Code: "MATH102", Level: "secondary"}); !core.IsConflict(err) {
		t.Errorf("CreateSubject() duplicate name error = %v, want conflict", err)
	}
	if _, err := svc.CreateSubject(ctx, adminCaller, NewSubject{Name: "mathematics", Code: "MATH103", Level: "secondary"}); err != nil {
		t.Errorf("CreateSubject() lowercase variant failed: %v", err)
	}
}

func TestUpdateSubject(t *testing.T) {
	svc, _ := setupService()
	ctx := context.Background()

	sub := mustCreateSubject(t, svc, "Mathematics", "MATH101")
	other := mustCreateSubject(t, svc, "Physics", "PHY101")

	// renaming onto another subject's name conflicts; keeping one's own does not
	if _, err := svc.UpdateSubject(ctx, adminCaller, sub.ID, UpdateSubject{Name: other.Name}); !core.IsConflict(err) {
		t.Errorf("UpdateSubject() onto taken name error = %v, want conflict", err)
	}
	if _, err := svc.UpdateSubject(ctx, adminCaller, sub.ID, UpdateSubject{Name: sub.Name, Description: "numbers"}); err != nil {
		t.Fatalf("UpdateSubject() keeping own name failed: %v", err)
	}

	got, err := svc.UpdateSubject(ctx, adminCaller, sub.ID, UpdateSubject{Level: "primary"})
	if err != nil {
		t.Fatalf("UpdateSubject() failed: %v", err)
	}
	if got.Level != "primary" || got.Name != "Mathematics" || got.Description != "numbers" {
		t.Errorf("UpdateSubject() = %+v", got)
	}

	if _, err := svc.UpdateSubject(ctx, adminCaller, "nope", UpdateSubject{Name: "X"}); err != ErrSubjectNotFound {
		t.Errorf("UpdateSubject() on missing subject error = %v, want %v", err, ErrSubjectNotFound)
	}
}

func TestDeleteSubject(t *testing.T) {
	svc, _ := setupService()
	ctx := context.Background()

	sub := mustCreateSubject(t, svc, "Mathematics", "MATH101")
	cls := mustCreateClass(t, svc, "1", "A", 30, sub.ID)

	if err := svc.DeleteSubject(ctx, adminCaller, sub.ID); !core.IsIntegrity(err) {
		t.Errorf("DeleteSubject() while referenced error = %v, want integrity", err)
	}

	// drop the reference, then delete
	if _, err := svc.UpdateClass(ctx, adminCaller, cls.ID, UpdateClass{SubjectIDs: []string{}}); err != nil {
		t.Fatalf("UpdateClass() failed: %v", err)
	}
	if err := svc.DeleteSubject(ctx, adminCaller, sub.ID); err != nil {
		t.Fatalf("DeleteSubject() failed: %v", err)
	}
	if _, err := svc.GetSubject(ctx, sub.ID); err != ErrSubjectNotFound {
		t.Errorf("GetSubject() after delete error = %v, want %v", err, ErrSubjectNotFound)
	}
}

func TestCreateClass(t *testing.T) {
	svc, _ := setupService()
	ctx := context.Background()

	sub := mustCreateSubject(t, svc, "Mathematics", "MATH101")
	mustCreateClass(t, svc, "1", "A", 30, sub.ID)

	// (grade, section) must be unique
	if _, err := svc.CreateClass(ctx, adminCaller, NewClass{Name: "x", Grade: "1", Section: "A", Capacity: 10}); !core.IsConflict(err) {
		t.Errorf("CreateClass() duplicate section error = %v, want conflict", err)
	}
	mustCreateClass(t, svc, "1", "B", 30)
	mustCreateClass(t, svc, "2", "A", 30)

	// unknown subject references are rejected
	if _, err := svc.CreateClass(ctx, adminCaller, NewClass{Name: "x", Grade: "3", Section: "A", Capacity: 10, SubjectIDs: []string{"nope"}}); !core.IsIntegrity(err) {
		t.Errorf("CreateClass() with unknown subject error = %v, want integrity", err)
	}
}

func TestDeleteClass(t *testing.T) {
	svc, db := setupService()
	ctx := context.Background()

	cls := mustCreateClass(t, svc, "1", "A", 30)
	addStudentDoc(t, db, "stu-1")
	if err := svc.AddStudentToClass(ctx, adminCaller, cls.ID, "stu-1"); err != nil {
		t.Fatalf("AddStudentToClass() failed: %v", err)
	}

	if err := svc.DeleteClass(ctx, adminCaller, cls.ID); !core.IsIntegrity(err) {
		t.Errorf("DeleteClass() with enrolled students error = %v, want integrity", err)
	}

	if err := svc.RemoveStudentFromClass(ctx, adminCaller, cls.ID, "stu-1"); err != nil {
		t.Fatalf("RemoveStudentFromClass() failed: %v", err)
	}
	if err := svc.DeleteClass(ctx, adminCaller, cls.ID); err != nil {
		t.Fatalf("DeleteClass() failed: %v", err)
	}
}

func TestEnrollment(t *testing.T) {
	svc, db := setupService()
	ctx := context.Background()

	sub := mustCreateSubject(t, svc, "Mathematics", "MATH101")
	cls := mustCreateClass(t, svc, "1", "A", 30, sub.ID)
	addStudentDoc(t, db, "stu-1")

	if err := svc.AddStudentToClass(ctx, adminCaller, cls.ID, "stu-1"); err != nil {
		t.Fatalf("AddStudentToClass() failed: %v", err)
	}
	// enrolling again is a no-op
	if err := svc.AddStudentToClass(ctx, adminCaller, cls.ID, "stu-1"); err != nil {
		t.Fatalf("AddStudentToClass() again failed: %v", err)
	}

	got, err := svc.GetClass(ctx, cls.ID)
	if err != nil {
		t.Fatalf("GetClass() failed: %v", err)
	}
	if got.CurrentEnrollment != 1 || len(got.StudentIDs) != 1 {
		t.Errorf("GetClass() enrollment = %d, studentIds = %v", got.CurrentEnrollment, got.StudentIDs)
	}

	// the student picked up the class's subject list
	var stu studentRef
	if err := db.Get(ctx, StudentCollection, "stu-1", &stu); err != nil {
		t.Fatalf("Get(student) failed: %v", err)
	}
	if stu.ClassID != cls.ID || len(stu.SubjectIDs) != 1 || stu.SubjectIDs[0] != sub.ID {
		t.Errorf("student ref = %+v", stu)
	}

	if err := svc.RemoveStudentFromClass(ctx, adminCaller, cls.ID, "stu-1"); err != nil {
		t.Fatalf("RemoveStudentFromClass() failed: %v", err)
	}
	// removing again is a no-op and never drives the counter negative
	if err := svc.RemoveStudentFromClass(ctx, adminCaller, cls.ID, "stu-1"); err != nil {
		t.Fatalf("RemoveStudentFromClass() again failed: %v", err)
	}

	got, err = svc.GetClass(ctx, cls.ID)
	if err != nil {
		t.Fatalf("GetClass() failed: %v", err)
	}
	if got.CurrentEnrollment != 0 || len(got.StudentIDs) != 0 {
		t.Errorf("GetClass() enrollment = %d, studentIds = %v", got.CurrentEnrollment, got.StudentIDs)
	}

	// unknown students are an integrity error, not a silent write
	if err := svc.AddStudentToClass(ctx, adminCaller, cls.ID, "ghost"); !core.IsIntegrity(err) {
		t.Errorf("AddStudentToClass() with unknown student error = %v, want integrity", err)
	}
}

func TestQueryAll(t *testing.T) {
	svc, _ := setupService()
	ctx := context.Background()

	mustCreateSubject(t, svc, "Physics", "PHY101")
	mustCreateSubject(t, svc, "Biology", "BIO101")
	mustCreateClass(t, svc, "2", "B", 25)
	mustCreateClass(t, svc, "1", "A", 25)

	subs, err := svc.QueryAllSubjects(ctx)
	if err != nil {
		t.Fatalf("QueryAllSubjects() failed: %v", err)
	}
	if len(subs) != 2 || subs[0].Name != "Biology" {
		t.Errorf("QueryAllSubjects() = %v", subs)
	}

	classes, err := svc.QueryAllClasses(ctx)
	if err != nil {
		t.Fatalf("QueryAllClasses() failed: %v", err)
	}
	if len(classes) != 2 || classes[0].Grade != "1" {
		t.Errorf("QueryAllClasses() ordering wrong")
	}
}
