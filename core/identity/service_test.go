package identity

import (
	"context"
	"testing"

	"github.com/pkg/errors"

	"github.com/shulehq/shule/core"
	"github.com/shulehq/shule/core/academic"
	inmemdoc "github.com/shulehq/shule/storage/docstore/inmem"
)

var adminCaller = core.Caller{ID: "admin-1", Email: "admin@shule.test", IsAdmin: true}

// provisioner mirrors services/auth.DummyProvisioner without the import; the
// services tree depends on core, not the other way around.
type provisionerStub struct {
	failCreate error
	failDelete error
	seq        int
	deleted    []string
}

func (p *provisionerStub) CreateIdentity(_ context.Context, _ core.Caller, kind Kind, _, _, _ string) (string, error) {
	if p.failCreate != nil {
		return "", p.failCreate
	}
	p.seq++
	return string(kind) + "-" + string(rune('0'+p.seq)), nil
}

func (p *provisionerStub) DeleteIdentity(_ context.Context, _ core.Caller, id string) error {
	if p.failDelete != nil {
		return p.failDelete
	}
	p.deleted = append(p.deleted, id)
	return nil
}

func setupService() (*Service, *inmemdoc.DB, *provisionerStub) {
	db := inmemdoc.Open()
	prov := &provisionerStub{}
	return NewService(db, prov, core.NopLogger{}), db, prov
}

func seedClass(t *testing.T, db core.Docstore, id string, capacity, enrolled int, subjectIDs ...string) {
	t.Helper()
	if subjectIDs == nil {
		subjectIDs = []string{}
	}
	cls := academic.Class{
		ID: id, Name: "Form " + id, Grade: "1", Section: id,
		Capacity: capacity, CurrentEnrollment: enrolled,
		SubjectIDs: subjectIDs, StudentIDs: []string{},
	}
	if err := db.Set(context.Background(), academic.ClassCollection, id, cls); err != nil {
		t.Fatalf("seeding class %q failed: %v", id, err)
	}
}

func seedSubject(t *testing.T, db core.Docstore, id string) {
	t.Helper()
	sub := academic.Subject{ID: id, Name: "Subject " + id, Code: id, Level: "secondary"}
	if err := db.Set(context.Background(), academic.SubjectCollection, id, sub); err != nil {
		t.Fatalf("seeding subject %q failed: %v", id, err)
	}
}

func newTeacher() NewTeacher {
	return NewTeacher{
		Name: "Neema Otieno", Email: "neema@test.test", Password: "s3cret-pass",
		EmployeeID: "EMP001", SubjectIDs: []string{"sub-1"},
	}
}

func newStudent() NewStudent {
	return NewStudent{
		Name: "Baraka Otieno", Email: "baraka@test.test", Password: "s3cret-pass",
		StudentNo: "STU001", ClassID: "cls-1",
	}
}

func TestCreateTeacher(t *testing.T) {
	svc, db, _ := setupService()
	ctx := context.Background()
	seedSubject(t, db, "sub-1")
	seedClass(t, db, "cls-1", 30, 0)

	nt := newTeacher()
	nt.ClassIDs = []string{"cls-1"}
	tch, err := svc.CreateTeacher(ctx, adminCaller, nt)
	if err != nil {
		t.Fatalf("CreateTeacher() failed: %v", err)
	}
	if tch.ID == "" {
		t.Error("CreateTeacher() did not assign the provisioned ID")
	}

	// homeroom back-reference was written in the same batch
	var cls academic.Class
	if err := db.Get(ctx, academic.ClassCollection, "cls-1", &cls); err != nil {
		t.Fatalf("Get(class) failed: %v", err)
	}
	if cls.TeacherID != tch.ID {
		t.Errorf("class teacherId = %q, want %q", cls.TeacherID, tch.ID)
	}

	// duplicate employee ID conflicts
	dup := newTeacher()
	dup.Email = "other@test.test"
	if _, err := svc.CreateTeacher(ctx, adminCaller, dup); !core.IsConflict(err) {
		t.Errorf("CreateTeacher() duplicate employeeId error = %v, want conflict", err)
	}

	// unknown subject reference is rejected before provisioning
	bad := newTeacher()
	bad.Email = "bad@test.test"
	bad.EmployeeID = "EMP002"
	bad.SubjectIDs = []string{"ghost"}
	if _, err := svc.CreateTeacher(ctx, adminCaller, bad); !core.IsIntegrity(err) {
		t.Errorf("CreateTeacher() with unknown subject error = %v, want integrity", err)
	}
}

func TestCreateTeacherProvisioningFailureAborts(t *testing.T) {
	svc, db, prov := setupService()
	seedSubject(t, db, "sub-1")
	prov.failCreate = errors.New("auth provider down")

	if _, err := svc.CreateTeacher(context.Background(), adminCaller, newTeacher()); err == nil {
		t.Fatal("CreateTeacher() succeeded with a failing provisioner")
	}
	if db.Count(TeacherCollection) != 0 {
		t.Error("CreateTeacher() wrote a profile despite the provisioning failure")
	}
}

// failBatchDB makes every batch commit fail.
type failBatchDB struct{ core.Docstore }

type failBatch struct{}

func (failBatchDB) Batch() core.DocstoreBatch { return failBatch{} }

func (b failBatch) Set(string, string, interface{}) core.DocstoreBatch { return b }
func (b failBatch) Merge(string, string, map[string]interface{}) core.DocstoreBatch {
	return b
}
func (b failBatch) Delete(string, string) core.DocstoreBatch { return b }
func (b failBatch) Commit(context.Context) error             { return errors.New("commit failed") }

func TestCreateTeacherBatchFailureCompensatesIdentity(t *testing.T) {
	db := inmemdoc.Open()
	prov := &provisionerStub{}
	svc := NewService(failBatchDB{db}, prov, core.NopLogger{})
	seedSubject(t, db, "sub-1")

	if _, err := svc.CreateTeacher(context.Background(), adminCaller, newTeacher()); err == nil {
		t.Fatal("CreateTeacher() succeeded with a failing batch")
	}
	if len(prov.deleted) != 1 {
		t.Fatalf("provisioned identity was not compensated: deleted = %v", prov.deleted)
	}
}

func TestCreateStudent(t *testing.T) {
	svc, db, _ := setupService()
	ctx := context.Background()
	seedSubject(t, db, "sub-1")
	seedClass(t, db, "cls-1", 2, 0, "sub-1")

	par, err := svc.CreateParent(ctx, adminCaller, NewParent{
		Name: "Grace Otieno", Email: "grace@test.test", Password: "s3cret-pass",
		StudentIDs: []string{},
	})
	if err == nil {
		t.Fatal("CreateParent() accepted an empty student list")
	}

	ns := newStudent()
	stu, err := svc.CreateStudent(ctx, adminCaller, ns)
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	if len(stu.SubjectIDs) != 1 || stu.SubjectIDs[0] != "sub-1" {
		t.Errorf("CreateStudent() subjectIds = %v, want derived from class", stu.SubjectIDs)
	}

	var cls academic.Class
	if err := db.Get(ctx, academic.ClassCollection, "cls-1", &cls); err != nil {
		t.Fatalf("Get(class) failed: %v", err)
	}
	if cls.CurrentEnrollment != 1 || len(cls.StudentIDs) != 1 {
		t.Errorf("class enrollment = %d, studentIds = %v", cls.CurrentEnrollment, cls.StudentIDs)
	}

	// now a parent referencing the student, which back-references the parent
	par, err = svc.CreateParent(ctx, adminCaller, NewParent{
		Name: "Grace Otieno", Email: "grace@test.test", Password: "s3cret-pass",
		StudentIDs: []string{stu.ID},
	})
	if err != nil {
		t.Fatalf("CreateParent() failed: %v", err)
	}
	got, err := svc.GetStudent(ctx, stu.ID)
	if err != nil {
		t.Fatalf("GetStudent() failed: %v", err)
	}
	if len(got.ParentIDs) != 1 || got.ParentIDs[0] != par.ID {
		t.Errorf("student parentIds = %v, want [%s]", got.ParentIDs, par.ID)
	}

	// duplicate student number conflicts
	dup := newStudent()
	dup.Email = "second@test.test"
	if _, err := svc.CreateStudent(ctx, adminCaller, dup); !core.IsConflict(err) {
		t.Errorf("CreateStudent() duplicate studentNo error = %v, want conflict", err)
	}
}

func TestCreateStudentClassFull(t *testing.T) {
	svc, db, _ := setupService()
	seedClass(t, db, "cls-1", 1, 1)

	_, err := svc.CreateStudent(context.Background(), adminCaller, newStudent())
	if err == nil {
		t.Fatal("CreateStudent() enrolled into a full class")
	}
	vErr, ok := errors.Cause(err).(*core.ValidationError)
	if !ok || vErr.Err != ErrClassFull {
		t.Errorf("CreateStudent() error = %v, want %v", err, ErrClassFull)
	}
}

func TestEmailUniqueAcrossCollections(t *testing.T) {
	svc, db, _ := setupService()
	ctx := context.Background()
	seedSubject(t, db, "sub-1")
	seedClass(t, db, "cls-1", 30, 0)

	if _, err := svc.CreateTeacher(ctx, adminCaller, newTeacher()); err != nil {
		t.Fatalf("CreateTeacher() failed: %v", err)
	}

	// a student may not reuse a teacher's email, in any casing
	ns := newStudent()
	ns.Email = "NEEMA@test.test"
	if _, err := svc.CreateStudent(ctx, adminCaller, ns); !core.IsConflict(err) {
		t.Errorf("CreateStudent() with teacher's email error = %v, want conflict", err)
	}
}

func TestTransferStudent(t *testing.T) {
	svc, db, _ := setupService()
	ctx := context.Background()
	seedSubject(t, db, "sub-1")
	seedSubject(t, db, "sub-2")
	seedClass(t, db, "cls-1", 30, 0, "sub-1")
	seedClass(t, db, "cls-2", 30, 0, "sub-2")

	stu, err := svc.CreateStudent(ctx, adminCaller, newStudent())
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}

	if err := svc.TransferStudent(ctx, adminCaller, stu.ID, "cls-2"); err != nil {
		t.Fatalf("TransferStudent() failed: %v", err)
	}
	// transferring to the same class is a no-op
	if err := svc.TransferStudent(ctx, adminCaller, stu.ID, "cls-2"); err != nil {
		t.Fatalf("TransferStudent() again failed: %v", err)
	}

	var oldCls, newCls academic.Class
	if err := db.Get(ctx, academic.ClassCollection, "cls-1", &oldCls); err != nil {
		t.Fatal(err)
	}
	if err := db.Get(ctx, academic.ClassCollection, "cls-2", &newCls); err != nil {
		t.Fatal(err)
	}
	if oldCls.CurrentEnrollment != 0 || len(oldCls.StudentIDs) != 0 {
		t.Errorf("old class enrollment = %d, studentIds = %v", oldCls.CurrentEnrollment, oldCls.StudentIDs)
	}
	if newCls.CurrentEnrollment != 1 || len(newCls.StudentIDs) != 1 {
		t.Errorf("new class enrollment = %d, studentIds = %v", newCls.CurrentEnrollment, newCls.StudentIDs)
	}

	got, err := svc.GetStudent(ctx, stu.ID)
	if err != nil {
		t.Fatalf("GetStudent() failed: %v", err)
	}
	if got.ClassID != "cls-2" || len(got.SubjectIDs) != 1 || got.SubjectIDs[0] != "sub-2" {
		t.Errorf("transferred student = %+v", got)
	}

	// transfers respect the destination capacity
	seedClass(t, db, "cls-3", 1, 1)
	if err := svc.TransferStudent(ctx, adminCaller, stu.ID, "cls-3"); err == nil {
		t.Error("TransferStudent() enrolled into a full class")
	}
}

func TestDeleteStudent(t *testing.T) {
	svc, db, prov := setupService()
	ctx := context.Background()
	seedClass(t, db, "cls-1", 30, 0)

	stu, err := svc.CreateStudent(ctx, adminCaller, newStudent())
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	par, err := svc.CreateParent(ctx, adminCaller, NewParent{
		Name: "Grace Otieno", Email: "grace@test.test", Password: "s3cret-pass",
		StudentIDs: []string{stu.ID},
	})
	if err != nil {
		t.Fatalf("CreateParent() failed: %v", err)
	}

	if err := svc.DeleteStudent(ctx, adminCaller, stu.ID); err != nil {
		t.Fatalf("DeleteStudent() failed: %v", err)
	}
	if _, err := svc.GetStudent(ctx, stu.ID); err != ErrStudentNotFound {
		t.Errorf("GetStudent() after delete error = %v, want %v", err, ErrStudentNotFound)
	}

	// class counter and parent back-reference were cleaned up
	var cls academic.Class
	if err := db.Get(ctx, academic.ClassCollection, "cls-1", &cls); err != nil {
		t.Fatal(err)
	}
	if cls.CurrentEnrollment != 0 || len(cls.StudentIDs) != 0 {
		t.Errorf("class after delete: enrollment = %d, studentIds = %v", cls.CurrentEnrollment, cls.StudentIDs)
	}
	gotPar, err := svc.GetParent(ctx, par.ID)
	if err != nil {
		t.Fatalf("GetParent() failed: %v", err)
	}
	if len(gotPar.StudentIDs) != 0 {
		t.Errorf("parent studentIds = %v, want empty", gotPar.StudentIDs)
	}

	// the auth identity went with it
	if len(prov.deleted) != 1 || prov.deleted[0] != stu.ID {
		t.Errorf("deleted identities = %v, want [%s]", prov.deleted, stu.ID)
	}
}

func TestDeleteTeacherClearsBackrefs(t *testing.T) {
	svc, db, _ := setupService()
	ctx := context.Background()
	seedSubject(t, db, "sub-1")
	seedClass(t, db, "cls-1", 30, 0)

	nt := newTeacher()
	nt.ClassIDs = []string{"cls-1"}
	tch, err := svc.CreateTeacher(ctx, adminCaller, nt)
	if err != nil {
		t.Fatalf("CreateTeacher() failed: %v", err)
	}

	if err := svc.DeleteTeacher(ctx, adminCaller, tch.ID); err != nil {
		t.Fatalf("DeleteTeacher() failed: %v", err)
	}
	var cls academic.Class
	if err := db.Get(ctx, academic.ClassCollection, "cls-1", &cls); err != nil {
		t.Fatal(err)
	}
	if cls.TeacherID != "" {
		t.Errorf("class teacherId = %q, want cleared", cls.TeacherID)
	}
}
