package identity

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/shulehq/shule/core"
	"github.com/shulehq/shule/core/academic"
)

var (
	// errors
	ErrTeacherNotFound   = errors.New("teacher not found")
	ErrStudentNotFound   = errors.New("student not found")
	ErrParentNotFound    = errors.New("parent not found")
	ErrEmailExists       = errors.New("a teacher, student or parent with this email already exists")
	ErrEmployeeIDExists  = errors.New("a teacher with this employee ID already exists")
	ErrStudentNoExists   = errors.New("a student with this student number already exists")
	ErrClassFull         = errors.New("class is at full capacity")
	ErrUnknownSubjectID  = errors.New("referenced subject does not exist")
	ErrUnknownClassID    = errors.New("referenced class does not exist")
	ErrUnknownStudentID  = errors.New("referenced student does not exist")
	ErrUnknownParentID   = errors.New("referenced parent does not exist")

	// mockable in tests
	nowFunc = func() time.Time { return time.Now().UTC() }
)

type Service struct {
	db     core.Docstore
	prov   Provisioner
	logger core.Logger
}

func NewService(db core.Docstore, prov Provisioner, logger core.Logger) *Service {
	return &Service{db: db, prov: prov, logger: logger}
}

// CreateTeacher validates uniqueness and references, provisions the auth
// identity, then writes the profile (plus homeroom back-references) in one
// batch keyed by the new identity's ID.
func (svc *Service) CreateTeacher(ctx context.Context, caller core.Caller, nt NewTeacher) (Teacher, error) {
	if !caller.IsAdmin {
		return Teacher{}, core.ErrPermissionDenied
	}
	if err := nt.Validate(); err != nil {
		return Teacher{}, err
	}
	if err := svc.checkEmailUniqueness(ctx, nt.Email); err != nil {
		return Teacher{}, err
	}
	var dups []Teacher
	if err := svc.db.GetAll(ctx, TeacherCollection, &dups, core.Where("employeeId", core.OpEqual, nt.EmployeeID)); err != nil {
		return Teacher{}, errors.Wrap(err, "querying teachers by employee ID")
	}
	if len(dups) > 0 {
		return Teacher{}, core.NewConflictError(ErrEmployeeIDExists, "employeeId")
	}
	if err := svc.checkRefsExist(ctx, academic.SubjectCollection, nt.SubjectIDs, ErrUnknownSubjectID); err != nil {
		return Teacher{}, err
	}
	classes := make([]academic.Class, 0, len(nt.ClassIDs))
	for _, cid := range nt.ClassIDs {
		var cls academic.Class
		if err := svc.db.Get(ctx, academic.ClassCollection, cid, &cls); err != nil {
			if errors.Cause(err) == core.ErrDocNotFound {
				return Teacher{}, core.NewIntegrityError(ErrUnknownClassID)
			}
			return Teacher{}, err
		}
		classes = append(classes, cls)
	}

	// auth provisioning first; its failure aborts before any document write
	id, err := svc.prov.CreateIdentity(ctx, caller, KindTeacher, nt.Name, nt.Email, nt.Password)
	if err != nil {
		return Teacher{}, errors.Wrap(err, "provisioning teacher identity")
	}

	now := nowFunc()
	tch := Teacher{
		ID:         id,
		Name:       nt.Name,
		Email:      nt.Email,
		Phone:      nt.Phone,
		EmployeeID: nt.EmployeeID,
		SubjectIDs: nt.SubjectIDs,
		ClassIDs:   nt.ClassIDs,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	batch := svc.db.Batch().Set(TeacherCollection, id, tch)
	for _, cls := range classes {
		batch.Merge(academic.ClassCollection, cls.ID, map[string]interface{}{
			"teacherId": id,
			"updatedAt": now,
		})
	}
	if err := batch.Commit(ctx); err != nil {
		svc.compensateIdentity(caller, id)
		return Teacher{}, errors.Wrap(err, "persisting teacher")
	}
	return tch, nil
}

// CreateStudent provisions the auth identity, then writes the student
// profile, the class-enrollment increment and the parent back-references as
// one atomic batch.
func (svc *Service) CreateStudent(ctx context.Context, caller core.Caller, ns NewStudent) (Student, error) {
	if !caller.IsAdmin {
		return Student{}, core.ErrPermissionDenied
	}
	if err := ns.Validate(); err != nil {
		return Student{}, err
	}
	if err := svc.checkEmailUniqueness(ctx, ns.Email); err != nil {
		return Student{}, err
	}
	var dups []Student
	if err := svc.db.GetAll(ctx, StudentCollection, &dups, core.Where("studentNo", core.OpEqual, ns.StudentNo)); err != nil {
		return Student{}, errors.Wrap(err, "querying students by student number")
	}
	if len(dups) > 0 {
		return Student{}, core.NewConflictError(ErrStudentNoExists, "studentNo")
	}

	var cls academic.Class
	if err := svc.db.Get(ctx, academic.ClassCollection, ns.ClassID, &cls); err != nil {
		if errors.Cause(err) == core.ErrDocNotFound {
			return Student{}, core.NewIntegrityError(ErrUnknownClassID)
		}
		return Student{}, err
	}
	if cls.CurrentEnrollment >= cls.Capacity {
		return Student{}, core.NewValidationError(ErrClassFull, core.FieldError{Field: "classId", Error: ErrClassFull.Error()})
	}
	parents := make([]Parent, 0, len(ns.ParentIDs))
	for _, pid := range ns.ParentIDs {
		par, err := svc.GetParent(ctx, pid)
		if err != nil {
			if err == ErrParentNotFound {
				return Student{}, core.NewIntegrityError(ErrUnknownParentID)
			}
			return Student{}, err
		}
		parents = append(parents, par)
	}

	id, err := svc.prov.CreateIdentity(ctx, caller, KindStudent, ns.Name, ns.Email, ns.Password)
	if err != nil {
		return Student{}, errors.Wrap(err, "provisioning student identity")
	}

	now := nowFunc()
	stu := Student{
		ID:         id,
		Name:       ns.Name,
		Email:      ns.Email,
		StudentNo:  ns.StudentNo,
		ClassID:    ns.ClassID,
		SubjectIDs: cls.SubjectIDs, // derived from the class
		ParentIDs:  ns.ParentIDs,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	batch := svc.db.Batch().
		Set(StudentCollection, id, stu).
		Merge(academic.ClassCollection, cls.ID, map[string]interface{}{
			"currentEnrollment": cls.CurrentEnrollment + 1,
			"studentIds":        append(cls.StudentIDs, id),
			"updatedAt":         now,
		})
	for _, par := range parents {
		batch.Merge(ParentCollection, par.ID, map[string]interface{}{
			"studentIds": append(par.StudentIDs, id),
			"updatedAt":  now,
		})
	}
	if err := batch.Commit(ctx); err != nil {
		svc.compensateIdentity(caller, id)
		return Student{}, errors.Wrap(err, "persisting student")
	}
	return stu, nil
}

func (svc *Service) CreateParent(ctx context.Context, caller core.Caller, np NewParent) (Parent, error) {
	if !caller.IsAdmin {
		return Parent{}, core.ErrPermissionDenied
	}
	if err := np.Validate(); err != nil {
		return Parent{}, err
	}
	if err := svc.checkEmailUniqueness(ctx, np.Email); err != nil {
		return Parent{}, err
	}
	students := make([]Student, 0, len(np.StudentIDs))
	for _, sid := range np.StudentIDs {
		stu, err := svc.GetStudent(ctx, sid)
		if err != nil {
			if err == ErrStudentNotFound {
				return Parent{}, core.NewIntegrityError(ErrUnknownStudentID)
			}
			return Parent{}, err
		}
		students = append(students, stu)
	}

	id, err := svc.prov.CreateIdentity(ctx, caller, KindParent, np.Name, np.Email, np.Password)
	if err != nil {
		return Parent{}, errors.Wrap(err, "provisioning parent identity")
	}

	now := nowFunc()
	par := Parent{
		ID:         id,
		Name:       np.Name,
		Email:      np.Email,
		Phone:      np.Phone,
		StudentIDs: np.StudentIDs,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	batch := svc.db.Batch().Set(ParentCollection, id, par)
	for _, stu := range students {
		batch.Merge(StudentCollection, stu.ID, map[string]interface{}{
			"parentIds": append(stu.ParentIDs, id),
			"updatedAt": now,
		})
	}
	if err := batch.Commit(ctx); err != nil {
		svc.compensateIdentity(caller, id)
		return Parent{}, errors.Wrap(err, "persisting parent")
	}
	return par, nil
}

// TransferStudent moves a student between classes, adjusting both enrollment
// counters in the same atomic batch as the class-reference change.
func (svc *Service) TransferStudent(ctx context.Context, caller core.Caller, studentID, newClassID string) error {
	if !caller.IsAdmin {
		return core.ErrPermissionDenied
	}
	stu, err := svc.GetStudent(ctx, studentID)
	if err != nil {
		return err
	}
	if stu.ClassID == newClassID {
		return nil
	}
	var newCls academic.Class
	if err := svc.db.Get(ctx, academic.ClassCollection, newClassID, &newCls); err != nil {
		if errors.Cause(err) == core.ErrDocNotFound {
			return core.NewIntegrityError(ErrUnknownClassID)
		}
		return err
	}
	if newCls.CurrentEnrollment >= newCls.Capacity {
		return core.NewValidationError(ErrClassFull, core.FieldError{Field: "classId", Error: ErrClassFull.Error()})
	}

	now := nowFunc()
	batch := svc.db.Batch().
		Merge(StudentCollection, studentID, map[string]interface{}{
			"classId":    newClassID,
			"subjectIds": newCls.SubjectIDs,
			"updatedAt":  now,
		}).
		Merge(academic.ClassCollection, newClassID, map[string]interface{}{
			"currentEnrollment": newCls.CurrentEnrollment + 1,
			"studentIds":        append(newCls.StudentIDs, studentID),
			"updatedAt":         now,
		})
	if stu.ClassID != "" {
		var oldCls academic.Class
		if err := svc.db.Get(ctx, academic.ClassCollection, stu.ClassID, &oldCls); err == nil {
			enrollment := oldCls.CurrentEnrollment - 1
			if enrollment < 0 {
				enrollment = 0
			}
			batch.Merge(academic.ClassCollection, oldCls.ID, map[string]interface{}{
				"currentEnrollment": enrollment,
				"studentIds":        removeID(oldCls.StudentIDs, studentID),
				"updatedAt":         now,
			})
		}
	}
	return errors.Wrap(batch.Commit(ctx), "transferring student")
}

// Deletes: each removes the profile and batches the back-reference cleanups
// with it; the auth identity is removed afterwards, best effort.

func (svc *Service) DeleteTeacher(ctx context.Context, caller core.Caller, id string) error {
	if !caller.IsAdmin {
		return core.ErrPermissionDenied
	}
	if _, err := svc.GetTeacher(ctx, id); err != nil {
		return err
	}
	now := nowFunc()
	batch := svc.db.Batch().Delete(TeacherCollection, id)

	var classes []academic.Class
	if err := svc.db.GetAll(ctx, academic.ClassCollection, &classes, core.Where("teacherId", core.OpEqual, id)); err != nil {
		return errors.Wrap(err, "querying classes by teacher")
	}
	for _, cls := range classes {
		batch.Merge(academic.ClassCollection, cls.ID, map[string]interface{}{"teacherId": "", "updatedAt": now})
	}
	var subjects []academic.Subject
	if err := svc.db.GetAll(ctx, academic.SubjectCollection, &subjects, core.Where("teacherId", core.OpEqual, id)); err != nil {
		return errors.Wrap(err, "querying subjects by teacher")
	}
	for _, sub := range subjects {
		batch.Merge(academic.SubjectCollection, sub.ID, map[string]interface{}{"teacherId": "", "updatedAt": now})
	}

	if err := batch.Commit(ctx); err != nil {
		return errors.Wrap(err, "deleting teacher")
	}
	svc.compensateIdentity(caller, id)
	return nil
}

func (svc *Service) DeleteStudent(ctx context.Context, caller core.Caller, id string) error {
	if !caller.IsAdmin {
		return core.ErrPermissionDenied
	}
	stu, err := svc.GetStudent(ctx, id)
	if err != nil {
		return err
	}
	now := nowFunc()
	batch := svc.db.Batch().Delete(StudentCollection, id)

	if stu.ClassID != "" {
		var cls academic.Class
		if err := svc.db.Get(ctx, academic.ClassCollection, stu.ClassID, &cls); err == nil {
			enrollment := cls.CurrentEnrollment - 1
			if enrollment < 0 {
				enrollment = 0
			}
			batch.Merge(academic.ClassCollection, cls.ID, map[string]interface{}{
				"currentEnrollment": enrollment,
				"studentIds":        removeID(cls.StudentIDs, id),
				"updatedAt":         now,
			})
		}
	}
	var parents []Parent
	if err := svc.db.GetAll(ctx, ParentCollection, &parents, core.Where("studentIds", core.OpArrayContains, id)); err != nil {
		return errors.Wrap(err, "querying parents by student")
	}
	for _, par := range parents {
		batch.Merge(ParentCollection, par.ID, map[string]interface{}{
			"studentIds": removeID(par.StudentIDs, id),
			"updatedAt":  now,
		})
	}

	if err := batch.Commit(ctx); err != nil {
		return errors.Wrap(err, "deleting student")
	}
	svc.compensateIdentity(caller, id)
	return nil
}

func (svc *Service) DeleteParent(ctx context.Context, caller core.Caller, id string) error {
	if !caller.IsAdmin {
		return core.ErrPermissionDenied
	}
	if _, err := svc.GetParent(ctx, id); err != nil {
		return err
	}
	now := nowFunc()
	batch := svc.db.Batch().Delete(ParentCollection, id)

	var students []Student
	if err := svc.db.GetAll(ctx, StudentCollection, &students, core.Where("parentIds", core.OpArrayContains, id)); err != nil {
		return errors.Wrap(err, "querying students by parent")
	}
	for _, stu := range students {
		batch.Merge(StudentCollection, stu.ID, map[string]interface{}{
			"parentIds": removeID(stu.ParentIDs, id),
			"updatedAt": now,
		})
	}

	if err := batch.Commit(ctx); err != nil {
		return errors.Wrap(err, "deleting parent")
	}
	svc.compensateIdentity(caller, id)
	return nil
}

// Getters & queries

func (svc *Service) GetTeacher(ctx context.Context, id string) (Teacher, error) {
	var tch Teacher
	if err := svc.db.Get(ctx, TeacherCollection, id, &tch); err != nil {
		if errors.Cause(err) == core.ErrDocNotFound {
			return Teacher{}, ErrTeacherNotFound
		}
		return Teacher{}, err
	}
	return tch, nil
}

func (svc *Service) GetStudent(ctx context.Context, id string) (Student, error) {
	var stu Student
	if err := svc.db.Get(ctx, StudentCollection, id, &stu); err != nil {
		if errors.Cause(err) == core.ErrDocNotFound {
			return Student{}, ErrStudentNotFound
		}
		return Student{}, err
	}
	return stu, nil
}

func (svc *Service) GetParent(ctx context.Context, id string) (Parent, error) {
	var par Parent
	if err := svc.db.Get(ctx, ParentCollection, id, &par); err != nil {
		if errors.Cause(err) == core.ErrDocNotFound {
			return Parent{}, ErrParentNotFound
		}
		return Parent{}, err
	}
	return par, nil
}

func (svc *Service) QueryAllTeachers(ctx context.Context) ([]Teacher, error) {
	teachers := make([]Teacher, 0)
	err := svc.db.GetAll(ctx, TeacherCollection, &teachers, core.Query{OrderBy: []core.Ordering{{Field: "name"}}})
	return teachers, errors.Wrap(err, "querying teachers")
}

func (svc *Service) QueryAllStudents(ctx context.Context) ([]Student, error) {
	students := make([]Student, 0)
	err := svc.db.GetAll(ctx, StudentCollection, &students, core.Query{OrderBy: []core.Ordering{{Field: "name"}}})
	return students, errors.Wrap(err, "querying students")
}

func (svc *Service) QueryAllParents(ctx context.Context) ([]Parent, error) {
	parents := make([]Parent, 0)
	err := svc.db.GetAll(ctx, ParentCollection, &parents, core.Query{OrderBy: []core.Ordering{{Field: "name"}}})
	return parents, errors.Wrap(err, "querying parents")
}

// helpers

// checkEmailUniqueness enforces email uniqueness across the three identity
// collections combined.
func (svc *Service) checkEmailUniqueness(ctx context.Context, email string) error {
	q := core.Where("email", core.OpEqual, email)

	var teachers []Teacher
	if err := svc.db.GetAll(ctx, TeacherCollection, &teachers, q); err != nil {
		return errors.Wrap(err, "querying teachers by email")
	}
	var students []Student
	if err := svc.db.GetAll(ctx, StudentCollection, &students, q); err != nil {
		return errors.Wrap(err, "querying students by email")
	}
	var parents []Parent
	if err := svc.db.GetAll(ctx, ParentCollection, &parents, q); err != nil {
		return errors.Wrap(err, "querying parents by email")
	}
	if len(teachers)+len(students)+len(parents) > 0 {
		return core.NewConflictError(ErrEmailExists, "email")
	}
	return nil
}

func (svc *Service) checkRefsExist(ctx context.Context, col string, ids []string, missing error) error {
	for _, id := range ids {
		exists, err := svc.db.Exists(ctx, col, id)
		if err != nil {
			return errors.Wrap(err, "checking "+col+" reference")
		}
		if !exists {
			return core.NewIntegrityError(missing)
		}
	}
	return nil
}

// compensateIdentity best-effort deletes a provisioned auth identity after a
// failed (or completed) profile write. A failure here leaves an orphaned
// identity behind; it is logged so it can be cleaned up manually.
func (svc *Service) compensateIdentity(caller core.Caller, id string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := svc.prov.DeleteIdentity(ctx, caller, id); err != nil {
		svc.logger.Error("deleting auth identity "+id+" failed; identity is orphaned", err)
	}
}

func removeID(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
