package academic

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/shulehq/shule/core"
)

var (
	// errors
	ErrSubjectNotFound    = errors.New("subject not found")
	ErrClassNotFound      = errors.New("class not found")
	ErrStudentNotFound    = errors.New("student not found")
	ErrSubjectNameExists  = errors.New("a subject with this name already exists")
	ErrSectionExists      = errors.New("a class with this grade and section already exists")
	ErrSubjectInUse       = errors.New("subject is assigned to one or more classes")
	ErrClassNotEmpty      = errors.New("class still has enrolled students")
	ErrUnknownSubjectID   = errors.New("referenced subject does not exist")

	// mockable in tests
	nowFunc = func() time.Time { return time.Now().UTC() }
)

type Service struct {
	db     core.Docstore
	logger core.Logger
}

func NewService(db core.Docstore, logger core.Logger) *Service {
	return &Service{db: db, logger: logger}
}

// Subjects

func (svc *Service) CreateSubject(ctx context.Context, caller core.Caller, ns NewSubject) (Subject, error) {
	if !caller.IsAdmin {
		return Subject{}, core.ErrPermissionDenied
	}
	if err := ns.Validate(); err != nil {
		return Subject{}, err
	}
	if err := svc.checkSubjectName(ctx, ns.Name, ""); err != nil {
		return Subject{}, err
	}

	now := nowFunc()
	sub := Subject{
		ID:          uuid.New().String(),
		Name:        ns.Name,
		Code:        ns.Code,
		Description: ns.Description,
		Level:       ns.Level,
		TeacherID:   ns.TeacherID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := svc.db.Set(ctx, SubjectCollection, sub.ID, sub); err != nil {
		return Subject{}, errors.Wrap(err, "persisting subject")
	}
	return sub, nil
}

func (svc *Service) UpdateSubject(ctx context.Context, caller core.Caller, id string, us UpdateSubject) (Subject, error) {
	if !caller.IsAdmin {
		return Subject{}, core.ErrPermissionDenied
	}
	if err := us.Validate(); err != nil {
		return Subject{}, err
	}
	if _, err := svc.GetSubject(ctx, id); err != nil {
		return Subject{}, err
	}
	if us.Name != "" {
		if err := svc.checkSubjectName(ctx, us.Name, id); err != nil {
			return Subject{}, err
		}
	}

	// only provided fields are written; the backend rejects undefined values
	fields := map[string]interface{}{"updatedAt": nowFunc()}
	setIfPresent(fields, "name", us.Name)
	setIfPresent(fields, "code", us.Code)
	setIfPresent(fields, "description", us.Description)
	setIfPresent(fields, "level", us.Level)
	setIfPresent(fields, "teacherId", us.TeacherID)
	if err := svc.db.Merge(ctx, SubjectCollection, id, fields); err != nil {
		return Subject{}, errors.Wrap(err, "updating subject")
	}
	return svc.GetSubject(ctx, id)
}

// DeleteSubject is blocked while any class still lists the subject.
func (svc *Service) DeleteSubject(ctx context.Context, caller core.Caller, id string) error {
	if !caller.IsAdmin {
		return core.ErrPermissionDenied
	}
	if _, err := svc.GetSubject(ctx, id); err != nil {
		return err
	}
	var refs []Class
	if err := svc.db.GetAll(ctx, ClassCollection, &refs, core.Where("subjectIds", core.OpArrayContains, id)); err != nil {
		return errors.Wrap(err, "querying classes by subject")
	}
	if len(refs) > 0 {
		return core.NewIntegrityError(ErrSubjectInUse)
	}
	return errors.Wrap(svc.db.Delete(ctx, SubjectCollection, id), "deleting subject")
}

func (svc *Service) GetSubject(ctx context.Context, id string) (Subject, error) {
	var sub Subject
	if err := svc.db.Get(ctx, SubjectCollection, id, &sub); err != nil {
		if errors.Cause(err) == core.ErrDocNotFound {
			return Subject{}, ErrSubjectNotFound
		}
		return Subject{}, err
	}
	return sub, nil
}

func (svc *Service) QueryAllSubjects(ctx context.Context) ([]Subject, error) {
	subs := make([]Subject, 0)
	err := svc.db.GetAll(ctx, SubjectCollection, &subs, core.Query{OrderBy: []core.Ordering{{Field: "name"}}})
	return subs, errors.Wrap(err, "querying subjects")
}

// Classes

func (svc *Service) CreateClass(ctx context.Context, caller core.Caller, nc NewClass) (Class, error) {
	if !caller.IsAdmin {
		return Class{}, core.ErrPermissionDenied
	}
	if err := nc.Validate(); err != nil {
		return Class{}, err
	}
	if err := svc.checkSection(ctx, nc.Grade, nc.Section, ""); err != nil {
		return Class{}, err
	}
	if err := svc.checkSubjectsExist(ctx, nc.SubjectIDs); err != nil {
		return Class{}, err
	}

	now := nowFunc()
	cls := Class{
		ID:         uuid.New().String(),
		Name:       nc.Name,
		Grade:      nc.Grade,
		Section:    nc.Section,
		Capacity:   nc.Capacity,
		TeacherID:  nc.TeacherID,
		SubjectIDs: nc.SubjectIDs,
		StudentIDs: []string{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := svc.db.Set(ctx, ClassCollection, cls.ID, cls); err != nil {
		return Class{}, errors.Wrap(err, "persisting class")
	}
	return cls, nil
}

func (svc *Service) UpdateClass(ctx context.Context, caller core.Caller, id string, uc UpdateClass) (Class, error) {
	if !caller.IsAdmin {
		return Class{}, core.ErrPermissionDenied
	}
	if err := uc.Validate(); err != nil {
		return Class{}, err
	}
	orig, err := svc.GetClass(ctx, id)
	if err != nil {
		return Class{}, err
	}

	grade, section := orig.Grade, orig.Section
	if uc.Grade != "" {
		grade = uc.Grade
	}
	if uc.Section != "" {
		section = uc.Section
	}
	if grade != orig.Grade || section != orig.Section {
		if err := svc.checkSection(ctx, grade, section, id); err != nil {
			return Class{}, err
		}
	}
	if uc.SubjectIDs != nil {
		if err := svc.checkSubjectsExist(ctx, uc.SubjectIDs); err != nil {
			return Class{}, err
		}
	}

	fields := map[string]interface{}{"updatedAt": nowFunc()}
	setIfPresent(fields, "name", uc.Name)
	setIfPresent(fields, "grade", uc.Grade)
	setIfPresent(fields, "section", uc.Section)
	setIfPresent(fields, "teacherId", uc.TeacherID)
	if uc.Capacity > 0 {
		fields["capacity"] = uc.Capacity
	}
	if uc.SubjectIDs != nil {
		fields["subjectIds"] = uc.SubjectIDs
	}
	if err := svc.db.Merge(ctx, ClassCollection, id, fields); err != nil {
		return Class{}, errors.Wrap(err, "updating class")
	}
	return svc.GetClass(ctx, id)
}

// DeleteClass is blocked while any student still references the class.
func (svc *Service) DeleteClass(ctx context.Context, caller core.Caller, id string) error {
	if !caller.IsAdmin {
		return core.ErrPermissionDenied
	}
	cls, err := svc.GetClass(ctx, id)
	if err != nil {
		return err
	}
	if len(cls.StudentIDs) > 0 {
		return core.NewIntegrityError(ErrClassNotEmpty)
	}
	var refs []studentRef
	if err := svc.db.GetAll(ctx, StudentCollection, &refs, core.Where("classId", core.OpEqual, id)); err != nil {
		return errors.Wrap(err, "querying students by class")
	}
	if len(refs) > 0 {
		return core.NewIntegrityError(ErrClassNotEmpty)
	}
	return errors.Wrap(svc.db.Delete(ctx, ClassCollection, id), "deleting class")
}

func (svc *Service) GetClass(ctx context.Context, id string) (Class, error) {
	var cls Class
	if err := svc.db.Get(ctx, ClassCollection, id, &cls); err != nil {
		if errors.Cause(err) == core.ErrDocNotFound {
			return Class{}, ErrClassNotFound
		}
		return Class{}, err
	}
	return cls, nil
}

func (svc *Service) QueryAllClasses(ctx context.Context) ([]Class, error) {
	classes := make([]Class, 0)
	q := core.Query{OrderBy: []core.Ordering{{Field: "grade"}, {Field: "section"}}}
	err := svc.db.GetAll(ctx, ClassCollection, &classes, q)
	return classes, errors.Wrap(err, "querying classes")
}

// Enrollment maintenance

// AddStudentToClass updates the student's class reference and the class's
// enrollment bookkeeping as one atomic batch. This direct path does not
// re-check capacity; the student-creation flow does.
func (svc *Service) AddStudentToClass(ctx context.Context, caller core.Caller, classID, studentID string) error {
	if !caller.IsAdmin {
		return core.ErrPermissionDenied
	}
	cls, err := svc.GetClass(ctx, classID)
	if err != nil {
		return err
	}
	var stu studentRef
	if err := svc.db.Get(ctx, StudentCollection, studentID, &stu); err != nil {
		if errors.Cause(err) == core.ErrDocNotFound {
			return core.NewIntegrityError(ErrStudentNotFound)
		}
		return err
	}
	if containsID(cls.StudentIDs, studentID) {
		return nil // already enrolled
	}

	now := nowFunc()
	return errors.Wrap(
		svc.db.Batch().
			Merge(StudentCollection, studentID, map[string]interface{}{
				"classId":    classID,
				"subjectIds": cls.SubjectIDs,
				"updatedAt":  now,
			}).
			Merge(ClassCollection, classID, map[string]interface{}{
				"currentEnrollment": cls.CurrentEnrollment + 1,
				"studentIds":        append(cls.StudentIDs, studentID),
				"updatedAt":         now,
			}).
			Commit(ctx),
		"enrolling student",
	)
}

// RemoveStudentFromClass is the inverse batch; the enrollment counter is
// floor-clamped at 0 and repeated removal is a no-op.
func (svc *Service) RemoveStudentFromClass(ctx context.Context, caller core.Caller, classID, studentID string) error {
	if !caller.IsAdmin {
		return core.ErrPermissionDenied
	}
	cls, err := svc.GetClass(ctx, classID)
	if err != nil {
		return err
	}
	var stu studentRef
	if err := svc.db.Get(ctx, StudentCollection, studentID, &stu); err != nil {
		if errors.Cause(err) == core.ErrDocNotFound {
			return core.NewIntegrityError(ErrStudentNotFound)
		}
		return err
	}
	if !containsID(cls.StudentIDs, studentID) && stu.ClassID != classID {
		return nil // not enrolled here
	}

	enrollment := cls.CurrentEnrollment - 1
	if enrollment < 0 {
		enrollment = 0
	}
	now := nowFunc()
	return errors.Wrap(
		svc.db.Batch().
			Merge(StudentCollection, studentID, map[string]interface{}{
				"classId":    "",
				"subjectIds": []string{},
				"updatedAt":  now,
			}).
			Merge(ClassCollection, classID, map[string]interface{}{
				"currentEnrollment": enrollment,
				"studentIds":        removeID(cls.StudentIDs, studentID),
				"updatedAt":         now,
			}).
			Commit(ctx),
		"unenrolling student",
	)
}

// helpers

func (svc *Service) checkSubjectName(ctx context.Context, name, excludedID string) error {
	var matches []Subject
	if err := svc.db.GetAll(ctx, SubjectCollection, &matches, core.Where("name", core.OpEqual, name)); err != nil {
		return errors.Wrap(err, "querying subjects by name")
	}
	for _, sub := range matches {
		if sub.ID != excludedID {
			return core.NewConflictError(ErrSubjectNameExists, "name")
		}
	}
	return nil
}

func (svc *Service) checkSection(ctx context.Context, grade, section, excludedID string) error {
	q := core.Query{Filters: []core.Filter{
		{Field: "grade", Op: core.OpEqual, Value: grade},
		{Field: "section", Op: core.OpEqual, Value: section},
	}}
	var matches []Class
	if err := svc.db.GetAll(ctx, ClassCollection, &matches, q); err != nil {
		return errors.Wrap(err, "querying classes by grade and section")
	}
	for _, cls := range matches {
		if cls.ID != excludedID {
			return core.NewConflictError(ErrSectionExists, "section")
		}
	}
	return nil
}

func (svc *Service) checkSubjectsExist(ctx context.Context, ids []string) error {
	for _, id := range ids {
		exists, err := svc.db.Exists(ctx, SubjectCollection, id)
		if err != nil {
			return errors.Wrap(err, "checking subject "+id)
		}
		if !exists {
			return core.NewIntegrityError(ErrUnknownSubjectID)
		}
	}
	return nil
}

func setIfPresent(fields map[string]interface{}, name, value string) {
	if value != "" {
		fields[name] = value
	}
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
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
