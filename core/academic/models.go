package academic

import (
	"time"

	"github.com/shulehq/shule/core"
)

// document collections
const (
	SubjectCollection = "subjects"
	ClassCollection   = "classes"
	StudentCollection = "students"
)

type Subject struct {
	ID          string    `json:"id" firestore:"id"`
	Name        string    `json:"name" firestore:"name"` // unique, case-sensitive
	Code        string    `json:"code" firestore:"code"`
	Description string    `json:"description" firestore:"description"`
	Level       string    `json:"level" firestore:"level"`
	TeacherID   string    `json:"teacherId" firestore:"teacherId"` // optional assigned teacher
	CreatedAt   time.Time `json:"createdAt" firestore:"createdAt"` // UTC
	UpdatedAt   time.Time `json:"updatedAt" firestore:"updatedAt"` // UTC
}

type Class struct {
	ID      string `json:"id" firestore:"id"`
	Name    string `json:"name" firestore:"name"`
	Grade   string `json:"grade" firestore:"grade"`
	Section string `json:"section" firestore:"section"` // (grade, section) unique

	Capacity int `json:"capacity" firestore:"capacity"`
	// CurrentEnrollment is a maintained counter, kept consistent with
	// student->class references through every mutating operation.
	CurrentEnrollment int `json:"currentEnrollment" firestore:"currentEnrollment"`

	TeacherID  string   `json:"teacherId" firestore:"teacherId"` // homeroom teacher
	SubjectIDs []string `json:"subjectIds" firestore:"subjectIds"`
	StudentIDs []string `json:"studentIds" firestore:"studentIds"`

	CreatedAt time.Time `json:"createdAt" firestore:"createdAt"` // UTC
	UpdatedAt time.Time `json:"updatedAt" firestore:"updatedAt"` // UTC
}

// NewSubject contains information needed to create a new Subject.
type NewSubject struct {
	Name        string `json:"name" validate:"required"`
	Code        string `json:"code" validate:"required,alphanum_"`
	Description string `json:"description"`
	Level       string `json:"level" validate:"required"`
	TeacherID   string `json:"teacherId"`
}

func (ns *NewSubject) Validate() error {
	ns.Name = core.CleanString(ns.Name)
	ns.Code = core.CleanString(ns.Code)
	ns.Description = core.CleanString(ns.Description)
	ns.Level = core.CleanString(ns.Level)
	ns.TeacherID = core.CleanString(ns.TeacherID)
	return core.Validate.Struct(ns)
}

// UpdateSubject defines what information may be provided to modify an
// existing Subject. Empty fields are left untouched.
type UpdateSubject struct {
	Name        string `json:"name"`
	Code        string `json:"code" validate:"omitempty,alphanum_"`
	Description string `json:"description"`
	Level       string `json:"level"`
	TeacherID   string `json:"teacherId"`
}

func (us *UpdateSubject) Validate() error {
	us.Name = core.CleanString(us.Name)
	us.Code = core.CleanString(us.Code)
	us.Description = core.CleanString(us.Description)
	us.Level = core.CleanString(us.Level)
	us.TeacherID = core.CleanString(us.TeacherID)
	return core.Validate.Struct(us)
}

type NewClass struct {
	Name       string   `json:"name" validate:"required"`
	Grade      string   `json:"grade" validate:"required"`
	Section    string   `json:"section" validate:"required"`
	Capacity   int      `json:"capacity" validate:"required,min=1"`
	TeacherID  string   `json:"teacherId"`
	SubjectIDs []string `json:"subjectIds"`
}

func (nc *NewClass) Validate() error {
	nc.Name = core.CleanString(nc.Name)
	nc.Grade = core.CleanString(nc.Grade)
	nc.Section = core.CleanString(nc.Section)
	nc.TeacherID = core.CleanString(nc.TeacherID)
	return core.Validate.Struct(nc)
}

type UpdateClass struct {
	Name       string   `json:"name"`
	Grade      string   `json:"grade"`
	Section    string   `json:"section"`
	Capacity   int      `json:"capacity" validate:"omitempty,min=1"`
	TeacherID  string   `json:"teacherId"`
	SubjectIDs []string `json:"subjectIds"`
}

func (uc *UpdateClass) Validate() error {
	uc.Name = core.CleanString(uc.Name)
	uc.Grade = core.CleanString(uc.Grade)
	uc.Section = core.CleanString(uc.Section)
	uc.TeacherID = core.CleanString(uc.TeacherID)
	return core.Validate.Struct(uc)
}

// studentRef is the slice of a student document this package needs for
// enrollment maintenance; the full student model lives in core/identity.
type studentRef struct {
	ID         string   `json:"id" firestore:"id"`
	ClassID    string   `json:"classId" firestore:"classId"`
	SubjectIDs []string `json:"subjectIds" firestore:"subjectIds"`
}
