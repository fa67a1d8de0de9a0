package identity

import (
	"time"

	"github.com/shulehq/shule/core"
)

// document collections
const (
	TeacherCollection = "teachers"
	StudentCollection = "students"
	ParentCollection  = "parents"
)

// Teacher, Student and Parent profiles are keyed 1:1 by the ID of an
// externally provisioned authentication identity.
type (
	Teacher struct {
		ID         string    `json:"id" firestore:"id"`
		Name       string    `json:"name" firestore:"name"`
		Email      string    `json:"email" firestore:"email"`
		Phone      string    `json:"phone" firestore:"phone"`
		EmployeeID string    `json:"employeeId" firestore:"employeeId"` // unique
		SubjectIDs []string  `json:"subjectIds" firestore:"subjectIds"` // non-empty
		ClassIDs   []string  `json:"classIds" firestore:"classIds"`
		CreatedAt  time.Time `json:"createdAt" firestore:"createdAt"` // UTC
		UpdatedAt  time.Time `json:"updatedAt" firestore:"updatedAt"` // UTC
	}

	Student struct {
		ID        string `json:"id" firestore:"id"`
		Name      string `json:"name" firestore:"name"`
		Email     string `json:"email" firestore:"email"`
		StudentNo string `json:"studentNo" firestore:"studentNo"` // unique
		ClassID   string `json:"classId" firestore:"classId"`
		// SubjectIDs is derived: copied from the class on enrollment.
		SubjectIDs []string  `json:"subjectIds" firestore:"subjectIds"`
		ParentIDs  []string  `json:"parentIds" firestore:"parentIds"`
		CreatedAt  time.Time `json:"createdAt" firestore:"createdAt"` // UTC
		UpdatedAt  time.Time `json:"updatedAt" firestore:"updatedAt"` // UTC
	}

	Parent struct {
		ID         string    `json:"id" firestore:"id"`
		Name       string    `json:"name" firestore:"name"`
		Email      string    `json:"email" firestore:"email"`
		Phone      string    `json:"phone" firestore:"phone"`
		StudentIDs []string  `json:"studentIds" firestore:"studentIds"` // non-empty
		CreatedAt  time.Time `json:"createdAt" firestore:"createdAt"`   // UTC
		UpdatedAt  time.Time `json:"updatedAt" firestore:"updatedAt"`   // UTC
	}
)

type NewTeacher struct {
	Name       string   `json:"name" validate:"required"`
	Email      string   `json:"email" validate:"required,email"`
	Phone      string   `json:"phone"`
	Password   string   `json:"password" validate:"required,min=8"`
	EmployeeID string   `json:"employeeId" validate:"required,alphanum_"`
	SubjectIDs []string `json:"subjectIds" validate:"required,min=1"`
	ClassIDs   []string `json:"classIds"`
}

func (nt *NewTeacher) Validate() error {
	nt.Name = core.CleanString(nt.Name)
	nt.Email = core.CleanString(nt.Email, true /* lower */)
	nt.Phone = core.CleanString(nt.Phone)
	nt.EmployeeID = core.CleanString(nt.EmployeeID)
	return core.Validate.Struct(nt)
}

type NewStudent struct {
	Name      string   `json:"name" validate:"required"`
	Email     string   `json:"email" validate:"required,email"`
	Password  string   `json:"password" validate:"required,min=8"`
	StudentNo string   `json:"studentNo" validate:"required,alphanum_"`
	ClassID   string   `json:"classId" validate:"required"`
	ParentIDs []string `json:"parentIds"`
}

func (ns *NewStudent) Validate() error {
	ns.Name = core.CleanString(ns.Name)
	ns.Email = core.CleanString(ns.Email, true /* lower */)
	ns.StudentNo = core.CleanString(ns.StudentNo)
	ns.ClassID = core.CleanString(ns.ClassID)
	return core.Validate.Struct(ns)
}

type NewParent struct {
	Name       string   `json:"name" validate:"required"`
	Email      string   `json:"email" validate:"required,email"`
	Phone      string   `json:"phone"`
	Password   string   `json:"password" validate:"required,min=8"`
	StudentIDs []string `json:"studentIds" validate:"required,min=1"`
}

func (np *NewParent) Validate() error {
	np.Name = core.CleanString(np.Name)
	np.Email = core.CleanString(np.Email, true /* lower */)
	np.Phone = core.CleanString(np.Phone)
	return core.Validate.Struct(np)
}
