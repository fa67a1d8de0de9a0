package admission

import (
	"time"

	"github.com/shulehq/shule/core"
)

// Collection is the document collection holding applications, keyed by
// applicant ID.
const Collection = "admissionApplications"

type Status string

const (
	StatusPending     Status = "pending"
	StatusUnderReview Status = "under_review"
	StatusAccepted    Status = "accepted"
	StatusRejected    Status = "rejected"
)

var Statuses = []Status{StatusPending, StatusUnderReview, StatusAccepted, StatusRejected}

func (s Status) Valid() bool {
	for _, st := range Statuses {
		if s == st {
			return true
		}
	}
	return false
}

// Response is the single admin response slot on an application; a new
// response overwrites any prior one.
type Response struct {
	Text        string    `json:"text" firestore:"text"`
	Author      string    `json:"author" firestore:"author"`
	RespondedAt time.Time `json:"respondedAt" firestore:"respondedAt"`
}

type Application struct {
	ID string `json:"id" firestore:"id"`

	// personal info
	FirstName   string `json:"firstName" firestore:"firstName"`
	LastName    string `json:"lastName" firestore:"lastName"`
	Gender      string `json:"gender" firestore:"gender"`
	BirthDate   string `json:"birthDate" firestore:"birthDate"` // YYYY-MM-DD
	Nationality string `json:"nationality" firestore:"nationality"`
	IDType      string `json:"idType" firestore:"idType"`
	IDNumber    string `json:"idNumber" firestore:"idNumber"`

	// program choice & education history
	Program        string `json:"program" firestore:"program"`
	PreviousSchool string `json:"previousSchool" firestore:"previousSchool"`
	GraduationYear string `json:"graduationYear" firestore:"graduationYear"`
	GPA            string `json:"gpa" firestore:"gpa"`

	// contact info
	Email   string `json:"email" firestore:"email"`
	Phone   string `json:"phone" firestore:"phone"`
	Address string `json:"address" firestore:"address"`
	City    string `json:"city" firestore:"city"`
	Country string `json:"country" firestore:"country"`

	// emergency contact
	EmergencyName     string `json:"emergencyName" firestore:"emergencyName"`
	EmergencyRelation string `json:"emergencyRelation" firestore:"emergencyRelation"`
	EmergencyPhone    string `json:"emergencyPhone" firestore:"emergencyPhone"`

	// attached files; empty when absent or when a best-effort upload failed
	PhotoURL          string `json:"photoUrl" firestore:"photoUrl"`
	PhotoKey          string `json:"photoKey" firestore:"photoKey"`
	RecommendationURL string `json:"recommendationUrl" firestore:"recommendationUrl"`
	RecommendationKey string `json:"recommendationKey" firestore:"recommendationKey"`

	Status   Status    `json:"status" firestore:"status"`
	Response *Response `json:"response,omitempty" firestore:"response"`

	CreatedAt time.Time `json:"createdAt" firestore:"createdAt"` // UTC
	UpdatedAt time.Time `json:"updatedAt" firestore:"updatedAt"` // UTC
}

func (app Application) FullName() string {
	return app.FirstName + " " + app.LastName
}

// FileUpload is an attachment submitted with an application.
type FileUpload struct {
	Name        string
	ContentType string
	Data        []byte
}

// NewApplication contains the applicant-provided data of the three-step
// intake form.
type NewApplication struct {
	FirstName   string `json:"firstName" validate:"required"`
	LastName    string `json:"lastName" validate:"required"`
	Gender      string `json:"gender" validate:"required,oneof=female male other"`
	BirthDate   string `json:"birthDate" validate:"required,datetime=2006-01-02"`
	Nationality string `json:"nationality" validate:"required"`
	IDType      string `json:"idType" validate:"required,oneof=national_id passport birth_certificate"`
	IDNumber    string `json:"idNumber" validate:"required"`

	Program        string `json:"program" validate:"required"`
	PreviousSchool string `json:"previousSchool" validate:"required"`
	GraduationYear string `json:"graduationYear" validate:"required,len=4,number"`
	GPA            string `json:"gpa" validate:"omitempty"`

	Email   string `json:"email" validate:"required,email"`
	Phone   string `json:"phone" validate:"required"`
	Address string `json:"address" validate:"required"`
	City    string `json:"city" validate:"required"`
	Country string `json:"country" validate:"required"`

	EmergencyName     string `json:"emergencyName" validate:"required"`
	EmergencyRelation string `json:"emergencyRelation" validate:"required"`
	EmergencyPhone    string `json:"emergencyPhone" validate:"required"`

	Photo          *FileUpload `json:"-"`
	Recommendation *FileUpload `json:"-"`
}

// step field groups for partial validation of the multi-step form
var stepFields = map[int][]string{
	1: {"FirstName", "LastName", "Gender", "BirthDate", "Nationality", "IDType", "IDNumber"},
	2: {"Program", "PreviousSchool", "GraduationYear", "GPA"},
	3: {"Email", "Phone", "Address", "City", "Country", "EmergencyName", "EmergencyRelation", "EmergencyPhone"},
}

func (na *NewApplication) clean() {
	na.FirstName = core.CleanString(na.FirstName)
	na.LastName = core.CleanString(na.LastName)
	na.Gender = core.CleanString(na.Gender, true /* lower */)
	na.BirthDate = core.CleanString(na.BirthDate)
	na.Nationality = core.CleanString(na.Nationality)
	na.IDType = core.CleanString(na.IDType, true /* lower */)
	na.IDNumber = core.CleanString(na.IDNumber)
	na.Program = core.CleanString(na.Program)
	na.PreviousSchool = core.CleanString(na.PreviousSchool)
	na.GraduationYear = core.CleanString(na.GraduationYear)
	na.GPA = core.CleanString(na.GPA)
	na.Email = core.CleanString(na.Email, true /* lower */)
	na.Phone = core.CleanString(na.Phone)
	na.Address = core.CleanString(na.Address)
	na.City = core.CleanString(na.City)
	na.Country = core.CleanString(na.Country)
	na.EmergencyName = core.CleanString(na.EmergencyName)
	na.EmergencyRelation = core.CleanString(na.EmergencyRelation)
	na.EmergencyPhone = core.CleanString(na.EmergencyPhone)
}

// ValidateStep validates the fields of one form step (1-3).
func (na *NewApplication) ValidateStep(step int) error {
	na.clean()
	flds, ok := stepFields[step]
	if !ok {
		return core.NewValidationError(errUnknownStep)
	}
	return core.Validate.StructPartial(na, flds...)
}

// Validate validates the whole form.
func (na *NewApplication) Validate() error {
	na.clean()
	return core.Validate.Struct(na)
}
