package admission

import (
	"context"
	"fmt"
	"math/rand"
	"net/mail"
	"path"
	"time"

	"github.com/pkg/errors"

	"github.com/shulehq/shule/core"
)

var (
	// errors
	ErrNotFound          = errors.New("application not found")
	ErrDuplicateEmail    = errors.New("an application with this email already exists")
	ErrDuplicateIdentity = errors.New("an application with this identification number and birth date already exists")
	ErrUnknownStatus     = errors.New("unknown application status")

	errUnknownStep = errors.New("unknown form step")

	// mockable in tests
	nowFunc = func() time.Time { return time.Now().UTC() }
)

type Service struct {
	db     core.Docstore
	files  core.Filestore
	logger core.Logger
}

func NewService(db core.Docstore, files core.Filestore, logger core.Logger) *Service {
	return &Service{db: db, files: files, logger: logger}
}

// Submit validates the uniqueness invariants, allocates an applicant ID,
// uploads any attached files (best effort) and persists the application with
// status pending. On a persistence failure after files were uploaded, the
// uploads are deleted again (best effort).
func (svc *Service) Submit(ctx context.Context, na NewApplication) (Application, error) {
	if err := na.Validate(); err != nil {
		return Application{}, err
	}
	if err := svc.checkDuplicateEmail(ctx, na.Email); err != nil {
		return Application{}, err
	}
	if err := svc.checkDuplicateIdentity(ctx, na.IDNumber, na.BirthDate); err != nil {
		return Application{}, err
	}

	id, err := svc.allocateID(ctx)
	if err != nil {
		return Application{}, err
	}

	now := nowFunc()
	app := Application{
		ID:                id,
		FirstName:         na.FirstName,
		LastName:          na.LastName,
		Gender:            na.Gender,
		BirthDate:         na.BirthDate,
		Nationality:       na.Nationality,
		IDType:            na.IDType,
		IDNumber:          na.IDNumber,
		Program:           na.Program,
		PreviousSchool:    na.PreviousSchool,
		GraduationYear:    na.GraduationYear,
		GPA:               na.GPA,
		Email:             na.Email,
		Phone:             na.Phone,
		Address:           na.Address,
		City:              na.City,
		Country:           na.Country,
		EmergencyName:     na.EmergencyName,
		EmergencyRelation: na.EmergencyRelation,
		EmergencyPhone:    na.EmergencyPhone,
		Status:            StatusPending,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	// best-effort uploads: a failed upload is logged and the application
	// proceeds without the file
	var uploaded []string
	app.PhotoURL, app.PhotoKey = svc.upload(ctx, id, "photo", na.Photo)
	if app.PhotoKey != "" {
		uploaded = append(uploaded, app.PhotoKey)
	}
	app.RecommendationURL, app.RecommendationKey = svc.upload(ctx, id, "recommendation", na.Recommendation)
	if app.RecommendationKey != "" {
		uploaded = append(uploaded, app.RecommendationKey)
	}

	if err := svc.db.Set(ctx, Collection, id, app); err != nil {
		svc.deleteFiles(uploaded...)
		return Application{}, errors.Wrap(err, "persisting application")
	}
	return app, nil
}

func (svc *Service) Get(ctx context.Context, id string) (Application, error) {
	var app Application
	if err := svc.db.Get(ctx, Collection, id, &app); err != nil {
		if errors.Cause(err) == core.ErrDocNotFound {
			return Application{}, ErrNotFound
		}
		return Application{}, err
	}
	return app, nil
}

// ConfirmationMessage builds the submission-confirmation email for an
// application. Sending it is the caller's responsibility and is non-fatal.
func (svc *Service) ConfirmationMessage(app Application) *core.EmailMessage {
	return &core.EmailMessage{
		To:      []mail.Address{{Name: app.FullName(), Address: app.Email}},
		Subject: "Application received",
		BodyStr: fmt.Sprintf(
			"Dear %s,\n\nYour application to the %s program has been received.\n"+
				"Your applicant ID is %s. Keep it for your records; you will need it to follow up on your application.\n",
			app.FullName(), app.Program, app.ID,
		),
	}
}

func (svc *Service) checkDuplicateEmail(ctx context.Context, email string) error {
	// emails are stored lowercased, making the equality query case-insensitive
	var matches []Application
	if err := svc.db.GetAll(ctx, Collection, &matches, core.Where("email", core.OpEqual, email)); err != nil {
		return errors.Wrap(err, "querying applications by email")
	}
	if len(matches) > 0 {
		return core.NewConflictError(ErrDuplicateEmail, "email")
	}
	return nil
}

func (svc *Service) checkDuplicateIdentity(ctx context.Context, idNumber, birthDate string) error {
	q := core.Query{Filters: []core.Filter{
		{Field: "idNumber", Op: core.OpEqual, Value: idNumber},
		{Field: "birthDate", Op: core.OpEqual, Value: birthDate},
	}}
	var matches []Application
	if err := svc.db.GetAll(ctx, Collection, &matches, q); err != nil {
		return errors.Wrap(err, "querying applications by identification")
	}
	if len(matches) > 0 {
		return core.NewConflictError(ErrDuplicateIdentity, "idNumber")
	}
	return nil
}

// allocateID generates applicant-ID candidates until an unused one is found.
// Collisions are extremely unlikely but not impossible, so there is no retry
// bound; the loop runs until it succeeds.
func (svc *Service) allocateID(ctx context.Context) (string, error) {
	for {
		id := fmt.Sprintf("APP-%s-%05d", nowFunc().Format("20060102"), rand.Intn(100000))
		exists, err := svc.db.Exists(ctx, Collection, id)
		if err != nil {
			return "", errors.Wrap(err, "checking applicant ID availability")
		}
		if !exists {
			return id, nil
		}
	}
}

func (svc *Service) upload(ctx context.Context, id, kind string, f *FileUpload) (url, key string) {
	if f == nil || len(f.Data) == 0 {
		return "", ""
	}
	key = fmt.Sprintf("admissions/%s/%s%s", id, kind, path.Ext(f.Name))
	url, err := svc.files.Upload(ctx, key, f.Data, f.ContentType)
	if err != nil {
		svc.logger.Warn(fmt.Sprintf("uploading %s for %s failed; proceeding without it", kind, id), err)
		return "", ""
	}
	return url, key
}

// deleteFiles best-effort deletes uploaded blobs; used as the compensating
// action when persistence fails after uploads, and after an application is
// deleted. Each delete gets its own bounded timeout.
func (svc *Service) deleteFiles(keys ...string) {
	for _, key := range keys {
		if key == "" {
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), core.Conf.Storage.DeleteTimeout)
		err := svc.files.Delete(ctx, key)
		cancel()
		if err != nil && errors.Cause(err) != core.ErrFileNotFound {
			svc.logger.Warn("deleting file "+key+" failed", err)
		}
	}
}
