package admission

import (
	"context"

	"github.com/pkg/errors"

	"github.com/shulehq/shule/core"
)

// List returns all applications, newest first. Ordering is best-effort: if
// the ordered query fails (e.g. missing index), it falls back to an
// unordered fetch.
func (svc *Service) List(ctx context.Context, caller core.Caller) ([]Application, error) {
	if !caller.IsAdmin {
		return nil, core.ErrPermissionDenied
	}

	apps := make([]Application, 0)
	q := core.Query{OrderBy: []core.Ordering{{Field: "createdAt", Desc: true}}}
	if err := svc.db.GetAll(ctx, Collection, &apps, q); err != nil {
		svc.logger.Warn("ordered application query failed; falling back to unordered fetch", err)
		apps = apps[:0]
		if err := svc.db.GetAll(ctx, Collection, &apps, core.Query{}); err != nil {
			return nil, errors.Wrap(err, "querying applications")
		}
	}
	return apps, nil
}

// UpdateStatus merge-writes the new status. Transitions are deliberately
// unconstrained: any status may follow any other.
func (svc *Service) UpdateStatus(ctx context.Context, caller core.Caller, id string, status Status) error {
	if !caller.IsAdmin {
		return core.ErrPermissionDenied
	}
	if !status.Valid() {
		return core.NewValidationError(ErrUnknownStatus, core.FieldError{Field: "status", Error: ErrUnknownStatus.Error()})
	}
	if _, err := svc.Get(ctx, id); err != nil {
		return err
	}
	fields := map[string]interface{}{
		"status":    status,
		"updatedAt": nowFunc(),
	}
	return errors.Wrap(svc.db.Merge(ctx, Collection, id, fields), "updating application status")
}

// AddResponse merge-writes the admin response slot, overwriting any prior
// response.
func (svc *Service) AddResponse(ctx context.Context, caller core.Caller, id, text string) error {
	if !caller.IsAdmin {
		return core.ErrPermissionDenied
	}
	text = core.CleanString(text)
	if text == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "text", Error: "this field is required"})
	}
	if _, err := svc.Get(ctx, id); err != nil {
		return err
	}
	fields := map[string]interface{}{
		"response": map[string]interface{}{
			"text":        text,
			"author":      caller.Email,
			"respondedAt": nowFunc(),
		},
		"updatedAt": nowFunc(),
	}
	return errors.Wrap(svc.db.Merge(ctx, Collection, id, fields), "adding application response")
}

// Delete removes the application document, then best-effort deletes its
// attached files. The document delete alone defines success; file-deletion
// errors are logged and never surfaced.
func (svc *Service) Delete(ctx context.Context, caller core.Caller, id string) error {
	if !caller.IsAdmin {
		return core.ErrPermissionDenied
	}
	app, err := svc.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := svc.db.Delete(ctx, Collection, id); err != nil {
		return errors.Wrap(err, "deleting application")
	}
	svc.deleteFiles(app.PhotoKey, app.RecommendationKey)
	return nil
}
