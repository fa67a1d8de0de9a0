package echoapi

import (
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/shulehq/shule/core"
	"github.com/shulehq/shule/core/admission"
)

type admissionApi struct {
	svc      *admission.Service
	emailSvc core.EmailService
}

func registerAdmissionAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *admission.Service, emailSvc core.EmailService) {
	api := admissionApi{svc: svc, emailSvc: emailSvc}

	ag := g.Group("/admissions")

	// un-authed endpoints: the public intake form
	ag.POST("", api.submit)
	ag.POST("/validate", api.validateStep)

	// admin endpoints; middleware attached per-route so the un-authed
	// POSTs above stay reachable at the group root
	admin := []echo.MiddlewareFunc{jwt, adminMiddleware()}
	ag.GET("", api.list, admin...)
	ag.GET("/stats", api.stats, admin...)
	ag.GET("/export", api.export, admin...)
	ag.GET("/:id", api.retrieve, admin...)
	ag.PUT("/:id/status", api.updateStatus, admin...)
	ag.POST("/:id/response", api.respond, admin...)
	ag.DELETE("/:id", api.destroy, admin...)
}

// Handlers

// submit accepts either a plain JSON body or a multipart form with a JSON
// "data" field plus optional "photo" and "recommendation" file parts.
func (api *admissionApi) submit(ctx echo.Context) error {
	data, err := bindNewApplication(ctx)
	if err != nil {
		return err
	}

	app, err := api.svc.Submit(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "submitting application")
	}

	// confirmation email; non-fatal, sent in the background
	api.emailSvc.SendMessages(api.svc.ConfirmationMessage(app))

	return ctx.JSON(http.StatusCreated, app)
}

// validateStep checks one step of the intake form without persisting
// anything, so the frontend can gate step navigation.
func (api *admissionApi) validateStep(ctx echo.Context) error {
	step, err := strconv.Atoi(ctx.QueryParam("step"))
	if err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "step", Error: "a numeric step is required"})
	}

	var data admission.NewApplication
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewApplication")
	}
	if err := data.ValidateStep(step); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusOK)
}

func (api *admissionApi) list(ctx echo.Context) error {
	caller, err := getContextCaller(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context caller")
	}
	apps, err := api.svc.List(ctx.Request().Context(), caller)
	if err != nil {
		return errors.Wrap(err, "listing applications")
	}
	return ctx.JSON(http.StatusOK, apps)
}

func (api *admissionApi) stats(ctx echo.Context) error {
	caller, err := getContextCaller(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context caller")
	}
	apps, err := api.svc.List(ctx.Request().Context(), caller)
	if err != nil {
		return errors.Wrap(err, "listing applications")
	}
	return ctx.JSON(http.StatusOK, admission.ComputeStatistics(apps))
}

func (api *admissionApi) export(ctx echo.Context) error {
	caller, err := getContextCaller(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context caller")
	}
	apps, err := api.svc.List(ctx.Request().Context(), caller)
	if err != nil {
		return errors.Wrap(err, "listing applications")
	}

	format := strings.ToLower(ctx.QueryParam("format"))
	if format == "" {
		format = "csv"
	}

	res := ctx.Response()
	res.Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename=%q`, admission.ExportFilename(format)))

	switch format {
	case "csv":
		res.Header().Set(echo.HeaderContentType, "text/csv")
		res.WriteHeader(http.StatusOK)
		return errors.Wrap(admission.ExportCSV(res, apps), "exporting csv")
	case "xlsx":
		res.Header().Set(echo.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		res.WriteHeader(http.StatusOK)
		return errors.Wrap(admission.ExportXLSX(res, apps), "exporting xlsx")
	default:
		return core.NewValidationError(nil, core.FieldError{Field: "format", Error: "must be csv or xlsx"})
	}
}

func (api *admissionApi) retrieve(ctx echo.Context) error {
	app, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == admission.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "getting application")
	}
	return ctx.JSON(http.StatusOK, app)
}

func (api *admissionApi) updateStatus(ctx echo.Context) error {
	var data StatusUpdateRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to StatusUpdateRequest")
	}
	caller, err := getContextCaller(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context caller")
	}
	if err := api.svc.UpdateStatus(ctx.Request().Context(), caller, ctx.Param("id"), data.Status); err != nil {
		if errors.Cause(err) == admission.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "updating application status")
	}
	return ctx.NoContent(http.StatusOK)
}

func (api *admissionApi) respond(ctx echo.Context) error {
	var data ResponseRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResponseRequest")
	}
	caller, err := getContextCaller(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context caller")
	}
	if err := api.svc.AddResponse(ctx.Request().Context(), caller, ctx.Param("id"), data.Text); err != nil {
		if errors.Cause(err) == admission.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "adding application response")
	}
	return ctx.NoContent(http.StatusOK)
}

func (api *admissionApi) destroy(ctx echo.Context) error {
	caller, err := getContextCaller(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context caller")
	}
	if err := api.svc.Delete(ctx.Request().Context(), caller, ctx.Param("id")); err != nil {
		if errors.Cause(err) == admission.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "deleting application")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Bindings

type (
	StatusUpdateRequest struct {
		Status admission.Status `json:"status"`
	}

	ResponseRequest struct {
		Text string `json:"text"`
	}
)

func bindNewApplication(ctx echo.Context) (admission.NewApplication, error) {
	var data admission.NewApplication

	if !strings.HasPrefix(ctx.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		err := ctx.Bind(&data)
		return data, errors.Wrap(err, "binding to NewApplication")
	}

	if err := json.Unmarshal([]byte(ctx.FormValue("data")), &data); err != nil {
		return data, core.NewValidationError(nil, core.FieldError{Field: "data", Error: "a JSON form payload is required"})
	}
	var err error
	if data.Photo, err = readFormFile(ctx, "photo"); err != nil {
		return data, err
	}
	if data.Recommendation, err = readFormFile(ctx, "recommendation"); err != nil {
		return data, err
	}
	return data, nil
}

func readFormFile(ctx echo.Context, name string) (*admission.FileUpload, error) {
	fh, err := ctx.FormFile(name)
	if err != nil {
		if errors.Cause(err) == http.ErrMissingFile {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "reading %s form file", name)
	}
	return readUpload(fh)
}

func readUpload(fh *multipart.FileHeader) (*admission.FileUpload, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, errors.Wrap(err, "opening uploaded file")
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, errors.Wrap(err, "reading uploaded file")
	}
	return &admission.FileUpload{
		Name:        fh.Filename,
		ContentType: fh.Header.Get(echo.HeaderContentType),
		Data:        data,
	}, nil
}
