package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/shulehq/shule/core/identity"
)

type identityApi struct {
	svc *identity.Service
}

func registerIdentityAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *identity.Service) {
	api := identityApi{svc: svc}

	tg := g.Group("/teachers", jwt, adminMiddleware())
	tg.GET("", api.queryTeachers)
	tg.POST("", api.createTeacher)
	tg.GET("/:id", api.retrieveTeacher)
	tg.DELETE("/:id", api.destroyTeacher)

	sg := g.Group("/students", jwt, adminMiddleware())
	sg.GET("", api.queryStudents)
	sg.POST("", api.createStudent)
	sg.GET("/:id", api.retrieveStudent)
	sg.DELETE("/:id", api.destroyStudent)
	sg.PUT("/:id/transfer", api.transferStudent)

	pg := g.Group("/parents", jwt, adminMiddleware())
	pg.GET("", api.queryParents)
	pg.POST("", api.createParent)
	pg.GET("/:id", api.retrieveParent)
	pg.DELETE("/:id", api.destroyParent)
}

// Teacher handlers

func (api *identityApi) createTeacher(ctx echo.Context) error {
	var data identity.NewTeacher
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTeacher")
	}
	caller, err := getContextCaller(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context caller")
	}
	tch, err := api.svc.CreateTeacher(ctx.Request().Context(), caller, data)
	if err != nil {
		return errors.Wrap(err, "creating teacher")
	}
	return ctx.JSON(http.StatusCreated, tch)
}

func (api *identityApi) retrieveTeacher(ctx echo.Context) error {
	tch, err := api.svc.GetTeacher(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == identity.ErrTeacherNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "getting teacher")
	}
	return ctx.JSON(http.StatusOK, tch)
}

func (api *identityApi) destroyTeacher(ctx echo.Context) error {
	caller, err := getContextCaller(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context caller")
	}
	if err := api.svc.DeleteTeacher(ctx.Request().Context(), caller, ctx.Param("id")); err != nil {
		if errors.Cause(err) == identity.ErrTeacherNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "deleting teacher")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *identityApi) queryTeachers(ctx echo.Context) error {
	teachers, err := api.svc.QueryAllTeachers(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying teachers")
	}
	return ctx.JSON(http.StatusOK, teachers)
}

// Student handlers

func (api *identityApi) createStudent(ctx echo.Context) error {
	var data identity.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	caller, err := getContextCaller(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context caller")
	}
	stu, err := api.svc.CreateStudent(ctx.Request().Context(), caller, data)
	if err != nil {
		return errors.Wrap(err, "creating student")
	}
	return ctx.JSON(http.StatusCreated, stu)
}

func (api *identityApi) retrieveStudent(ctx echo.Context) error {
	stu, err := api.svc.GetStudent(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == identity.ErrStudentNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "getting student")
	}
	return ctx.JSON(http.StatusOK, stu)
}

func (api *identityApi) destroyStudent(ctx echo.Context) error {
	caller, err := getContextCaller(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context caller")
	}
	if err := api.svc.DeleteStudent(ctx.Request().Context(), caller, ctx.Param("id")); err != nil {
		if errors.Cause(err) == identity.ErrStudentNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "deleting student")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *identityApi) transferStudent(ctx echo.Context) error {
	var data TransferRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to TransferRequest")
	}
	caller, err := getContextCaller(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context caller")
	}
	if err := api.svc.TransferStudent(ctx.Request().Context(), caller, ctx.Param("id"), data.ClassID); err != nil {
		if errors.Cause(err) == identity.ErrStudentNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "transferring student")
	}
	return ctx.NoContent(http.StatusOK)
}

func (api *identityApi) queryStudents(ctx echo.Context) error {
	students, err := api.svc.QueryAllStudents(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	return ctx.JSON(http.StatusOK, students)
}

// Parent handlers

func (api *identityApi) createParent(ctx echo.Context) error {
	var data identity.NewParent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewParent")
	}
	caller, err := getContextCaller(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context caller")
	}
	par, err := api.svc.CreateParent(ctx.Request().Context(), caller, data)
	if err != nil {
		return errors.Wrap(err, "creating parent")
	}
	return ctx.JSON(http.StatusCreated, par)
}

func (api *identityApi) retrieveParent(ctx echo.Context) error {
	par, err := api.svc.GetParent(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == identity.ErrParentNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "getting parent")
	}
	return ctx.JSON(http.StatusOK, par)
}

func (api *identityApi) destroyParent(ctx echo.Context) error {
	caller, err := getContextCaller(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context caller")
	}
	if err := api.svc.DeleteParent(ctx.Request().Context(), caller, ctx.Param("id")); err != nil {
		if errors.Cause(err) == identity.ErrParentNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "deleting parent")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *identityApi) queryParents(ctx echo.Context) error {
	parents, err := api.svc.QueryAllParents(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying parents")
	}
	return ctx.JSON(http.StatusOK, parents)
}

type TransferRequest struct {
	ClassID string `json:"classId"`
}
