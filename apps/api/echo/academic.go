package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/shulehq/shule/core/academic"
)

type academicApi struct {
	svc *academic.Service
}

func registerAcademicAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *academic.Service) {
	api := academicApi{svc: svc}

	sg := g.Group("/subjects", jwt, adminMiddleware())
	sg.GET("", api.querySubjects)
	sg.POST("", api.createSubject)
	sg.GET("/:id", api.retrieveSubject)
	sg.PUT("/:id", api.updateSubject)
	sg.DELETE("/:id", api.destroySubject)

	cg := g.Group("/classes", jwt, adminMiddleware())
	cg.GET("", api.queryClasses)
	cg.POST("", api.createClass)
	cg.GET("/:id", api.retrieveClass)
	cg.PUT("/:id", api.updateClass)
	cg.DELETE("/:id", api.destroyClass)
	cg.PUT("/:id/students/:studentID", api.enrollStudent)
	cg.DELETE("/:id/students/:studentID", api.unenrollStudent)
}

// Subject handlers

func (api *academicApi) createSubject(ctx echo.Context) error {
	var data academic.NewSubject
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubject")
	}
	caller, err := getContextCaller(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context caller")
	}
	sub, err := api.svc.CreateSubject(ctx.Request().Context(), caller, data)
	if err != nil {
		return errors.Wrap(err, "creating subject")
	}
	return ctx.JSON(http.StatusCreated, sub)
}

func (api *academicApi) updateSubject(ctx echo.Context) error {
	var data academic.UpdateSubject
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateSubject")
	}
	caller, err := getContextCaller(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context caller")
	}
	sub, err := api.svc.UpdateSubject(ctx.Request().Context(), caller, ctx.Param("id"), data)
	if err != nil {
		if errors.Cause(err) == academic.ErrSubjectNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "updating subject")
	}
	return ctx.JSON(http.StatusOK, sub)
}

func (api *academicApi) destroySubject(ctx echo.Context) error {
	caller, err := getContextCaller(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context caller")
	}
	if err := api.svc.DeleteSubject(ctx.Request().Context(), caller, ctx.Param("id")); err != nil {
		if errors.Cause(err) == academic.ErrSubjectNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "deleting subject")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *academicApi) retrieveSubject(ctx echo.Context) error {
	sub, err := api.svc.GetSubject(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == academic.ErrSubjectNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "getting subject")
	}
	return ctx.JSON(http.StatusOK, sub)
}

func (api *academicApi) querySubjects(ctx echo.Context) error {
	subs, err := api.svc.QueryAllSubjects(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying subjects")
	}
	return ctx.JSON(http.StatusOK, subs)
}

// Class handlers

func (api *academicApi) createClass(ctx echo.Context) error {
	var data academic.NewClass
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewClass")
	}
	caller, err := getContextCaller(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context caller")
	}
	cls, err := api.svc.CreateClass(ctx.Request().Context(), caller, data)
	if err != nil {
		return errors.Wrap(err, "creating class")
	}
	return ctx.JSON(http.StatusCreated, cls)
}

func (api *academicApi) updateClass(ctx echo.Context) error {
	var data academic.UpdateClass
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateClass")
	}
	caller, err := getContextCaller(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context caller")
	}
	cls, err := api.svc.UpdateClass(ctx.Request().Context(), caller, ctx.Param("id"), data)
	if err != nil {
		if errors.Cause(err) == academic.ErrClassNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "updating class")
	}
	return ctx.JSON(http.StatusOK, cls)
}

func (api *academicApi) destroyClass(ctx echo.Context) error {
	caller, err := getContextCaller(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context caller")
	}
	if err := api.svc.DeleteClass(ctx.Request().Context(), caller, ctx.Param("id")); err != nil {
		if errors.Cause(err) == academic.ErrClassNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "deleting class")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *academicApi) retrieveClass(ctx echo.Context) error {
	cls, err := api.svc.GetClass(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == academic.ErrClassNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "getting class")
	}
	return ctx.JSON(http.StatusOK, cls)
}

func (api *academicApi) queryClasses(ctx echo.Context) error {
	classes, err := api.svc.QueryAllClasses(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying classes")
	}
	return ctx.JSON(http.StatusOK, classes)
}

func (api *academicApi) enrollStudent(ctx echo.Context) error {
	caller, err := getContextCaller(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context caller")
	}
	if err := api.svc.AddStudentToClass(ctx.Request().Context(), caller, ctx.Param("id"), ctx.Param("studentID")); err != nil {
		if errors.Cause(err) == academic.ErrClassNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "enrolling student")
	}
	return ctx.NoContent(http.StatusOK)
}

func (api *academicApi) unenrollStudent(ctx echo.Context) error {
	caller, err := getContextCaller(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context caller")
	}
	if err := api.svc.RemoveStudentFromClass(ctx.Request().Context(), caller, ctx.Param("id"), ctx.Param("studentID")); err != nil {
		if errors.Cause(err) == academic.ErrClassNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "unenrolling student")
	}
	return ctx.NoContent(http.StatusOK)
}
