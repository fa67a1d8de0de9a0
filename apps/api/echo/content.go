package echoapi

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/shulehq/shule/core/content"
)

type contentApi struct {
	svc *content.Service
}

func registerContentAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *content.Service) {
	api := contentApi{svc: svc}

	bg := g.Group("/blog")

	// un-authed endpoint: the public read path
	bg.GET("/:slug", api.retrievePublished)

	pg := g.Group("/posts", jwt, adminMiddleware())
	pg.GET("", api.queryPosts)
	pg.POST("", api.createPost)
	pg.GET("/vocab", api.postVocab)
	pg.GET("/:id", api.retrievePost)
	pg.PUT("/:id", api.updatePost)
	pg.DELETE("/:id", api.destroyPost)

	mg := g.Group("/media", jwt, adminMiddleware())
	mg.GET("", api.queryMedia)
	mg.POST("", api.uploadMedia)
	mg.GET("/vocab", api.mediaVocab)
	mg.GET("/stats", api.storageStats)
	mg.DELETE("/:id", api.destroyMedia)
}

// Blog handlers

func (api *contentApi) createPost(ctx echo.Context) error {
	var data content.NewPost
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPost")
	}
	caller, err := getContextCaller(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context caller")
	}
	post, err := api.svc.CreatePost(ctx.Request().Context(), caller, data)
	if err != nil {
		return errors.Wrap(err, "creating post")
	}
	return ctx.JSON(http.StatusCreated, post)
}

func (api *contentApi) updatePost(ctx echo.Context) error {
	var data content.UpdatePost
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdatePost")
	}
	caller, err := getContextCaller(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context caller")
	}
	post, err := api.svc.UpdatePost(ctx.Request().Context(), caller, ctx.Param("id"), data)
	if err != nil {
		if errors.Cause(err) == content.ErrPostNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "updating post")
	}
	return ctx.JSON(http.StatusOK, post)
}

func (api *contentApi) destroyPost(ctx echo.Context) error {
	caller, err := getContextCaller(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context caller")
	}
	if err := api.svc.DeletePost(ctx.Request().Context(), caller, ctx.Param("id")); err != nil {
		if errors.Cause(err) == content.ErrPostNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "deleting post")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *contentApi) retrievePost(ctx echo.Context) error {
	post, err := api.svc.GetPost(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == content.ErrPostNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "getting post")
	}
	return ctx.JSON(http.StatusOK, post)
}

func (api *contentApi) retrievePublished(ctx echo.Context) error {
	post, err := api.svc.GetPublishedBySlug(ctx.Request().Context(), ctx.Param("slug"))
	if err != nil {
		if errors.Cause(err) == content.ErrPostNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "getting post by slug")
	}
	return ctx.JSON(http.StatusOK, post)
}

func (api *contentApi) queryPosts(ctx echo.Context) error {
	status := content.PostStatus(strings.ToLower(ctx.QueryParam("status")))
	posts, err := api.svc.QueryPosts(ctx.Request().Context(), status)
	if err != nil {
		return errors.Wrap(err, "querying posts")
	}
	return ctx.JSON(http.StatusOK, posts)
}

func (api *contentApi) postVocab(ctx echo.Context) error {
	vocab, err := api.svc.PostVocab(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "getting post vocabulary")
	}
	return ctx.JSON(http.StatusOK, vocab)
}

// Media handlers

// uploadMedia accepts a multipart form with a "file" part plus "folder" and
// repeated "tag" fields.
func (api *contentApi) uploadMedia(ctx echo.Context) error {
	fh, err := ctx.FormFile("file")
	if err != nil {
		return errors.Wrap(err, "reading file form part")
	}
	upload, err := readUpload(fh)
	if err != nil {
		return err
	}

	data := content.NewMedia{
		OriginalName: upload.Name,
		ContentType:  upload.ContentType,
		Folder:       ctx.FormValue("folder"),
		Data:         upload.Data,
	}
	if form, err := ctx.MultipartForm(); err == nil {
		data.Tags = form.Value["tag"]
	}

	caller, err := getContextCaller(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context caller")
	}
	mf, err := api.svc.UploadMedia(ctx.Request().Context(), caller, data)
	if err != nil {
		return errors.Wrap(err, "uploading media")
	}
	return ctx.JSON(http.StatusCreated, mf)
}

func (api *contentApi) destroyMedia(ctx echo.Context) error {
	caller, err := getContextCaller(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context caller")
	}
	if err := api.svc.DeleteMedia(ctx.Request().Context(), caller, ctx.Param("id")); err != nil {
		if errors.Cause(err) == content.ErrMediaNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "deleting media")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *contentApi) queryMedia(ctx echo.Context) error {
	files, err := api.svc.QueryMedia(ctx.Request().Context(), ctx.QueryParam("folder"))
	if err != nil {
		return errors.Wrap(err, "querying media")
	}
	return ctx.JSON(http.StatusOK, files)
}

func (api *contentApi) mediaVocab(ctx echo.Context) error {
	vocab, err := api.svc.MediaVocab(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "getting media vocabulary")
	}
	return ctx.JSON(http.StatusOK, vocab)
}

func (api *contentApi) storageStats(ctx echo.Context) error {
	files, err := api.svc.QueryMedia(ctx.Request().Context(), "")
	if err != nil {
		return errors.Wrap(err, "querying media")
	}
	return ctx.JSON(http.StatusOK, content.ComputeStorageStats(files))
}
