package echoapi

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shulehq/shule/core/content"
)

func createPost(t *testing.T, env *testEnv, title string, status content.PostStatus) content.BlogPost {
	t.Helper()
	np := content.NewPost{Title: title, Body: "Body text.", Category: "News", Status: status}
	req, rec := newAuthRequest(http.MethodPost, "/v1/posts", adminToken(t), marshallObj(t, np))
	env.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("creating post failed: %d %s", rec.Code, rec.Body.String())
	}
	var post content.BlogPost
	if err := json.Unmarshal(rec.Body.Bytes(), &post); err != nil {
		t.Fatalf("decoding post failed: %v", err)
	}
	return post
}

func Test_contentApi_blog(t *testing.T) {
	env := setup(t)

	post := createPost(t, env, "Open Day 2026", content.PostPublished)
	assert.Equal(t, "open-day-2026", post.Slug)
	assert.Equal(t, "admin@shule.test", post.Author)

	draft := createPost(t, env, "Work In Progress", content.PostDraft)

	// public read path serves published posts only, without a token
	req, rec := newRequest(http.MethodGet, "/v1/blog/"+post.Slug)
	env.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req, rec = newRequest(http.MethodGet, "/v1/blog/"+draft.Slug)
	env.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// admin listing filters by status
	req, rec = newAuthRequest(http.MethodGet, "/v1/posts?status=draft", adminToken(t))
	env.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	var posts []content.BlogPost
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &posts))
	if assert.Len(t, posts, 1) {
		assert.Equal(t, draft.ID, posts[0].ID)
	}

	// post management is admin-gated
	req, rec = newRequest(http.MethodGet, "/v1/posts")
	env.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req, rec = newAuthRequest(http.MethodDelete, "/v1/posts/"+draft.ID, adminToken(t))
	env.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func Test_contentApi_vocab(t *testing.T) {
	env := setup(t)

	np := content.NewPost{Title: "First", Body: "b", Category: "News", Tags: []string{"sports", "arts"}}
	req, rec := newAuthRequest(http.MethodPost, "/v1/posts", adminToken(t), marshallObj(t, np))
	env.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code)

	req, rec = newAuthRequest(http.MethodGet, "/v1/posts/vocab", adminToken(t))
	env.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	var vocab content.PostVocabulary
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &vocab))
	assert.Equal(t, []string{"arts", "sports"}, vocab.Tags)
	assert.Equal(t, []string{"News"}, vocab.Categories)
}

func newMediaUpload(t *testing.T, folder, filename string, data []byte, tags ...string) (*http.Request, *httptest.ResponseRecorder) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := mw.WriteField("folder", folder); err != nil {
		t.Fatal(err)
	}
	for _, tag := range tags {
		if err := mw.WriteField("tag", tag); err != nil {
			t.Fatal(err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/media", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+adminToken(t))
	return req, httptest.NewRecorder()
}

func Test_contentApi_media(t *testing.T) {
	env := setup(t)

	req, rec := newMediaUpload(t, "blog-covers", "banner.png", []byte("pngdata"), "banner")
	env.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var mf content.MediaFile
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &mf))
	assert.Equal(t, "banner.png", mf.OriginalName)
	assert.Equal(t, []string{"banner"}, mf.Tags)
	assert.True(t, env.files.Has(mf.Key))

	req, rec = newAuthRequest(http.MethodGet, "/v1/media?folder=blog-covers", adminToken(t))
	env.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	var files []content.MediaFile
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &files))
	assert.Len(t, files, 1)

	req, rec = newAuthRequest(http.MethodGet, "/v1/media/stats", adminToken(t))
	env.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	var stats content.StorageStats
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.TotalFiles)
	assert.Equal(t, int64(len("pngdata")), stats.TotalBytes)

	req, rec = newAuthRequest(http.MethodDelete, "/v1/media/"+mf.ID, adminToken(t))
	env.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 0, env.files.Len())
}
