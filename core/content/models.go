package content

import (
	"time"

	"github.com/shulehq/shule/core"
)

// document collections
const (
	PostCollection  = "blogPosts"
	MediaCollection = "media"
)

type PostStatus string

const (
	PostDraft     PostStatus = "draft"
	PostPublished PostStatus = "published"
	PostArchived  PostStatus = "archived"
)

var PostStatuses = []PostStatus{PostDraft, PostPublished, PostArchived}

func (s PostStatus) Valid() bool {
	for _, st := range PostStatuses {
		if s == st {
			return true
		}
	}
	return false
}

// BlogPost carries its own tag list and category; the vocabulary lists are
// derived by scanning the collection (memoized in the cache).
type BlogPost struct {
	ID        string     `json:"id" firestore:"id"`
	Slug      string     `json:"slug" firestore:"slug"` // generated, unique
	Title     string     `json:"title" firestore:"title"`
	Excerpt   string     `json:"excerpt" firestore:"excerpt"`
	Body      string     `json:"body" firestore:"body"`
	CoverURL  string     `json:"coverUrl" firestore:"coverUrl"`
	Category  string     `json:"category" firestore:"category"`
	Tags      []string   `json:"tags" firestore:"tags"`
	Author    string     `json:"author" firestore:"author"`
	Status    PostStatus `json:"status" firestore:"status"`
	CreatedAt time.Time  `json:"createdAt" firestore:"createdAt"` // UTC
	UpdatedAt time.Time  `json:"updatedAt" firestore:"updatedAt"` // UTC
}

type MediaFile struct {
	ID           string    `json:"id" firestore:"id"`
	Key          string    `json:"key" firestore:"key"` // {folder}/{generated filename}
	OriginalName string    `json:"originalName" firestore:"originalName"`
	ContentType  string    `json:"contentType" firestore:"contentType"`
	Size         int64     `json:"size" firestore:"size"`
	Folder       string    `json:"folder" firestore:"folder"`
	Tags         []string  `json:"tags" firestore:"tags"`
	URL          string    `json:"url" firestore:"url"`
	UploadedBy   string    `json:"uploadedBy" firestore:"uploadedBy"`
	CreatedAt    time.Time `json:"createdAt" firestore:"createdAt"` // UTC
}

type NewPost struct {
	Title    string     `json:"title" validate:"required"`
	Excerpt  string     `json:"excerpt"`
	Body     string     `json:"body" validate:"required"`
	CoverURL string     `json:"coverUrl" validate:"omitempty,url"`
	Category string     `json:"category" validate:"required"`
	Tags     []string   `json:"tags"`
	Status   PostStatus `json:"status" validate:"omitempty,oneof=draft published archived"`
}

func (np *NewPost) Validate() error {
	np.Title = core.CleanString(np.Title)
	np.Excerpt = core.CleanString(np.Excerpt)
	np.Category = core.CleanString(np.Category)
	for i, tag := range np.Tags {
		np.Tags[i] = core.CleanString(tag, true /* lower */)
	}
	if np.Status == "" {
		np.Status = PostDraft
	}
	return core.Validate.Struct(np)
}

// UpdatePost defines what information may be provided to modify an existing
// BlogPost. Empty fields are left untouched; a new title regenerates the slug.
type UpdatePost struct {
	Title    string     `json:"title"`
	Excerpt  string     `json:"excerpt"`
	Body     string     `json:"body"`
	CoverURL string     `json:"coverUrl" validate:"omitempty,url"`
	Category string     `json:"category"`
	Tags     []string   `json:"tags"`
	Status   PostStatus `json:"status" validate:"omitempty,oneof=draft published archived"`
}

func (up *UpdatePost) Validate() error {
	up.Title = core.CleanString(up.Title)
	up.Excerpt = core.CleanString(up.Excerpt)
	up.Category = core.CleanString(up.Category)
	for i, tag := range up.Tags {
		up.Tags[i] = core.CleanString(tag, true /* lower */)
	}
	return core.Validate.Struct(up)
}

type NewMedia struct {
	OriginalName string   `json:"originalName" validate:"required"`
	ContentType  string   `json:"contentType" validate:"required"`
	Folder       string   `json:"folder" validate:"required,slug"`
	Tags         []string `json:"tags"`
	Data         []byte   `json:"-" validate:"required"`
}

func (nm *NewMedia) Validate() error {
	nm.OriginalName = core.CleanString(nm.OriginalName)
	nm.ContentType = core.CleanString(nm.ContentType, true /* lower */)
	nm.Folder = core.CleanString(nm.Folder, true /* lower */)
	for i, tag := range nm.Tags {
		nm.Tags[i] = core.CleanString(tag, true /* lower */)
	}
	return core.Validate.Struct(nm)
}

// Derived read-models

type PostVocabulary struct {
	Tags       []string `json:"tags"`
	Categories []string `json:"categories"`
}

type MediaVocabulary struct {
	Tags    []string `json:"tags"`
	Folders []string `json:"folders"`
}

type StorageStats struct {
	TotalFiles int              `json:"totalFiles"`
	TotalBytes int64            `json:"totalBytes"`
	ByFolder   map[string]int64 `json:"byFolder"`
	ByType     map[string]int64 `json:"byType"`
}
