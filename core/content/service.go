package content

import (
	"context"
	"fmt"
	"path"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/shulehq/shule/core"
)

var (
	// errors
	ErrPostNotFound  = errors.New("post not found")
	ErrMediaNotFound = errors.New("media file not found")

	// cache keys for the derived vocabularies
	postVocabKey  = "content:post-vocab"
	mediaVocabKey = "content:media-vocab"

	// mockable in tests
	nowFunc = func() time.Time { return time.Now().UTC() }
)

type Service struct {
	db     core.Docstore
	files  core.Filestore
	cache  core.Cache
	logger core.Logger
}

func NewService(db core.Docstore, files core.Filestore, cache core.Cache, logger core.Logger) *Service {
	return &Service{db: db, files: files, cache: cache, logger: logger}
}

// Blog posts

func (svc *Service) CreatePost(ctx context.Context, caller core.Caller, np NewPost) (BlogPost, error) {
	if !caller.IsAdmin {
		return BlogPost{}, core.ErrPermissionDenied
	}
	if err := np.Validate(); err != nil {
		return BlogPost{}, err
	}
	slug, err := svc.uniqueSlug(ctx, np.Title, "")
	if err != nil {
		return BlogPost{}, err
	}

	now := nowFunc()
	post := BlogPost{
		ID:        uuid.New().String(),
		Slug:      slug,
		Title:     np.Title,
		Excerpt:   np.Excerpt,
		Body:      np.Body,
		CoverURL:  np.CoverURL,
		Category:  np.Category,
		Tags:      np.Tags,
		Author:    caller.Email,
		Status:    np.Status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if post.Tags == nil {
		post.Tags = []string{}
	}
	if err := svc.db.Set(ctx, PostCollection, post.ID, post); err != nil {
		return BlogPost{}, errors.Wrap(err, "persisting post")
	}
	svc.invalidate(ctx, postVocabKey)
	return post, nil
}

func (svc *Service) UpdatePost(ctx context.Context, caller core.Caller, id string, up UpdatePost) (BlogPost, error) {
	if !caller.IsAdmin {
		return BlogPost{}, core.ErrPermissionDenied
	}
	if err := up.Validate(); err != nil {
		return BlogPost{}, err
	}
	orig, err := svc.GetPost(ctx, id)
	if err != nil {
		return BlogPost{}, err
	}

	fields := map[string]interface{}{"updatedAt": nowFunc()}
	if up.Title != "" && up.Title != orig.Title {
		slug, err := svc.uniqueSlug(ctx, up.Title, id)
		if err != nil {
			return BlogPost{}, err
		}
		fields["title"] = up.Title
		fields["slug"] = slug
	}
	if up.Excerpt != "" {
		fields["excerpt"] = up.Excerpt
	}
	if up.Body != "" {
		fields["body"] = up.Body
	}
	if up.CoverURL != "" {
		fields["coverUrl"] = up.CoverURL
	}
	if up.Category != "" {
		fields["category"] = up.Category
	}
	if up.Tags != nil {
		fields["tags"] = up.Tags
	}
	if up.Status != "" {
		fields["status"] = up.Status
	}
	if err := svc.db.Merge(ctx, PostCollection, id, fields); err != nil {
		return BlogPost{}, errors.Wrap(err, "updating post")
	}
	svc.invalidate(ctx, postVocabKey)
	return svc.GetPost(ctx, id)
}

func (svc *Service) DeletePost(ctx context.Context, caller core.Caller, id string) error {
	if !caller.IsAdmin {
		return core.ErrPermissionDenied
	}
	if _, err := svc.GetPost(ctx, id); err != nil {
		return err
	}
	if err := svc.db.Delete(ctx, PostCollection, id); err != nil {
		return errors.Wrap(err, "deleting post")
	}
	svc.invalidate(ctx, postVocabKey)
	return nil
}

func (svc *Service) GetPost(ctx context.Context, id string) (BlogPost, error) {
	var post BlogPost
	if err := svc.db.Get(ctx, PostCollection, id, &post); err != nil {
		if errors.Cause(err) == core.ErrDocNotFound {
			return BlogPost{}, ErrPostNotFound
		}
		return BlogPost{}, err
	}
	return post, nil
}

// GetPublishedBySlug is the public read path; only published posts resolve.
func (svc *Service) GetPublishedBySlug(ctx context.Context, slug string) (BlogPost, error) {
	q := core.Query{Filters: []core.Filter{
		{Field: "slug", Op: core.OpEqual, Value: slug},
		{Field: "status", Op: core.OpEqual, Value: PostPublished},
	}}
	var posts []BlogPost
	if err := svc.db.GetAll(ctx, PostCollection, &posts, q); err != nil {
		return BlogPost{}, errors.Wrap(err, "querying post by slug")
	}
	if len(posts) == 0 {
		return BlogPost{}, ErrPostNotFound
	}
	return posts[0], nil
}

func (svc *Service) QueryPosts(ctx context.Context, status PostStatus) ([]BlogPost, error) {
	posts := make([]BlogPost, 0)
	q := core.Query{OrderBy: []core.Ordering{{Field: "createdAt", Desc: true}}}
	if status != "" {
		q.Filters = []core.Filter{{Field: "status", Op: core.OpEqual, Value: status}}
	}
	err := svc.db.GetAll(ctx, PostCollection, &posts, q)
	return posts, errors.Wrap(err, "querying posts")
}

// PostVocab returns the tag/category vocabularies, recomputing them by
// collection scan on cache miss.
func (svc *Service) PostVocab(ctx context.Context) (PostVocabulary, error) {
	var vocab PostVocabulary
	if err := svc.cache.Get(ctx, postVocabKey, &vocab); err == nil {
		return vocab, nil
	}

	var posts []BlogPost
	if err := svc.db.GetAll(ctx, PostCollection, &posts, core.Query{}); err != nil {
		return PostVocabulary{}, errors.Wrap(err, "scanning posts")
	}
	tags, cats := make(map[string]bool), make(map[string]bool)
	for _, post := range posts {
		for _, tag := range post.Tags {
			tags[tag] = true
		}
		if post.Category != "" {
			cats[post.Category] = true
		}
	}
	vocab = PostVocabulary{Tags: sortedKeys(tags), Categories: sortedKeys(cats)}
	if err := svc.cache.Set(ctx, postVocabKey, vocab, core.Conf.VocabCacheTTL); err != nil {
		svc.logger.Warn("caching post vocabulary failed", err)
	}
	return vocab, nil
}

// Media library

func (svc *Service) UploadMedia(ctx context.Context, caller core.Caller, nm NewMedia) (MediaFile, error) {
	if !caller.IsAdmin {
		return MediaFile{}, core.ErrPermissionDenied
	}
	if err := nm.Validate(); err != nil {
		return MediaFile{}, err
	}

	id := uuid.New().String()
	key := fmt.Sprintf("%s/%s%s", nm.Folder, id, path.Ext(nm.OriginalName))
	url, err := svc.files.Upload(ctx, key, nm.Data, nm.ContentType)
	if err != nil {
		return MediaFile{}, errors.Wrap(err, "uploading media file")
	}

	mf := MediaFile{
		ID:           id,
		Key:          key,
		OriginalName: nm.OriginalName,
		ContentType:  nm.ContentType,
		Size:         int64(len(nm.Data)),
		Folder:       nm.Folder,
		Tags:         nm.Tags,
		URL:          url,
		UploadedBy:   caller.Email,
		CreatedAt:    nowFunc(),
	}
	if mf.Tags == nil {
		mf.Tags = []string{}
	}
	if err := svc.db.Set(ctx, MediaCollection, id, mf); err != nil {
		// compensate the orphaned blob, best effort
		svc.deleteBlob(key)
		return MediaFile{}, errors.Wrap(err, "persisting media file")
	}
	svc.invalidate(ctx, mediaVocabKey)
	return mf, nil
}

// DeleteMedia removes the document first (that delete defines success), then
// best-effort deletes the blob.
func (svc *Service) DeleteMedia(ctx context.Context, caller core.Caller, id string) error {
	if !caller.IsAdmin {
		return core.ErrPermissionDenied
	}
	mf, err := svc.GetMedia(ctx, id)
	if err != nil {
		return err
	}
	if err := svc.db.Delete(ctx, MediaCollection, id); err != nil {
		return errors.Wrap(err, "deleting media file")
	}
	svc.deleteBlob(mf.Key)
	svc.invalidate(ctx, mediaVocabKey)
	return nil
}

func (svc *Service) GetMedia(ctx context.Context, id string) (MediaFile, error) {
	var mf MediaFile
	if err := svc.db.Get(ctx, MediaCollection, id, &mf); err != nil {
		if errors.Cause(err) == core.ErrDocNotFound {
			return MediaFile{}, ErrMediaNotFound
		}
		return MediaFile{}, err
	}
	return mf, nil
}

func (svc *Service) QueryMedia(ctx context.Context, folder string) ([]MediaFile, error) {
	files := make([]MediaFile, 0)
	q := core.Query{OrderBy: []core.Ordering{{Field: "createdAt", Desc: true}}}
	if folder != "" {
		q.Filters = []core.Filter{{Field: "folder", Op: core.OpEqual, Value: folder}}
	}
	err := svc.db.GetAll(ctx, MediaCollection, &files, q)
	return files, errors.Wrap(err, "querying media files")
}

func (svc *Service) MediaVocab(ctx context.Context) (MediaVocabulary, error) {
	var vocab MediaVocabulary
	if err := svc.cache.Get(ctx, mediaVocabKey, &vocab); err == nil {
		return vocab, nil
	}

	var files []MediaFile
	if err := svc.db.GetAll(ctx, MediaCollection, &files, core.Query{}); err != nil {
		return MediaVocabulary{}, errors.Wrap(err, "scanning media files")
	}
	tags, folders := make(map[string]bool), make(map[string]bool)
	for _, mf := range files {
		for _, tag := range mf.Tags {
			tags[tag] = true
		}
		if mf.Folder != "" {
			folders[mf.Folder] = true
		}
	}
	vocab = MediaVocabulary{Tags: sortedKeys(tags), Folders: sortedKeys(folders)}
	if err := svc.cache.Set(ctx, mediaVocabKey, vocab, core.Conf.VocabCacheTTL); err != nil {
		svc.logger.Warn("caching media vocabulary failed", err)
	}
	return vocab, nil
}

// ComputeStorageStats is a pure aggregation over the media documents.
func ComputeStorageStats(files []MediaFile) StorageStats {
	stats := StorageStats{
		TotalFiles: len(files),
		ByFolder:   make(map[string]int64),
		ByType:     make(map[string]int64),
	}
	for _, mf := range files {
		stats.TotalBytes += mf.Size
		stats.ByFolder[mf.Folder] += mf.Size
		stats.ByType[mf.ContentType] += mf.Size
	}
	return stats
}

// helpers

// uniqueSlug generates a slug from the title and suffixes a counter until it
// is unique among posts (excluding excludedID on update).
func (svc *Service) uniqueSlug(ctx context.Context, title, excludedID string) (string, error) {
	base := slugify(title)
	slug := base
	for n := 2; ; n++ {
		var matches []BlogPost
		if err := svc.db.GetAll(ctx, PostCollection, &matches, core.Where("slug", core.OpEqual, slug)); err != nil {
			return "", errors.Wrap(err, "querying posts by slug")
		}
		taken := false
		for _, post := range matches {
			if post.ID != excludedID {
				taken = true
				break
			}
		}
		if !taken {
			return slug, nil
		}
		slug = fmt.Sprintf("%s-%d", base, n)
	}
}

func (svc *Service) deleteBlob(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), core.Conf.Storage.DeleteTimeout)
	defer cancel()
	if err := svc.files.Delete(ctx, key); err != nil && errors.Cause(err) != core.ErrFileNotFound {
		svc.logger.Warn("deleting blob "+key+" failed", err)
	}
}

func (svc *Service) invalidate(ctx context.Context, key string) {
	if err := svc.cache.Delete(ctx, key); err != nil {
		svc.logger.Warn("invalidating cache key "+key+" failed", err)
	}
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
