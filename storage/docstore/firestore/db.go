package firedoc

import (
	"context"
	"reflect"

	"cloud.google.com/go/firestore"
	"github.com/pkg/errors"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/shulehq/shule/core"
)

// DB implements core.Docstore on Cloud Firestore.
type DB struct {
	client *firestore.Client
}

var _ core.Docstore = (*DB)(nil)

func Open(ctx context.Context, conf *core.Config) (*DB, error) {
	var opts []option.ClientOption
	if conf.Database.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(conf.Database.CredentialsFile))
	}
	client, err := firestore.NewClient(ctx, conf.Database.ProjectID, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "creating firestore client")
	}
	return &DB{client: client}, nil
}

func (db *DB) Close() error {
	return db.client.Close()
}

func (db *DB) Get(ctx context.Context, col, key string, dest interface{}) error {
	snap, err := db.client.Collection(col).Doc(key).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return core.ErrDocNotFound
		}
		return errors.Wrap(err, "fetching document")
	}
	return errors.Wrap(snap.DataTo(dest), "decoding document")
}

func (db *DB) Exists(ctx context.Context, col, key string) (bool, error) {
	_, err := db.client.Collection(col).Doc(key).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return false, nil
		}
		return false, errors.Wrap(err, "fetching document")
	}
	return true, nil
}

func (db *DB) Set(ctx context.Context, col, key string, doc interface{}) error {
	_, err := db.client.Collection(col).Doc(key).Set(ctx, doc)
	return errors.Wrap(err, "writing document")
}

func (db *DB) Merge(ctx context.Context, col, key string, fields map[string]interface{}) error {
	_, err := db.client.Collection(col).Doc(key).Set(ctx, fields, firestore.MergeAll)
	return errors.Wrap(err, "merging document")
}

func (db *DB) Delete(ctx context.Context, col, key string) error {
	_, err := db.client.Collection(col).Doc(key).Delete(ctx)
	return errors.Wrap(err, "deleting document")
}

func (db *DB) GetAll(ctx context.Context, col string, dest interface{}, q core.Query) error {
	query := db.client.Collection(col).Query
	for _, f := range q.Filters {
		query = query.Where(f.Field, f.Op, f.Value)
	}
	for _, ord := range q.OrderBy {
		dir := firestore.Asc
		if ord.Desc {
			dir = firestore.Desc
		}
		query = query.OrderBy(ord.Field, dir)
	}
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}

	snaps, err := query.Documents(ctx).GetAll()
	if err != nil {
		return errors.Wrap(err, "running query")
	}

	// dest is a pointer to a struct slice
	slice := reflect.ValueOf(dest).Elem()
	elemType := slice.Type().Elem()
	for _, snap := range snaps {
		elem := reflect.New(elemType)
		if err := snap.DataTo(elem.Interface()); err != nil {
			return errors.Wrap(err, "decoding document")
		}
		slice.Set(reflect.Append(slice, elem.Elem()))
	}
	return nil
}

func (db *DB) Batch() core.DocstoreBatch {
	return &batch{db: db, wb: db.client.Batch()}
}

type batch struct {
	db *DB
	wb *firestore.WriteBatch
}

var _ core.DocstoreBatch = (*batch)(nil)

func (b *batch) Set(col, key string, doc interface{}) core.DocstoreBatch {
	b.wb.Set(b.db.client.Collection(col).Doc(key), doc)
	return b
}

func (b *batch) Merge(col, key string, fields map[string]interface{}) core.DocstoreBatch {
	b.wb.Set(b.db.client.Collection(col).Doc(key), fields, firestore.MergeAll)
	return b
}

func (b *batch) Delete(col, key string) core.DocstoreBatch {
	b.wb.Delete(b.db.client.Collection(col).Doc(key))
	return b
}

func (b *batch) Commit(ctx context.Context) error {
	_, err := b.wb.Commit(ctx)
	return errors.Wrap(err, "committing batch")
}
