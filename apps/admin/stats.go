package main

import (
	"context"
	"fmt"

	"github.com/shulehq/shule/core"
	"github.com/shulehq/shule/core/academic"
	"github.com/shulehq/shule/core/admission"
	"github.com/shulehq/shule/core/content"
	"github.com/shulehq/shule/core/identity"
)

// docRef is the minimal projection used to count documents.
type docRef struct {
	ID string `json:"id" firestore:"id"`
}

// stats prints the document count of every known collection.
func (cli *commandLine) stats() error {
	ctx := context.Background()
	collections := []string{
		admission.Collection,
		academic.SubjectCollection,
		academic.ClassCollection,
		identity.TeacherCollection,
		identity.StudentCollection,
		identity.ParentCollection,
		content.PostCollection,
		content.MediaCollection,
	}

	for _, col := range collections {
		var refs []docRef
		if err := cli.db.GetAll(ctx, col, &refs, core.Query{}); err != nil {
			return err
		}
		fmt.Printf("%-25s %d\n", col, len(refs))
	}
	return nil
}
