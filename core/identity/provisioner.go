package identity

import (
	"context"

	"github.com/shulehq/shule/core"
)

// Kind selects the provider endpoint used to provision an authentication
// identity.
type Kind string

const (
	KindTeacher Kind = "teacher"
	KindStudent Kind = "student"
	KindParent  Kind = "parent"
)

// Provisioner is the port onto the external identity provider. Each call
// requires the bearer credential of the admin caller.
type Provisioner interface {
	// CreateIdentity provisions an authentication identity and returns its ID.
	CreateIdentity(ctx context.Context, caller core.Caller, kind Kind, name, email, password string) (string, error)
	// DeleteIdentity removes a provisioned identity; used for compensating
	// cleanup when the profile write fails after provisioning.
	DeleteIdentity(ctx context.Context, caller core.Caller, id string) error
}
