package authsvc

import (
	"context"
	"fmt"
	"sync"

	"github.com/shulehq/shule/core"
	"github.com/shulehq/shule/core/identity"
)

// DummyProvisioner hands out sequential IDs without any external call; used
// in tests and local dev.
type DummyProvisioner struct {
	// FailCreate / FailDelete make the next calls fail; test knobs.
	FailCreate error
	FailDelete error

	mu      sync.Mutex
	seq     int
	Deleted []string
}

var _ identity.Provisioner = (*DummyProvisioner)(nil)

func NewDummyProvisioner() *DummyProvisioner {
	return &DummyProvisioner{}
}

func (p *DummyProvisioner) CreateIdentity(_ context.Context, _ core.Caller, kind identity.Kind, _, _, _ string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.FailCreate != nil {
		return "", p.FailCreate
	}
	p.seq++
	return fmt.Sprintf("%s-%04d", kind, p.seq), nil
}

func (p *DummyProvisioner) DeleteIdentity(_ context.Context, _ core.Caller, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.FailDelete != nil {
		return p.FailDelete
	}
	p.Deleted = append(p.Deleted, id)
	return nil
}
