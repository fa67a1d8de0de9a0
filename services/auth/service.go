package authsvc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/shulehq/shule/core"
	"github.com/shulehq/shule/core/identity"
)

// httpProvisioner talks to the external identity provider's admin API: one
// provisioning endpoint per identity kind plus a deletion endpoint, each
// authorized with the calling admin's bearer credential.
type httpProvisioner struct {
	baseURL string
	client  *http.Client
}

var _ identity.Provisioner = (*httpProvisioner)(nil)

func NewHTTPProvisioner(conf *core.Config) identity.Provisioner {
	return &httpProvisioner{
		baseURL: conf.Auth.BaseURL,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

type (
	createIdentityRequest struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	identityResponse struct {
		ID    string `json:"id"`
		Error string `json:"error"`
	}
)

func (p *httpProvisioner) CreateIdentity(ctx context.Context, caller core.Caller, kind identity.Kind, name, email, password string) (string, error) {
	body, err := json.Marshal(createIdentityRequest{Name: name, Email: email, Password: password})
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/identities/%ss", p.baseURL, kind)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+caller.Token)

	res, err := p.client.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "calling identity provider")
	}
	defer res.Body.Close()

	var payload identityResponse
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return "", errors.Wrap(err, "decoding identity provider response")
	}
	if res.StatusCode >= http.StatusBadRequest || payload.ID == "" {
		if payload.Error != "" {
			return "", errors.Errorf("identity provider: %s", payload.Error)
		}
		return "", errors.Errorf("identity provider: unexpected status %d", res.StatusCode)
	}
	return payload.ID, nil
}

func (p *httpProvisioner) DeleteIdentity(ctx context.Context, caller core.Caller, id string) error {
	url := fmt.Sprintf("%s/identities/%s", p.baseURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+caller.Token)

	res, err := p.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "calling identity provider")
	}
	defer res.Body.Close()
	if res.StatusCode >= http.StatusBadRequest && res.StatusCode != http.StatusNotFound {
		return errors.Errorf("identity provider: unexpected status %d", res.StatusCode)
	}
	return nil
}
