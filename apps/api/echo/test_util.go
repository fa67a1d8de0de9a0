package echoapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shulehq/shule/core"
	"github.com/shulehq/shule/core/academic"
	"github.com/shulehq/shule/core/admission"
	"github.com/shulehq/shule/core/content"
	"github.com/shulehq/shule/core/identity"
	authsvc "github.com/shulehq/shule/services/auth"
	memcache "github.com/shulehq/shule/services/cache/memory"
	emailsvc "github.com/shulehq/shule/services/email"
	inmemdoc "github.com/shulehq/shule/storage/docstore/inmem"
	inmemobj "github.com/shulehq/shule/storage/object/inmem"
)

// testEnv bundles the fakes behind a test Server.
type testEnv struct {
	server  Server
	db      *inmemdoc.DB
	files   *inmemobj.Store
	mailSvc core.EmailService
}

func setup(t *testing.T) *testEnv {
	t.Helper()
	core.Conf.TestMode = true
	core.Conf.Debug = false // exercise the production error rendering

	db := inmemdoc.Open()
	files := inmemobj.Open()
	cache := memcache.Open()
	logger := core.NopLogger{}
	mailSvc := emailsvc.NewConsoleServiceMock()

	srv := NewServer(&Options{
		DisableReqLogs: true,
		AdmissionSvc:   admission.NewService(db, files, logger),
		AcademicSvc:    academic.NewService(db, logger),
		IdentitySvc:    identity.NewService(db, authsvc.NewDummyProvisioner(), logger),
		ContentSvc:     content.NewService(db, files, cache, logger),
		EmailSvc:       mailSvc,
		Logger:         logger,
	})
	return &testEnv{server: srv, db: db, files: files, mailSvc: mailSvc}
}

type httpErr struct {
	Error string `json:"error"`
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, id, email string, isAdmin bool) string {
	t.Helper()
	token, err := GenerateToken(GetCallerClaims(id, email, isAdmin))
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func adminToken(t *testing.T) string {
	return getToken(t, "admin-1", "admin@shule.test", true)
}

func marshallObj(t *testing.T, obj interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshallObj() failed: %v", err)
	}
	return data
}
