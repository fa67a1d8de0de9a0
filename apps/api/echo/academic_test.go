package echoapi

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shulehq/shule/core/academic"
	"github.com/shulehq/shule/core/identity"
)

func createSubject(t *testing.T, env *testEnv, name, code string) academic.Subject {
	t.Helper()
	ns := academic.NewSubject{Name: name, Code: code, Level: "secondary"}
	req, rec := newAuthRequest(http.MethodPost, "/v1/subjects", adminToken(t), marshallObj(t, ns))
	env.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("creating subject failed: %d %s", rec.Code, rec.Body.String())
	}
	var sub academic.Subject
	if err := json.Unmarshal(rec.Body.Bytes(), &sub); err != nil {
		t.Fatal(err)
	}
	return sub
}

func createClass(t *testing.T, env *testEnv, grade, section string, capacity int, subjectIDs ...string) academic.Class {
	t.Helper()
	nc := academic.NewClass{
		Name: "Form " + grade + section, Grade: grade, Section: section,
		Capacity: capacity, SubjectIDs: subjectIDs,
	}
	req, rec := newAuthRequest(http.MethodPost, "/v1/classes", adminToken(t), marshallObj(t, nc))
	env.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("creating class failed: %d %s", rec.Code, rec.Body.String())
	}
	var cls academic.Class
	if err := json.Unmarshal(rec.Body.Bytes(), &cls); err != nil {
		t.Fatal(err)
	}
	return cls
}

func Test_academicApi(t *testing.T) {
	env := setup(t)
	token := adminToken(t)

	sub := createSubject(t, env, "Mathematics", "MATH101")

	// duplicate name -> 409
	req, rec := newAuthRequest(http.MethodPost, "/v1/subjects", token,
		marshallObj(t, academic.NewSubject{Name: "Mathematics", Code: "MATH102", Level: "secondary"}))
	env.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusConflict, rec.Code)

	cls := createClass(t, env, "1", "A", 30, sub.ID)

	// duplicate (grade, section) -> 409
	req, rec = newAuthRequest(http.MethodPost, "/v1/classes", token,
		marshallObj(t, academic.NewClass{Name: "x", Grade: "1", Section: "A", Capacity: 10}))
	env.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// subject referenced by a class cannot be deleted -> 409
	req, rec = newAuthRequest(http.MethodDelete, "/v1/subjects/"+sub.ID, token)
	env.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// partial update leaves other fields alone
	req, rec = newAuthRequest(http.MethodPut, "/v1/classes/"+cls.ID, token, []byte(`{"capacity":40}`))
	env.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	var got academic.Class
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 40, got.Capacity)
	assert.Equal(t, cls.Grade, got.Grade)

	req, rec = newAuthRequest(http.MethodGet, "/v1/subjects/nope", token)
	env.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func Test_identityApi(t *testing.T) {
	env := setup(t)
	token := adminToken(t)

	sub := createSubject(t, env, "Mathematics", "MATH101")
	cls := createClass(t, env, "1", "A", 2, sub.ID)

	nt := identity.NewTeacher{
		Name: "Neema Otieno", Email: "neema@test.test", Password: "s3cret-pass",
		EmployeeID: "EMP001", SubjectIDs: []string{sub.ID},
	}
	req, rec := newAuthRequest(http.MethodPost, "/v1/teachers", token, marshallObj(t, nt))
	env.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var tch identity.Teacher
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tch))
	assert.NotEmpty(t, tch.ID)

	ns := identity.NewStudent{
		Name: "Baraka Otieno", Email: "baraka@test.test", Password: "s3cret-pass",
		StudentNo: "STU001", ClassID: cls.ID,
	}
	req, rec = newAuthRequest(http.MethodPost, "/v1/students", token, marshallObj(t, ns))
	env.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var stu identity.Student
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stu))
	assert.Equal(t, []string{sub.ID}, stu.SubjectIDs)

	// reusing the teacher's email across collections -> 409
	dup := ns
	dup.Email = "neema@test.test"
	dup.StudentNo = "STU002"
	req, rec = newAuthRequest(http.MethodPost, "/v1/students", token, marshallObj(t, dup))
	env.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// transfers check destination capacity
	full := createClass(t, env, "2", "A", 1)
	other := identity.NewStudent{
		Name: "Zawadi Otieno", Email: "zawadi@test.test", Password: "s3cret-pass",
		StudentNo: "STU003", ClassID: full.ID,
	}
	req, rec = newAuthRequest(http.MethodPost, "/v1/students", token, marshallObj(t, other))
	env.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code)

	req, rec = newAuthRequest(http.MethodPut, "/v1/students/"+stu.ID+"/transfer", token,
		marshallObj(t, TransferRequest{ClassID: full.ID}))
	env.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// deleting the student releases the class seat
	req, rec = newAuthRequest(http.MethodDelete, "/v1/students/"+stu.ID, token)
	env.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	req, rec = newAuthRequest(http.MethodGet, "/v1/classes/"+cls.ID, token)
	env.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	var gotCls academic.Class
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &gotCls))
	assert.Equal(t, 0, gotCls.CurrentEnrollment)
}
