package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"firebase.google.com/go/v4/auth"
	"github.com/bjarke-xyz/course-applications/internal/domain"
	"github.com/bjarke-xyz/course-applications/internal/service"
	"github.com/bjarke-xyz/course-applications/internal/testutil"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

// stubVerifier maps ID tokens to Firebase UIDs.
type stubVerifier map[string]string

var testUsers = stubVerifier{"token-u1": "u1", "token-u2": "u2"}

func (v stubVerifier) VerifyIDToken(_ context.Context, idToken string) (*auth.Token, error) {
	uid, ok := v[idToken]
	if !ok {
		return nil, errors.New("invalid token")
	}
	return &auth.Token{UID: uid, Subject: uid}, nil
}

type stubSignIn struct {
	resp service.IdTokenResponse
	err  error
}

func (s stubSignIn) SignInWithEmailAndPassword(context.Context, string, string) (service.IdTokenResponse, error) {
	return s.resp, s.err
}

type testServer struct {
	*server
	repo    *testutil.MemoryRepository
	handler http.Handler
}

func newTestServer(t *testing.T, signIn PasswordSignIn) *testServer {
	t.Helper()
	repo := testutil.NewMemoryRepository()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := NewServer(logger, testUsers, signIn, repo, Options{Registerer: prometheus.NewRegistry()})
	require.NoError(t, err)
	return &testServer{server: s, repo: repo, handler: s.routes()}
}

func (ts *testServer) do(method, path, token string, form url.Values) *httptest.ResponseRecorder {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, path, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if token != "" {
		req.AddCookie(&http.Cookie{Name: idTokenCookieKey, Value: token})
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

// create submits the create form as the given user and returns the stored
// application.
func (ts *testServer) create(t *testing.T, token string, values url.Values) domain.Application {
	t.Helper()
	before := ts.repo.Len()
	rec := ts.do(http.MethodPost, "/applications/create/", token, values)
	require.Equal(t, http.StatusFound, rec.Code, rec.Body.String())
	require.Equal(t, before+1, ts.repo.Len())

	apps, err := ts.repo.GetByUserID(context.Background(), testUsers[token])
	require.NoError(t, err)
	require.NotEmpty(t, apps)
	return apps[len(apps)-1]
}

func courseForm() url.Values {
	return url.Values{
		"title":         {"Intro to Rust"},
		"link":          {"https://example.com/course"},
		"quarter":       {"1"},
		"justification": {"career growth"},
	}
}

func TestRootRedirectsToList(t *testing.T) {
	ts := newTestServer(t, stubSignIn{})
	rec := ts.do(http.MethodGet, "/", "", nil)
	require.Equal(t, http.StatusFound, rec.Code)
	require.Equal(t, listPath, rec.Header().Get("Location"))
}

func TestUp(t *testing.T) {
	ts := newTestServer(t, stubSignIn{})
	rec := ts.do(http.MethodGet, "/up", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "up!", rec.Body.String())
}

func TestStaticFiles(t *testing.T) {
	ts := newTestServer(t, stubSignIn{})
	rec := ts.do(http.MethodGet, "/static/style.css", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), ".error")
}

func TestUnauthenticatedRedirectsToLogin(t *testing.T) {
	ts := newTestServer(t, stubSignIn{})
	tc := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/applications/list/"},
		{http.MethodGet, "/applications/create/"},
		{http.MethodPost, "/applications/create/"},
		{http.MethodGet, "/applications/00000000-0000-0000-0000-000000000001/update/"},
		{http.MethodPost, "/applications/00000000-0000-0000-0000-000000000001/delete/"},
	}
	for _, tt := range tc {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := require.New(t)
			rec := ts.do(tt.method, tt.path, "", url.Values{})
			req.Equal(http.StatusFound, rec.Code)
			req.True(strings.HasPrefix(rec.Header().Get("Location"), loginPath), rec.Header().Get("Location"))
		})
	}
	require.Zero(t, ts.repo.Len())
}

func TestInvalidTokenRedirectsToLogin(t *testing.T) {
	require := require.New(t)
	ts := newTestServer(t, stubSignIn{})

	rec := ts.do(http.MethodGet, "/applications/create/", "forged", nil)
	require.Equal(http.StatusFound, rec.Code)
	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(err)
	require.Equal(loginPath, loc.Path)
	require.Equal("session expired", loc.Query().Get("error"))
	require.Equal("/applications/create/", loc.Query().Get("next"))
}

func TestCreateWithoutOptionalFields(t *testing.T) {
	require := require.New(t)
	ts := newTestServer(t, stubSignIn{})

	rec := ts.do(http.MethodGet, "/applications/create/", "token-u1", nil)
	require.Equal(http.StatusOK, rec.Code)
	require.Contains(rec.Body.String(), `name="justification"`)

	app := ts.create(t, "token-u1", courseForm())
	require.Equal("u1", app.OwnerUserID)
	require.Equal("Intro to Rust", app.Title)
	require.Nil(app.Price)
	require.Nil(app.StartDate)
	require.Equal(domain.Q1, app.Quarter)

	rec = ts.do(http.MethodGet, "/applications/list/", "token-u1", nil)
	require.Equal(http.StatusOK, rec.Code)
	require.Equal(1, strings.Count(rec.Body.String(), "Intro to Rust"))
	require.Contains(rec.Body.String(), app.ID.String())
}

func TestCreateWithEmptyTitle(t *testing.T) {
	require := require.New(t)
	ts := newTestServer(t, stubSignIn{})

	values := url.Values{
		"title":         {""},
		"link":          {"https://example.com"},
		"quarter":       {"2"},
		"justification": {"x"},
	}
	rec := ts.do(http.MethodPost, "/applications/create/", "token-u1", values)
	require.Equal(http.StatusOK, rec.Code)
	require.Contains(rec.Body.String(), "This field is required.")
	require.Zero(ts.repo.Len())
}

func TestCreateReportsAllErrors(t *testing.T) {
	require := require.New(t)
	ts := newTestServer(t, stubSignIn{})

	values := url.Values{"link": {"nope"}, "quarter": {"9"}, "start_date": {"tomorrow"}}
	rec := ts.do(http.MethodPost, "/applications/create/", "token-u1", values)
	require.Equal(http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.Equal(2, strings.Count(body, "This field is required."))
	require.Contains(body, "Enter a valid URL.")
	require.Contains(body, "Select a valid choice.")
	require.Contains(body, "Enter a valid date.")
	require.Contains(body, `value="nope"`, "submitted values are redisplayed")
	require.Zero(ts.repo.Len())
}

func TestCreateRejectsQuarterOutOfRange(t *testing.T) {
	ts := newTestServer(t, stubSignIn{})
	for _, q := range []string{"0", "5", "-3", "Q2"} {
		t.Run(q, func(t *testing.T) {
			values := courseForm()
			values.Set("quarter", q)
			rec := ts.do(http.MethodPost, "/applications/create/", "token-u1", values)
			require.Equal(t, http.StatusOK, rec.Code)
			require.Contains(t, rec.Body.String(), "Select a valid choice.")
		})
	}
	require.Zero(t, ts.repo.Len())
}

func TestCreateWithOptionalFields(t *testing.T) {
	require := require.New(t)
	ts := newTestServer(t, stubSignIn{})

	values := courseForm()
	values.Set("price", "$49")
	values.Set("start_date", "2024-09-01")
	values.Set("quarter", "4")
	app := ts.create(t, "token-u1", values)
	require.Equal("$49", *app.Price)
	require.Equal("2024-09-01", app.StartDate.Format("2006-01-02"))
	require.Equal(domain.Q4, app.Quarter)
}

func TestListIsScopedToUser(t *testing.T) {
	require := require.New(t)
	ts := newTestServer(t, stubSignIn{})

	values := courseForm()
	values.Set("title", "Only for u1")
	ts.create(t, "token-u1", values)

	rec := ts.do(http.MethodGet, "/applications/list/", "token-u2", nil)
	require.Equal(http.StatusOK, rec.Code)
	require.NotContains(rec.Body.String(), "Only for u1")
}

func TestUpdateByOwner(t *testing.T) {
	require := require.New(t)
	ts := newTestServer(t, stubSignIn{})
	app := ts.create(t, "token-u1", courseForm())
	path := "/applications/" + app.ID.String() + "/update/"

	rec := ts.do(http.MethodGet, path, "token-u1", nil)
	require.Equal(http.StatusOK, rec.Code)
	require.Contains(rec.Body.String(), `value="Intro to Rust"`)

	values := courseForm()
	values.Set("title", "Advanced Rust")
	values.Set("price", "free")
	values.Set("quarter", "3")
	rec = ts.do(http.MethodPost, path, "token-u1", values)
	require.Equal(http.StatusFound, rec.Code)
	require.Equal(listPath, rec.Header().Get("Location"))

	got, err := ts.repo.GetByID(context.Background(), app.ID)
	require.NoError(err)
	require.Equal("Advanced Rust", got.Title)
	require.Equal("free", *got.Price)
	require.Equal(domain.Q3, got.Quarter)
	require.Equal("u1", got.OwnerUserID)
	require.Equal(app.ID, got.ID)
}

func TestUpdateMergesOverExistingRecord(t *testing.T) {
	require := require.New(t)
	ts := newTestServer(t, stubSignIn{})
	app := ts.create(t, "token-u1", courseForm())

	rec := ts.do(http.MethodPost, "/applications/"+app.ID.String()+"/update/", "token-u1", url.Values{"quarter": {"2"}})
	require.Equal(http.StatusFound, rec.Code)

	got, err := ts.repo.GetByID(context.Background(), app.ID)
	require.NoError(err)
	require.Equal("Intro to Rust", got.Title)
	require.Equal(domain.Q2, got.Quarter)
}

func TestUpdateByNonOwnerIsNotFound(t *testing.T) {
	require := require.New(t)
	ts := newTestServer(t, stubSignIn{})
	app := ts.create(t, "token-u1", courseForm())
	path := "/applications/" + app.ID.String() + "/update/"

	rec := ts.do(http.MethodGet, path, "token-u2", nil)
	require.Equal(http.StatusNotFound, rec.Code)

	values := courseForm()
	values.Set("title", "hijacked")
	rec = ts.do(http.MethodPost, path, "token-u2", values)
	require.Equal(http.StatusNotFound, rec.Code)

	got, err := ts.repo.GetByID(context.Background(), app.ID)
	require.NoError(err)
	require.Equal(app, got)
}

func TestUpdateInvalidLeavesRecordUnchanged(t *testing.T) {
	require := require.New(t)
	ts := newTestServer(t, stubSignIn{})
	app := ts.create(t, "token-u1", courseForm())

	values := courseForm()
	values.Set("title", "")
	values.Set("quarter", "7")
	rec := ts.do(http.MethodPost, "/applications/"+app.ID.String()+"/update/", "token-u1", values)
	require.Equal(http.StatusOK, rec.Code)
	require.Contains(rec.Body.String(), "This field is required.")
	require.Contains(rec.Body.String(), "Select a valid choice.")

	got, err := ts.repo.GetByID(context.Background(), app.ID)
	require.NoError(err)
	require.Equal(app, got)
}

func TestUpdateClearsOptionalFields(t *testing.T) {
	require := require.New(t)
	ts := newTestServer(t, stubSignIn{})
	values := courseForm()
	values.Set("price", "$49")
	values.Set("start_date", "2025-09-01")
	app := ts.create(t, "token-u1", values)
	require.NotNil(app.Price)
	require.NotNil(app.StartDate)

	rec := ts.do(http.MethodPost, "/applications/"+app.ID.String()+"/update/", "token-u1",
		url.Values{"price": {""}, "start_date": {""}})
	require.Equal(http.StatusFound, rec.Code, rec.Body.String())

	got, err := ts.repo.GetByID(context.Background(), app.ID)
	require.NoError(err)
	require.Nil(got.Price)
	require.Nil(got.StartDate)
	require.Equal("Intro to Rust", got.Title)
}

func TestUpdateEmptiedRequiredFieldIsRejected(t *testing.T) {
	require := require.New(t)
	ts := newTestServer(t, stubSignIn{})
	values := courseForm()
	values.Set("price", "$49")
	app := ts.create(t, "token-u1", values)

	rec := ts.do(http.MethodPost, "/applications/"+app.ID.String()+"/update/", "token-u1",
		url.Values{"title": {""}, "price": {""}})
	require.Equal(http.StatusOK, rec.Code)
	require.Contains(rec.Body.String(), "This field is required.")

	got, err := ts.repo.GetByID(context.Background(), app.ID)
	require.NoError(err)
	require.Equal(app, got)
	require.Equal("$49", *got.Price)
}

func TestMalformedOrUnknownIDIsNotFound(t *testing.T) {
	ts := newTestServer(t, stubSignIn{})
	tc := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/applications/5/update/"},
		{http.MethodPost, "/applications/not-a-uuid/update/"},
		{http.MethodGet, "/applications/5/delete/"},
		{http.MethodPost, "/applications/5/delete/"},
		{http.MethodGet, "/applications/6f1c2a8e-8d43-4a4e-9a55-0f0e7c1b9d11/update/"},
		{http.MethodPost, "/applications/6f1c2a8e-8d43-4a4e-9a55-0f0e7c1b9d11/delete/"},
	}
	for _, tt := range tc {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := ts.do(tt.method, tt.path, "token-u1", courseForm())
			require.Equal(t, http.StatusNotFound, rec.Code)
		})
	}
}

func TestDeleteTwice(t *testing.T) {
	require := require.New(t)
	ts := newTestServer(t, stubSignIn{})
	app := ts.create(t, "token-u1", courseForm())
	path := "/applications/" + app.ID.String() + "/delete/"

	rec := ts.do(http.MethodGet, path, "token-u1", nil)
	require.Equal(http.StatusOK, rec.Code)
	require.Contains(rec.Body.String(), "Intro to Rust")

	rec = ts.do(http.MethodPost, path, "token-u1", url.Values{})
	require.Equal(http.StatusFound, rec.Code)
	require.Equal(listPath, rec.Header().Get("Location"))
	require.Zero(ts.repo.Len())

	rec = ts.do(http.MethodPost, path, "token-u1", url.Values{})
	require.Equal(http.StatusNotFound, rec.Code)
}

func TestDeleteByNonOwnerIsNotFound(t *testing.T) {
	require := require.New(t)
	ts := newTestServer(t, stubSignIn{})
	app := ts.create(t, "token-u1", courseForm())

	rec := ts.do(http.MethodPost, "/applications/"+app.ID.String()+"/delete/", "token-u2", url.Values{})
	require.Equal(http.StatusNotFound, rec.Code)
	require.Equal(1, ts.repo.Len())
}

func TestStoreFailureIsInternalError(t *testing.T) {
	require := require.New(t)
	ts := newTestServer(t, stubSignIn{})
	app := ts.create(t, "token-u1", courseForm())
	ts.repo.FailWith(errors.New("connection reset"))

	rec := ts.do(http.MethodGet, "/applications/list/", "token-u1", nil)
	require.Equal(http.StatusInternalServerError, rec.Code)
	require.NotContains(rec.Body.String(), "connection reset")

	rec = ts.do(http.MethodPost, "/applications/create/", "token-u1", courseForm())
	require.Equal(http.StatusInternalServerError, rec.Code)

	rec = ts.do(http.MethodPost, "/applications/"+app.ID.String()+"/delete/", "token-u1", url.Values{})
	require.Equal(http.StatusInternalServerError, rec.Code)
}
