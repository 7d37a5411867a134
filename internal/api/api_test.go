package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumeStudio/internal/auth"
	"resumeStudio/internal/config"
	"resumeStudio/internal/controller"
	"resumeStudio/internal/editor"
	"resumeStudio/internal/errcode"
	"resumeStudio/internal/resume"
	"resumeStudio/internal/richtext"
	"resumeStudio/internal/session"
)

const testCode = "123456"

type fakeAccount struct {
	email     string
	password  string
	confirmed bool
}

// fakeIdentity 是内存版身份服务。
type fakeIdentity struct {
	mu       sync.Mutex
	accounts map[string]*fakeAccount
}

func newFakeIdentity() *fakeIdentity {
	return &fakeIdentity{accounts: make(map[string]*fakeAccount)}
}

func (f *fakeIdentity) SignUp(_ context.Context, in auth.SignUpInput) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.accounts[in.Username]; ok {
		return auth.ErrUsernameTaken
	}
	f.accounts[in.Username] = &fakeAccount{email: strings.ToLower(in.Email), password: in.Password}
	return nil
}

func (f *fakeIdentity) ResendCode(_ context.Context, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.accounts {
		if a.email == email {
			if a.confirmed {
				return auth.ErrAlreadyConfirmed
			}
			return nil
		}
	}
	return auth.ErrAccountNotFound
}

func (f *fakeIdentity) ConfirmSignUp(_ context.Context, email, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.accounts {
		if a.email == email {
			if code != testCode {
				return auth.ErrCodeMismatch
			}
			a.confirmed = true
			return nil
		}
	}
	return auth.ErrAccountNotFound
}

func (f *fakeIdentity) SignIn(_ context.Context, username, password, _ string) (auth.TokenPair, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[username]
	if !ok || a.password != password {
		return auth.TokenPair{}, auth.ErrInvalidCredentials
	}
	if !a.confirmed {
		return auth.TokenPair{}, &auth.UnconfirmedError{Email: a.email}
	}
	return auth.TokenPair{AccessToken: "access-" + username, RefreshToken: "refresh-" + username}, nil
}

// fakeGateway 以挂载的令牌代表登录状态。
type fakeGateway struct {
	mu          sync.Mutex
	pair        auth.TokenPair
	failSignOut *bool
}

func (g *fakeGateway) CheckCurrentIdentity(context.Context) (*auth.Identity, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.pair.Empty() {
		return nil, auth.ErrNoSession
	}
	return &auth.Identity{
		Username:   strings.TrimPrefix(g.pair.AccessToken, "access-"),
		GivenName:  "Ada",
		FamilyName: "Lovelace",
	}, nil
}

func (g *fakeGateway) SignOut(context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if *g.failSignOut {
		return errors.New("identity provider unavailable")
	}
	g.pair = auth.TokenPair{}
	return nil
}

func (g *fakeGateway) Attach(pair auth.TokenPair) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pair = pair
}

type testEnv struct {
	t           *testing.T
	router      *gin.Engine
	identity    *fakeIdentity
	sessions    *session.Registry
	failSignOut bool
	cookie      *http.Cookie
}

type errorBody struct {
	Error string       `json:"error"`
	Code  int          `json:"code"`
	View  viewResponse `json:"view"`
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	env := &testEnv{t: t, identity: newFakeIdentity()}
	env.sessions = session.NewRegistry(func(string) (session.Gateway, *controller.Controller) {
		gw := &fakeGateway{failSignOut: &env.failSignOut}
		return gw, controller.New(gw, controller.WithLogger(logger))
	}, time.Hour, logger)

	env.router = NewRouter(&config.Config{}, logger)
	RegisterRoutes(env.router, Dependencies{
		Identity:  env.identity,
		Sessions:  env.sessions,
		Sanitizer: richtext.NewPolicy(),
	})
	return env
}

func (e *testEnv) do(method, path string, body any) *httptest.ResponseRecorder {
	e.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(e.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if e.cookie != nil {
		req.AddCookie(e.cookie)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	for _, c := range rec.Result().Cookies() {
		if c.Name == session.CookieName {
			e.cookie = c
		}
	}
	return rec
}

func (e *testEnv) view(method, path string, body any) viewResponse {
	e.t.Helper()
	rec := e.do(method, path, body)
	require.Equal(e.t, http.StatusOK, rec.Code, rec.Body.String())
	var out viewResponse
	require.NoError(e.t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func (e *testEnv) failure(method, path string, body any, status int) errorBody {
	e.t.Helper()
	rec := e.do(method, path, body)
	require.Equal(e.t, status, rec.Code, rec.Body.String())
	var out errorBody
	require.NoError(e.t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

// signedIn 注册、验证并登录用户 ada，停在控制台。
func (e *testEnv) signedIn() viewResponse {
	e.t.Helper()
	e.view(http.MethodPost, "/v1/navigate", gin.H{"page": "auth"})
	e.view(http.MethodPost, "/v1/auth/sign-up", gin.H{
		"username": "ada", "email": "ada@example.com", "password": "correct-horse",
	})
	e.view(http.MethodPost, "/v1/auth/verify", gin.H{"code": testCode})
	return e.view(http.MethodPost, "/v1/auth/sign-in", gin.H{"username": "ada", "password": "correct-horse"})
}

func TestAPI_NewSessionStartsOnLanding(t *testing.T) {
	env := newTestEnv(t)

	v := env.view(http.MethodGet, "/v1/view", nil)
	assert.Equal(t, controller.ViewLanding, v.View)
	assert.False(t, v.Authenticated)
	assert.Nil(t, v.User)
	require.NotNil(t, env.cookie)
	assert.Equal(t, 1, env.sessions.Len())

	env.view(http.MethodGet, "/v1/view", nil)
	assert.Equal(t, 1, env.sessions.Len(), "cookie reuses the session")
}

func TestAPI_UnauthenticatedEditorResolvesToLanding(t *testing.T) {
	env := newTestEnv(t)

	v := env.view(http.MethodPost, "/v1/navigate", gin.H{"page": "editor"})
	assert.Equal(t, controller.ViewLanding, v.View)
	assert.Equal(t, controller.PageLanding, v.Page)
	assert.True(t, v.Corrected)
}

func TestAPI_ViewGate(t *testing.T) {
	env := newTestEnv(t)

	body := env.failure(http.MethodPost, "/v1/resumes/new", nil, http.StatusConflict)
	assert.Equal(t, errcode.ViewConflict, body.Code)
	assert.Equal(t, controller.ViewLanding, body.View.View)

	body = env.failure(http.MethodPost, "/v1/auth/sign-in", gin.H{"username": "ada", "password": "x"}, http.StatusConflict)
	assert.Equal(t, controller.ViewLanding, body.View.View, "sign in is only offered on the auth view")
}

func TestAPI_FullFlow(t *testing.T) {
	env := newTestEnv(t)

	v := env.view(http.MethodPost, "/v1/navigate", gin.H{"page": "auth"})
	assert.Equal(t, controller.ViewAuth, v.View)

	v = env.view(http.MethodPost, "/v1/auth/sign-up", gin.H{
		"username": "ada", "email": "Ada@Example.com", "password": "correct-horse",
		"given_name": "Ada", "family_name": "Lovelace",
	})
	assert.Equal(t, controller.ViewVerification, v.View)
	assert.Equal(t, "ada@example.com", v.VerificationEmail)

	body := env.failure(http.MethodPost, "/v1/auth/verify", gin.H{"code": "000000"}, http.StatusBadRequest)
	assert.Equal(t, errcode.CodeMismatch, body.Code)
	assert.Equal(t, controller.ViewVerification, body.View.View)

	env.view(http.MethodPost, "/v1/auth/resend", nil)

	v = env.view(http.MethodPost, "/v1/auth/verify", gin.H{"code": testCode})
	assert.Equal(t, controller.ViewAuth, v.View)
	assert.Equal(t, controller.VerificationNotice, v.Notice)

	v = env.view(http.MethodPost, "/v1/auth/sign-in", gin.H{"username": "ada", "password": "correct-horse"})
	assert.Equal(t, controller.ViewDashboard, v.View)
	require.NotNil(t, v.User)
	assert.Equal(t, "Ada Lovelace", v.User.DisplayName)
	assert.Empty(t, v.Resumes)

	v = env.view(http.MethodPost, "/v1/resumes/new", nil)
	assert.Equal(t, controller.ViewTemplateSelection, v.View)
	assert.Len(t, v.Templates, len(resume.Templates()))

	v = env.view(http.MethodPost, "/v1/templates/modern/select", nil)
	assert.Equal(t, controller.ViewEditor, v.View)
	require.NotNil(t, v.Draft)
	draftID := v.Draft.Resume.ID
	assert.Equal(t, resume.TemplateModern, v.Draft.Resume.Template)
	assert.Equal(t, resume.DefaultTitle, v.Draft.Resume.Title)

	v = env.view(http.MethodPost, "/v1/editor/fields/summary/input", gin.H{"html": "hello world"})
	require.NotNil(t, v.Changed)
	assert.True(t, *v.Changed)

	v = env.view(http.MethodPost, "/v1/editor/fields/summary/format", gin.H{"command": "bold", "start": 0, "end": 5})
	require.NotNil(t, v.Changed)
	assert.True(t, *v.Changed)
	assert.Equal(t, "<b>hello</b> world", v.Draft.Resume.Summary)

	draft := v.Draft.Resume
	draft.Title = "Backend Engineer"
	v = env.view(http.MethodPut, "/v1/editor/draft", draft)
	assert.Equal(t, "Backend Engineer", v.Draft.Resume.Title)

	v = env.view(http.MethodPost, "/v1/editor/save", nil)
	assert.Equal(t, controller.ViewDashboard, v.View)
	require.Len(t, v.Resumes, 1)
	assert.Equal(t, draftID, v.Resumes[0].ID)
	assert.Equal(t, "Backend Engineer", v.Resumes[0].Title)
	assert.Equal(t, "hello world", v.Resumes[0].Excerpt)

	v = env.view(http.MethodPost, "/v1/resumes/"+draftID+"/edit", nil)
	assert.Equal(t, controller.ViewEditor, v.View)
	assert.Equal(t, "<b>hello</b> world", v.Draft.Resume.Summary)

	env.view(http.MethodPost, "/v1/editor/fields/summary/input", gin.H{"html": "discarded"})
	v = env.view(http.MethodPost, "/v1/editor/back", nil)
	assert.Equal(t, controller.ViewDashboard, v.View)
	require.Len(t, v.Resumes, 1)
	assert.Equal(t, "hello world", v.Resumes[0].Excerpt, "back discards unsaved edits")

	v = env.view(http.MethodPost, "/v1/auth/sign-out", nil)
	assert.Equal(t, controller.ViewLanding, v.View)
	assert.False(t, v.Authenticated)
}

func TestAPI_SignInErrors(t *testing.T) {
	env := newTestEnv(t)
	env.view(http.MethodPost, "/v1/navigate", gin.H{"page": "auth"})
	env.view(http.MethodPost, "/v1/auth/sign-up", gin.H{
		"username": "ada", "email": "ada@example.com", "password": "correct-horse",
	})
	env.view(http.MethodPost, "/v1/navigate", gin.H{"page": "auth"})

	body := env.failure(http.MethodPost, "/v1/auth/sign-in", gin.H{"username": "ada", "password": "wrong-horse"}, http.StatusUnauthorized)
	assert.Equal(t, errcode.InvalidCredentials, body.Code)
	assert.Equal(t, controller.ViewAuth, body.View.View)

	v := env.view(http.MethodPost, "/v1/auth/sign-in", gin.H{"username": "ada", "password": "correct-horse"})
	assert.Equal(t, controller.ViewVerification, v.View, "unconfirmed accounts are sent to verification")
	assert.Equal(t, "ada@example.com", v.VerificationEmail)

	env.view(http.MethodPost, "/v1/navigate", gin.H{"page": "auth"})
	body = env.failure(http.MethodPost, "/v1/auth/sign-up", gin.H{
		"username": "ada", "email": "other@example.com", "password": "correct-horse",
	}, http.StatusConflict)
	assert.Equal(t, errcode.AccountExists, body.Code)

	body = env.failure(http.MethodPost, "/v1/auth/sign-up", gin.H{"username": "ab"}, http.StatusBadRequest)
	assert.Equal(t, errcode.InvalidRequest, body.Code)
}

func TestAPI_SignOutFailureKeepsSession(t *testing.T) {
	env := newTestEnv(t)
	env.signedIn()
	env.failSignOut = true

	body := env.failure(http.MethodPost, "/v1/auth/sign-out", nil, http.StatusBadGateway)
	assert.Equal(t, errcode.IdentityProvider, body.Code)
	assert.Equal(t, controller.ViewDashboard, body.View.View)
	assert.True(t, body.View.Authenticated)
}

func TestAPI_AuthenticatedLandingResolvesToDashboard(t *testing.T) {
	env := newTestEnv(t)
	env.signedIn()

	v := env.view(http.MethodPost, "/v1/navigate", gin.H{"page": "landing"})
	assert.Equal(t, controller.ViewDashboard, v.View)
	assert.True(t, v.Corrected)
}

func TestAPI_EditMissingResumeIsNoop(t *testing.T) {
	env := newTestEnv(t)
	env.signedIn()

	v := env.view(http.MethodPost, "/v1/resumes/missing-id/edit", nil)
	assert.Equal(t, controller.ViewDashboard, v.View)
	assert.False(t, v.Corrected)
	assert.Nil(t, v.Draft)
}

func TestAPI_SelectUnknownTemplate(t *testing.T) {
	env := newTestEnv(t)
	env.signedIn()
	env.view(http.MethodPost, "/v1/resumes/new", nil)

	body := env.failure(http.MethodPost, "/v1/templates/baroque/select", nil, http.StatusBadRequest)
	assert.Equal(t, errcode.InvalidRequest, body.Code)
	assert.Equal(t, controller.ViewTemplateSelection, body.View.View)
}

func TestAPI_EditorFields(t *testing.T) {
	env := newTestEnv(t)
	env.signedIn()
	env.view(http.MethodPost, "/v1/resumes/new", nil)
	env.view(http.MethodPost, "/v1/templates/classic/select", nil)

	v := env.view(http.MethodPost, "/v1/editor/fields/summary/input", gin.H{"html": `<p>Hi</p><script>alert(1)</script>`})
	assert.Equal(t, "<p>Hi</p>", v.Draft.Resume.Summary)

	v = env.view(http.MethodPost, "/v1/editor/fields/summary/input", gin.H{"html": "<p>Hi</p>"})
	require.NotNil(t, v.Changed)
	assert.False(t, *v.Changed)

	field := editor.ExperienceField("exp-1")
	env.view(http.MethodPost, "/v1/editor/fields/"+field+"/input", gin.H{"html": "one\ntwo"})
	v = env.view(http.MethodPost, "/v1/editor/fields/"+field+"/format", gin.H{
		"command": "insertUnorderedList", "start": 0, "end": len("one\ntwo"),
	})
	assert.Equal(t, "<ul><li>one</li><li>two</li></ul>", v.Draft.Resume.Experience[0].Description)

	v = env.view(http.MethodPost, "/v1/editor/fields/summary/format", gin.H{"command": "italic", "start": 2, "end": 2})
	require.NotNil(t, v.Changed)
	assert.False(t, *v.Changed, "empty selection is a silent no-op")

	env.failure(http.MethodPost, "/v1/editor/fields/headline/input", gin.H{"html": "x"}, http.StatusNotFound)
	env.failure(http.MethodPost, "/v1/editor/fields/summary/format", gin.H{"command": "underline"}, http.StatusBadRequest)
	env.failure(http.MethodPost, "/v1/editor/fields/summary/format", gin.H{"command": "bold", "start": 0, "end": 999}, http.StatusBadRequest)
}

func TestAPI_SaveRejectsTemplateChange(t *testing.T) {
	env := newTestEnv(t)
	env.signedIn()
	env.view(http.MethodPost, "/v1/resumes/new", nil)
	v := env.view(http.MethodPost, "/v1/templates/classic/select", nil)

	draft := v.Draft.Resume
	draft.Template = resume.TemplateMinimal
	body := env.failure(http.MethodPost, "/v1/editor/save", draft, http.StatusBadRequest)
	assert.Equal(t, errcode.InvalidDraft, body.Code)
	assert.Equal(t, controller.ViewEditor, body.View.View)
}

func TestAPI_TemplatesCatalog(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/v1/templates", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var out struct {
		Templates []resume.TemplateInfo `json:"templates"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, resume.Templates(), out.Templates)
}

func TestAPI_HealthAndMetrics(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	router := NewRouter(&config.Config{API: config.APIConfig{MetricsToken: "s3cret"}}, logger)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "resumestudio_http_in_flight_requests")
}
