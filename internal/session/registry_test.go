package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumeStudio/internal/auth"
	"resumeStudio/internal/controller"
	"resumeStudio/internal/editor"
	"resumeStudio/internal/resume"
)

type stubGateway struct {
	attached auth.TokenPair
}

func (g *stubGateway) CheckCurrentIdentity(context.Context) (*auth.Identity, error) {
	if g.attached.Empty() {
		return nil, errors.New("no session")
	}
	return &auth.Identity{Username: "ada"}, nil
}

func (g *stubGateway) SignOut(context.Context) error {
	g.attached = auth.TokenPair{}
	return nil
}

func (g *stubGateway) Attach(pair auth.TokenPair) {
	g.attached = pair
}

func newTestRegistry(ttl time.Duration) *Registry {
	return NewRegistry(func(string) (Gateway, *controller.Controller) {
		gw := &stubGateway{}
		return gw, controller.New(gw)
	}, ttl, nil)
}

func TestGenerateID(t *testing.T) {
	a, err := GenerateID()
	require.NoError(t, err)
	b, err := GenerateID()
	require.NoError(t, err)

	assert.Len(t, a, 43)
	assert.NotEqual(t, a, b)
}

func TestRegistry_CreateAndGet(t *testing.T) {
	r := newTestRegistry(time.Hour)

	e, err := r.Create(context.Background())
	require.NoError(t, err)
	assert.False(t, e.Controller.State().IsLoading, "create runs the initial identity check")

	got, err := r.Get(e.ID)
	require.NoError(t, err)
	assert.Same(t, e, got)
	assert.Equal(t, 1, r.Len())

	_, err = r.Get("nope")
	assert.ErrorIs(t, err, ErrNotFound)

	r.Delete(e.ID)
	_, err = r.Get(e.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRegistry_IdleEviction(t *testing.T) {
	r := newTestRegistry(time.Minute)
	now := time.Now()
	r.now = func() time.Time { return now }

	stale, err := r.Create(context.Background())
	require.NoError(t, err)

	now = now.Add(45 * time.Second)
	fresh, err := r.Create(context.Background())
	require.NoError(t, err)

	now = now.Add(30 * time.Second)
	assert.Equal(t, 1, r.Sweep())
	assert.Equal(t, 1, r.Len())

	_, err = r.Get(stale.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = r.Get(fresh.ID)
	assert.NoError(t, err)
}

func TestRegistry_GetTouchesSession(t *testing.T) {
	r := newTestRegistry(time.Minute)
	now := time.Now()
	r.now = func() time.Time { return now }

	e, err := r.Create(context.Background())
	require.NoError(t, err)

	for range 3 {
		now = now.Add(40 * time.Second)
		_, err = r.Get(e.ID)
		require.NoError(t, err)
	}
	assert.Equal(t, 0, r.Sweep())
	assert.True(t, now.Equal(e.LastSeen()))
}

func TestRegistry_RunStopsWithContext(t *testing.T) {
	r := newTestRegistry(time.Minute)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		r.Run(ctx, time.Millisecond)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop")
	}
}

func TestEntry_EditorFollowsDraft(t *testing.T) {
	r := newTestRegistry(time.Hour)
	e, err := r.Create(context.Background())
	require.NoError(t, err)
	e.Gateway.Attach(auth.TokenPair{AccessToken: "a", RefreshToken: "r"})
	require.True(t, e.Controller.CompleteLogin(context.Background()))

	_, ok := e.Editor()
	assert.False(t, ok, "no editor outside the editor page")

	draft, err := e.Controller.SelectTemplate(resume.TemplateModern)
	require.NoError(t, err)
	ed, ok := e.Editor()
	require.True(t, ok)
	assert.Equal(t, draft.ID, ed.ID())

	again, ok := e.Editor()
	require.True(t, ok)
	assert.Same(t, ed, again)

	assert.Equal(t, e.Controller.State().DraftVersion, ed.Version())

	_, err = ed.Input(editor.FieldSummary, "<p>unsaved</p>")
	require.NoError(t, err)
	require.NoError(t, e.Controller.SaveDraft(ed.Resume(), ed.Version()))

	// 再次编辑同一简历得到新的编辑会话，内容来自集合。
	require.True(t, e.Controller.EditResume(draft.ID))
	reopened, ok := e.Editor()
	require.True(t, ok)
	assert.NotSame(t, ed, reopened)
	assert.Equal(t, "<p>unsaved</p>", reopened.Resume().Summary)

	_, err = reopened.Input(editor.FieldSummary, "<p>discarded</p>")
	require.NoError(t, err)
	e.Controller.Navigate(controller.PageDashboard)
	require.True(t, e.Controller.EditResume(draft.ID))
	third, ok := e.Editor()
	require.True(t, ok)
	assert.Equal(t, "<p>unsaved</p>", third.Resume().Summary)

	// 已被替换的编辑会话不能覆盖当前草稿。
	err = e.Controller.SaveDraft(reopened.Resume(), reopened.Version())
	assert.ErrorIs(t, err, controller.ErrStaleDraft)
	assert.Equal(t, controller.PageEditor, e.Controller.State().CurrentPage)
}

func TestCookie(t *testing.T) {
	w := httptest.NewRecorder()
	SetCookie(w, "abc", time.Time{}, CookieOptions{Secure: true})

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	c := cookies[0]
	assert.Equal(t, CookieName, c.Name)
	assert.Equal(t, "abc", c.Value)
	assert.Equal(t, "/", c.Path)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)

	w = httptest.NewRecorder()
	ClearCookie(w, CookieOptions{})
	cookies = w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, -1, cookies[0].MaxAge)
}
