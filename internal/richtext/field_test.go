package richtext

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	calls []string
}

func (r *recorder) onChange(html string) {
	r.calls = append(r.calls, html)
}

func newTestField(t *testing.T, content string, opts ...Option) (*Field, *Buffer, *recorder) {
	t.Helper()
	buf := NewBuffer()
	rec := &recorder{}
	f := NewField(buf, content, rec.onChange, opts...)
	return f, buf, rec
}

func TestField_NewWritesInitialContent(t *testing.T) {
	f, buf, rec := newTestField(t, "<p>hello</p>")

	assert.Equal(t, "<p>hello</p>", buf.Content())
	assert.Equal(t, "<p>hello</p>", f.LastEmitted())
	assert.Empty(t, rec.calls)
}

func TestField_InputWithoutChangeDoesNotNotify(t *testing.T) {
	f, _, rec := newTestField(t, "<p>hello</p>")

	assert.False(t, f.HandleInput())
	assert.False(t, f.HandleInput())
	assert.Empty(t, rec.calls)
}

func TestField_LocalEditNotifiesOnce(t *testing.T) {
	f, buf, rec := newTestField(t, "<p>C1</p>")

	buf.Replace("<p>C2</p>")
	assert.True(t, f.HandleInput())
	assert.False(t, f.HandleInput())

	require.Equal(t, []string{"<p>C2</p>"}, rec.calls)
	assert.Equal(t, "<p>C2</p>", f.LastEmitted())
}

func TestField_ReconcileSameContentIsSilent(t *testing.T) {
	f, buf, rec := newTestField(t, "<p>C</p>")

	assert.False(t, f.Reconcile("<p>C</p>"))
	assert.Equal(t, "<p>C</p>", buf.Content())
	assert.Empty(t, rec.calls)
}

func TestField_ReconcileAfterOwnEmitDoesNotOverwrite(t *testing.T) {
	f, buf, rec := newTestField(t, "<p>a</p>")

	buf.Replace("<p>ab</p>")
	require.NoError(t, buf.Select(4, 4))
	f.HandleInput()

	// 宿主把刚收到的内容原样回传。
	assert.False(t, f.Reconcile(rec.calls[0]))
	start, end := buf.Selection()
	assert.Equal(t, 4, start)
	assert.Equal(t, 4, end)
}

func TestField_ReconcileExternalDivergence(t *testing.T) {
	f, buf, rec := newTestField(t, "<p>draft</p>")

	assert.True(t, f.Reconcile("<p>reset</p>"))
	assert.Equal(t, "<p>reset</p>", buf.Content())
	assert.Empty(t, rec.calls)

	assert.False(t, f.HandleInput(), "reconciled content must not echo back to the host")
	assert.Empty(t, rec.calls)
}

func TestField_ExecBold(t *testing.T) {
	f, buf, rec := newTestField(t, "hello world")

	require.NoError(t, buf.Select(0, 5))
	assert.True(t, f.Exec(CommandBold))

	assert.Equal(t, "<b>hello</b> world", buf.Content())
	assert.Equal(t, []string{"<b>hello</b> world"}, rec.calls)
}

func TestField_ExecItalicThenBoldNestsFormatting(t *testing.T) {
	f, buf, rec := newTestField(t, "text")

	require.NoError(t, buf.Select(0, 4))
	f.Exec(CommandItalic)
	f.Exec(CommandBold)

	assert.Equal(t, "<b><i>text</i></b>", buf.Content())
	assert.Len(t, rec.calls, 2)
}

func TestField_ExecFailureIsSilentNoop(t *testing.T) {
	f, buf, rec := newTestField(t, "hello")

	assert.False(t, f.Exec(CommandBold), "empty selection")
	require.NoError(t, buf.Select(0, 2))
	assert.False(t, f.Exec(Command("strikeThrough")))

	assert.Equal(t, "hello", buf.Content())
	assert.Empty(t, rec.calls)
}

func TestField_PolicyCleansExternalContent(t *testing.T) {
	f, buf, rec := newTestField(t, `<p>hi</p><script>alert(1)</script>`, WithPolicy(NewPolicy()))

	assert.Equal(t, "<p>hi</p>", buf.Content())
	assert.Equal(t, "<p>hi</p>", f.LastEmitted())

	assert.True(t, f.Reconcile(`<b onclick="steal()">bold</b>`))
	assert.Equal(t, "<b>bold</b>", buf.Content())

	assert.False(t, f.Reconcile(`<b onclick="steal()">bold</b>`))
	assert.Empty(t, rec.calls)
}

func TestParseCommand(t *testing.T) {
	cmd, err := ParseCommand("insertUnorderedList")
	require.NoError(t, err)
	assert.Equal(t, CommandUnorderedList, cmd)

	_, err = ParseCommand("justifyCenter")
	assert.ErrorIs(t, err, ErrUnsupportedCommand)
}

func TestField_ExecOutputPassesPolicy(t *testing.T) {
	f, buf, rec := newTestField(t, "<p>x</p>", WithPolicy(NewPolicy()))

	// 编辑面上残留了未经过滤的内容。
	buf.SetContent("<p>x</p><script>bad()</script>")
	require.NoError(t, buf.Select(3, 4))
	assert.True(t, f.Exec(CommandBold))

	assert.Equal(t, "<p><b>x</b></p>", buf.Content())
	assert.Equal(t, []string{"<p><b>x</b></p>"}, rec.calls)
}
