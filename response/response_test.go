package response

import (
	"errors"
	"html/template"
	"net/http"
	"net/http/httptest"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRenderer struct {
	name string
	data any
	err  error
}

func (f *fakeRenderer) Render(name string, data any) (string, error) {
	f.name, f.data = name, data
	if f.err != nil {
		return "", f.err
	}
	return "<h1>" + name + "</h1>", nil
}

func TestNormalizeDirect(t *testing.T) {
	resp := New(http.StatusCreated)
	resp.Body = []byte("done")

	got, err := NewNormalizer(nil, false).Normalize(Direct{Response: resp})
	require.NoError(t, err)
	assert.Same(t, resp, got)

	got, err = NewNormalizer(nil, false).Normalize(&Direct{Response: resp})
	require.NoError(t, err)
	assert.Same(t, resp, got)

	_, err = NewNormalizer(nil, false).Normalize(Direct{})
	assert.ErrorIs(t, err, ErrUnknownResultKind)
}

func TestNormalizePayloadJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept", "application/json")

	got, err := NewNormalizer(nil, false).Normalize(Payload{
		Value:   map[string]any{"url": "https://example.com/a", "name": "Zoë", "score": 1.0},
		Request: req,
	})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, got.Status)
	assert.Equal(t, ContentTypeJSON, got.Header.Get("Content-Type"))
	assert.Equal(t, `{"name":"Zoë","score":1.0,"url":"https://example.com/a"}`, string(got.Body))
}

func TestNormalizePayloadXMLNotSupported(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept", "text/html, application/xml;q=0.9")

	_, err := NewNormalizer(nil, false).Normalize(Payload{Value: 1, Request: req})
	assert.ErrorIs(t, err, ErrXMLNotSupported)
}

func TestNormalizePayloadDebugIndent(t *testing.T) {
	got, err := NewNormalizer(nil, true).Normalize(Payload{Value: map[string]any{"a": 1}})
	require.NoError(t, err)
	assert.Equal(t, "{\n    \"a\": 1\n}", string(got.Body))
}

func TestNormalizeView(t *testing.T) {
	r := &fakeRenderer{}
	got, err := NewNormalizer(r, false).Normalize(View{Template: "course", Data: map[string]any{"id": 1}})
	require.NoError(t, err)

	assert.Equal(t, "course", r.name)
	assert.Equal(t, map[string]any{"id": 1}, r.data)
	assert.Equal(t, "<h1>course</h1>", string(got.Body))
	assert.Empty(t, got.Header.Get("Content-Type"))

	r.err = errors.New("boom")
	_, err = NewNormalizer(r, false).Normalize(View{Template: "course"})
	assert.ErrorContains(t, err, "boom")

	_, err = NewNormalizer(nil, false).Normalize(View{Template: "course"})
	assert.Error(t, err)
}

func TestNormalizeTagged(t *testing.T) {
	embedded := New(http.StatusAccepted)
	got, err := NewNormalizer(nil, false).Normalize(Tagged{Embedded: embedded})
	require.NoError(t, err)
	assert.Same(t, embedded, got)

	got, err = NewNormalizer(nil, false).Normalize(Tagged{})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, got.Status)
	assert.Empty(t, got.Body)
}

func TestNormalizeUnknownKind(t *testing.T) {
	n := NewNormalizer(nil, false)

	_, err := n.Normalize(nil)
	assert.ErrorIs(t, err, ErrUnknownResultKind)

	var nilPayload *Payload
	_, err = n.Normalize(nilPayload)
	assert.ErrorIs(t, err, ErrUnknownResultKind)
}

func TestKind(t *testing.T) {
	assert.Equal(t, "direct", Kind(Direct{}))
	assert.Equal(t, "payload", Kind(&Payload{}))
	assert.Equal(t, "view", Kind(View{}))
	assert.Equal(t, "tagged", Kind(Tagged{}))
	assert.Equal(t, "unknown", Kind(nil))
}

func TestResponseWrite(t *testing.T) {
	resp := New(http.StatusNotFound)
	resp.Header.Set("X-Test", "1")
	resp.Body = []byte("missing")

	rec := httptest.NewRecorder()
	require.NoError(t, resp.Write(rec))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("X-Test"))
	assert.Equal(t, "missing", rec.Body.String())

	rec = httptest.NewRecorder()
	require.NoError(t, (&Response{}).Write(rec))
	assert.Equal(t, http.StatusOK, rec.Code)
}

type Base struct {
	ID      int     `json:"id"`
	Created float64 `json:"created"`
}

type course struct {
	Base
	Title    string            `json:"title"`
	Credits  float64           `json:"credits"`
	Weight   float32           `json:"weight"`
	Summary  string            `json:"summary,omitempty"`
	Secret   string            `json:"-"`
	Scores   []float64         `json:"scores"`
	Meta     map[string]any    `json:"meta,omitempty"`
	Starts   time.Time         `json:"starts"`
	Link     *string           `json:"link"`
	Labels   map[string]string `json:"labels"`
	internal int
}

func TestEncodeJSONStructs(t *testing.T) {
	link := "/course/1"
	c := course{
		Base:    Base{ID: 1, Created: 1700000000},
		Title:   "Go <fast> & safe",
		Credits: 3,
		Weight:  0.5,
		Secret:  "x",
		Scores:  []float64{1, 2.5},
		Starts:  time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Link:    &link,
	}

	out, err := EncodeJSON(c, false)
	require.NoError(t, err)
	assert.Equal(t,
		`{"id":1,"created":1700000000.0,"title":"Go <fast> & safe","credits":3.0,"weight":0.5,"scores":[1.0,2.5],"starts":"2026-01-02T03:04:05Z","link":"/course/1","labels":null}`,
		string(out))
}

type audit struct {
	Version float64 `json:"version"`
	Editor  string  `json:"editor"`
}

type revision struct {
	Rev int `json:"rev"`
}

type enrollment struct {
	audit
	*revision
	Seats  int     `json:"seats,string"`
	Open   bool    `json:"open,string"`
	Code   string  `json:"code,string"`
	Rate   float64 `json:"rate,string"`
	Editor string  `json:"editor"`
}

func TestEncodeJSONEmbeddedAndQuoted(t *testing.T) {
	e := enrollment{
		audit:    audit{Version: 2, Editor: "ann"},
		revision: &revision{Rev: 4},
		Seats:    5,
		Open:     true,
		Code:     "go",
		Rate:     1.5,
		Editor:   "bob",
	}

	out, err := EncodeJSON(e, false)
	require.NoError(t, err)
	assert.Equal(t,
		`{"version":2.0,"rev":4,"seats":"5","open":"true","code":"\"go\"","rate":"1.5","editor":"bob"}`,
		string(out))

	e.revision = nil
	out, err = EncodeJSON(&e, false)
	require.NoError(t, err)
	assert.NotContains(t, string(out), "rev")
	assert.Contains(t, string(out), `"version":2.0`)
}

func TestEncodeJSONFloats(t *testing.T) {
	tests := []struct {
		in       any
		expected string
	}{
		{in: 1.0, expected: "1.0"},
		{in: -2.0, expected: "-2.0"},
		{in: 0.0, expected: "0.0"},
		{in: 1.25, expected: "1.25"},
		{in: 1e21, expected: "1e+21"},
		{in: 42, expected: "42"},
		{in: []any{1.0, "a", true, nil}, expected: `[1.0,"a",true,null]`},
		{in: float32(3), expected: "3.0"},
		{in: 1e-7, expected: "1e-7"},
		{in: map[int]float64{2: 1, 10: 0.5}, expected: `{"10":0.5,"2":1.0}`},
		{in: map[uint8][]float64{1: {2}}, expected: `{"1":[2.0]}`},
	}
	for _, tt := range tests {
		out, err := EncodeJSON(tt.in, false)
		require.NoError(t, err)
		assert.Equal(t, tt.expected, string(out))
	}
}

func TestTemplateRenderer(t *testing.T) {
	fsys := fstest.MapFS{
		"course.html": {Data: []byte(`<p>{{.Title}}</p>`)},
	}
	r, err := NewTemplateRenderer(fsys, "*.html")
	require.NoError(t, err)

	out, err := r.Render("course.html", map[string]string{"Title": "<Go>"})
	require.NoError(t, err)
	assert.Equal(t, "<p>&lt;Go&gt;</p>", out)

	_, err = r.Render("missing.html", nil)
	assert.Error(t, err)

	_, err = NewTemplateRenderer(fsys, "*.tmpl")
	assert.Error(t, err)

	inline := NewTemplateRendererFrom(template.Must(template.New("hi").Parse(`hi {{.}}`)))
	out, err = inline.Render("hi", "there")
	require.NoError(t, err)
	assert.Equal(t, "hi there", out)
}
