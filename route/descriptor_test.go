package route

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaborage/routekit/schema"
)

func TestResolveDefaults(t *testing.T) {
	r, err := Resolve(New("ping", "/ping"))
	require.NoError(t, err)

	assert.Equal(t, []string{http.MethodGet}, r.Methods)
	assert.Equal(t, []string{"/ping"}, r.Paths)
	assert.Empty(t, r.Params)
	assert.Equal(t, "ping", r.Name())
}

func TestResolveMergesParentChain(t *testing.T) {
	shared := QueryParam("lang", TypeAlpha)
	parent := New("", "/course/{course:[0-9]+}",
		WithMethods("get"),
		WithParams(PathParam("course", TypeInt), shared, QueryParam("page", TypeInt)),
		WithTags("course"),
		WithCapability("course:view"),
		WithResponse(http.StatusNotFound, &schema.Response{Description: "not found"}),
	)

	override := QueryParam("page", TypeInt).WithDefault(int64(1))
	child := New("sections", "[/section/{section}]",
		WithParent(parent),
		WithMethods(http.MethodPost, http.MethodGet),
		WithParams(override, PathParam("section", TypeSlug)),
		WithTags("section", "course"),
		WithResponse(http.StatusOK, &schema.Response{Description: "ok"}),
	)

	r, err := Resolve(child)
	require.NoError(t, err)

	assert.Equal(t, "/course/{course:[0-9]+}[/section/{section}]", r.Template.String())
	assert.Equal(t, []string{"/course/{course}/section/{section}", "/course/{course}"}, r.Paths)
	assert.Equal(t, []string{http.MethodGet, http.MethodPost}, r.Methods)
	assert.Equal(t, []string{"course", "section"}, r.Tags)
	assert.Equal(t, "course:view", r.Capability)
	assert.Len(t, r.Responses, 2)

	require.Len(t, r.Params, 4)
	assert.Equal(t, "course", r.Params[0].Name)
	assert.Same(t, shared, r.Params[1])
	assert.Same(t, override, r.Params[2], "child parameter replaces parent in place")
	assert.Equal(t, "section", r.Params[3].Name)

	assert.True(t, r.PathRequired("course"))
	assert.False(t, r.PathRequired("section"))
	assert.Equal(t, "[0-9]+", r.PathPattern("course"))

	assert.Len(t, r.ParamsIn(InQuery), 2)
	assert.Len(t, r.ParamsIn(InPath), 2)
}

func TestResolveAddsImplicitPathParams(t *testing.T) {
	r, err := Resolve(New("", "/files/{name}"))
	require.NoError(t, err)

	require.Len(t, r.Params, 1)
	assert.Equal(t, InPath, r.Params[0].In)
	assert.Equal(t, TypeRaw, r.Params[0].Type)
}

func TestResolveMatch(t *testing.T) {
	p := PathParam("id", TypeInt)
	q := &Parameter{Name: "code", In: InQuery, Type: TypeText, Pattern: "[A-Z]{3}"}
	r, err := Resolve(New("", "/item/{id:[0-9]{2}}", WithParams(p, q)))
	require.NoError(t, err)

	assert.True(t, r.Match(p, "12"))
	assert.False(t, r.Match(p, "123"))
	assert.True(t, r.Match(q, "ABC"))
	assert.False(t, r.Match(q, "ABCD"))
}

func TestResolveConfigErrors(t *testing.T) {
	cyclic := New("", "/a")
	cyclic.Parent = cyclic

	tests := []struct {
		name string
		d    *Descriptor
	}{
		{name: "missing_placeholder", d: New("", "/a", WithParams(PathParam("id", TypeInt)))},
		{name: "bad_template", d: New("", "/a/{id")},
		{name: "path_default", d: New("", "/a/{id}", WithParams(PathParam("id", TypeInt).WithDefault(int64(1))))},
		{name: "bad_method", d: New("", "/a", WithMethods("FETCH"))},
		{name: "bad_param", d: New("", "/a", WithParams(&Parameter{Name: "x", In: InQuery, Type: "money"}))},
		{name: "nil_param", d: New("", "/a", WithParams(nil))},
		{name: "cyclic_parent", d: cyclic},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve(tt.d)
			require.Error(t, err)
			var cfgErr *ConfigError
			assert.True(t, errors.As(err, &cfgErr))
		})
	}

	_, err := Resolve(nil)
	assert.Error(t, err)
}

func TestNewRegistry(t *testing.T) {
	reg, err := NewRegistry(
		New("list", "/course"),
		New("get", "/course/{id}", WithMethods(http.MethodGet, http.MethodDelete)),
	)
	require.NoError(t, err)

	assert.Equal(t, 2, reg.Len())
	got, ok := reg.Lookup("get")
	require.True(t, ok)
	assert.Equal(t, []string{"/course/{id}"}, got.Paths)

	_, ok = reg.Lookup("missing")
	assert.False(t, ok)

	routes := reg.Routes()
	routes[0] = nil
	assert.NotNil(t, reg.Routes()[0], "Routes returns a copy")
}

func TestNewRegistryRejectsConflicts(t *testing.T) {
	_, err := NewRegistry(
		New("a", "/course/{id}[/{section}]"),
		New("b", "/course/{course}"),
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "conflicts")

	_, err = NewRegistry(New("a", "/x"), New("a", "/y"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate route name")
}

func TestNewRegistryJoinsErrors(t *testing.T) {
	_, err := NewRegistry(
		New("one", "/a/{"),
		New("two", "/b", WithMethods("NOPE")),
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "route one")
	assert.Contains(t, err.Error(), "route two")
}

func TestStoreReplace(t *testing.T) {
	first, err := NewRegistry(New("a", "/a"))
	require.NoError(t, err)
	second, err := NewRegistry(New("b", "/b"))
	require.NoError(t, err)

	store := NewStore(first)
	assert.Same(t, first, store.Load())

	prev := store.Replace(second)
	assert.Same(t, first, prev)
	assert.Same(t, second, store.Load())

	var nilReg *Registry
	assert.Zero(t, nilReg.Len())
	assert.Nil(t, nilReg.Routes())
}
