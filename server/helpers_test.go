package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gaborage/routekit/auth"
	"github.com/gaborage/routekit/config"
	"github.com/gaborage/routekit/logger"
	"github.com/gaborage/routekit/response"
	"github.com/gaborage/routekit/route"
	"github.com/gaborage/routekit/schema"
	"github.com/gaborage/routekit/validation"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func testConfig(t *testing.T, yaml string) *config.Config {
	t.Helper()
	cfg, err := config.LoadFromBytes([]byte(yaml))
	require.NoError(t, err)
	return cfg
}

func testChecker(t *testing.T) *auth.JWTChecker {
	t.Helper()
	c, err := auth.NewJWTChecker(testSecret, "", nil)
	require.NoError(t, err)
	return c
}

func bearer(t *testing.T, c *auth.JWTChecker, capabilities ...string) string {
	t.Helper()
	token, err := c.Sign("tester", capabilities, time.Hour)
	require.NoError(t, err)
	return "Bearer " + token
}

var courseSchema = schema.MustNew("newCourse", map[string]any{
	"type":     "object",
	"required": []any{"title"},
	"properties": map[string]any{
		"title": map[string]any{"type": "string"},
	},
})

func courseRoutes() []*route.Descriptor {
	return []*route.Descriptor{
		route.New("course.show", "/course/{id:[0-9]+}[/section/{section}]",
			route.WithParams(
				route.PathParam("id", route.TypeInt),
				route.PathParam("section", route.TypeSlug),
				route.QueryParam("lang", route.TypeAlpha),
			),
		),
		route.New("course.create", "/course",
			route.WithMethods(http.MethodPost),
			route.WithBody(schema.JSONBody("newCourse", courseSchema)),
		),
		route.New("course.secret", "/secret", route.WithCapability("course:edit")),
		route.New("file.show", "/file/{name}", route.WithParams(route.PathParam("name", route.TypeRaw))),
		route.New("broken", "/broken"),
		route.New("conflict", "/conflict"),
	}
}

func courseHandlers() Handlers {
	return Handlers{
		"course.show": func(in *validation.Input, hc HandlerContext) (response.Result, error) {
			return hc.Payload(map[string]any{
				"id":      in.Path["id"],
				"section": in.Path["section"],
				"lang":    in.Query["lang"],
				"extra":   in.Unstructured.Get("extra"),
			}), nil
		},
		"course.create": func(in *validation.Input, _ HandlerContext) (response.Result, error) {
			body, _ := in.Body.(map[string]any)
			resp := response.New(http.StatusCreated)
			resp.Header.Set("Content-Type", response.ContentTypeJSON)
			resp.Body = []byte(`{"title":"` + body["title"].(string) + `"}`)
			return response.Direct{Response: resp}, nil
		},
		"course.secret": func(_ *validation.Input, hc HandlerContext) (response.Result, error) {
			resp := response.New(http.StatusOK)
			resp.Body = []byte(hc.Principal.Subject)
			return response.Tagged{Embedded: resp}, nil
		},
		"file.show": func(in *validation.Input, hc HandlerContext) (response.Result, error) {
			return hc.Payload(map[string]any{"name": in.Path["name"]}), nil
		},
		"broken": func(*validation.Input, HandlerContext) (response.Result, error) {
			return nil, nil
		},
		"conflict": func(*validation.Input, HandlerContext) (response.Result, error) {
			return nil, NewConflictError("course already exists")
		},
	}
}

// newCourseServer builds a server with the course routes mounted under the
// configured base path.
func newCourseServer(t *testing.T, cfg *config.Config, log logger.Logger) (*Server, *auth.JWTChecker) {
	t.Helper()
	s := New(cfg, log)
	checker := testChecker(t)

	reg, err := route.NewRegistry(courseRoutes()...)
	require.NoError(t, err)
	p := NewPipeline(cfg, log, PipelineOptions{Checker: checker})
	require.NoError(t, p.Mount(s.ModuleGroup(), reg, courseHandlers()))
	return s, checker
}

func do(s *Server, method, target, contentType, body string, header ...string) *httptest.ResponseRecorder {
	var r io.Reader = http.NoBody
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.NewDecoder(bytes.NewReader(rec.Body.Bytes())).Decode(&out), rec.Body.String())
	return out
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	body := decode(t, rec)
	e, ok := body["error"].(map[string]any)
	require.True(t, ok, rec.Body.String())
	return e["code"].(string)
}
