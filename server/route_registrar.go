package server

import (
	"strings"

	"github.com/labstack/echo/v4"
)

// RouteRegistrar is the subset of echo's routing used to mount routes. It
// applies the group prefix consistently, so "/x" and "x" register the same
// route and paths already carrying the prefix are not prefixed twice.
type RouteRegistrar interface {
	Add(method, path string, handler echo.HandlerFunc, middleware ...echo.MiddlewareFunc) *echo.Route
	Group(prefix string, middleware ...echo.MiddlewareFunc) RouteRegistrar
	Use(middleware ...echo.MiddlewareFunc)
	FullPath(path string) string
}

type routeGroup struct {
	group  *echo.Group
	prefix string
}

func newRouteGroup(group *echo.Group, prefix string) RouteRegistrar {
	return &routeGroup{group: group, prefix: normalizePrefix(prefix)}
}

func (rg *routeGroup) Add(method, path string, handler echo.HandlerFunc, middleware ...echo.MiddlewareFunc) *echo.Route {
	return rg.group.Add(method, rg.relativePath(path), handler, middleware...)
}

func (rg *routeGroup) Group(prefix string, middleware ...echo.MiddlewareFunc) RouteRegistrar {
	normalized := normalizePrefix(prefix)
	return &routeGroup{
		group:  rg.group.Group(normalized, middleware...),
		prefix: rg.prefix + normalized,
	}
}

func (rg *routeGroup) Use(middleware ...echo.MiddlewareFunc) {
	rg.group.Use(middleware...)
}

func (rg *routeGroup) FullPath(path string) string {
	full := rg.prefix + rg.relativePath(path)
	if full == "" {
		return "/"
	}
	return full
}

// relativePath strips the group prefix from path when present. The group
// root is "".
func (rg *routeGroup) relativePath(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if path == "/" {
		return ""
	}
	if rg.prefix != "" && strings.HasPrefix(path, rg.prefix) {
		rest := strings.TrimPrefix(path, rg.prefix)
		if rest == "" || strings.HasPrefix(rest, "/") {
			return rest
		}
	}
	return path
}

func normalizePrefix(prefix string) string {
	if prefix == "" || prefix == "/" {
		return ""
	}
	if !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	return strings.TrimRight(prefix, "/")
}
