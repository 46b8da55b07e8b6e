package openapi

import (
	"net/http"
	"sync/atomic"

	"github.com/labstack/echo/v4"
	"golang.org/x/sync/singleflight"

	"github.com/gaborage/routekit/route"
)

type cached struct {
	reg  *route.Registry
	doc  *Document
	json []byte
}

// Cache holds the document for the current registry snapshot. It is built
// on first use, rebuilt when the store holds a new snapshot, and concurrent
// first builds share one result.
type Cache struct {
	store   *route.Store
	builder *Builder

	current atomic.Pointer[cached]
	group   singleflight.Group
}

// NewCache creates a cache over store.
func NewCache(store *route.Store, builder *Builder) *Cache {
	return &Cache{store: store, builder: builder}
}

// Document returns the document for the current registry.
func (c *Cache) Document() (*Document, error) {
	e, err := c.load()
	if err != nil {
		return nil, err
	}
	return e.doc, nil
}

// JSON returns the encoded document for the current registry.
func (c *Cache) JSON() ([]byte, error) {
	e, err := c.load()
	if err != nil {
		return nil, err
	}
	return e.json, nil
}

// Invalidate drops the cached document.
func (c *Cache) Invalidate() {
	c.current.Store(nil)
}

func (c *Cache) load() (*cached, error) {
	reg := c.store.Load()
	if e := c.current.Load(); e != nil && e.reg == reg {
		return e, nil
	}

	v, err, _ := c.group.Do("document", func() (any, error) {
		if e := c.current.Load(); e != nil && e.reg == reg {
			return e, nil
		}
		doc, err := c.builder.Build(reg)
		if err != nil {
			return nil, err
		}
		data, err := doc.JSON()
		if err != nil {
			return nil, err
		}
		e := &cached{reg: reg, doc: doc, json: data}
		c.current.Store(e)
		return e, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*cached), nil
}

// Handler serves the cached document as JSON.
func Handler(c *Cache) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		data, err := c.JSON()
		if err != nil {
			return err
		}
		return ctx.Blob(http.StatusOK, echo.MIMEApplicationJSON, data)
	}
}
