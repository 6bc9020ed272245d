// Package router assembles the gin engine and the portal route table.
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RouteRegistrar attaches its routes below a versioned API group
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// Router mounts registrars under /api/<version>
type Router struct {
	engine     *gin.Engine
	apiVersion string
	registrars []RouteRegistrar
}

type RouterOption func(*Router)

// WithAPIVersion replaces the default "v1" path segment
func WithAPIVersion(version string) RouterOption {
	return func(r *Router) { r.apiVersion = version }
}

func NewRouter(engine *gin.Engine, opts ...RouterOption) *Router {
	r := &Router{engine: engine, apiVersion: "v1"}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register queues registrars until Setup
func (r *Router) Register(registrars ...RouteRegistrar) *Router {
	r.registrars = append(r.registrars, registrars...)
	return r
}

// BasePath is the prefix every registered route is served under
func (r *Router) BasePath() string {
	return "/api/" + r.apiVersion
}

func (r *Router) Setup() {
	api := r.engine.Group(r.BasePath())
	for _, reg := range r.registrars {
		reg.RegisterRoutes(api)
	}
}

// DomainGroup is a route subtree built up front and attached in one go.
// Sub-groups with an empty prefix share the parent path and only scope
// their middleware, which is how the portal separates its audiences.
type DomainGroup struct {
	name     string
	prefix   string
	use      []gin.HandlerFunc
	routes   []route
	children []*DomainGroup
}

type route struct {
	method, path string
	chain        []gin.HandlerFunc
}

func NewDomainGroup(name, prefix string) *DomainGroup {
	return &DomainGroup{name: name, prefix: prefix}
}

func (dg *DomainGroup) Name() string   { return dg.name }
func (dg *DomainGroup) Prefix() string { return dg.prefix }

// Use appends middleware run before every route of the group and its children
func (dg *DomainGroup) Use(mw ...gin.HandlerFunc) *DomainGroup {
	dg.use = append(dg.use, mw...)
	return dg
}

func (dg *DomainGroup) GET(path string, chain ...gin.HandlerFunc) *DomainGroup {
	return dg.add(http.MethodGet, path, chain)
}

func (dg *DomainGroup) POST(path string, chain ...gin.HandlerFunc) *DomainGroup {
	return dg.add(http.MethodPost, path, chain)
}

func (dg *DomainGroup) PATCH(path string, chain ...gin.HandlerFunc) *DomainGroup {
	return dg.add(http.MethodPatch, path, chain)
}

func (dg *DomainGroup) add(method, path string, chain []gin.HandlerFunc) *DomainGroup {
	dg.routes = append(dg.routes, route{method: method, path: path, chain: chain})
	return dg
}

// Group returns a new child group
func (dg *DomainGroup) Group(name, prefix string) *DomainGroup {
	child := NewDomainGroup(name, prefix)
	dg.children = append(dg.children, child)
	return child
}

func (dg *DomainGroup) RegisterRoutes(rg *gin.RouterGroup) {
	dg.apply(rg.Group(dg.prefix, dg.use...))
}

func (dg *DomainGroup) apply(g *gin.RouterGroup) {
	for _, rt := range dg.routes {
		g.Handle(rt.method, rt.path, rt.chain...)
	}
	for _, child := range dg.children {
		child.RegisterRoutes(g)
	}
}

// RouteCount counts the routes of the whole subtree
func (dg *DomainGroup) RouteCount() int {
	n := len(dg.routes)
	for _, child := range dg.children {
		n += child.RouteCount()
	}
	return n
}
