package bootstrap

import (
	"fmt"
	"sort"

	"github.com/target/folio/internal/domain/route"
	"github.com/target/folio/internal/domain/schema"
)

// componentFactory builds the renderer for one declared custom route.
type componentFactory func(decl schema.CustomRoute) route.RenderFn

// components are the renderers a schema's customRoutes may name.
var components = map[string]componentFactory{
	"page":    pageComponent,
	"welcome": welcomeComponent,
	"account": accountComponent,
}

// ComponentNames lists the built-in custom route components.
func ComponentNames() []string {
	names := make([]string, 0, len(components))
	for name := range components {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CustomRoutes registers every custom route the schema declares.
func CustomRoutes(sc *schema.Config) (*route.Registry, error) {
	reg := route.NewRegistry()
	for _, decl := range sc.CustomRoutes {
		factory, ok := components[decl.Component]
		if !ok {
			return nil, fmt.Errorf("custom route %s: unknown component %q", decl.Path, decl.Component)
		}
		opts := route.MatchOptions{Exact: decl.Exact, Strict: decl.Strict, Sensitive: decl.Sensitive}
		if err := reg.Register(decl.Path, opts, factory(decl)); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

func titleOr(decl schema.CustomRoute, fallback string) string {
	if decl.Title != "" {
		return decl.Title
	}
	return fallback
}

// pageComponent renders a titled page inside the admin chrome.
func pageComponent(decl schema.CustomRoute) route.RenderFn {
	title := titleOr(decl, "Page")
	return func(route.RenderInput) route.Page {
		return route.Page{
			Title:    title,
			Template: route.TemplateDefault,
			Heading:  title,
			Links:    []route.Link{{Label: "Dashboard", Href: "/"}},
		}
	}
}

// welcomeComponent is a public landing page that adapts to the signed-in state.
func welcomeComponent(decl schema.CustomRoute) route.RenderFn {
	title := titleOr(decl, "Welcome")
	return func(in route.RenderInput) route.Page {
		p := route.Page{Title: title, Template: route.TemplateMinimal, Heading: title}
		if in.User == nil {
			p.Body = "Sign in to manage content."
			p.Links = []route.Link{{Label: "Log in", Href: route.PathLogin}}
			return p
		}
		p.Body = "Signed in as " + in.User.Email + "."
		if in.CanAccessAdmin != nil && *in.CanAccessAdmin {
			p.Links = []route.Link{{Label: "Go to dashboard", Href: "/"}}
		}
		return p
	}
}

// accountComponent summarizes the signed-in user.
func accountComponent(decl schema.CustomRoute) route.RenderFn {
	title := titleOr(decl, "Profile")
	return func(in route.RenderInput) route.Page {
		p := route.Page{Title: title, Template: route.TemplateDefault, Heading: title}
		if in.User == nil {
			p.Body = "You are not signed in."
			p.Links = []route.Link{{Label: "Log in", Href: route.PathLogin}}
			return p
		}
		p.Body = fmt.Sprintf("%s (%s, signed in with %s)", in.User.Email, in.User.Collection, in.User.Strategy)
		p.Links = []route.Link{{Label: "Edit account", Href: route.PathAccount}}
		return p
	}
}
