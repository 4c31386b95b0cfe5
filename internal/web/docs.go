package web

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"
)

// endpoint is one row of the /docs index.
type endpoint struct {
	Method      string
	Path        string
	Description string
}

// endpoints lists the API surface relative to the API prefix.
var endpoints = []endpoint{
	{"GET", "/companies", "List companies (page, limit, sortBy, sortOrder, search)"},
	{"GET", "/companies/stats", "Company statistics"},
	{"GET", "/companies/{id}", "Company with its users and first products"},
	{"POST", "/companies", "Create a company"},
	{"PUT", "/companies/{id}", "Update a company"},
	{"DELETE", "/companies/{id}", "Deactivate a company"},

	{"GET", "/users", "List users (page, limit, sortBy, sortOrder, search)"},
	{"GET", "/users/stats", "User statistics"},
	{"GET", "/users/{id}", "Get a user"},
	{"POST", "/users", "Create a user"},
	{"PUT", "/users/{id}", "Update a user"},
	{"DELETE", "/users/{id}", "Deactivate a user"},
	{"POST", "/users/login", "Verify credentials"},

	{"GET", "/products", "List products (page, limit, sortBy, sortOrder, search)"},
	{"GET", "/products/stats", "Product statistics"},
	{"GET", "/products/stream", "Stream products as one JSON document (limit, default 100)"},
	{"GET", "/products/company/{companyId}", "List a company's products"},
	{"GET", "/products/company/{companyId}/stream", "Stream a company's products (page, limit, sortBy, sortOrder)"},
	{"GET", "/products/status/{status}", "List products by status (0 or 1)"},
	{"GET", "/products/{id}", "Product with prices and inventory"},
	{"POST", "/products", "Create a product with prices and inventory"},
	{"PUT", "/products/{id}", "Update a product"},
	{"DELETE", "/products/{id}", "Deactivate a product"},
}

// docsPage renders the endpoint index.
func docsPage(title, version, prefix string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		esc := templ.EscapeString[string]
		if _, err := fmt.Fprintf(w, `<!DOCTYPE html><html lang="en"><head><meta charset="utf-8"><title>%s</title>`+
			`<style>body{font-family:sans-serif;margin:2rem}td,th{padding:.3rem .8rem;text-align:left}code{font-size:.95em}</style>`+
			`</head><body><h1>%s <small>v%s</small></h1><table><thead><tr><th>Method</th><th>Path</th><th>Description</th></tr></thead><tbody>`,
			esc(title), esc(title), esc(version)); err != nil {
			return err
		}
		for _, e := range endpoints {
			if _, err := fmt.Fprintf(w, `<tr><td>%s</td><td><code>%s</code></td><td>%s</td></tr>`,
				esc(e.Method), esc(prefix+e.Path), esc(e.Description)); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</tbody></table><p>System: <code>/health</code>, <code>/metrics</code>, <code>/ws</code></p></body></html>`)
		return err
	})
}
