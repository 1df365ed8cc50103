// Package templates holds the starter boards written by pulse init.
//
// Each template is a set of files rendered with text/template:
//
//	tmpl, err := templates.Get("todo")
//	if err != nil {
//	    return err
//	}
//	err = tmpl.Create(dir, templates.Config{Title: "Groceries"})
//
// # Template Variables
//
//	{{.Title}}   - Board title
//	{{.Addr}}    - Listen address for pulse serve
//	{{.Target}}  - Publish target, if any
package templates
