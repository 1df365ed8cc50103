// Package render serializes vdom trees to HTML.
//
// Output is deterministic: attributes are written in sorted order, text and
// attribute values are escaped, and void elements get no closing tag. The
// data-id markers stamped by vdom.Container are ordinary attributes, so a
// rendered page carries the identities a live client needs to apply patches.
//
//	html, err := render.HTML(vdom.Ul(vdom.Li(vdom.Text("a"))))
package render
