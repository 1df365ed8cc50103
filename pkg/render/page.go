package render

import (
	"io"

	"github.com/vango-dev/pulse/pkg/vdom"
)

// PageOptions describes the document around a page body.
type PageOptions struct {
	Title   string
	Lang    string
	Scripts []string // script src attributes, added at the end of body
	Styles  string   // inline CSS for the head
}

// Page wraps body in a full html document.
func Page(opts PageOptions, body ...*vdom.VNode) *vdom.VNode {
	lang := opts.Lang
	if lang == "" {
		lang = "en"
	}

	head := vdom.Head(
		vdom.Meta(vdom.Charset("utf-8")),
		vdom.Meta(vdom.Name("viewport"), vdom.Content("width=device-width, initial-scale=1")),
		vdom.Title(vdom.Text(opts.Title)),
	)
	if opts.Styles != "" {
		head.Children = append(head.Children, vdom.Element("style", vdom.Raw(opts.Styles)))
	}

	bodyNode := vdom.Body(body)
	for _, src := range opts.Scripts {
		bodyNode.Children = append(bodyNode.Children, vdom.Script(vdom.Src(src)))
	}

	return vdom.Html(vdom.Lang(lang), head, bodyNode)
}

// WritePage writes a doctype followed by the page.
func WritePage(w io.Writer, opts PageOptions, body ...*vdom.VNode) error {
	if _, err := io.WriteString(w, "<!DOCTYPE html>"); err != nil {
		return err
	}
	return NewRenderer(RendererConfig{}).RenderToWriter(w, Page(opts, body...))
}
