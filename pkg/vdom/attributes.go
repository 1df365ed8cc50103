package vdom

import "strings"

func attr(key string, value any) Attr {
	return Attr{Key: key, Value: value}
}

// ID sets the id attribute.
func ID(id string) Attr { return attr("id", id) }

// Class sets the class attribute.
func Class(classes ...string) Attr { return attr("class", strings.Join(classes, " ")) }

// StyleAttr sets inline styles.
func StyleAttr(style string) Attr { return attr("style", style) }

// Data sets a data-* attribute.
func Data(key, value string) Attr { return attr("data-"+key, value) }

func Role(role string) Attr         { return attr("role", role) }
func AriaLabel(label string) Attr   { return attr("aria-label", label) }
func AriaLive(mode string) Attr     { return attr("aria-live", mode) }
func Hidden() Attr                  { return attr("hidden", true) }
func TitleAttr(title string) Attr   { return attr("title", title) }
func Lang(lang string) Attr         { return attr("lang", lang) }
func Href(url string) Attr          { return attr("href", url) }
func Rel(rel string) Attr           { return attr("rel", rel) }
func Name(name string) Attr         { return attr("name", name) }
func Content(content string) Attr   { return attr("content", content) }
func Charset(charset string) Attr   { return attr("charset", charset) }
func Src(src string) Attr           { return attr("src", src) }
func Type(typ string) Attr          { return attr("type", typ) }
func Disabled() Attr                { return attr("disabled", true) }
func Checked(checked bool) Attr     { return attr("checked", checked) }
func Value(value string) Attr       { return attr("value", value) }
func Placeholder(text string) Attr  { return attr("placeholder", text) }

// Key sets the node's identity within its parent. It is not rendered.
func Key(key string) Attr { return attr("key", key) }
