// Package vdom is a small in-memory node tree used as a keyed render
// surface.
//
// # Core Types
//
// VNode represents elements, text, fragments and raw HTML. Props holds
// attributes. Elements are built with variadic factory functions:
//
//	Ul(Class("items"),
//	    Li(Key("a"), Text("first")),
//	)
//
// # Containers
//
// Container is a keyed.Surface over one parent element. Every child it
// holds carries its identity in the data-id attribute and in VNode.Key, and
// every change is published as a Patch so a remote copy of the tree can
// follow along.
package vdom
