// Package web holds the dashboard templates and browser assets compiled into the server binary.
package web

import "embed"

// TemplatesFS holds the page layout and the dashboard partial swapped in by htmx.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS holds the stylesheet and the small script that wires htmx, toasts and the event stream.
//
//go:embed static/*.css static/*.js
var StaticFS embed.FS
