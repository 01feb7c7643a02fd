// Package web holds the console templates and static assets.
package web

import "embed"

// Templates embeds HTML templates.
//
//go:embed templates/*/*.html
var Templates embed.FS

// Static embeds stylesheets and scripts.
//
//go:embed static/*/*
var Static embed.FS
