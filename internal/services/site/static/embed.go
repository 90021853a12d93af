// Package static embeds the public site stylesheet.
package static

import "embed"

// FS holds the site's static files.
//
//go:embed *.css
var FS embed.FS
