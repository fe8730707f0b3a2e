// Package templates embeds the email templates and layouts.
package templates

import "embed"

//go:embed *.md layouts/*.html
var FS embed.FS
