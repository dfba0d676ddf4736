// Package migrations содержит схему каталога в формате golang-migrate
package migrations

import "embed"

// FS встроенные файлы миграций
//
//go:embed *.sql
var FS embed.FS
