// Package schemas embeds the JSON Schemas for .checkerd.yaml and checker
// definition files.
package schemas

import _ "embed"

//go:embed config.schema.json
var ConfigSchemaJSON string

//go:embed checkers.schema.json
var CheckersSchemaJSON string
