// Package schema defines the versioned event payloads producers put on the
// bus, and validates raw payloads against an embedded CUE definition.
//
// The bus itself never validates. Producers build payloads with the types in
// this package, or check foreign JSON with Validate, before publishing.
package schema
