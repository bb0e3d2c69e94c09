package config

import "strings"

const schemaResourceName = "corelib-config.json"

// schemaJSON is the embedded JSON Schema a decoded config document must
// satisfy before config.Load accepts it.
const schemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "listen_address": { "type": "string", "minLength": 1 },
    "backlog": { "type": "integer", "minimum": 1 },
    "scratch_buffer_size": { "type": "integer", "minimum": 1 },
    "event_ring_capacity": { "type": "integer", "minimum": 1 },
    "rules": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "name": { "type": "string", "minLength": 1 },
          "pattern": { "type": "string", "minLength": 1 }
        },
        "required": ["name", "pattern"]
      }
    }
  },
  "additionalProperties": false
}`

func schemaDocument() *strings.Reader {
	return strings.NewReader(schemaJSON)
}
