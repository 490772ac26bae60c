package plugins

// ManifestSchema is the JSON Schema for plugin manifest validation
const ManifestSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["id", "name", "version", "main", "functions"],
  "properties": {
    "id": {
      "type": "string",
      "pattern": "^[a-z0-9-]+$",
      "description": "Unique plugin identifier"
    },
    "name": {
      "type": "string",
      "minLength": 1,
      "description": "Human-readable plugin name"
    },
    "version": {
      "type": "string",
      "pattern": "^\\d+\\.\\d+\\.\\d+$",
      "description": "Semver version"
    },
    "description": {
      "type": "string",
      "description": "Plugin description"
    },
    "author": {
      "type": "string",
      "description": "Plugin author"
    },
    "main": {
      "type": "string",
      "minLength": 1,
      "description": "Entry point executable path"
    },
    "dependencies": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["pluginId"],
        "properties": {
          "pluginId": {
            "type": "string",
            "minLength": 1
          },
          "version": {
            "type": "string",
            "description": "Semver constraint (e.g., ^1.0.0)"
          }
        }
      }
    },
    "functions": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["name", "description"],
        "properties": {
          "name": {
            "type": "string",
            "minLength": 1
          },
          "description": {
            "type": "string",
            "minLength": 1
          },
          "parameters": {
            "type": "array",
            "items": {
              "type": "object",
              "required": ["name", "type"],
              "properties": {
                "name": { "type": "string", "minLength": 1 },
                "type": {
                  "type": "string",
                  "enum": ["string", "number", "boolean", "object", "array", "integer"]
                },
                "description": { "type": "string" },
                "required": { "type": "boolean" },
                "default": {}
              }
            }
          },
          "priority_hint": { "type": "integer" }
        }
      }
    },
    "config": {
      "type": "object",
      "description": "Plugin configuration defaults"
    }
  }
}`
