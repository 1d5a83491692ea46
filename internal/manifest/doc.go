// Package manifest handles parsing and validation of plugin module manifests.
// A module manifest is a YAML or JSON file that declares one or more
// executors (namespace, name, version, runtime, entry point) contributed by a
// module. Manifests are validated against the JSON Schema embedded from
// schema/module.schema.json before their executors are bound.
package manifest
