// Package config loads service registrations from TOML or YAML files.
//
// A file declares scripted services and schema locations:
//
//	include = ["common.toml"]
//
//	[[schema]]
//	namespace = "http://example.com/contacts"
//	version = "1.2.0"
//	location = "contacts-1.2.xsd"
//
//	[[service]]
//	id = "contacts.email"
//	kind = "validator"
//	script = "scripts/email.lua"
//	overrides = ["core.validation.possible-values"]
//	when = { type = "Contact", property = "Email" }
//	params = { domain = "example.com" }
//
// YAML files use the same fields, with the lists named schemas and
// services. Script paths and includes are relative to the declaring file.
// Load reads a file and its includes; Build registers the services in a
// service.Registry.
package config
