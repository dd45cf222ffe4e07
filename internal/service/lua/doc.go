// Package lua runs scripted services in sandboxed gopher-lua states.
//
// A script defines global functions for the role it plays:
//
//	-- validator: return nil when the value is fine, or a severity
//	-- ("warning" or "error") and a message
//	function validate(value)
//	  if value.present and not value.text:find("@") then
//	    return "warning", value.label .. " should contain @"
//	  end
//	end
//
//	-- default value provider: return the text or nil
//	function default(element)
//	  return element.get("Kind") == "work" and "office" or nil
//	end
//
//	-- possible values provider: return a list of strings
//	function possible_values(element)
//	  return { "personal", "work" }
//	end
//
//	-- element validator: same results as validate
//	function validate_element(element)
//	end
//
// Values are passed as tables with the fields text, present, default,
// malformed, empty, property and label, plus element. Elements are tables
// with the field type and the functions get(name), which returns the
// persisted text of a value property or nil, and has(name). Service
// parameters are available in the global table params.
//
// Each service instance owns its state. The io, os, debug and package
// libraries are not opened, code loading functions are removed and print
// writes to the service log.
package lua
