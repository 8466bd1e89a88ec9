// Package template provides a Handlebars engine for the coordinator's classification prompt.
//
// Compiled templates are cached, so rendering the same prompt for every
// deferred request only parses it once.
//
// Example usage:
//
//	engine := template.NewEngine()
//
//	data := map[string]interface{}{
//	    "message": "My toddler keeps biting at daycare",
//	    "specialists": []map[string]interface{}{
//	        {"id": "behavior_specialist", "description": "Tantrums and discipline"},
//	    },
//	}
//
//	prompt, err := engine.Render("{{#each specialists}}{{id}}\n{{/each}}Message: {{truncate message 500}}", data)
//
// Built-in helpers:
//   - uppercase, lowercase, trim - string case and whitespace
//   - default - Return default value if first arg is empty
//   - join - Join array elements with separator
//   - truncate - Cap a string at a number of runes
package template
