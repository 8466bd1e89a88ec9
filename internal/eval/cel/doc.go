// Package cel provides a CEL (Common Expression Language) evaluator for registry signal rules.
//
// Signal rules let the registry route on request metadata (attachment flags,
// message type) without code changes. Two variables are declared: message (string)
// and signals (map of string to dyn).
//
// Example usage:
//
//	evaluator := cel.NewEvaluator()
//
//	vars := map[string]interface{}{
//	    "message": "listen to this",
//	    "signals": map[string]interface{}{
//	        "has_image":    false,
//	        "message_type": "voice",
//	    },
//	}
//
//	matched, err := evaluator.EvaluateBool(ctx, "signals.message_type == 'voice'", vars)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	// matched == true
//
// Supported operations:
//   - Comparisons: ==, !=, <, <=, >, >=
//   - Boolean logic: &&, ||, !
//   - String operations: contains, startsWith, endsWith, matches
//   - List operations: in, size
//   - Map access: signals.field, signals["field"]
package cel
