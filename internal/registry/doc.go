// Package registry holds the static routing configuration for the childcare router.
//
// A Registry is built once at startup, either from the embedded default or from a
// YAML file, and is read-only afterwards. It declares the specialists in order,
// their keyword sets, force-routing keyword sets and priority weights, plus the
// explicit override flags, fan-out trigger phrases, search hints and signal rules
// consulted by the routing strategies.
//
// Example usage:
//
//	reg, err := registry.Default()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	for _, s := range reg.Specialists() {
//	    fmt.Println(s.ID, s.Keywords)
//	}
//
// Example registry file:
//
//	specialists:
//	  - id: nutrition_specialist
//	    priority: 1.0
//	    keywords: [weaning, leftover, "won't eat"]
//	  - id: health_specialist
//	    priority: 1.2
//	    keywords: [fever, cough]
//	    force_keywords: ["38°c", seizure]
//	explicit_flags: ["[SEARCH]"]
//	parallel_triggers: [comprehensively analyze]
//	sequential_triggers: [step by step]
//	signal_rules:
//	  - condition: "signals.message_type == 'voice'"
//	    target: voice_specialist
//
// Any inconsistency (a priority without keywords, an unknown rule target, a CEL
// condition that does not compile) is reported as a *ConfigurationError from
// Build, Parse, LoadFile or Default. Nothing is validated at request time.
package registry
