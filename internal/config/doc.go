// Package config reads the routing worker's settings from the environment.
//
// Stream names, the routing strategy and the coordinator's LLM settings all
// come from env vars with development defaults. Validate rejects unknown
// strategies and a REGISTRY_PATH that does not exist; an empty REGISTRY_PATH
// selects the registry embedded in the binary.
//
//	ROUTING_STRATEGY=delegating LLM_API_KEY=... router-worker
package config
