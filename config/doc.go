// Package config loads routekit gateway configuration from YAML files and
// the environment. A config.yml provides the base values, an optional .env
// file and ROUTEKIT_-prefixed environment variables override them.
package config
