// Package config loads the dmrelay configuration file.
//
// Configuration is YAML with ${VAR} environment expansion. A .env file next to
// the working directory is loaded first when present. Optional sections
// (database, nats, server) are disabled when their address is empty.
package config
