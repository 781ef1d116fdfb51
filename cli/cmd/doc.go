// Package cmd implements the sigil sub-commands.
//
// Commands read the engine from their context ([WithEngine]) and write to
// the kong context's stdout, or to the streams set by [WithStreams].
package cmd

var (
	// CacheIdentifier is the kong variable holding the cache directory.
	CacheIdentifier = "cache"

	// ConfigIdentifier is the kong variable holding the YAML configuration
	// file path.
	ConfigIdentifier = "config"
)
