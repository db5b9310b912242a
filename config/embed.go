package config

import _ "embed"

// Default is the embedded conf.yaml merged under every on-disk config.
//
//go:embed conf.yaml
var Default []byte
