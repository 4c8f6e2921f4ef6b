// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads warcindex's YAML configuration.
//
// Configuration comes from a single file named by the --config flag
// ([LoadFile]) or the WARCINDEX_CONFIG environment variable ([Load]).
// There is no discovery: without either, [Resolve] returns [Default].
// File values are merged over the defaults, and command-line flags
// override the result.
//
// Variable expansion is performed on path fields after loading:
// ${HOME} and ${VAR:-default} patterns are expanded. No other
// environment variables override config values.
//
//	index:
//	  backend: sqlite
//	  path: ${HOME}/.cache/warcindex/index.db
//	pipeline:
//	  on_malformed_header: resync
//	  batch_size: 500
//	filter:
//	  record_types: [response, resource]
//	  target_prefixes: ["https://example.org/"]
//	worker:
//	  max_stack_bytes: 268435456
//	logging:
//	  level: debug
package config
