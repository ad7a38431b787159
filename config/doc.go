// Package config loads and validates the adapter configuration.
//
// Configuration layers, lowest precedence first: built-in defaults, an
// optional JSON or YAML file, MATRIX_* environment variables, then
// command-line flags applied by the caller. Files are checked against an
// embedded JSON schema before unmarshaling, so a misspelled key fails
// loudly instead of silently falling back to a default.
//
// # Loading
//
//	cfg, err := config.Load(path)
//	if err != nil {
//	    return err
//	}
//	// flag overrides go here
//	if err := cfg.Validate(); err != nil {
//	    return err
//	}
//
// An empty path skips the file layer. Load never validates beyond the
// schema: Validate runs after the caller has applied its overrides, so
// a URL supplied by flag can satisfy a requirement the file leaves
// open.
//
// # File Format
//
// The extension picks the format (.json, .yaml, .yml). Duration fields
// accept Go duration strings ("45s", "1m30s") or raw nanosecond
// integers. A minimal YAML file:
//
//	broker:
//	  url: wss://amp.example.com:443/adapters
//	  token: <token>
//	sut:
//	  endpoint: ws://localhost:3001
//	logging:
//	  level: debug
//	  format: text
//
// # Environment Overrides
//
// MATRIX_BROKER_URL, MATRIX_BROKER_TOKEN and MATRIX_SUT_ENDPOINT
// override their file counterparts. These cover the values that differ
// per deployment; everything else changes rarely enough to live in the
// file.
package config
