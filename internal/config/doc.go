// Package config provides configuration for the propctl command.
//
// Configuration is read from propctl.yaml, then overridden by PROPCTL_*
// environment variables, then completed with defaults and validated.
//
// # Configuration File Structure
//
//	log:
//	  level: info        # debug, info, warn, error
//	  format: text       # text, json
//	watch:
//	  file: state.yaml   # "-" or empty reads stdin
//	  format: json       # json, yaml
//	  paths: [server.port, server.host]
//	serve:
//	  addr: ":8080"
//	  path: /ws
//	  readOnly: false
//	  writeTimeout: 10s
//	  allowedOrigins: [https://example.com]
//	metrics:
//	  enabled: true
//	  namespace: prop
//	  path: /metrics
//	trace:
//	  enabled: false
//	  endpoint: http://localhost:4318
//	  serviceName: propctl
//	redis:
//	  addr: localhost:6379
//	  channel: prop
//
// # Environment Overrides
//
// Every field has a PROPCTL_* variable, e.g. PROPCTL_LOG_LEVEL,
// PROPCTL_SERVE_ADDR or PROPCTL_WATCH_PATHS (comma separated). Variables
// that are unset leave the file value in place.
package config
