package errors

import "slices"

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// Runtime and adapter errors (E001-E099)

	"E001": {
		Category: CategoryRuntime,
		Message:  "Prop has ended",
		Detail:   "The prop was ended before the operation could complete. Ended props keep their last cell but never notify again.",
	},
	"E002": {
		Category: CategoryRuntime,
		Message:  "Unexpected value type",
		Detail:   "A value produced by an adapter could not be stored in the prop because its dynamic type does not match the prop's type parameter.",
	},
	"E020": {
		Category: CategoryAdapter,
		Message:  "Target is not an event emitter",
		Detail:   "FromEvent and MergeEvent accept targets implementing either AddEventListener/RemoveEventListener or AddListener/RemoveListener.",
	},
	"E030": {
		Category: CategoryAdapter,
		Message:  "Redis subscription failed",
		Detail:   "The Redis server did not confirm the channel subscription.",
	},
	"E031": {
		Category: CategoryAdapter,
		Message:  "Redis publish failed",
		Detail:   "A prop value could not be published to the Redis channel.",
	},
	"E032": {
		Category: CategoryAdapter,
		Message:  "Value is not serializable",
		Detail:   "The prop value could not be encoded as JSON.",
	},
	"E040": {
		Category: CategoryAdapter,
		Message:  "WebSocket upgrade failed",
		Detail:   "The HTTP request could not be upgraded to a WebSocket connection.",
	},
	"E041": {
		Category: CategoryAdapter,
		Message:  "Invalid inbound frame",
		Detail:   "A WebSocket client sent a frame that is not valid JSON.",
	},
	"E050": {
		Category: CategoryAdapter,
		Message:  "Tracing setup failed",
		Detail:   "The OpenTelemetry exporter or resource for span export could not be created.",
	},

	// Configuration errors (E100-E199)

	"E100": {
		Category: CategoryConfig,
		Message:  "Invalid propctl.yaml",
		Detail:   "The configuration file is not valid YAML or contains fields of the wrong type.",
	},
	"E101": {
		Category: CategoryConfig,
		Message:  "Invalid environment override",
		Detail:   "A PROPCTL_* environment variable could not be parsed into its configuration field.",
	},
	"E102": {
		Category: CategoryConfig,
		Message:  "Invalid configuration value",
		Detail:   "A configuration field holds a value outside its allowed set.",
	},

	// Command line errors (E200-E299)

	"E200": {
		Category: CategoryCLI,
		Message:  "Input not readable",
		Detail:   "The input file could not be opened.",
	},
	"E201": {
		Category: CategoryCLI,
		Message:  "Invalid document in stream",
		Detail:   "A document in the input stream is not a mapping, or could not be decoded.",
	},
	"E202": {
		Category: CategoryCLI,
		Message:  "Invalid watch path",
		Detail:   "Watch paths are dot-separated keys such as server.port.",
	},
	"E203": {
		Category: CategoryCLI,
		Message:  "Server failed",
		Detail:   "The HTTP server stopped with an error.",
	},
	"E204": {
		Category: CategoryCLI,
		Message:  "Command failed",
		Detail:   "The command stopped with an error that carries no more specific code, such as an unknown flag or argument.",
	},
}

// GetAllCodes returns all registered error codes, sorted.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	slices.Sort(codes)
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}
