package errors

import "sort"

// Template is the registered text for an error code.
type Template struct {
	Category Category
	Message  string
	Detail   string
}

var registry = map[string]Template{
	// Configuration (P100-P199)
	"P100": {
		Category: CategoryConfig,
		Message:  "Configuration file not found",
		Detail:   "No pulse.json, pulse.yaml, pulse.yml or pulse.toml was found in this directory or any parent.",
	},
	"P101": {
		Category: CategoryConfig,
		Message:  "Invalid configuration file",
		Detail:   "The configuration file could not be parsed.",
	},
	"P102": {
		Category: CategoryConfig,
		Message:  "Invalid configuration value",
		Detail:   "A configuration value is out of range or not one of the accepted choices.",
	},
	"P103": {
		Category: CategoryConfig,
		Message:  "Unsupported configuration format",
		Detail:   "Configuration files must end in .json, .yaml, .yml or .toml.",
	},

	// Command line (P200-P299)
	"P200": {
		Category: CategoryCLI,
		Message:  "Invalid flag value",
		Detail:   "A command line flag has a value that cannot be used.",
	},
	"P201": {
		Category: CategoryCLI,
		Message:  "Invalid items file",
		Detail:   "The items file must be a JSON array of objects with id and text fields.",
	},
	"P202": {
		Category: CategoryCLI,
		Message:  "Server failed",
		Detail:   "The HTTP server could not start or stopped with an error.",
	},
	"P203": {
		Category: CategoryCLI,
		Message:  "Tracing setup failed",
		Detail:   "The trace exporter could not be configured.",
	},
	"P204": {
		Category: CategoryCLI,
		Message:  "Unknown template",
		Detail:   "The requested starter template does not exist.",
	},

	// Publishing (P300-P399)
	"P300": {
		Category: CategoryPublish,
		Message:  "Invalid publish target",
		Detail:   "Targets are a local directory, an s3:// or gs://bucket/prefix URL, or a redis:// URL.",
	},
	"P301": {
		Category: CategoryPublish,
		Message:  "Publish failed",
		Detail:   "The rendered output could not be written to the target.",
	},
}

// Codes returns every registered code in order.
func Codes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Lookup returns the template for code.
func Lookup(code string) (Template, bool) {
	t, ok := registry[code]
	return t, ok
}
