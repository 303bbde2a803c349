package errors

import "sort"

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
	DocURL   string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Store Errors (E001-E009)
	// ============================================

	"E001": {
		Category: CategoryStore,
		Message:  "Store destroyed",
		Detail:   "The store has been destroyed and no longer accepts writes or task runs.",
		DocURL:   "https://airset.dev/docs/errors/E001",
	},
	"E002": {
		Category: CategoryStore,
		Message:  "Store already mounted",
		Detail:   "A store can have only one owner. Mount was called on a store that is already mounted.",
		DocURL:   "https://airset.dev/docs/errors/E002",
	},
	"E003": {
		Category: CategoryStore,
		Message:  "Partial update on non-mapping data",
		Detail:   "Reset, SetPart and UpdatePart overlay entries onto the current data, which must be a mapping.",
		DocURL:   "https://airset.dev/docs/errors/E003",
	},

	// ============================================
	// Task Errors (E010-E019)
	// ============================================

	"E010": {
		Category: CategoryTask,
		Message:  "Task panicked",
		Detail:   "A task passed to Store.Run panicked. The run was aborted and nothing was committed.",
		DocURL:   "https://airset.dev/docs/errors/E010",
	},
	"E011": {
		Category: CategoryTask,
		Message:  "Task failed",
		Detail:   "A task passed to Store.Run returned an error. The run was aborted and nothing after the last explicit update was committed.",
		DocURL:   "https://airset.dev/docs/errors/E011",
	},
	"E012": {
		Category: CategoryTask,
		Message:  "Run cancelled",
		Detail:   "The context passed to Store.Run was cancelled before the run could start or finish.",
		DocURL:   "https://airset.dev/docs/errors/E012",
	},

	// ============================================
	// Input Errors (E040-E059)
	// ============================================

	"E040": {
		Category: CategoryInput,
		Message:  "Unsupported document format",
		Detail:   "Input documents must be JSON (.json) or YAML (.yaml, .yml).",
		DocURL:   "https://airset.dev/docs/errors/E040",
	},
	"E041": {
		Category: CategoryInput,
		Message:  "Document could not be decoded",
		Detail:   "The input document is not well-formed.",
		DocURL:   "https://airset.dev/docs/errors/E041",
	},
	"E042": {
		Category: CategoryInput,
		Message:  "Document not found",
		Detail:   "The input document does not exist or cannot be read.",
		DocURL:   "https://airset.dev/docs/errors/E042",
	},

	// ============================================
	// Inspector Errors (E080-E099)
	// ============================================

	"E080": {
		Category: CategoryInspector,
		Message:  "Store not registered",
		Detail:   "No store with this name is registered with the inspector.",
		DocURL:   "https://airset.dev/docs/errors/E080",
	},
	"E081": {
		Category: CategoryInspector,
		Message:  "Store name already registered",
		Detail:   "Store names must be unique within one inspector.",
		DocURL:   "https://airset.dev/docs/errors/E081",
	},
	"E082": {
		Category: CategoryInspector,
		Message:  "Invalid request body",
		Detail:   "The request body must be a JSON document.",
		DocURL:   "https://airset.dev/docs/errors/E082",
	},
	"E083": {
		Category: CategoryInspector,
		Message:  "Inspector failed to start",
		Detail:   "The inspector HTTP server could not listen on the configured address.",
		DocURL:   "https://airset.dev/docs/errors/E083",
	},

	// ============================================
	// Config Errors (E120-E139)
	// ============================================

	"E120": {
		Category: CategoryConfig,
		Message:  "Invalid airset.json",
		Detail:   "The configuration file contains invalid JSON or unknown values.",
		DocURL:   "https://airset.dev/docs/errors/E120",
	},
	"E121": {
		Category: CategoryConfig,
		Message:  "Invalid compare mode",
		Detail:   "The compare mode must be one of identity, shallow or deep.",
		DocURL:   "https://airset.dev/docs/errors/E121",
	},
	"E122": {
		Category: CategoryConfig,
		Message:  "Invalid inspector address",
		Detail:   "The inspector address must be a host:port pair.",
		DocURL:   "https://airset.dev/docs/errors/E122",
	},
	"E123": {
		Category: CategoryConfig,
		Message:  "Invalid metrics path",
		Detail:   "The metrics path must start with '/' and must not collide with inspector routes.",
		DocURL:   "https://airset.dev/docs/errors/E123",
	},

	// ============================================
	// CLI Errors (E140-E159)
	// ============================================

	"E140": {
		Category: CategoryCLI,
		Message:  "Config file not found",
		Detail:   "No airset.json found at the given path.",
		DocURL:   "https://airset.dev/docs/errors/E140",
	},
	"E141": {
		Category: CategoryCLI,
		Message:  "Invalid flag value",
		Detail:   "A command flag has a value that is not accepted.",
		DocURL:   "https://airset.dev/docs/errors/E141",
	},
	"E142": {
		Category: CategoryCLI,
		Message:  "No documents to serve",
		Detail:   "airset serve needs at least one document.",
		DocURL:   "https://airset.dev/docs/errors/E142",
	},
}

// GetAllCodes returns all registered error codes in ascending order.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}

// Register adds a new error template to the registry.
func Register(code string, template ErrorTemplate) {
	registry[code] = template
}
