package errors

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
	// Binding and Store Errors (F001-F009)
	// ============================================

	"F001": {
		Category: CategoryBinding,
		Message:  "Unsupported property subscription",
		Detail:   "A component tried to subscribe to (or unsubscribe from) a property that the store does not declare in its definition. This is a configuration mistake and is never retried.",
		DocURL:   "https://focus.dev/docs/errors/F001",
	},
	"F002": {
		Category: CategoryStore,
		Message:  "Unknown store property",
		Detail:   "The store was asked to change a property that is not part of its definition.",
		DocURL:   "https://focus.dev/docs/errors/F002",
	},
	"F003": {
		Category: CategoryServer,
		Message:  "Component not found",
		Detail:   "No component with this name is configured.",
		DocURL:   "https://focus.dev/docs/errors/F003",
	},
	"F004": {
		Category: CategoryServer,
		Message:  "Store not found",
		Detail:   "No store with this identifier is configured.",
		DocURL:   "https://focus.dev/docs/errors/F004",
	},
	"F005": {
		Category: CategoryServer,
		Message:  "Invalid request body",
		Detail:   "The request body is not valid JSON of the expected shape.",
		DocURL:   "https://focus.dev/docs/errors/F005",
	},

	// ============================================
	// Snapshot Errors (F010-F019)
	// ============================================

	"F010": {
		Category: CategorySnapshot,
		Message:  "Snapshot storage failed",
		Detail:   "The snapshot backend could not read or write the snapshot object.",
		DocURL:   "https://focus.dev/docs/errors/F010",
	},
	"F011": {
		Category: CategorySnapshot,
		Message:  "Invalid snapshot",
		Detail:   "The snapshot could not be decoded. Snapshots are YAML or JSON documents with a top-level 'stores' mapping.",
		DocURL:   "https://focus.dev/docs/errors/F011",
	},

	// ============================================
	// Config Errors (F020-F029)
	// ============================================

	"F020": {
		Category: CategoryConfig,
		Message:  "Config file not found",
		Detail:   "No focus.json was found in the project directory.",
		DocURL:   "https://focus.dev/docs/errors/F020",
	},
	"F021": {
		Category: CategoryConfig,
		Message:  "Invalid config",
		Detail:   "The configuration file could not be parsed or failed validation.",
		DocURL:   "https://focus.dev/docs/errors/F021",
	},

	// ============================================
	// CLI Errors (F030-F039)
	// ============================================

	"F030": {
		Category: CategoryCLI,
		Message:  "Invalid arguments",
		Detail:   "The command was called with missing or conflicting arguments.",
		DocURL:   "https://focus.dev/docs/errors/F030",
	},
}

// Register adds or replaces a custom error template.
func Register(code string, template ErrorTemplate) {
	registry[code] = template
}

// Codes returns all registered error codes.
func Codes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	return codes
}
