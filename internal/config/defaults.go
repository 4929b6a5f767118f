package config

var defaults = map[string]any{
	"secret":    "",
	"log_level": "info",
	"listen":    ":8080",
	"base_url":  "/",

	"allowed_networks": "",

	"session_store":     SessionStoreMemory,
	"session_ttl_hours": uint(24 * 7),

	"backend.mode":            BackendLive,
	"backend.base_url":        "https://app.shollu.com",
	"backend.attendance_url":  "https://api.shollu.com/api/v1/absent-qr",
	"backend.api_key":         "",
	"backend.timeout_seconds": uint(15),

	"scanner.backend":         ScannerCamera,
	"scanner.max_image_bytes": int64(4 << 20),

	"events.catalog_file": "",
	"events.source":       EventsStatic,

	"cards.pipeline": PipelineLive,

	"attendance.dismiss_ms": uint(500),

	"rbac.policy_file": "",

	"email.host":         "host.docker.internal",
	"email.port":         25,
	"email.username":     "",
	"email.password":     "",
	"email.from":         "noreply@shollu.com",
	"email.print_office": "",

	"storage.local.path": "./data/sessions.db",
}

func Defaults() map[string]any {
	values := make(map[string]any)
	for k, v := range defaults {
		values[k] = v
	}
	return values
}
