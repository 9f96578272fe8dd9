package instance

import "fmt"

// BuildEnv is the pure source-of-truth projection of what an engine
// container's environment must look like. Drift reconciliation is
// defined entirely against this function: an instance whose running
// env differs from BuildEnv(name, key) on any recognized key is
// rebuilt.
func BuildEnv(name, baseDomain, encryptionKey, timezone string) map[string]string {
	host := Subdomain(name, baseDomain)

	return map[string]string{
		"N8N_HOST":             "0.0.0.0",
		"N8N_PORT":             "5678",
		"N8N_PROTOCOL":         "https",
		"N8N_EDITOR_BASE_URL":  fmt.Sprintf("https://%s/", host),
		"N8N_ENCRYPTION_KEY":   encryptionKey,
		"WEBHOOK_URL":          fmt.Sprintf("https://%s/", host),
		"GENERIC_TIMEZONE":     timezone,

		"N8N_ENFORCE_SETTINGS_FILE_PERMISSIONS": "true",
		"N8N_SECURE_COOKIE":                     "false",
		"N8N_LOG_LEVEL":                         "warn",
		"DB_SQLITE_POOL_SIZE":                   "4",
		"N8N_DIAGNOSTICS_ENABLED":               "false",
		"N8N_BLOCK_ENV_ACCESS_IN_NODE":          "true",
		"N8N_GIT_NODE_DISABLE_BARE_REPOS":       "true",

		"EXECUTIONS_DATA_SAVE_ON_ERROR":           "all",
		"EXECUTIONS_DATA_SAVE_ON_SUCCESS":         "none",
		"EXECUTIONS_DATA_SAVE_ON_PROGRESS":        "false",
		"EXECUTIONS_DATA_SAVE_MANUAL_EXECUTIONS":  "false",
		"EXECUTIONS_DATA_PRUNE":                   "true",
		"EXECUTIONS_DATA_MAX_AGE":                 "24",
		"EXECUTIONS_DATA_PRUNE_MAX_COUNT":         "100",

		"N8N_CONCURRENCY_PRODUCTION_LIMIT": "3",
		"NODE_OPTIONS":                      "--max-old-space-size=256",

		"N8N_TEMPLATES_ENABLED":             "false",
		"N8N_VERSION_NOTIFICATIONS_ENABLED": "false",
		"N8N_PERSONALIZATION_ENABLED":       "false",
		"N8N_HIRING_BANNER_ENABLED":         "false",
		"N8N_COMMUNITY_PACKAGES_ENABLED":    "true",
	}
}

// EnvDiffers reports whether running (the container's current
// environment) differs from BuildEnv on any key BuildEnv recognizes.
// Keys running carries that BuildEnv doesn't (e.g. engine-internal
// bookkeeping vars) are ignored.
func EnvDiffers(name, baseDomain, encryptionKey, timezone string, running map[string]string) bool {
	want := BuildEnv(name, baseDomain, encryptionKey, timezone)
	for k, v := range want {
		if running[k] != v {
			return true
		}
	}
	return false
}
