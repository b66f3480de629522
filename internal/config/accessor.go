package config

import (
	"sort"
	"strings"
)

// KnownKeys lists every key the webhook and processor read, for display.
func KnownKeys() []string {
	keys := []string{
		"ENVIRONMENT", "LOG_LEVEL", "LOG_FORMAT", "PORT",
		"LINE_CHANNEL_ACCESS_TOKEN", "LINE_CHANNEL_SECRET", "LINE_CHANNEL_ID",
		"WEBHOOK_URL", "LINE_VERIFY_SIGNATURE", "LINE_API_BASE", "LINE_DATA_API_BASE",
		"DOWNLOAD_DIR", "MAX_DOWNLOAD_BYTES", "FETCH_HEADER_TIMEOUT", "FETCH_CONTENT_TIMEOUT",
		"MESSAGE_TIMEOUT", "LINE_API_RATE_LIMIT", "JOURNAL_PATH",
		"BUCKET_NAME", "EXPORT_XLSX", "PROCESSOR_CONCURRENCY", "PROCESS_TIMEOUT",
	}
	keys = append(keys, TargetKeys...)
	keys = append(keys, ProcessorRequiredKeys...)
	sort.Strings(keys)
	return keys
}

// Snapshot resolves keys (KnownKeys plus anything from files) and masks secrets.
func Snapshot(src *Source) map[string]string {
	out := make(map[string]string)
	for _, k := range append(KnownKeys(), src.Keys()...) {
		v, ok := src.Lookup(k)
		if !ok {
			continue
		}
		if isSecretKey(k) {
			v = maskString(v)
		}
		out[k] = v
	}
	return out
}

func isSecretKey(key string) bool {
	upper := strings.ToUpper(key)
	for _, marker := range []string{"TOKEN", "SECRET", "PASSWORD", "API_KEY"} {
		if strings.Contains(upper, marker) {
			return true
		}
	}
	return false
}

// MaskString shows first 4 and last 4 chars, masks the rest.
func MaskString(s string) string { return maskString(s) }

func maskString(s string) string {
	if len(s) <= 8 {
		return "***"
	}
	return s[:4] + "****" + s[len(s)-4:]
}
