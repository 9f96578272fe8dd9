package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"enginefleet/internal/dockerrt"
)

func jsonMarshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

func versionOf(image string) string {
	if idx := strings.LastIndex(image, ":"); idx >= 0 {
		return image[idx+1:]
	}
	return "unknown"
}

func bytesToMB(b uint64) float64 {
	return float64(b) / 1024 / 1024
}

func dockerStatsZero() dockerrt.Stats {
	return dockerrt.Stats{}
}
