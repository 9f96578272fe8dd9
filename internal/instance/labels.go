package instance

import (
	"fmt"
	"time"
)

// BuildLabels produces the reverse-proxy routing labels plus the
// management labels this system reads back to recover instance
// metadata (createdAt, name) without a separate database. createdAt is
// carried verbatim through rebuilds so an instance's age survives a
// version update.
func BuildLabels(name, baseDomain string, createdAt time.Time, sslEnabled bool, certResolver string) map[string]string {
	router := "engine-" + name
	host := Subdomain(name, baseDomain)

	labels := map[string]string{
		"traefik.enable": "true",
		fmt.Sprintf("traefik.http.routers.%s.rule", router):                          fmt.Sprintf("Host(`%s`)", host),
		fmt.Sprintf("traefik.http.services.%s.loadbalancer.server.port", router):      enginePortNumber,

		"app.type":       "engine",
		"app.instance":   name,
		"app.managed":    "true",
		"app.created_at": createdAt.UTC().Format(time.RFC3339),
	}

	if sslEnabled {
		labels[fmt.Sprintf("traefik.http.routers.%s.entrypoints", router)] = "websecure"
		labels[fmt.Sprintf("traefik.http.routers.%s.tls.certresolver", router)] = certResolver
	}

	return labels
}
