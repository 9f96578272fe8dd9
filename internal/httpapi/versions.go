package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// versionOption is one entry in the GET /versions response.
type versionOption struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// versionsFetcher looks up the engine versions offered at intake time.
// Substitutable in tests so they never make a real network call.
type versionsFetcher interface {
	Fetch(ctx context.Context) ([]versionOption, error)
}

// dockerHubVersions fetches n8nio/n8n tags from the Docker Hub registry
// API, keeping only semver 1.X.Y tags (no task-runner or dev variants),
// newest first, capped at eight. Any failure — network, decode, or an
// empty result — falls back to the single "latest" option rather than
// surfacing an error, since the version list is a convenience, not a
// requirement, for intake.
type dockerHubVersions struct {
	client *http.Client
}

func newDockerHubVersions() *dockerHubVersions {
	return &dockerHubVersions{client: &http.Client{Timeout: 10 * time.Second}}
}

var semverTag = regexp.MustCompile(`^1\.\d+\.\d+$`)

const dockerHubTagsURL = "https://registry.hub.docker.com/v2/repositories/n8nio/n8n/tags?page_size=50&ordering=last_updated"

func (d *dockerHubVersions) Fetch(ctx context.Context) ([]versionOption, error) {
	versions := d.fetchTags(ctx)
	if len(versions) == 0 {
		return []versionOption{{ID: "latest", Name: "Última versão (latest)"}}, nil
	}
	return versions, nil
}

func (d *dockerHubVersions) fetchTags(ctx context.Context) []versionOption {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, dockerHubTagsURL, nil)
	if err != nil {
		return nil
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil
	}

	var body struct {
		Results []struct {
			Name string `json:"name"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil
	}

	seen := make(map[string]bool)
	var versions []versionOption
	for _, tag := range body.Results {
		if !semverTag.MatchString(tag.Name) || seen[tag.Name] {
			continue
		}
		seen[tag.Name] = true
		versions = append(versions, versionOption{ID: tag.Name, Name: tag.Name})
		if len(versions) >= 8 {
			break
		}
	}

	sort.Slice(versions, func(i, j int) bool {
		return semverLess(versions[j].ID, versions[i].ID)
	})
	return versions
}

// semverLess reports whether a < b for dotted-integer version strings,
// the ordering list_versions in the original sorts descending by.
func semverLess(a, b string) bool {
	pa, pb := strings.Split(a, "."), strings.Split(b, ".")
	for i := 0; i < len(pa) && i < len(pb); i++ {
		na, _ := strconv.Atoi(pa[i])
		nb, _ := strconv.Atoi(pb[i])
		if na != nb {
			return na < nb
		}
	}
	return len(pa) < len(pb)
}
