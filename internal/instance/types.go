package instance

// View is what the HTTP surface returns for a single managed instance.
type View struct {
	InstanceID string `json:"instance_id"`
	Name       string `json:"name"`
	Status     string `json:"status"`
	URL        string `json:"url"`
	Location   string `json:"location"`
	Version    string `json:"version"`
	ContainerID string `json:"container_id"`
	CreatedAt  string `json:"created_at,omitempty"`
	AgeDays    *int   `json:"age_days"`
}

// VPSInfo describes the host-level figures capacity math was computed
// from.
type VPSInfo struct {
	TotalRAMMB      int64 `json:"total_ram_mb"`
	TotalCPUs       int   `json:"total_cpus"`
	ReservedRAMMB   int64 `json:"reserved_ram_mb"`
	PerInstanceRAMMB int64 `json:"per_instance_ram_mb"`
}

// Capacity is the admission-control snapshot: how many instances this
// host can run, how many are running now, and whether one more fits.
type Capacity struct {
	MaxInstances    int    `json:"max_instances"`
	ActiveInstances int    `json:"active_instances"`
	CanCreate       bool   `json:"can_create"`
	Instances       []View `json:"instances"`
	VPS             VPSInfo `json:"vps"`
}

// CleanupPreviewEntry augments a View with the sweeper's projection of
// whether (and when) it would be evicted.
type CleanupPreviewEntry struct {
	View
	WillBeDeleted bool `json:"will_be_deleted"`
	DaysRemaining int  `json:"days_remaining"`
}
