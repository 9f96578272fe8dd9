package httpapi

// handlers holds the dependencies every endpoint needs. Methods are
// split across files by the same grouping routes.py used: info, jobs,
// instance CRUD/operations, admin.
type handlers struct {
	d Deps
}
