// Package httpapi is the REST + SSE surface: auth, validation,
// capacity/duplicate checks, enqueue, follow, CRUD, and read-only admin
// endpoints. Instance and job handlers go through the instance Manager,
// the job Store, or the Queue; the health, instance status and system
// info handlers read the runtime directly.
package httpapi
