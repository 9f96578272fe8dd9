package worker

// Payload is the JSON body published to the instance_creation queue,
// immutable once enqueued.
type Payload struct {
	JobID    string `json:"job_id"`
	Name     string `json:"name"`
	Version  string `json:"version"`
	Location string `json:"location"`
}
