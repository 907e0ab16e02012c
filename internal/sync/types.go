// Package sync defines the wire types of the push/pull protocol and the
// classification of incoming change batches.
package sync

// Operation names accepted in a pushed change.
const (
	OperationCreate = "create"
	OperationUpdate = "update"
	OperationDelete = "delete"
)

// Conflict classifications reported to clients. both_modified is
// informational under the local-first policy; deleted_on_server blocks
// the change.
const (
	ConflictBothModified    = "both_modified"
	ConflictDeletedOnServer = "deleted_on_server"
)

// Change is one client-side mutation. For creates the server ID is blank
// and LocalID identifies the row on the device; updates and deletes carry
// the server ID assigned by an earlier push.
type Change struct {
	EntityType     string         `json:"entityType"`
	Operation      string         `json:"operation"`
	LocalID        string         `json:"localId"`
	ServerID       string         `json:"serverId,omitempty"`
	Data           map[string]any `json:"data,omitempty"`
	LocalUpdatedAt string         `json:"localUpdatedAt,omitempty"`
}

// Result is the per-change outcome echoed back to the client. Failed
// changes stay in the accepted list with Success=false so the client can
// match every pushed change to an outcome; blocked conflicts appear only
// in the conflicts list.
type Result struct {
	EntityType string `json:"entityType"`
	Operation  string `json:"operation"`
	LocalID    string `json:"localId"`
	ServerID   string `json:"serverId,omitempty"`
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
}

// Conflict describes a divergence detected while applying a change.
type Conflict struct {
	EntityType      string         `json:"entityType"`
	LocalID         string         `json:"localId"`
	ServerID        string         `json:"serverId,omitempty"`
	ConflictType    string         `json:"conflictType"`
	LocalData       map[string]any `json:"localData,omitempty"`
	ServerData      map[string]any `json:"serverData,omitempty"`
	LocalUpdatedAt  string         `json:"localUpdatedAt,omitempty"`
	ServerUpdatedAt string         `json:"serverUpdatedAt,omitempty"`
}

// PushRequest is the body of POST /api/v1/sync/push.
type PushRequest struct {
	Changes []Change `json:"changes"`
}

// PushResponse reports the outcome of every pushed change plus the server
// timestamp the client should store as its next pull watermark.
type PushResponse struct {
	Accepted   []Result   `json:"accepted"`
	Conflicts  []Conflict `json:"conflicts"`
	ServerTime string     `json:"serverTime"`
}

// PullRequest is the body of POST /api/v1/sync/pull. LastSyncTimes maps
// each requested entity type to its watermark; an empty watermark asks
// for a full snapshot of that type. Unknown types are skipped silently.
type PullRequest struct {
	LastSyncTimes map[string]string `json:"lastSyncTimes"`
	Limit         int               `json:"limit,omitempty"`
}

// EntityData is one pulled row serialized to its flat wire form: id, the
// entity's fields, bookkeeping timestamps and an operation hint ("create"
// for snapshot pulls, "update" for incremental ones).
type EntityData map[string]any

// PullResponse carries server-side changes newer than each watermark.
// HasMore is true when any requested type was truncated at the limit.
type PullResponse struct {
	Changes    map[string][]EntityData `json:"changes"`
	ServerTime string                  `json:"serverTime"`
	HasMore    bool                    `json:"hasMore"`
}

// StatusResponse summarizes the server-side dataset for one user.
type StatusResponse struct {
	EntityCounts map[string]int `json:"entityCounts"`
}

// GroupByType buckets a batch by entity type, preserving the client's
// submission order within each bucket. Callers replay the buckets in the
// registry's fixed apply order; types absent from the batch simply yield
// empty buckets.
func GroupByType(changes []Change) map[string][]Change {
	grouped := make(map[string][]Change)
	for _, c := range changes {
		grouped[c.EntityType] = append(grouped[c.EntityType], c)
	}
	return grouped
}
