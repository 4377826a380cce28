package redis

// Redis key naming conventions for archived jobs.
// All keys are prefixed with "taskq:" to avoid collisions.

const keyPrefix = "taskq:"

// archivedKey returns the key holding one archived job as JSON:
// taskq:archived:{id}
func archivedKey(id string) string { return keyPrefix + "archived:" + id }

// archivedIndexKey is the Sorted Set of every archived job ID, scored by
// finish time.
const archivedIndexKey = keyPrefix + "archived_idx"

// statusIndexKey returns the Sorted Set of archived job IDs with the given
// status: taskq:archived_idx:{status}
func statusIndexKey(status string) string { return archivedIndexKey + ":" + status }
