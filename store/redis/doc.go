// Package redis implements store.Archive on Redis with go-redis.
//
// Each archived job is a JSON string under taskq:archived:{id}. A sorted
// set indexes every job by finish time, and one sorted set per terminal
// status serves status-filtered listing and counting. Writes go through a
// MULTI/EXEC pipeline so the record and its indexes change together.
//
// The caller owns the client; Close does not close it.
//
//	rdb := goredis.NewClient(&goredis.Options{Addr: "localhost:6379"})
//	archive := redis.New(rdb)
//	if err := archive.Ping(ctx); err != nil { ... }
package redis
