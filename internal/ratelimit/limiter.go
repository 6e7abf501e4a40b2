package ratelimit

import "context"

// Limiter decides whether a client identified by key may make another
// request within the current window. remaining is the number of requests
// the client has left after this one (0 when the request is rejected).
type Limiter interface {
	Allow(ctx context.Context, key string) (remaining int, ok bool, err error)
	Limit() int
}
