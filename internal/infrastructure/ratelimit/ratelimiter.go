// Package ratelimit throttles subscribe form submissions per client so a
// script cannot flood strangers' inboxes with confirmation mail.
package ratelimit

// RateLimiter answers whether a client identified by key may make another
// request within the sliding one-minute window.
type RateLimiter interface {
	Allow(key string, requestsPerMinute int) (bool, error)
	GetRemaining(key string, requestsPerMinute int) (int64, error)
	Reset(key string) error
}
