// Package ratelimit provides per-route quota enforcement with lazily
// refilled token buckets.
//
// Rules are static configuration validated at construction. A call is
// admitted only if every matching rule can supply a token. The limiter is
// advisory: it never blocks, it only answers allowed/denied with a wait
// hint. Tokens debited before a later rule denies are not refunded; the
// check fails fast rather than providing a transactional guarantee.
package ratelimit
