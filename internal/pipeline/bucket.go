package pipeline

import (
	"crypto/sha256"
	"encoding/binary"
)

// DefaultBuckets is the bucket set used when none is configured.
var DefaultBuckets = []string{"A", "B"}

// NewABBucket assigns each request a deterministic experiment bucket.
// The identity is hashed together with the salt, so reshuffling an
// experiment is a salt change away while any single user stays in the
// same bucket across requests.
func NewABBucket(salt string, buckets []string) Middleware {
	if len(buckets) == 0 {
		buckets = DefaultBuckets
	}
	assigned := make([]string, len(buckets))
	copy(assigned, buckets)

	return func(ctx *Context, next Next) error {
		identity := bucketIdentity(ctx)
		ctx.AB = &Bucket{
			Bucket:  assignBucket(identity, salt, assigned),
			Buckets: assigned,
		}
		return next()
	}
}

// bucketIdentity picks the most specific identity available, falling
// back to a shared anonymous bucket seed.
func bucketIdentity(ctx *Context) string {
	if ctx.UserID != "" {
		return ctx.UserID
	}
	if ctx.Request.UserID != "" {
		return ctx.Request.UserID
	}
	return "anon"
}

func assignBucket(identity, salt string, buckets []string) string {
	sum := sha256.Sum256([]byte(identity + salt))
	idx := binary.BigEndian.Uint32(sum[:4]) % uint32(len(buckets))
	return buckets[idx]
}
