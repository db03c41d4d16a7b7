// Package searchcache fingerprints search requests and stores complete
// result sets for a fixed TTL so identical paid queries are not repeated.
// The cache has no owner: every caller presenting a fingerprint sees the
// same entry.
package searchcache

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/sells-group/leadscout/internal/model"
	"github.com/sells-group/leadscout/internal/normalize"
)

const fingerprintVersion = "v2"

// resultTiers are the buckets maxResults is rounded up to.
var resultTiers = []int{20, 50, 100, 200, 500}

// ResultBucket rounds n up to the nearest result tier. Counts above the top
// tier are their own bucket. A cached set is crawled to its bucket, so any
// request sharing the bucket can be served from a prefix of it.
func ResultBucket(n int) int {
	for _, t := range resultTiers {
		if n <= t {
			return t
		}
	}
	return n
}

// radiusBucketKM rounds a radius to whole kilometres, with a 1km floor.
func radiusBucketKM(meters int) int {
	km := (meters + 500) / 1000
	if km < 1 {
		return 1
	}
	return km
}

// AreaKey is the canonical area identifier used inside a fingerprint.
func AreaKey(req model.SearchRequest) string {
	if req.StateWide() {
		region := normalize.Text(req.Region)
		if code := normalize.StateCode(region); code != "" {
			region = code
		}
		return "region:" + region + "|statewide"
	}
	loc := strings.Trim(normalize.Text(req.Location), ", ")
	return fmt.Sprintf("loc:%s|r:%dkm", loc, radiusBucketKM(req.RadiusMeters))
}

// Fingerprint derives the cache key of a request from its normalized fields.
// Requests that differ only in case or whitespace fingerprint identically.
func Fingerprint(req model.SearchRequest) string {
	raw := strings.Join([]string{
		fingerprintVersion,
		normalize.Text(req.BusinessType),
		AreaKey(req),
		fmt.Sprintf("n:%d", ResultBucket(req.MaxResults)),
	}, "|")
	h := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%x", h)
}
