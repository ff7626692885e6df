package backend

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

// bytesToEtag returns a strong etag for a response body
func bytesToEtag(b []byte) string {
	sum := sha256.Sum256(b)
	return `"` + hex.EncodeToString(sum[:16]) + `"`
}

// bytesPlusTotalCountToEtag returns an etag for a filtered list. The unfiltered count is part
// of the etag, so that a change outside the filter also invalidates cached lists.
func bytesPlusTotalCountToEtag(b []byte, totalCount int) string {
	return bytesToEtag(append([]byte(strconv.Itoa(totalCount)+":"), b...))
}

// ifNoneMatchFound returns true if etag is found in ifNoneMatch. The format of ifNoneMatch is one
// of the following:
// If-None-Match: "<etag_value>"
// If-None-Match: "<etag_value>", "<etag_value>", ...
// If-None-Match: *
func ifNoneMatchFound(ifNoneMatch, etag string) bool {
	ifNoneMatch = strings.TrimSpace(ifNoneMatch)
	if len(ifNoneMatch) == 0 {
		return false
	}
	if ifNoneMatch == "*" {
		return true
	}
	t := strings.Trim(etag, " \"")
	for _, s := range strings.Split(ifNoneMatch, ",") {
		if strings.Trim(s, " \"") == t {
			return true
		}
	}
	return false
}
