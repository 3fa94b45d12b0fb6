package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Manifest is the ordered list of resource URLs to pre-cache for offline
// availability. It is the single source of truth: only manifest resources
// are ever cached.
type Manifest struct {
	name string
	urls []string
}

// NewManifest builds a manifest under the given cache name.
func NewManifest(name string, urls []string) Manifest {
	return Manifest{name: name, urls: append([]string(nil), urls...)}
}

// URLs returns the manifest resources in order.
func (m Manifest) URLs() []string {
	return append([]string(nil), m.urls...)
}

// Label is the generation label for this manifest. It is derived from the
// manifest contents, so any edit to the resource list produces a new
// generation and Activate collects the old one; no hand-maintained version
// constant can go stale.
func (m Manifest) Label() string {
	h := sha256.Sum256([]byte(strings.Join(m.urls, "\n")))
	return m.name + "-" + hex.EncodeToString(h[:])[:12]
}
