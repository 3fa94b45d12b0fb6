// Package cache implements the versioned resource cache that keeps the
// application's static resources available offline. Resources live on disk
// under one directory per generation; exactly one generation is current.
//
// Lifecycle mirrors the host runtime's hooks: Install eagerly materializes
// the manifest, Serve answers resource requests cache-first, Activate
// garbage-collects every non-current generation.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/tama-audit/auditor/internal/logging"
)

// Response is a served resource. FromCache distinguishes a cache hit from a
// network fallback.
type Response struct {
	URL         string `json:"url"`
	StatusCode  int    `json:"status_code"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
	FromCache   bool   `json:"-"`
}

// Cache is the on-disk resource cache for one origin.
type Cache struct {
	root     string
	origin   *url.URL
	manifest Manifest
	client   *http.Client
	log      logging.Logger

	mu sync.Mutex // guards install/activate directory juggling
}

// New returns a cache rooted at root for resources resolved against origin.
// A nil client falls back to http.DefaultClient.
func New(root, origin string, manifest Manifest, client *http.Client, log logging.Logger) (*Cache, error) {
	base, err := url.Parse(origin)
	if err != nil {
		return nil, fmt.Errorf("parse origin %s: %w", origin, err)
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Cache{
		root:     root,
		origin:   base,
		manifest: manifest,
		client:   client,
		log:      log.With("component", "cache"),
	}, nil
}

// Label returns the current generation label.
func (c *Cache) Label() string {
	return c.manifest.Label()
}

func (c *Cache) generationDir() string {
	return filepath.Join(c.root, c.manifest.Label())
}

func entryFile(rawURL string) string {
	h := sha256.Sum256([]byte(rawURL))
	return hex.EncodeToString(h[:]) + ".json"
}

func (c *Cache) resolve(rawURL string) (string, error) {
	ref, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse resource url %s: %w", rawURL, err)
	}
	return c.origin.ResolveReference(ref).String(), nil
}

func (c *Cache) fetch(ctx context.Context, rawURL string) (*Response, error) {
	target, err := c.resolve(rawURL)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build request %s: %w", target, err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", target, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", target, err)
	}

	return &Response{
		URL:         rawURL,
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}

// Install materializes every manifest resource into the current generation.
// Population is atomic: resources are fetched into a staging directory that
// only becomes the generation directory once every resource landed. Any
// single failure aborts the whole install and no partially populated
// generation ever becomes current. Re-installing an existing generation is
// a no-op.
func (c *Cache) Install(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	dir := c.generationDir()
	if _, err := os.Stat(dir); err == nil {
		return nil
	}

	staging := filepath.Join(c.root, ".tmp-"+c.manifest.Label())
	if err := os.MkdirAll(staging, 0o770); err != nil {
		return fmt.Errorf("create staging dir: %w", err)
	}

	for _, rawURL := range c.manifest.URLs() {
		entry, err := c.fetch(ctx, rawURL)
		if err != nil {
			_ = os.RemoveAll(staging)
			return fmt.Errorf("install %s: %w", rawURL, err)
		}
		if entry.StatusCode < 200 || entry.StatusCode >= 300 {
			_ = os.RemoveAll(staging)
			return fmt.Errorf("install %s: unexpected status %d", rawURL, entry.StatusCode)
		}
		if err := writeEntry(filepath.Join(staging, entryFile(rawURL)), entry); err != nil {
			_ = os.RemoveAll(staging)
			return fmt.Errorf("install %s: %w", rawURL, err)
		}
	}

	if err := os.Rename(staging, dir); err != nil {
		_ = os.RemoveAll(staging)
		return fmt.Errorf("promote generation %s: %w", c.manifest.Label(), err)
	}

	c.log.Info(ctx, "cache generation installed",
		"generation", c.manifest.Label(), "resources", len(c.manifest.URLs()))
	return nil
}

// Serve answers a resource request cache-first: an exact-URL hit in the
// current generation is returned verbatim, with no revalidation. A miss
// falls through to the network and the result is returned WITHOUT being
// cached; only Install ever populates the cache.
func (c *Cache) Serve(ctx context.Context, rawURL string) (*Response, error) {
	if entry, err := readEntry(filepath.Join(c.generationDir(), entryFile(rawURL))); err == nil {
		entry.FromCache = true
		return entry, nil
	}

	entry, err := c.fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// Activate deletes every generation whose label differs from the current
// one, staging leftovers included. This is the only garbage collection the
// cache has; there is no per-entry expiry. Idempotent.
func (c *Cache) Activate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries, err := os.ReadDir(c.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read cache root: %w", err)
	}

	current := c.manifest.Label()
	for _, e := range entries {
		if !e.IsDir() || e.Name() == current {
			continue
		}
		if err := os.RemoveAll(filepath.Join(c.root, e.Name())); err != nil {
			return fmt.Errorf("delete stale generation %s: %w", e.Name(), err)
		}
		c.log.Info(ctx, "stale cache generation deleted", "generation", e.Name())
	}
	return nil
}

// Generations lists the generation directories currently on disk.
func (c *Cache) Generations() ([]string, error) {
	entries, err := os.ReadDir(c.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".tmp-") {
			out = append(out, e.Name())
		}
	}
	return out, nil
}

func writeEntry(path string, entry *Response) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o660)
}

func readEntry(path string) (*Response, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var entry Response
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}
