// Package cache memoizes the expensive artifacts of one repository episode:
// fetched file bodies, the assembled prompt and the generated output.
package cache

import (
	"maps"
	"sync"
)

// Stage identifies one memoized boundary of the generation pipeline
type Stage int

const (
	RepoFileContents Stage = iota
	FinalPrompt
	GeneratedContent
)

func (s Stage) String() string {
	switch s {
	case RepoFileContents:
		return "repoFileContents"
	case FinalPrompt:
		return "finalPrompt"
	case GeneratedContent:
		return "generatedContent"
	default:
		return "unknown"
	}
}

// slot is an optional string; set distinguishes "cached empty" from "absent"
type slot struct {
	value string
	set   bool
}

// Cache holds the artifacts for exactly one repository. A different
// repository always gets a new Cache, so stale entries never cross episodes.
type Cache struct {
	mu         sync.RWMutex
	repository string
	stages     [3]slot
	files      map[string]string
}

// New starts a fresh episode for repository ("owner/repo")
func New(repository string) *Cache {
	return &Cache{
		repository: repository,
		files:      make(map[string]string),
	}
}

// Repository returns the repository this episode belongs to
func (c *Cache) Repository() string {
	return c.repository
}

// Get returns the cached value for stage and whether it was present
func (c *Cache) Get(stage Stage) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := c.stages[stage]
	return s.value, s.set
}

// Has reports whether stage is cached
func (c *Cache) Has(stage Stage) bool {
	_, ok := c.Get(stage)
	return ok
}

// Set stores value for stage
func (c *Cache) Set(stage Stage, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stages[stage] = slot{value: value, set: true}
}

// Clear removes one stage. Clearing GeneratedContent also removes
// FinalPrompt; clearing RepoFileContents also drops the per-path bodies.
func (c *Cache) Clear(stage Stage) {
	switch stage {
	case GeneratedContent:
		c.ClearGenerated()
	case RepoFileContents:
		c.ClearRepo()
	default:
		c.mu.Lock()
		c.stages[stage] = slot{}
		c.mu.Unlock()
	}
}

// ClearGenerated drops the generated output and the prompt it came from,
// keeping the fetched repository contents.
func (c *Cache) ClearGenerated() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stages[GeneratedContent] = slot{}
	c.stages[FinalPrompt] = slot{}
}

// ClearRepo drops the fetched repository contents and the per-path bodies
func (c *Cache) ClearRepo() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stages[RepoFileContents] = slot{}
	c.files = make(map[string]string)
}

// File returns the decoded body of path if it was fetched this episode
func (c *Cache) File(path string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	body, ok := c.files[path]
	return body, ok
}

// MergeFiles adds fetched bodies to the per-path map, replacing existing paths
func (c *Cache) MergeFiles(files map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	maps.Copy(c.files, files)
}

// Files returns a copy of the per-path map
func (c *Cache) Files() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return maps.Clone(c.files)
}
