package runner

import (
	"path/filepath"
	"strings"
	"sync"

	"subgen/internal/job"
)

// claimSet assigns output paths so two jobs whose titles collide never write
// the same file. The first job keeps the natural name; later ones get the
// short job ID appended.
type claimSet struct {
	mu     sync.Mutex
	owners map[string]string
}

func newClaimSet() *claimSet {
	return &claimSet{owners: make(map[string]string)}
}

func (c *claimSet) claim(j job.Job, path string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := strings.ToLower(filepath.Clean(path))
	owner, taken := c.owners[key]
	if !taken || owner == j.ID {
		c.owners[key] = j.ID
		return path
	}
	ext := filepath.Ext(path)
	alt := strings.TrimSuffix(path, ext) + " [" + j.ShortID() + "]" + ext
	c.owners[strings.ToLower(filepath.Clean(alt))] = j.ID
	return alt
}
