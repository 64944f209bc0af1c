package articles

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cyclopcam/logs"
	"github.com/rpublish/rpublish/pkg/iox"
)

// metadataCache is the on-disk metadata index for one status. The whole set is
// held in memory (the projection is tiny, but memory grows linearly with the
// corpus - that's the documented scalability limit of this design), and every
// mutation writes through to cache/metadata/<status>/<id>.json before
// returning, so the map is never ahead of disk for longer than one write.
type metadataCache struct {
	log     logs.Log
	root    string
	entries map[string]Metadata
}

// newMetadataCache enumerates all metadata files at root. An entry that fails
// to parse is skipped with a warning; it gets rebuilt from the canonical
// article on the next write. A root that cannot be enumerated is fatal - the
// directory tree is supposed to exist before the store is constructed.
func newMetadataCache(log logs.Log, root string) (*metadataCache, error) {
	files, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("Failed to read metadata cache directory %v: %w", root, err)
	}
	c := &metadataCache{
		log:     log,
		root:    root,
		entries: map[string]Metadata{},
	}
	for _, file := range files {
		name := file.Name()
		if file.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		id := strings.TrimSuffix(name, ".json")
		meta := Metadata{}
		if err := iox.ReadJSONFile(filepath.Join(root, name), &meta); err != nil {
			log.Warnf("Skipping unparseable metadata %v: %v", filepath.Join(root, name), err)
			continue
		}
		c.entries[id] = meta
	}
	return c, nil
}

func (c *metadataCache) entryPath(id string) string {
	return filepath.Join(c.root, id+".json")
}

func (c *metadataCache) isCached(id string) bool {
	_, ok := c.entries[id]
	return ok
}

func (c *metadataCache) get(id string) (Metadata, bool) {
	meta, ok := c.entries[id]
	return meta, ok
}

// set projects the article into the cache and writes the entry through to disk.
func (c *metadataCache) set(id string, a *Article) error {
	meta := metadataOf(a)
	if err := iox.WriteJSONFile(c.entryPath(id), &meta); err != nil {
		return err
	}
	c.entries[id] = meta
	return nil
}

// remove drops the entry from memory and disk. An absent entry is not an error.
func (c *metadataCache) remove(id string) error {
	delete(c.entries, id)
	if err := os.Remove(c.entryPath(id)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
