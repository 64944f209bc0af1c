package server

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cyclopcam/logs"
)

// The directories that must exist under the data root before any store is
// constructed. The stores treat a missing directory as fatal, so bootstrap
// happens here, once, up front.
var storageTree = []string{
	"auth",
	"articles",
	"articles/draft",
	"articles/published",
	"cache",
	"cache/metadata",
	"cache/metadata/draft",
	"cache/metadata/published",
	"public",
	"public/images",
	"public/files",
	"logs",
}

// SetupStorage checks-or-creates the data directory tree at root.
// A path that exists but is not a directory is fatal; we refuse to guess.
func SetupStorage(log logs.Log, root string) error {
	if err := gracefulMkdir(root); err != nil {
		return err
	}
	for _, dir := range storageTree {
		if err := gracefulMkdir(filepath.Join(root, dir)); err != nil {
			return err
		}
	}
	log.Infof("Data directory '%v' ready", root)
	return nil
}

func gracefulMkdir(dir string) error {
	st, err := os.Stat(dir)
	if err == nil {
		if !st.IsDir() {
			return fmt.Errorf("Storage path '%v' exists but is not a directory", dir)
		}
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("Failed to inspect storage path '%v': %w", dir, err)
	}
	if err := os.MkdirAll(dir, 0770); err != nil {
		return fmt.Errorf("Failed to create storage path '%v': %w", dir, err)
	}
	return nil
}
