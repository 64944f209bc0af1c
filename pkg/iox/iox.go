package iox

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
)

// WriteFileAtomic writes content to a temp file in the same directory as
// dstFilename, then renames it into place. A reader never observes a half
// written file.
func WriteFileAtomic(dstFilename string, content []byte) error {
	dir := filepath.Dir(dstFilename)
	tmp, err := os.CreateTemp(dir, filepath.Base(dstFilename)+".tmp*")
	if err != nil {
		return err
	}
	_, err = tmp.Write(content)
	if err2 := tmp.Close(); err == nil {
		err = err2
	}
	if err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), dstFilename); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}

// MoveFile relocates a file, preferring an atomic rename. If rename fails
// (eg source and destination are on different filesystems), we fall back to
// copy-then-delete. In the fallback there is a window where the file exists
// in both locations; callers must treat the source as authoritative until
// MoveFile returns.
func MoveFile(srcFilename, dstFilename string) error {
	if err := os.Rename(srcFilename, dstFilename); err == nil {
		return nil
	}
	src, err := os.Open(srcFilename)
	if err != nil {
		return err
	}
	dst, err := os.Create(dstFilename)
	if err != nil {
		src.Close()
		return err
	}
	_, err = io.Copy(dst, src)
	src.Close()
	if err2 := dst.Close(); err == nil {
		err = err2
	}
	if err != nil {
		os.Remove(dstFilename)
		return err
	}
	return os.Remove(srcFilename)
}

// ReadJSONFile reads filename and unmarshals it into obj.
func ReadJSONFile(filename string, obj interface{}) error {
	raw, err := os.ReadFile(filename)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, obj)
}

// WriteJSONFile marshals obj and writes it atomically to filename.
func WriteJSONFile(filename string, obj interface{}) error {
	raw, err := json.Marshal(obj)
	if err != nil {
		return err
	}
	return WriteFileAtomic(filename, raw)
}
