package storage

import (
	"os"
	"time"
)

// FileInfo describes one data file backing the service.
type FileInfo struct {
	Path    string    `json:"path"`
	Bytes   int64     `json:"bytes"`
	ModTime time.Time `json:"mod_time"`
	Exists  bool      `json:"exists"`
}

// DataFiles stats each non-empty path. Missing files are reported with
// Exists=false; other stat errors are returned.
func DataFiles(paths ...string) ([]FileInfo, int64, error) {
	var total int64
	out := make([]FileInfo, 0, len(paths))
	for _, p := range paths {
		if p == "" {
			continue
		}
		info, err := os.Stat(p)
		if os.IsNotExist(err) {
			out = append(out, FileInfo{Path: p})
			continue
		}
		if err != nil {
			return nil, 0, err
		}
		out = append(out, FileInfo{Path: p, Bytes: info.Size(), ModTime: info.ModTime(), Exists: true})
		total += info.Size()
	}
	return out, total, nil
}
