package config

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

func exists(path string) (isDir bool, ok bool, err error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false, false, nil
	}
	if err != nil {
		return false, false, err
	}
	return info.IsDir(), true, nil
}

func configFilePaths(opts Options, mode Mode) (files []string) {
	for _, name := range mode.fileNames(opts.FileName) {
		file := filepath.Join(opts.BasePath, name+"."+opts.FileType)
		if isDir, ok, _ := exists(file); ok && !isDir {
			files = append(files, file)
		}
	}
	return files
}

// allConfigFilePaths loads every base name found under BasePath, "config"
// first and the rest alphabetically.
func allConfigFilePaths(opts Options, mode Mode) (files []string) {
	baseNames := configBaseNames(opts.BasePath, opts.FileType)
	if len(baseNames) == 0 {
		return nil
	}
	sort.Strings(baseNames)
	baseNames = moveFirst(baseNames, opts.FileName)

	seen := make(map[string]struct{}, len(baseNames))
	for _, baseName := range baseNames {
		tempOpts := opts
		tempOpts.FileName = baseName
		for _, path := range configFilePaths(tempOpts, mode) {
			if _, ok := seen[path]; ok {
				continue
			}
			seen[path] = struct{}{}
			files = append(files, path)
		}
	}
	return files
}

func configBaseNames(basePath, fileType string) []string {
	entries, err := os.ReadDir(basePath)
	if err != nil {
		return nil
	}

	suffix := "." + fileType
	seen := make(map[string]struct{})
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), suffix) {
			continue
		}
		base := stripConfigSuffix(strings.TrimSuffix(entry.Name(), suffix))
		if base != "" {
			seen[base] = struct{}{}
		}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	return names
}

func stripConfigSuffix(name string) string {
	name = strings.TrimSuffix(name, ".local")
	for _, suffix := range []string{".development", ".dev", ".production", ".prod", ".pro", ".test"} {
		if strings.HasSuffix(name, suffix) {
			return strings.TrimSuffix(name, suffix)
		}
	}
	return name
}

func moveFirst(names []string, first string) []string {
	idx := -1
	for i, name := range names {
		if name == first {
			idx = i
			break
		}
	}
	if idx <= 0 {
		return names
	}

	out := make([]string, 0, len(names))
	out = append(out, first)
	out = append(out, names[:idx]...)
	return append(out, names[idx+1:]...)
}
