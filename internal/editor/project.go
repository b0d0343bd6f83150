// Package editor reports which file the user was last editing in VSCodium.
package editor

import (
	"encoding/json"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// StoragePath is VSCodium's global storage file, relative to the home
// directory.
const StoragePath = ".config/VSCodium/User/globalStorage/storage.json"

// codeExtensions is the allow-list of file extensions shown in the widget.
var codeExtensions = map[string]bool{
	"js": true, "ts": true, "py": true, "rs": true, "go": true, "c": true,
	"cpp": true, "h": true, "java": true, "rb": true, "php": true, "cs": true,
	"swift": true, "kt": true, "jsx": true, "tsx": true, "vue": true,
	"svelte": true, "html": true, "css": true, "scss": true, "json": true,
	"yaml": true, "yml": true, "toml": true, "md": true, "sh": true, "lua": true,
}

type storageFile struct {
	OpenedPathsList struct {
		Workspaces3 []json.RawMessage `json:"workspaces3"`
		Entries     []json.RawMessage `json:"entries"`
	} `json:"openedPathsList"`
}

type folderEntry struct {
	FolderURI string `json:"folderUri"`
}

// RecentProject returns the first folder in VSCodium's recently opened list
// that still exists on fs.
func RecentProject(fs afero.Fs, storagePath string) (string, error) {
	data, err := afero.ReadFile(fs, storagePath)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", storagePath, err)
	}

	var storage storageFile
	if err := json.Unmarshal(data, &storage); err != nil {
		return "", fmt.Errorf("failed to parse %s: %w", storagePath, err)
	}

	entries := storage.OpenedPathsList.Workspaces3
	if len(entries) == 0 {
		entries = storage.OpenedPathsList.Entries
	}

	for _, raw := range entries {
		uri := entryURI(raw)
		if !strings.HasPrefix(uri, "file://") {
			continue
		}
		dir := uriPath(uri)
		if ok, _ := afero.DirExists(fs, dir); ok {
			return dir, nil
		}
	}
	return "", nil
}

// entryURI accepts both the plain string and the {folderUri} entry forms.
func entryURI(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var entry folderEntry
	if err := json.Unmarshal(raw, &entry); err == nil {
		return entry.FolderURI
	}
	return ""
}

func uriPath(uri string) string {
	if u, err := url.Parse(uri); err == nil && u.Path != "" {
		return u.Path
	}
	return strings.TrimPrefix(uri, "file://")
}

// NewestFile returns the most recently modified non-hidden regular file in
// dir whose extension is on the allow-list. Only dir itself is scanned.
func NewestFile(fs afero.Fs, dir string) (string, error) {
	infos, err := afero.ReadDir(fs, dir)
	if err != nil {
		return "", fmt.Errorf("failed to list %s: %w", dir, err)
	}

	var newest string
	var newestMod int64
	for _, info := range infos {
		name := info.Name()
		if strings.HasPrefix(name, ".") || !info.Mode().IsRegular() {
			continue
		}
		ext := strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))
		if !codeExtensions[ext] {
			continue
		}
		if mod := info.ModTime().UnixNano(); newest == "" || mod > newestMod {
			newest, newestMod = filepath.Join(dir, name), mod
		}
	}
	return newest, nil
}
