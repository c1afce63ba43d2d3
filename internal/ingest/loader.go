// Document loading from the filesystem.
package ingest

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// loadableExt lists file extensions treated as ingestible text.
var loadableExt = map[string]struct{}{
	".txt":      {},
	".md":       {},
	".markdown": {},
}

// LoadDocuments walks dir recursively and returns one Document per text file
// (.txt, .md), using the path relative to dir as the source id. Files are
// returned in lexical walk order so repeated runs see the same sequence.
func LoadDocuments(dir string) ([]Document, error) {
	var docs []Document
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if _, ok := loadableExt[strings.ToLower(filepath.Ext(path))]; !ok {
			return nil
		}
		b, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			rel = path
		}
		docs = append(docs, Document{ID: filepath.ToSlash(rel), Text: string(b)})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return docs, nil
}
