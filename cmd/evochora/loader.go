package main

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// fileLoader backs compiler.Loader with the filesystem, resolving every
// path (the entry file and every `.REQUIRE`/`.INCLUDE` target) relative to
// one base directory -- the directory the entry file itself lives in,
// mirroring the teacher's own single-working-directory relative include
// resolution (github.com/db47h/ngaro has no multi-file includes, but its
// cmd/retro/main.go resolves -with files relative to the process's cwd the
// same unqualified way).
type fileLoader struct {
	baseDir string
}

func newFileLoader(entry string) *fileLoader {
	return &fileLoader{baseDir: filepath.Dir(entry)}
}

func (l *fileLoader) ReadFile(path string) (string, error) {
	full := path
	if !filepath.IsAbs(path) {
		full = filepath.Join(l.baseDir, path)
	}
	b, err := os.ReadFile(full)
	if err != nil {
		return "", errors.Wrapf(err, "reading %s", full)
	}
	return string(b), nil
}
