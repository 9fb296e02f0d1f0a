package schema

import (
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
)

// File permission constants.
const (
	dirPerm  = 0o755
	filePerm = 0o644
)

// GeneratedFile is one rendered schema file.
type GeneratedFile struct {
	// Filename is relative to the output directory (e.g., "monster.fbs").
	Filename string
	// Content is the schema text.
	Content []byte
}

// WriteFiles writes all generated files to the output directory.
// It creates the directory if it doesn't exist.
func WriteFiles(files []GeneratedFile, outputDir string) error {
	if err := os.MkdirAll(outputDir, dirPerm); err != nil {
		return errors.Wrap(err, "creating output directory")
	}

	for _, file := range files {
		outputPath := filepath.Join(outputDir, file.Filename)

		if err := os.MkdirAll(filepath.Dir(outputPath), dirPerm); err != nil {
			return errors.Wrapf(err, "creating directory for %s", file.Filename)
		}

		if err := os.WriteFile(outputPath, file.Content, filePerm); err != nil {
			return errors.Wrapf(err, "writing file %s", file.Filename)
		}
	}

	return nil
}
