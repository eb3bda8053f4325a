package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ReadInputFiles loads import files from disk. Paths may be given as one
// comma-separated flag value.
func ReadInputFiles(paths []string) ([]InputFile, error) {
	var out []InputFile
	for _, p := range paths {
		for _, part := range strings.Split(p, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			blob, err := os.ReadFile(part)
			if err != nil {
				return nil, err
			}
			out = append(out, InputFile{Name: filepath.Base(part), Content: blob})
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no input files given")
	}
	return out, nil
}
