package staging

import (
	"path/filepath"
	"strings"

	"subtraction-builder/internal/domain"
)

// ResolvePaths computes every filesystem location one subtraction build
// touches. The working directory keeps the raw subtraction id; only the
// permanent directory uses the filesystem-safe form.
func ResolvePaths(subtractionID, fileID, dataDir, workDir string) domain.SubtractionJob {
	workingDir := filepath.Join(workDir, subtractionID)
	return domain.SubtractionJob{
		SubtractionID: subtractionID,
		FileID:        fileID,
		SourcePath:    filepath.Join(dataDir, "files", fileID),
		WorkingDir:    workingDir,
		FastaPath:     filepath.Join(workingDir, "subtraction.fa"),
		IndexPrefix:   filepath.Join(workingDir, "reference"),
		FinalDir:      filepath.Join(dataDir, "subtractions", NormalizeID(subtractionID)),
	}
}

// NormalizeID converts a subtraction id into a directory-safe name:
// spaces become underscores and letters are lower-cased.
func NormalizeID(id string) string {
	return strings.ToLower(strings.ReplaceAll(id, " ", "_"))
}
