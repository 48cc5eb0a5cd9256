// Package workspace places generated artifacts on disk and compares them with
// an existing feature root.
package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/yourorg/cleangen/pkg/types"
)

// ErrFeatureExists means the feature root is already present. Nothing is written.
var ErrFeatureExists = errors.New("feature directory already exists")

// skeleton directories are created empty for hand-written code.
var skeleton = []string{
	filepath.Join("domain", "entities"),
	filepath.Join("presentation", "pages"),
	filepath.Join("presentation", "widgets"),
}

// Write creates <outDir>/<dirName> holding artifacts. The tree is staged in a
// temporary sibling and renamed into place, so a failed batch leaves nothing
// behind.
func Write(outDir, dirName string, artifacts []types.Artifact) (string, error) {
	root := filepath.Join(outDir, dirName)
	if _, err := os.Stat(root); err == nil {
		logrus.WithField("path", root).Warn("feature directory already exists, nothing written")
		return "", fmt.Errorf("%w: %s", ErrFeatureExists, root)
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("stat feature directory: %w", err)
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	staging, err := os.MkdirTemp(outDir, "."+dirName+"-*")
	if err != nil {
		return "", fmt.Errorf("create staging directory: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			os.RemoveAll(staging)
		}
	}()

	for _, dir := range skeleton {
		if err := os.MkdirAll(filepath.Join(staging, dir), 0o755); err != nil {
			return "", fmt.Errorf("create %s: %w", dir, err)
		}
	}
	for _, a := range artifacts {
		rel, err := localPath(a.RelativePath)
		if err != nil {
			return "", err
		}
		target := filepath.Join(staging, rel)
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return "", fmt.Errorf("create directory for %s: %w", a.RelativePath, err)
		}
		if err := os.WriteFile(target, []byte(a.SourceText), 0o644); err != nil {
			return "", fmt.Errorf("write %s: %w", a.RelativePath, err)
		}
	}
	if err := os.Chmod(staging, 0o755); err != nil {
		return "", fmt.Errorf("chmod staging directory: %w", err)
	}
	if err := os.Rename(staging, root); err != nil {
		if _, statErr := os.Stat(root); statErr == nil {
			return "", fmt.Errorf("%w: %s", ErrFeatureExists, root)
		}
		return "", fmt.Errorf("move feature into place: %w", err)
	}
	committed = true

	logrus.WithFields(logrus.Fields{
		"path":  root,
		"files": len(artifacts),
	}).Info("feature written")
	return root, nil
}

// localPath rejects artifact paths that would escape the feature root.
func localPath(rel string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(rel))
	if rel == "" || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid artifact path %q", rel)
	}
	return clean, nil
}
