package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/yourorg/cleangen/pkg/types"
)

// Status of one artifact relative to the files on disk.
type Status string

const (
	StatusAdded    Status = "added"
	StatusModified Status = "modified"
)

// Op marks a diff line.
type Op byte

const (
	OpEqual  Op = ' '
	OpInsert Op = '+'
	OpDelete Op = '-'
)

// Line is one line of a file diff, without its trailing newline.
type Line struct {
	Op   Op
	Text string
}

// FileDiff describes an artifact that differs from disk. Lines runs from the
// file on disk to the regenerated text.
type FileDiff struct {
	Path   string
	Status Status
	Lines  []Line
}

// Changed counts inserted and deleted lines.
func (d FileDiff) Changed() (inserted, deleted int) {
	for _, l := range d.Lines {
		switch l.Op {
		case OpInsert:
			inserted++
		case OpDelete:
			deleted++
		}
	}
	return inserted, deleted
}

// Diff compares artifacts with the files under root. Unchanged artifacts are
// omitted; files on disk that are not artifacts are ignored.
func Diff(root string, artifacts []types.Artifact) ([]FileDiff, error) {
	dmp := diffmatchpatch.New()
	var out []FileDiff
	for _, a := range artifacts {
		rel, err := localPath(a.RelativePath)
		if err != nil {
			return nil, err
		}
		current, err := os.ReadFile(filepath.Join(root, rel))
		status := StatusModified
		switch {
		case errors.Is(err, os.ErrNotExist):
			status = StatusAdded
		case err != nil:
			return nil, fmt.Errorf("read %s: %w", a.RelativePath, err)
		case string(current) == a.SourceText:
			continue
		}
		out = append(out, FileDiff{
			Path:   a.RelativePath,
			Status: status,
			Lines:  lineDiff(dmp, string(current), a.SourceText),
		})
	}
	return out, nil
}

func lineDiff(dmp *diffmatchpatch.DiffMatchPatch, from, to string) []Line {
	a, b, lines := dmp.DiffLinesToChars(from, to)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var out []Line
	for _, d := range diffs {
		op := OpEqual
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			op = OpInsert
		case diffmatchpatch.DiffDelete:
			op = OpDelete
		}
		for _, text := range strings.SplitAfter(d.Text, "\n") {
			if text == "" {
				continue
			}
			out = append(out, Line{Op: op, Text: strings.TrimSuffix(text, "\n")})
		}
	}
	return out
}
