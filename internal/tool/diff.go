package tool

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// fileDiff summarizes one file change for tool metadata.
type fileDiff struct {
	Patch     string
	Additions int
	Deletions int
}

// diffFile computes a line-level patch between two versions of a file
// plus added and deleted line counts. When a path is given the patch
// carries ---/+++ headers naming the file relative to baseDir.
func diffFile(path, before, after, baseDir string) fileDiff {
	if before == after {
		return fileDiff{}
	}

	dmp := diffmatchpatch.New()
	src, dst, lineIndex := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(src, dst, false), lineIndex)

	var d fileDiff
	for _, chunk := range diffs {
		switch chunk.Type {
		case diffmatchpatch.DiffInsert:
			d.Additions += lineCount(chunk.Text)
		case diffmatchpatch.DiffDelete:
			d.Deletions += lineCount(chunk.Text)
		}
	}

	patch := dmp.PatchToText(dmp.PatchMake(before, diffs))
	if patch == "" {
		return d
	}
	if name := displayPath(path, baseDir); name != "" {
		patch = fmt.Sprintf("--- %s\n+++ %s\n%s", name, name, patch)
	}
	d.Patch = patch
	return d
}

func displayPath(path, baseDir string) string {
	if path == "" || baseDir == "" {
		return path
	}
	rel, err := filepath.Rel(baseDir, path)
	if err != nil {
		return path
	}
	return rel
}

func lineCount(text string) int {
	if text == "" {
		return 0
	}
	n := strings.Count(text, "\n")
	if !strings.HasSuffix(text, "\n") {
		n++
	}
	return n
}
