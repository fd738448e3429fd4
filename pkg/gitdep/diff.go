package gitdep

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/projectsyn/commodore-go/pkg/cerrors"
)

// DiffFunc renders a unified diff between two blob contents for a path.
// Catalog writing (spec.md §4.H) substitutes a semantic-aware DiffFunc;
// the Git Dependency Manager's own stage_all uses DefaultDiff.
type DiffFunc func(path string, oldContent, newContent []byte) (string, bool)

// DefaultDiff renders an unordered, unsuppressed unified diff.
func DefaultDiff(path string, oldContent, newContent []byte) (string, bool) {
	if bytes.Equal(oldContent, newContent) {
		return "", false
	}
	return unifiedDiff(path, oldContent, newContent), true
}

func unifiedDiff(path string, oldContent, newContent []byte) string {
	dmp := diffmatchpatch.New()
	oldLines, newLines, lines := dmp.DiffLinesToChars(string(oldContent), string(newContent))
	diffs := dmp.DiffMain(oldLines, newLines, false)
	diffs = dmp.DiffCharsToLines(diffs, lines)

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "--- a/%s\n+++ b/%s\n", path, path)
	for _, d := range diffs {
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			switch d.Type {
			case diffmatchpatch.DiffInsert:
				buf.WriteString(color.GreenString("+%s", line))
			case diffmatchpatch.DiffDelete:
				buf.WriteString(color.RedString("-%s", line))
			case diffmatchpatch.DiffEqual:
				buf.WriteString(" " + line)
			}
		}
	}
	return buf.String()
}

// StageResult is the outcome of StageAll.
type StageResult struct {
	Diff    string
	Changed bool
}

// StageAll stages untracked, modified, and deleted paths in dir against the
// current HEAD (or the empty tree if the repository has no commits yet),
// returning a coloured unified diff (spec.md §4.A "stage_all"). A
// merge-conflict entry in the index aborts with cerrors.KindMergeConflict
// naming the first conflicting path.
func StageAll(dir string, diffFn DiffFunc, ignore func(path string) bool) (*StageResult, error) {
	if diffFn == nil {
		diffFn = DefaultDiff
	}

	repo, err := git.PlainOpen(dir)
	if err != nil {
		return nil, cerrors.Dependency(err, "opening catalog worktree %s", dir)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, cerrors.Dependency(err, "getting worktree handle for %s", dir)
	}

	status, err := wt.Status()
	if err != nil {
		return nil, cerrors.Dependency(err, "computing status for %s", dir)
	}

	var headTree *object.Tree
	if head, err := repo.Head(); err == nil {
		commit, err := repo.CommitObject(head.Hash())
		if err == nil {
			headTree, _ = commit.Tree()
		}
	}

	var diffBuf strings.Builder
	changed := false

	paths := make([]string, 0, len(status))
	for p := range status {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, p := range paths {
		if ignore != nil && ignore(p) {
			continue
		}
		fileStatus := status[p]
		if fileStatus.Staging == git.UpdatedButUnmerged || fileStatus.Worktree == git.UpdatedButUnmerged {
			return nil, cerrors.MergeConflict(p)
		}

		oldContent := readBlobByPath(headTree, p)
		var newContent []byte
		if fileStatus.Worktree != git.Deleted {
			newContent, _ = readWorktreeFile(wt, dir, p)
		}

		if _, err := wt.Add(p); err != nil {
			if fileStatus.Worktree == git.Deleted {
				_, _ = wt.Remove(p)
			} else {
				return nil, cerrors.Dependency(err, "staging %s", p)
			}
		}

		d, ch := diffFn(p, oldContent, newContent)
		if ch {
			changed = true
			diffBuf.WriteString(d)
		}
	}

	return &StageResult{Diff: diffBuf.String(), Changed: changed}, nil
}

func readBlobByPath(tree *object.Tree, path string) []byte {
	if tree == nil {
		return nil
	}
	f, err := tree.File(path)
	if err != nil {
		return nil
	}
	r, err := f.Reader()
	if err != nil {
		return nil
	}
	defer r.Close()
	data, _ := io.ReadAll(r)
	return data
}

func readWorktreeFile(wt *git.Worktree, dir, path string) ([]byte, error) {
	f, err := wt.Filesystem.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
