package gitstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/pmezard/go-difflib/difflib"

	"plotline/internal/store"
)

// PendingChanges reports files that differ from HEAD before a commit, with
// a unified diff per file. A write without a subsequent CommitAll is only
// recoverable from the working tree; this is the inspection window for that
// state. Ignored workspace files never show up.
func (s *Service) PendingChanges(projectID string) ([]store.PendingChange, error) {
	dir := s.layout.ProjectDir(projectID)
	repo, err := git.PlainOpen(dir)
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return []store.PendingChange{}, nil
		}
		return nil, fmt.Errorf("open repo: %w", err)
	}
	worktree, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("open worktree: %w", err)
	}
	status, err := worktree.Status()
	if err != nil {
		return nil, fmt.Errorf("read status: %w", err)
	}

	var headCommit *object.Commit
	if ref, err := repo.Head(); err == nil {
		if commitObj, err := repo.CommitObject(ref.Hash()); err == nil {
			headCommit = commitObj
		}
	}

	changes := []store.PendingChange{}
	for path, fileStatus := range status {
		state := pendingState(fileStatus)
		if state == "" {
			continue
		}
		diffText, err := pendingDiff(headCommit, dir, path, state)
		if err != nil {
			return nil, err
		}
		changes = append(changes, store.PendingChange{Path: path, State: state, Diff: diffText})
	}
	sort.Slice(changes, func(i, j int) bool {
		return changes[i].Path < changes[j].Path
	})
	return changes, nil
}

func pendingState(fileStatus *git.FileStatus) string {
	code := fileStatus.Staging
	if code == git.Unmodified || code == git.Untracked {
		code = fileStatus.Worktree
	}
	switch code {
	case git.Untracked, git.Added:
		return "added"
	case git.Modified, git.Renamed, git.Copied:
		return "modified"
	case git.Deleted:
		return "deleted"
	}
	return ""
}

// pendingDiff renders old (HEAD blob) against new (worktree bytes). There is
// no commit object for the new side yet, so this goes through a plain text
// differ instead of the repository's patch encoder.
func pendingDiff(headCommit *object.Commit, dir, path, state string) (string, error) {
	var oldText string
	if state != "added" && headCommit != nil {
		file, err := headCommit.File(path)
		if err == nil {
			oldText, err = file.Contents()
			if err != nil {
				return "", fmt.Errorf("read head blob %s: %w", path, err)
			}
		} else if !errors.Is(err, object.ErrFileNotFound) {
			return "", fmt.Errorf("lookup head blob %s: %w", path, err)
		}
	}

	var newText string
	if state != "deleted" {
		data, err := os.ReadFile(filepath.Join(dir, path))
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("read worktree file %s: %w", path, err)
		}
		newText = string(data)
	}

	unified := difflib.UnifiedDiff{
		A:        difflib.SplitLines(oldText),
		B:        difflib.SplitLines(newText),
		FromFile: "a/" + path,
		ToFile:   "b/" + path,
		Context:  3,
	}
	text, err := difflib.GetUnifiedDiffString(unified)
	if err != nil {
		return "", fmt.Errorf("render diff %s: %w", path, err)
	}
	return text, nil
}
