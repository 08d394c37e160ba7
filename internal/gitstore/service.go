package gitstore

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/format/diff"
	"github.com/go-git/go-git/v5/plumbing/object"

	"plotline/internal/store"
)

// Commits are system-attributed. End-user identity never reaches the
// repository layer.
const (
	authorName    = "Plotline"
	authorEmail   = "plotline@localhost"
	defaultBranch = "main"
)

// Ignore rules written at init. Chat workspaces are scratch space for
// agent-produced files and stay out of history.
const ignoreRules = "# chat workspaces are scratch space, not tracked documents\n" +
	"roadmaps/*/chats/*/workspace/\n"

// Service is the git-backed document store. One project is one repository
// under the base directory: documents are plain JSON files inside it, every
// durable change is a commit, named checkpoints are annotated tags. The
// service never logs and never retries; every failure surfaces to the
// caller of the failing operation.
type Service struct {
	layout Layout
	locks  *projectLocks
}

func New(baseDir string) *Service {
	return &Service{
		layout: NewLayout(baseDir),
		locks:  newProjectLocks(),
	}
}

// Layout exposes the path resolver for collaborators (backup, export) that
// read project trees directly.
func (s *Service) Layout() Layout {
	return s.layout
}

// InitProject creates the project directory with its roadmap and template
// containers, initializes the repository with the synthetic author identity
// and ignore rules, writes the project document and produces the first
// commit. Calling it again for an initialized project returns the current
// HEAD without touching anything.
//
// Any step failure means the project storage is unusable; callers surface
// it instead of retrying a partial init.
func (s *Service) InitProject(project *store.Project) (string, error) {
	lock := s.locks.get(project.ID)
	lock.Lock()
	defer lock.Unlock()

	dir := s.layout.ProjectDir(project.ID)
	if _, err := os.Stat(filepath.Join(dir, git.GitDirName)); err == nil {
		return s.headRevision(dir)
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("stat project dir: %w", err)
	}

	if err := os.MkdirAll(s.layout.RoadmapsDir(project.ID), 0o755); err != nil {
		return "", fmt.Errorf("create roadmaps dir: %w", err)
	}
	if err := os.MkdirAll(s.layout.TemplatesDir(project.ID), 0o755); err != nil {
		return "", fmt.Errorf("create templates dir: %w", err)
	}

	repo, err := git.PlainInit(dir, false)
	if err != nil {
		return "", fmt.Errorf("init repo: %w", err)
	}
	if err := configureIdentity(repo); err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(dir, ".gitignore"), []byte(ignoreRules), 0o644); err != nil {
		return "", fmt.Errorf("write ignore rules: %w", err)
	}
	if err := writeDocument(s.layout.ProjectFile(project.ID), project); err != nil {
		return "", err
	}

	hash, err := stageAndCommit(repo, "Initial setup")
	if err != nil {
		return "", err
	}
	if err := repo.Storer.SetReference(plumbing.NewHashReference(plumbing.NewBranchReferenceName(defaultBranch), hash)); err != nil {
		return "", fmt.Errorf("set %s branch ref: %w", defaultBranch, err)
	}
	if err := repo.Storer.SetReference(plumbing.NewSymbolicReference(plumbing.HEAD, plumbing.NewBranchReferenceName(defaultBranch))); err != nil {
		return "", fmt.Errorf("set HEAD to %s: %w", defaultBranch, err)
	}
	return hash.String(), nil
}

// CommitAll captures the project's entire working tree as one revision and
// returns its id. Callers invoke it unconditionally after every logical
// write: when the staged tree matches HEAD the existing revision id comes
// back and no commit is created, so identical rewrites and appends to
// ignored workspaces never produce history noise.
func (s *Service) CommitAll(projectID, summary string) (string, error) {
	lock := s.locks.get(projectID)
	lock.Lock()
	defer lock.Unlock()

	repo, err := git.PlainOpen(s.layout.ProjectDir(projectID))
	if err != nil {
		return "", fmt.Errorf("open repo: %w", err)
	}
	hash, err := stageAndCommit(repo, summary)
	if err != nil {
		return "", err
	}
	return hash.String(), nil
}

// Snapshot creates a permanent named checkpoint (an annotated tag) at the
// current HEAD and returns that revision id. Tags are never moved or
// deleted; a name collision fails with ErrDuplicateSnapshot and the caller
// must pick a different name.
func (s *Service) Snapshot(projectID, name, message string) (string, error) {
	lock := s.locks.get(projectID)
	lock.Lock()
	defer lock.Unlock()

	repo, err := git.PlainOpen(s.layout.ProjectDir(projectID))
	if err != nil {
		return "", fmt.Errorf("open repo: %w", err)
	}
	ref, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("resolve head: %w", err)
	}
	_, err = repo.CreateTag(name, ref.Hash(), &git.CreateTagOptions{
		Tagger:  signature(),
		Message: message,
	})
	if err != nil {
		if errors.Is(err, git.ErrTagExists) {
			return "", fmt.Errorf("%w: %s", ErrDuplicateSnapshot, name)
		}
		return "", fmt.Errorf("create tag: %w", err)
	}
	return ref.Hash().String(), nil
}

// Snapshots lists the project's named checkpoints, newest first. A missing
// repository yields an empty list.
func (s *Service) Snapshots(projectID string) ([]store.SnapshotInfo, error) {
	repo, err := git.PlainOpen(s.layout.ProjectDir(projectID))
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return []store.SnapshotInfo{}, nil
		}
		return nil, fmt.Errorf("open repo: %w", err)
	}
	iter, err := repo.TagObjects()
	if err != nil {
		return nil, fmt.Errorf("read tags: %w", err)
	}
	snaps := []store.SnapshotInfo{}
	err = iter.ForEach(func(tag *object.Tag) error {
		snaps = append(snaps, store.SnapshotInfo{
			Name:       tag.Name,
			RevisionID: tag.Target.String(),
			Message:    strings.TrimSpace(tag.Message),
			CreatedAt:  tag.Tagger.When,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("iterate tags: %w", err)
	}
	sort.Slice(snaps, func(i, j int) bool {
		return snaps[i].CreatedAt.After(snaps[j].CreatedAt)
	})
	return snaps, nil
}

// History returns up to limit revisions, newest first. A project root that
// is not a repository, or a repository without commits, yields an empty
// list rather than an error.
func (s *Service) History(projectID string, limit int) ([]store.RevisionInfo, error) {
	repo, err := git.PlainOpen(s.layout.ProjectDir(projectID))
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return []store.RevisionInfo{}, nil
		}
		return nil, fmt.Errorf("open repo: %w", err)
	}
	ref, err := repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return []store.RevisionInfo{}, nil
		}
		return nil, fmt.Errorf("resolve head: %w", err)
	}
	iter, err := repo.Log(&git.LogOptions{From: ref.Hash()})
	if err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	defer iter.Close()

	revisions := []store.RevisionInfo{}
	err = iter.ForEach(func(commitObj *object.Commit) error {
		revisions = append(revisions, toRevisionInfo(commitObj))
		if limit > 0 && len(revisions) >= limit {
			return io.EOF
		}
		return nil
	})
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("iterate log: %w", err)
	}
	return revisions, nil
}

// Diff returns the unified diff introduced by one revision. The revision
// may be a full 40-character id or a symbolic name such as a snapshot tag;
// anything that does not resolve fails with ErrRevisionNotFound.
func (s *Service) Diff(projectID, revisionID string) (string, error) {
	repo, err := git.PlainOpen(s.layout.ProjectDir(projectID))
	if err != nil {
		return "", fmt.Errorf("open repo: %w", err)
	}
	hash, err := resolveRevision(repo, revisionID)
	if err != nil {
		return "", err
	}
	commitObj, err := repo.CommitObject(hash)
	if err != nil {
		if errors.Is(err, plumbing.ErrObjectNotFound) {
			return "", fmt.Errorf("%w: %s", ErrRevisionNotFound, revisionID)
		}
		return "", fmt.Errorf("read commit %s: %w", revisionID, err)
	}
	current, err := commitObj.Tree()
	if err != nil {
		return "", fmt.Errorf("read commit tree: %w", err)
	}
	var parent *object.Tree
	if commitObj.NumParents() > 0 {
		parentCommit, err := commitObj.Parent(0)
		if err != nil {
			return "", fmt.Errorf("read parent commit: %w", err)
		}
		parent, err = parentCommit.Tree()
		if err != nil {
			return "", fmt.Errorf("read parent tree: %w", err)
		}
	}
	changes, err := object.DiffTree(parent, current)
	if err != nil {
		return "", fmt.Errorf("diff trees: %w", err)
	}
	patch, err := changes.Patch()
	if err != nil {
		return "", fmt.Errorf("build patch: %w", err)
	}
	var buf bytes.Buffer
	encoder := diff.NewUnifiedEncoder(&buf, diff.DefaultContextLines)
	if err := encoder.Encode(patch); err != nil {
		return "", fmt.Errorf("encode patch: %w", err)
	}
	return buf.String(), nil
}

// RemoveProject deletes the whole project directory, repository included.
// Removal is all-or-nothing; there are no tombstones.
func (s *Service) RemoveProject(projectID string) error {
	lock := s.locks.get(projectID)
	lock.Lock()
	defer lock.Unlock()

	if err := os.RemoveAll(s.layout.ProjectDir(projectID)); err != nil {
		return fmt.Errorf("remove project dir: %w", err)
	}
	return nil
}

// stageAndCommit stages every change under the worktree (new, modified and
// deleted tracked files) and commits only if the staged tree differs from
// HEAD. When nothing differs the current HEAD id comes back instead, so
// unconditional callers never create no-op revisions.
func stageAndCommit(repo *git.Repository, summary string) (plumbing.Hash, error) {
	worktree, err := repo.Worktree()
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("open worktree: %w", err)
	}
	if err := worktree.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("stage changes: %w", err)
	}
	status, err := worktree.Status()
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("probe staged tree: %w", err)
	}
	if status.IsClean() {
		ref, err := repo.Head()
		if err != nil {
			return plumbing.ZeroHash, fmt.Errorf("resolve head: %w", err)
		}
		return ref.Hash(), nil
	}
	now := time.Now()
	message := fmt.Sprintf("%s\n\ncommitted-at: %s", summary, now.UTC().Format(time.RFC3339))
	hash, err := worktree.Commit(message, &git.CommitOptions{
		Author: signature(),
	})
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("commit changes: %w", err)
	}
	return hash, nil
}

// resolveRevision accepts a full 40-character revision id or a symbolic name
// (snapshot tag, branch) and resolves it to a commit hash.
func resolveRevision(repo *git.Repository, revisionID string) (plumbing.Hash, error) {
	if len(revisionID) == 40 {
		return plumbing.NewHash(revisionID), nil
	}
	hash, err := repo.ResolveRevision(plumbing.Revision(revisionID))
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("%w: %s", ErrRevisionNotFound, revisionID)
	}
	return *hash, nil
}

// configureIdentity writes the synthetic author into the repository config
// so the on-disk repo is self-describing for out-of-band git tooling.
// Commits made through this service pass the signature explicitly anyway.
func configureIdentity(repo *git.Repository) error {
	cfg, err := repo.Config()
	if err != nil {
		return fmt.Errorf("read repo config: %w", err)
	}
	cfg.User.Name = authorName
	cfg.User.Email = authorEmail
	if err := repo.SetConfig(cfg); err != nil {
		return fmt.Errorf("write repo config: %w", err)
	}
	return nil
}

func (s *Service) headRevision(dir string) (string, error) {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return "", fmt.Errorf("open repo: %w", err)
	}
	ref, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("resolve head: %w", err)
	}
	return ref.Hash().String(), nil
}

func signature() *object.Signature {
	return &object.Signature{
		Name:  authorName,
		Email: authorEmail,
		When:  time.Now(),
	}
}

func toRevisionInfo(commitObj *object.Commit) store.RevisionInfo {
	return store.RevisionInfo{
		ID:        commitObj.Hash.String(),
		Message:   strings.TrimSpace(commitObj.Message),
		Author:    commitObj.Author.Name,
		CreatedAt: commitObj.Author.When,
	}
}
