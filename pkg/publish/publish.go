// Package publish pushes a built folder onto a branch of the target
// repository. It runs only after a fully successful build, replaces the
// branch content wholesale, and is idempotent: republishing identical
// content creates no new commit.
package publish

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
)

// Request describes one publish operation.
type Request struct {
	SourceDir string // folder whose contents become the branch content
	Branch    string
	URL       string // target repository, local path or http(s) remote
	Message   string // commit message, defaulted when empty
	Author    string
	Email     string
	Token     string // http credential, unused for local targets
}

// Result reports what publishing did.
type Result struct {
	Branch   string
	Commit   string
	UpToDate bool
}

// Publisher owns the scratch checkouts publishing works in.
type Publisher struct {
	scratchBase string
}

// NewPublisher returns a publisher with scratch space under base
// (os.TempDir when empty).
func NewPublisher(base string) *Publisher {
	if base == "" {
		base = os.TempDir()
	}
	return &Publisher{scratchBase: base}
}

// Publish replaces the target branch's content with the source folder and
// pushes it. The branch is created when it does not exist yet.
func (p *Publisher) Publish(ctx context.Context, req Request) (*Result, error) {
	info, err := os.Stat(req.SourceDir)
	if err != nil {
		return nil, &Error{Op: "source", Err: err}
	}
	if !info.IsDir() {
		return nil, &Error{Op: "source", Err: fmt.Errorf("%s is not a directory", req.SourceDir)}
	}

	scratch, err := os.MkdirTemp(p.scratchBase, "stagehand-publish-")
	if err != nil {
		return nil, &Error{Op: "scratch", Err: err}
	}
	defer os.RemoveAll(scratch)

	auth := p.authFor(req)

	repo, err := p.checkoutBranch(ctx, scratch, req, auth)
	if err != nil {
		return nil, err
	}

	if err := clearWorktree(scratch); err != nil {
		return nil, &Error{Op: "clear", Err: err}
	}
	if err := copyDir(req.SourceDir, scratch); err != nil {
		return nil, &Error{Op: "copy", Err: err}
	}

	wt, err := repo.Worktree()
	if err != nil {
		return nil, &Error{Op: "worktree", Err: err}
	}
	if err := wt.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		return nil, &Error{Op: "stage", Err: err}
	}

	status, err := wt.Status()
	if err != nil {
		return nil, &Error{Op: "status", Err: err}
	}
	if status.IsClean() {
		head, err := repo.Head()
		if err != nil {
			return nil, &Error{Op: "head", Err: err}
		}
		slog.Info("publish up to date", "branch", req.Branch, "commit", head.Hash().String())
		return &Result{Branch: req.Branch, Commit: head.Hash().String(), UpToDate: true}, nil
	}

	message := req.Message
	if message == "" {
		message = fmt.Sprintf("publish %s", req.Branch)
	}
	commit, err := wt.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  req.Author,
			Email: req.Email,
			When:  time.Now(),
		},
	})
	if err != nil {
		return nil, &Error{Op: "commit", Err: err}
	}

	refSpec := config.RefSpec(fmt.Sprintf("refs/heads/%s:refs/heads/%s", req.Branch, req.Branch))
	err = repo.PushContext(ctx, &git.PushOptions{
		RemoteName: "origin",
		RefSpecs:   []config.RefSpec{refSpec},
		Auth:       auth,
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return nil, classifyError("push", req.URL, err)
	}

	slog.Info("published", "branch", req.Branch, "commit", commit.String())
	return &Result{Branch: req.Branch, Commit: commit.String()}, nil
}

// checkoutBranch clones the target branch into scratch, or initializes a
// fresh repository pointed at the branch when it does not exist yet.
func (p *Publisher) checkoutBranch(ctx context.Context, scratch string, req Request, auth transport.AuthMethod) (*git.Repository, error) {
	repo, err := git.PlainCloneContext(ctx, scratch, false, &git.CloneOptions{
		URL:           req.URL,
		ReferenceName: plumbing.NewBranchReferenceName(req.Branch),
		SingleBranch:  true,
		Auth:          auth,
	})
	if err == nil {
		return repo, nil
	}
	if !isMissingBranch(err) {
		return nil, classifyError("clone", req.URL, err)
	}

	// First publish to this branch: build it from scratch.
	repo, err = git.PlainInit(scratch, false)
	if err != nil {
		return nil, &Error{Op: "init", Err: err}
	}
	if _, err := repo.CreateRemote(&config.RemoteConfig{
		Name: "origin",
		URLs: []string{req.URL},
	}); err != nil {
		return nil, &Error{Op: "remote", Err: err}
	}
	head := plumbing.NewSymbolicReference(plumbing.HEAD, plumbing.NewBranchReferenceName(req.Branch))
	if err := repo.Storer.SetReference(head); err != nil {
		return nil, &Error{Op: "branch", Err: err}
	}
	return repo, nil
}

func (p *Publisher) authFor(req Request) transport.AuthMethod {
	if req.Token == "" || !strings.HasPrefix(req.URL, "http") {
		return nil
	}
	return &githttp.BasicAuth{Username: "token", Password: req.Token}
}

// isMissingBranch matches the errors a clone of a nonexistent branch (or an
// entirely empty repository) produces.
func isMissingBranch(err error) bool {
	if errors.Is(err, transport.ErrEmptyRemoteRepository) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "reference not found") ||
		strings.Contains(msg, "couldn't find remote ref")
}

// clearWorktree removes everything under dir except the .git directory so
// the new content fully replaces the old.
func clearWorktree(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.Name() == git.GitDirName {
			continue
		}
		if err := os.RemoveAll(filepath.Join(dir, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}

func copyDir(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		target := filepath.Join(dst, rel)

		if d.IsDir() {
			return os.MkdirAll(target, 0o750)
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return os.WriteFile(target, data, info.Mode().Perm())
	})
}
