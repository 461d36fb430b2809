package publish

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	git "github.com/go-git/go-git/v5"
	gitcfg "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// initBare creates an empty bare repository acting as the publish target.
func initBare(t *testing.T) string {
	t.Helper()
	barePath := filepath.Join(t.TempDir(), "remote.git")
	_, err := git.PlainInit(barePath, true)
	require.NoError(t, err)
	return barePath
}

// seedBranch pushes files as one commit onto branch in the bare repository.
func seedBranch(t *testing.T, barePath, branch string, files map[string]string) plumbing.Hash {
	t.Helper()

	workPath := filepath.Join(t.TempDir(), "seed")
	repo, err := git.PlainInit(workPath, false)
	require.NoError(t, err)

	head := plumbing.NewSymbolicReference(plumbing.HEAD, plumbing.NewBranchReferenceName(branch))
	require.NoError(t, repo.Storer.SetReference(head))

	_, err = repo.CreateRemote(&gitcfg.RemoteConfig{Name: "origin", URLs: []string{barePath}})
	require.NoError(t, err)

	wt, err := repo.Worktree()
	require.NoError(t, err)
	for name, content := range files {
		full := filepath.Join(workPath, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o750))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o600))
		_, err = wt.Add(name)
		require.NoError(t, err)
	}
	hash, err := wt.Commit("seed", &git.CommitOptions{
		Author: &object.Signature{Name: "tester", Email: "t@example.com", When: time.Now()},
	})
	require.NoError(t, err)

	refSpec := gitcfg.RefSpec("refs/heads/" + branch + ":refs/heads/" + branch)
	require.NoError(t, repo.Push(&git.PushOptions{RemoteName: "origin", RefSpecs: []gitcfg.RefSpec{refSpec}}))
	return hash
}

// branchFiles reads back the tree of the branch tip.
func branchFiles(t *testing.T, barePath, branch string) map[string]string {
	t.Helper()

	repo, err := git.PlainOpen(barePath)
	require.NoError(t, err)
	ref, err := repo.Reference(plumbing.NewBranchReferenceName(branch), true)
	require.NoError(t, err)
	commit, err := repo.CommitObject(ref.Hash())
	require.NoError(t, err)
	tree, err := commit.Tree()
	require.NoError(t, err)

	files := map[string]string{}
	err = tree.Files().ForEach(func(f *object.File) error {
		content, err := f.Contents()
		if err != nil {
			return err
		}
		files[f.Name] = content
		return nil
	})
	require.NoError(t, err)
	return files
}

func branchTip(t *testing.T, barePath, branch string) *object.Commit {
	t.Helper()
	repo, err := git.PlainOpen(barePath)
	require.NoError(t, err)
	ref, err := repo.Reference(plumbing.NewBranchReferenceName(branch), true)
	require.NoError(t, err)
	commit, err := repo.CommitObject(ref.Hash())
	require.NoError(t, err)
	return commit
}

func sourceDir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		full := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o750))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o600))
	}
	return dir
}

func TestPublish_CreatesBranchInEmptyRepo(t *testing.T) {
	bare := initBare(t)
	src := sourceDir(t, map[string]string{
		"index.html":     "<html>docs</html>",
		"api/index.html": "<html>api</html>",
	})

	p := NewPublisher(t.TempDir())
	res, err := p.Publish(context.Background(), Request{
		SourceDir: src,
		Branch:    "docs",
		URL:       bare,
		Author:    "stagehand",
		Email:     "stagehand@localhost",
	})
	require.NoError(t, err)
	assert.False(t, res.UpToDate)
	assert.NotEmpty(t, res.Commit)

	files := branchFiles(t, bare, "docs")
	assert.Equal(t, "<html>docs</html>", files["index.html"])
	assert.Equal(t, "<html>api</html>", files["api/index.html"])
}

func TestPublish_CreatesBranchAlongsideExisting(t *testing.T) {
	bare := initBare(t)
	masterTip := seedBranch(t, bare, "master", map[string]string{"README.md": "# editor"})

	src := sourceDir(t, map[string]string{"index.html": "<html>"})
	p := NewPublisher(t.TempDir())
	_, err := p.Publish(context.Background(), Request{
		SourceDir: src, Branch: "docs", URL: bare,
		Author: "stagehand", Email: "stagehand@localhost",
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"index.html": "<html>"}, branchFiles(t, bare, "docs"))
	assert.Equal(t, masterTip, branchTip(t, bare, "master").Hash, "other branches stay untouched")
}

func TestPublish_ReplacesExistingContent(t *testing.T) {
	bare := initBare(t)
	seedBranch(t, bare, "docs", map[string]string{"old.html": "stale", "keep-nothing.txt": "x"})

	src := sourceDir(t, map[string]string{"new.html": "fresh"})
	p := NewPublisher(t.TempDir())
	res, err := p.Publish(context.Background(), Request{
		SourceDir: src, Branch: "docs", URL: bare,
		Author: "stagehand", Email: "stagehand@localhost",
	})
	require.NoError(t, err)
	assert.False(t, res.UpToDate)

	files := branchFiles(t, bare, "docs")
	assert.Equal(t, map[string]string{"new.html": "fresh"}, files, "branch content is replaced wholesale")
}

func TestPublish_IdempotentRepublish(t *testing.T) {
	bare := initBare(t)
	src := sourceDir(t, map[string]string{"index.html": "same"})
	p := NewPublisher(t.TempDir())
	req := Request{
		SourceDir: src, Branch: "docs", URL: bare,
		Author: "stagehand", Email: "stagehand@localhost",
	}

	first, err := p.Publish(context.Background(), req)
	require.NoError(t, err)
	require.False(t, first.UpToDate)

	second, err := p.Publish(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, second.UpToDate)
	assert.Equal(t, first.Commit, second.Commit, "identical content must not advance the branch")
	assert.Equal(t, first.Commit, branchTip(t, bare, "docs").Hash.String())
}

func TestPublish_CommitMetadata(t *testing.T) {
	bare := initBare(t)
	src := sourceDir(t, map[string]string{"index.html": "x"})
	p := NewPublisher(t.TempDir())

	_, err := p.Publish(context.Background(), Request{
		SourceDir: src, Branch: "docs", URL: bare,
		Message: "docs for run-42",
		Author:  "ci-bot", Email: "ci@example.com",
	})
	require.NoError(t, err)

	tip := branchTip(t, bare, "docs")
	assert.Equal(t, "docs for run-42", tip.Message)
	assert.Equal(t, "ci-bot", tip.Author.Name)
	assert.Equal(t, "ci@example.com", tip.Author.Email)
}

func TestPublish_DefaultMessage(t *testing.T) {
	bare := initBare(t)
	src := sourceDir(t, map[string]string{"index.html": "x"})
	p := NewPublisher(t.TempDir())

	_, err := p.Publish(context.Background(), Request{
		SourceDir: src, Branch: "docs", URL: bare,
		Author: "stagehand", Email: "stagehand@localhost",
	})
	require.NoError(t, err)
	assert.Equal(t, "publish docs", branchTip(t, bare, "docs").Message)
}

func TestPublish_MissingSourceFolder(t *testing.T) {
	bare := initBare(t)
	p := NewPublisher(t.TempDir())

	_, err := p.Publish(context.Background(), Request{
		SourceDir: filepath.Join(t.TempDir(), "does-not-exist"),
		Branch:    "docs",
		URL:       bare,
	})
	require.Error(t, err)

	var pubErr *Error
	require.ErrorAs(t, err, &pubErr)
	assert.Equal(t, "source", pubErr.Op)
	assert.False(t, IsPermanent(err))
}

func TestPublish_RepositoryNotFound(t *testing.T) {
	src := sourceDir(t, map[string]string{"index.html": "x"})
	p := NewPublisher(t.TempDir())

	_, err := p.Publish(context.Background(), Request{
		SourceDir: src,
		Branch:    "docs",
		URL:       filepath.Join(t.TempDir(), "missing-remote.git"),
	})
	require.Error(t, err)

	var notFound *NotFoundError
	if errors.As(err, &notFound) {
		assert.True(t, IsPermanent(err))
		return
	}
	// Transport wording differs across go-git versions; the failure must
	// still surface as a publish error.
	var pubErr *Error
	require.ErrorAs(t, err, &pubErr)
}
