// Package sync versions the vault with git.
package sync

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	gosync "sync"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/ssh"
)

// GitManager handles git operations
type GitManager struct {
	RepoPath    string
	AuthorName  string
	AuthorEmail string
	// SSHKeyPath defaults to ~/.ssh/id_rsa.
	SSHKeyPath string

	mu gosync.Mutex
}

// NewGitManager creates a new GitManager
func NewGitManager(repoPath string) *GitManager {
	return &GitManager{
		RepoPath:    repoPath,
		AuthorName:  "Orbit",
		AuthorEmail: "orbit@vault.local",
	}
}

// Sync commits all changes and pushes them to origin when there is one.
// A clean worktree is not committed.
func (g *GitManager) Sync(message string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	r, err := git.PlainOpen(g.RepoPath)
	if err != nil {
		return fmt.Errorf("failed to open repo: %w", err)
	}

	w, err := r.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}

	status, err := w.Status()
	if err != nil {
		return fmt.Errorf("failed to get status: %w", err)
	}
	if status.IsClean() {
		return nil
	}

	if err := w.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		return fmt.Errorf("failed to add changes: %w", err)
	}

	if message == "" {
		message = fmt.Sprintf("Auto-sync: %s", time.Now().Format(time.RFC3339))
	}

	_, err = w.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  g.AuthorName,
			Email: g.AuthorEmail,
			When:  time.Now(),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	if _, err := r.Remote("origin"); errors.Is(err, git.ErrRemoteNotFound) {
		return nil
	}

	err = r.Push(&git.PushOptions{Auth: g.auth()})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("failed to push: %w", err)
	}
	return nil
}

// auth loads the SSH key, or returns nil to push without explicit auth.
func (g *GitManager) auth() transport.AuthMethod {
	keyPath := g.SSHKeyPath
	if keyPath == "" {
		home, _ := os.UserHomeDir()
		keyPath = filepath.Join(home, ".ssh", "id_rsa")
	}
	publicKeys, err := ssh.NewPublicKeysFromFile("git", keyPath, "")
	if err != nil {
		log.Printf("Git: could not load SSH key: %v. Trying push without explicit auth.", err)
		return nil
	}
	return publicKeys
}
