// Package ledger keeps a git-backed transparency log per tracked entity.
// Every status transition and results publication is a commit, so the full
// history of an issue or budget cycle is tamper-evident and auditable.
package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"jijisauti/api/internal/store"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// Entry is one recorded event in an entity's ledger.
type Entry struct {
	Kind       string            `json:"kind"` // "issue" or "budget_cycle"
	EntityID   string            `json:"entityId"`
	Event      string            `json:"event"` // "created", "status_change", "official_assigned", "results_published"
	From       string            `json:"from,omitempty"`
	To         string            `json:"to,omitempty"`
	Details    map[string]string `json:"details,omitempty"`
	RecordedAt time.Time         `json:"recordedAt"`
}

const ledgerFile = "ledger.json"

type Service struct {
	baseDir string
	lockMu  sync.Mutex
	locks   map[string]*sync.Mutex
}

func New(baseDir string) *Service {
	return &Service{
		baseDir: baseDir,
		locks:   make(map[string]*sync.Mutex),
	}
}

// Append records an entry for an entity and returns the resulting commit.
// The entity's repository is created on first use.
func (s *Service) Append(entityID string, entry Entry, actor string) (store.CommitInfo, error) {
	lock := s.entityLock(entityID)
	lock.Lock()
	defer lock.Unlock()

	repo, err := s.openOrInit(entityID)
	if err != nil {
		return store.CommitInfo{}, err
	}

	entries, err := s.readEntries(repo)
	if err != nil {
		return store.CommitInfo{}, err
	}

	if entry.RecordedAt.IsZero() {
		entry.RecordedAt = time.Now().UTC()
	}
	entry.EntityID = entityID
	entries = append(entries, entry)

	hash, err := s.commit(repo, entries, actor, commitMessage(entry))
	if err != nil {
		return store.CommitInfo{}, err
	}

	commitObj, err := repo.CommitObject(hash)
	if err != nil {
		return store.CommitInfo{}, fmt.Errorf("read commit object: %w", err)
	}
	return toCommitInfo(commitObj), nil
}

// Entries returns the full recorded history for an entity, oldest first.
func (s *Service) Entries(entityID string) ([]Entry, error) {
	lock := s.entityLock(entityID)
	lock.Lock()
	defer lock.Unlock()

	repo, err := git.PlainOpen(s.repoPath(entityID))
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return []Entry{}, nil
		}
		return nil, fmt.Errorf("open ledger repo: %w", err)
	}
	return s.readEntries(repo)
}

// History lists the entity's ledger commits, newest first.
func (s *Service) History(entityID string, limit int) ([]store.CommitInfo, error) {
	lock := s.entityLock(entityID)
	lock.Lock()
	defer lock.Unlock()

	repo, err := git.PlainOpen(s.repoPath(entityID))
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return []store.CommitInfo{}, nil
		}
		return nil, fmt.Errorf("open ledger repo: %w", err)
	}

	head, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("resolve head: %w", err)
	}

	iter, err := repo.Log(&git.LogOptions{From: head.Hash()})
	if err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	defer iter.Close()

	items := make([]store.CommitInfo, 0, limit)
	count := 0
	err = iter.ForEach(func(commitObj *object.Commit) error {
		items = append(items, toCommitInfo(commitObj))
		count++
		if limit > 0 && count >= limit {
			return io.EOF
		}
		return nil
	})
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("iterate log: %w", err)
	}
	return items, nil
}

func (s *Service) repoPath(entityID string) string {
	return filepath.Join(s.baseDir, entityID)
}

func (s *Service) entityLock(entityID string) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	lock, ok := s.locks[entityID]
	if ok {
		return lock
	}
	lock = &sync.Mutex{}
	s.locks[entityID] = lock
	return lock
}

func (s *Service) openOrInit(entityID string) (*git.Repository, error) {
	path := s.repoPath(entityID)
	repo, err := git.PlainOpen(path)
	if err == nil {
		return repo, nil
	}
	if !errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, fmt.Errorf("open ledger repo: %w", err)
	}

	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("create ledger dir: %w", err)
	}
	repo, err = git.PlainInit(path, false)
	if err != nil {
		return nil, fmt.Errorf("init ledger repo: %w", err)
	}
	return repo, nil
}

// readEntries loads the ledger file from the worktree. A missing file means a
// freshly initialised repo with no entries yet.
func (s *Service) readEntries(repo *git.Repository) ([]Entry, error) {
	worktree, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("open worktree: %w", err)
	}
	raw, err := os.ReadFile(filepath.Join(worktree.Filesystem.Root(), ledgerFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []Entry{}, nil
		}
		return nil, fmt.Errorf("read ledger file: %w", err)
	}

	var entries []Entry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("decode ledger file: %w", err)
	}
	return entries, nil
}

func (s *Service) commit(repo *git.Repository, entries []Entry, actor, message string) (plumbing.Hash, error) {
	worktree, err := repo.Worktree()
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("open worktree: %w", err)
	}

	payload, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("marshal ledger: %w", err)
	}
	if err := os.WriteFile(filepath.Join(worktree.Filesystem.Root(), ledgerFile), append(payload, '\n'), 0o644); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("write ledger file: %w", err)
	}

	if _, err := worktree.Add(ledgerFile); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("git add ledger: %w", err)
	}

	hash, err := worktree.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  actor,
			Email: fmt.Sprintf("%s@local.jijisauti.dev", sanitizeEmail(actor)),
			When:  time.Now(),
		},
	})
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("commit ledger: %w", err)
	}
	return hash, nil
}

func commitMessage(entry Entry) string {
	switch entry.Event {
	case "status_change":
		return fmt.Sprintf("%s: %s -> %s", entry.Kind, entry.From, entry.To)
	case "official_assigned":
		return fmt.Sprintf("%s: assigned to %s", entry.Kind, entry.To)
	default:
		return fmt.Sprintf("%s: %s", entry.Kind, entry.Event)
	}
}

func toCommitInfo(commitObj *object.Commit) store.CommitInfo {
	return store.CommitInfo{
		Hash:      commitObj.Hash.String()[:7],
		Message:   commitObj.Message,
		Author:    commitObj.Author.Name,
		CreatedAt: commitObj.Author.When,
	}
}

func sanitizeEmail(input string) string {
	out := make([]rune, 0, len(input))
	for _, r := range input {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			out = append(out, r)
			continue
		}
		if r == ' ' || r == '-' || r == '_' {
			out = append(out, '.')
		}
	}
	if len(out) == 0 {
		return "user"
	}
	return string(out)
}
