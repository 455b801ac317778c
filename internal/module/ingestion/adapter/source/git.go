package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport/ssh"
	giturls "github.com/whilp/git-urls"

	"github.com/jinford/appliance-rag/internal/module/ingestion/domain"
)

// DefaultGitRef はref未指定時に使用するブランチ
const DefaultGitRef = "main"

// GitSource はマニュアルを管理するGitリポジトリをキャッシュに取得して取り込み対象にします
type GitSource struct {
	local      *LocalSource
	cacheDir   string
	sshKeyPath string
	sshPass    string
	defaultRef string
	log        *slog.Logger
}

// GitOption は GitSource のオプション設定
type GitOption func(*GitSource)

// WithSSHKey はSSH認証に使う秘密鍵を設定する
func WithSSHKey(path, passphrase string) GitOption {
	return func(s *GitSource) {
		s.sshKeyPath = path
		s.sshPass = passphrase
	}
}

// WithDefaultRef はref未指定時のブランチを上書きする
func WithDefaultRef(ref string) GitOption {
	return func(s *GitSource) {
		if ref != "" {
			s.defaultRef = ref
		}
	}
}

// NewGitSource は新しい GitSource を作成します
func NewGitSource(cacheDir string, log *slog.Logger, opts ...GitOption) *GitSource {
	s := &GitSource{
		local:      NewLocalSource(),
		cacheDir:   cacheDir,
		defaultRef: DefaultGitRef,
		log:        log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// URLToDirectoryName はGit URLをディレクトリ名に変換します
// 例: https://github.com/hoge/fuga.git -> github.com/hoge/fuga
// 例: git@github.com:hoge/fuga.git -> github.com/hoge/fuga
func URLToDirectoryName(gitURL string) (string, error) {
	u, err := giturls.Parse(gitURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse git URL: %w", err)
	}

	// ホスト名のみを取得（ポート番号を除外）
	hostname := u.Hostname()
	if hostname == "" {
		hostname = u.Host
	}

	path := strings.TrimPrefix(u.Path, "/")
	path = strings.TrimSuffix(path, ".git")
	if path == "" || strings.Contains(path, "..") {
		return "", fmt.Errorf("%w: invalid repository path in %s", domain.ErrUnsupportedSource, gitURL)
	}

	return filepath.Join(hostname, path), nil
}

// Resolve はリポジトリを clone または更新し、subdir 配下の取り込み対象ファイルを返します
func (s *GitSource) Resolve(ctx context.Context, gitURL, ref, subdir string) ([]domain.SourceFile, error) {
	if ref == "" {
		ref = s.defaultRef
	}

	dirName, err := URLToDirectoryName(gitURL)
	if err != nil {
		return nil, err
	}
	repoPath := filepath.Join(s.cacheDir, "git", dirName)

	if _, err := os.Stat(filepath.Join(repoPath, ".git")); err == nil {
		if err := s.pull(ctx, repoPath, ref); err != nil {
			return nil, err
		}
	} else {
		if err := s.clone(ctx, gitURL, ref, repoPath); err != nil {
			return nil, err
		}
	}

	root := repoPath
	if subdir != "" {
		root = filepath.Join(repoPath, filepath.FromSlash(subdir))
		if rel, err := filepath.Rel(repoPath, root); err != nil || strings.HasPrefix(rel, "..") {
			return nil, fmt.Errorf("%w: subdir escapes repository: %s", domain.ErrUnsupportedSource, subdir)
		}
	}

	base := strings.TrimSuffix(gitURL, ".git")
	return s.local.walk(ctx, root, func(rel string) string {
		repoRel, err := filepath.Rel(repoPath, filepath.Join(root, rel))
		if err != nil {
			repoRel = rel
		}
		return fmt.Sprintf("%s@%s/%s", base, ref, filepath.ToSlash(repoRel))
	})
}

// clone は指定したブランチを浅くクローンします
func (s *GitSource) clone(ctx context.Context, gitURL, ref, repoPath string) error {
	auth, err := s.sshAuth()
	if err != nil {
		return err
	}

	s.log.Info("Cloning repository", "url", gitURL, "ref", ref, "path", repoPath)
	opts := &git.CloneOptions{
		URL:           gitURL,
		ReferenceName: plumbing.NewBranchReferenceName(ref),
		SingleBranch:  true,
		Depth:         1,
	}
	if auth != nil {
		opts.Auth = auth
	}

	if _, err := git.PlainCloneContext(ctx, repoPath, false, opts); err != nil {
		_ = os.RemoveAll(repoPath)
		return fmt.Errorf("failed to clone repository: %w", err)
	}
	return nil
}

// pull は既存のクローンを最新化します
func (s *GitSource) pull(ctx context.Context, repoPath, ref string) error {
	repo, err := git.PlainOpen(repoPath)
	if err != nil {
		return fmt.Errorf("failed to open repository: %w", err)
	}
	worktree, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}
	auth, err := s.sshAuth()
	if err != nil {
		return err
	}

	s.log.Info("Pulling repository", "path", repoPath, "ref", ref)
	opts := &git.PullOptions{
		RemoteName:    "origin",
		ReferenceName: plumbing.NewBranchReferenceName(ref),
		SingleBranch:  true,
		Depth:         1,
		Force:         true,
	}
	if auth != nil {
		opts.Auth = auth
	}

	err = worktree.PullContext(ctx, opts)
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("failed to pull: %w", err)
	}
	return nil
}

// sshAuth はSSH認証を設定します（鍵が未設定・存在しない場合は認証なし）
func (s *GitSource) sshAuth() (*ssh.PublicKeys, error) {
	if s.sshKeyPath == "" {
		return nil, nil
	}
	if _, err := os.Stat(s.sshKeyPath); os.IsNotExist(err) {
		return nil, nil
	}

	auth, err := ssh.NewPublicKeysFromFile("git", s.sshKeyPath, s.sshPass)
	if err != nil {
		return nil, fmt.Errorf("failed to load SSH key: %w", err)
	}
	return auth, nil
}
