package keystore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rayyanshah04/flexpay/internal/common"
	"github.com/rayyanshah04/flexpay/internal/cryptox"
	"github.com/rayyanshah04/flexpay/internal/filex"
	"github.com/rayyanshah04/flexpay/internal/logging"
)

const (
	seedFile    = "device.seed"
	secretsFile = "secrets.json"

	seedSize = 32
	saltSize = 16
)

// envelope is the on-disk form of the sealed credential map.
type envelope struct {
	Nonce []byte `json:"nonce"`
	Data  []byte `json:"data"`
}

// FileStore keeps credentials in a directory: a random device seed (0600)
// and an AES-GCM sealed JSON map keyed by service. The sealing key is derived
// from the seed with argon2id.
type FileStore struct {
	mu       sync.Mutex
	dir      string
	key      []byte
	prompter Prompter
	log      logging.Logger
}

type FileOption func(*FileStore)

func WithPrompter(p Prompter) FileOption {
	return func(s *FileStore) { s.prompter = p }
}

func WithLogger(l logging.Logger) FileOption {
	return func(s *FileStore) { s.log = l }
}

// OpenFileStore opens the store in dir, creating the directory and the
// device seed on first use.
func OpenFileStore(dir string, opts ...FileOption) (*FileStore, error) {
	s := &FileStore{dir: dir, log: logging.Discard()}
	for _, o := range opts {
		o(s)
	}

	if err := filex.EnsurePrivateDir(dir); err != nil {
		return nil, fmt.Errorf("keystore dir: %w", err)
	}

	seed, err := s.loadSeed()
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(seed)

	s.key = cryptox.DeriveKey(seed[:seedSize], seed[seedSize:])
	return s, nil
}

func (s *FileStore) loadSeed() ([]byte, error) {
	path := filepath.Join(s.dir, seedFile)

	seed, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		seed = common.GenerateRandByteArray(seedSize + saltSize)
		if err := filex.AtomicWriteFile(path, seed, 0o600); err != nil {
			return nil, fmt.Errorf("write device seed: %w", err)
		}
		s.log.Info(context.Background(), "keystore initialised", "dir", s.dir)
		return seed, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read device seed: %w", err)
	}
	if len(seed) != seedSize+saltSize {
		return nil, fmt.Errorf("device seed %s is corrupt", path)
	}
	return seed, nil
}

func (s *FileStore) SetSecret(ctx context.Context, service, account, secret string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return err
	}
	entries[service] = Credential{Account: account, Secret: secret}
	if err := s.save(entries); err != nil {
		return err
	}

	s.log.Debug(ctx, "secret stored", "service", service)
	return nil
}

// GetSecret returns ErrNotFound when service has no credential. With
// WithPrompt the prompter runs first; its error is returned wrapped and the
// store is not read.
func (s *FileStore) GetSecret(ctx context.Context, service string, opts ...ReadOption) (Credential, error) {
	var ro readOptions
	for _, o := range opts {
		o(&ro)
	}

	if ro.prompt != "" {
		if s.prompter == nil {
			return Credential{}, ErrNoPrompter
		}
		if err := s.prompter.Authenticate(ctx, ro.prompt); err != nil {
			return Credential{}, fmt.Errorf("keystore: authentication: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return Credential{}, err
	}
	c, ok := entries[service]
	if !ok {
		return Credential{}, ErrNotFound
	}
	return c, nil
}

func (s *FileStore) DeleteSecret(ctx context.Context, service string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := entries[service]; !ok {
		return nil
	}
	delete(entries, service)
	return s.save(entries)
}

func (s *FileStore) load() (map[string]Credential, error) {
	raw, err := os.ReadFile(filepath.Join(s.dir, secretsFile))
	if errors.Is(err, os.ErrNotExist) {
		return map[string]Credential{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read secrets: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode secrets: %w", err)
	}

	entries := map[string]Credential{}
	if err := cryptox.OpenJSON(env.Data, env.Nonce, s.key, &entries); err != nil {
		return nil, fmt.Errorf("open secrets: %w", err)
	}
	return entries, nil
}

func (s *FileStore) save(entries map[string]Credential) error {
	data, nonce, err := cryptox.SealJSON(entries, s.key)
	if err != nil {
		return fmt.Errorf("seal secrets: %w", err)
	}
	raw, err := json.Marshal(envelope{Nonce: nonce, Data: data})
	if err != nil {
		return fmt.Errorf("encode secrets: %w", err)
	}
	if err := filex.AtomicWriteFile(filepath.Join(s.dir, secretsFile), raw, 0o600); err != nil {
		return fmt.Errorf("write secrets: %w", err)
	}
	return nil
}
