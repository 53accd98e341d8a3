// Package credstore persists per-organization forge credentials as encrypted
// blobs on disk. Each organization is one file, <org>.enc, sealed with
// AES-256-GCM under a key derived from the STAGEHAND_ENCRYPTION_KEY
// environment variable.
package credstore

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/crypto/pbkdf2"

	"git.home.luguber.info/inful/stagehand/internal/config"
	"git.home.luguber.info/inful/stagehand/internal/foundation"
	fnderrors "git.home.luguber.info/inful/stagehand/internal/foundation/errors"
)

// EnvKey names the environment variable holding the encryption key.
const EnvKey = "STAGEHAND_ENCRYPTION_KEY"

const (
	saltSize   = 16
	nonceSize  = 12
	keySize    = 32
	iterations = 100_000
)

// OrgCredentials is the payload stored per organization.
type OrgCredentials struct {
	Org     string    `json:"org"`
	Token   string    `json:"token"`
	APIURL  string    `json:"api_url,omitempty"`
	SavedAt time.Time `json:"saved_at"`
}

// Store reads and writes encrypted organization credentials.
type Store struct {
	dir    string
	secret []byte
	logger *slog.Logger
}

// New opens the store directory, creating it when missing. When no
// encryption key is present in the environment a fresh one is generated and
// logged once; credentials sealed under it are unrecoverable without it.
func New(cfg config.CredstoreConfig, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	dir, err := filepath.Abs(cfg.Dir)
	if err != nil {
		return nil, fnderrors.ConfigError("resolving credential store directory").
			WithContext("dir", cfg.Dir).
			Cause(err).
			Build()
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fnderrors.CryptoError("creating credential store directory").
			WithContext("dir", dir).
			Cause(err).
			Build()
	}

	secret := []byte(os.Getenv(EnvKey))
	if len(secret) == 0 {
		generated := make([]byte, keySize)
		if _, err := rand.Read(generated); err != nil {
			return nil, fnderrors.CryptoError("generating encryption key").Cause(err).Build()
		}
		encoded := base64.StdEncoding.EncodeToString(generated)
		logger.Warn("no encryption key in environment, generated a new one",
			slog.String("env", EnvKey))
		logger.Warn("set this key in your environment to keep access to saved credentials",
			slog.String(EnvKey, encoded))
		secret = []byte(encoded)
	}

	return &Store{dir: dir, secret: secret, logger: logger}, nil
}

// Dir returns the resolved store directory.
func (s *Store) Dir() string { return s.dir }

// Save seals the credentials and writes them to <org>.enc.
func (s *Store) Save(creds OrgCredentials) error {
	if err := validateOrgName(creds.Org); err != nil {
		return err
	}
	if creds.SavedAt.IsZero() {
		creds.SavedAt = time.Now().UTC()
	}

	plaintext, err := json.Marshal(creds)
	if err != nil {
		return fnderrors.CryptoError("encoding credentials").
			WithContext("org", creds.Org).
			Cause(err).
			Build()
	}

	sealed, err := s.seal(plaintext)
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.path(creds.Org), sealed, 0o600); err != nil {
		return fnderrors.CryptoError("writing credential file").
			WithContext("org", creds.Org).
			Cause(err).
			Build()
	}
	return nil
}

// Load opens <org>.enc and returns the credentials, or None when the
// organization has never been saved.
func (s *Store) Load(org string) (foundation.Option[OrgCredentials], error) {
	none := foundation.None[OrgCredentials]()
	if err := validateOrgName(org); err != nil {
		return none, err
	}

	sealed, err := os.ReadFile(s.path(org))
	if err != nil {
		if os.IsNotExist(err) {
			return none, nil
		}
		return none, fnderrors.CryptoError("reading credential file").
			WithContext("org", org).
			Cause(err).
			Build()
	}

	plaintext, err := s.open(sealed)
	if err != nil {
		return none, fnderrors.CryptoError("decrypting credentials, check the encryption key").
			WithContext("org", org).
			Cause(err).
			Build()
	}

	var creds OrgCredentials
	if err := json.Unmarshal(plaintext, &creds); err != nil {
		return none, fnderrors.CryptoError("decoding credentials").
			WithContext("org", org).
			Cause(err).
			Build()
	}
	return foundation.Some(creds), nil
}

// List returns the saved organization names, sorted.
func (s *Store) List() ([]string, error) {
	dirents, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fnderrors.CryptoError("reading credential store directory").
			WithContext("dir", s.dir).
			Cause(err).
			Build()
	}

	var orgs []string
	for _, dirent := range dirents {
		name := dirent.Name()
		if dirent.IsDir() || !strings.HasSuffix(name, ".enc") {
			continue
		}
		orgs = append(orgs, strings.TrimSuffix(name, ".enc"))
	}
	sort.Strings(orgs)
	return orgs, nil
}

// Delete removes the stored credentials for org.
func (s *Store) Delete(org string) error {
	if err := validateOrgName(org); err != nil {
		return err
	}
	if err := os.Remove(s.path(org)); err != nil {
		if os.IsNotExist(err) {
			return fnderrors.NotFoundError("organization not stored").
				WithContext("org", org).
				Build()
		}
		return fnderrors.CryptoError("removing credential file").
			WithContext("org", org).
			Cause(err).
			Build()
	}
	return nil
}

func (s *Store) path(org string) string {
	return filepath.Join(s.dir, org+".enc")
}

// seal produces salt || nonce || ciphertext.
func (s *Store) seal(plaintext []byte) ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fnderrors.CryptoError("generating salt").Cause(err).Build()
	}

	gcm, err := s.cipherFor(salt)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fnderrors.CryptoError("generating nonce").Cause(err).Build()
	}

	out := make([]byte, 0, saltSize+nonceSize+len(plaintext)+gcm.Overhead())
	out = append(out, salt...)
	out = append(out, nonce...)
	return gcm.Seal(out, nonce, plaintext, nil), nil
}

func (s *Store) open(sealed []byte) ([]byte, error) {
	if len(sealed) < saltSize+nonceSize {
		return nil, fmt.Errorf("sealed payload too short: %d bytes", len(sealed))
	}
	salt := sealed[:saltSize]
	nonce := sealed[saltSize : saltSize+nonceSize]
	ciphertext := sealed[saltSize+nonceSize:]

	gcm, err := s.cipherFor(salt)
	if err != nil {
		return nil, err
	}
	return gcm.Open(nil, nonce, ciphertext, nil)
}

func (s *Store) cipherFor(salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key(s.secret, salt, iterations, keySize, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fnderrors.CryptoError("initializing cipher").Cause(err).Build()
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fnderrors.CryptoError("initializing cipher").Cause(err).Build()
	}
	return gcm, nil
}

func validateOrgName(org string) error {
	if org == "" || strings.ContainsAny(org, "/\\") || strings.Contains(org, "..") {
		return fnderrors.ValidationError("invalid organization name").
			WithContext("org", org).
			Build()
	}
	return nil
}
