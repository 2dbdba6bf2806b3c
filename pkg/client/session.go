package client

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/golang-jwt/jwt/v5"
	"gopkg.in/yaml.v3"
)

// ErrNotAuthenticated is returned by Connect when no session token is available.
var ErrNotAuthenticated = errors.New("not authenticated")

// TokenSource supplies the current session token. Tokens are opaque to the
// controller and sent to the server verbatim.
type TokenSource interface {
	Token() (string, bool)
}

// StaticTokenSource wraps a fixed token string.
type StaticTokenSource string

func (s StaticTokenSource) Token() (string, bool) {
	return string(s), s != ""
}

type credentialsFile struct {
	Token string `yaml:"token"`
}

// FileTokenSource persists the session token as YAML on disk, surviving
// restarts. The zero value is unusable; construct with NewFileTokenSource.
type FileTokenSource struct {
	path string

	mu    sync.RWMutex
	token string
}

// NewFileTokenSource loads any previously saved token from path.
func NewFileTokenSource(path string) *FileTokenSource {
	s := &FileTokenSource{path: path}
	data, err := os.ReadFile(path)
	if err != nil {
		return s
	}
	var creds credentialsFile
	if err := yaml.Unmarshal(data, &creds); err != nil {
		return s
	}
	s.token = creds.Token
	return s
}

func (s *FileTokenSource) Token() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, s.token != ""
}

// Save stores a new token in memory and on disk.
func (s *FileTokenSource) Save(token string) error {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()

	data, err := yaml.Marshal(credentialsFile{Token: token})
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0600)
}

// Clear drops the token, e.g. on logout.
func (s *FileTokenSource) Clear() error {
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()
	err := os.Remove(s.path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// UserID extracts the subject claim from a session token without verifying
// the signature; the server remains the authority on token validity.
func UserID(token string) (string, error) {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return "", fmt.Errorf("decode token: %w", err)
	}
	return claims.Subject, nil
}
