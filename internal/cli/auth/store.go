// Package auth хранит токен оператора dmctl между запусками.
package auth

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// ErrNoToken: токен ещё не сохранён.
var ErrNoToken = errors.New("no stored token")

// TokenStore описывает хранилище токена на клиенте.
type TokenStore interface {
	Save(token string) error
	Load() (string, error)
}

// FileStore: файловое хранилище токена в пользовательском конфиг-каталоге.
type FileStore struct{}

func tokenPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	p := filepath.Join(dir, "discount-monitoring")
	if err := os.MkdirAll(p, 0o700); err != nil {
		return "", err
	}
	return filepath.Join(p, "operator_token"), nil
}

// Save сохраняет токен в файл.
func (FileStore) Save(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("empty token")
	}
	p, err := tokenPath()
	if err != nil {
		return err
	}
	return os.WriteFile(p, []byte(token), 0o600)
}

// Load читает токен; пустой или отсутствующий файл: ErrNoToken.
func (FileStore) Load() (string, error) {
	p, err := tokenPath()
	if err != nil {
		return "", err
	}
	b, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return "", ErrNoToken
	}
	if err != nil {
		return "", err
	}
	tok := strings.TrimSpace(string(b))
	if tok == "" {
		return "", ErrNoToken
	}
	return tok, nil
}
