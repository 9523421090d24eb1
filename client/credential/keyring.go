package credential

import (
	"context"

	"github.com/99designs/keyring"
	"github.com/pkg/errors"
)

const DefaultKeyringService = "dashnotify"

// Keyring reads the token from the OS keyring.
type Keyring struct {
	ring keyring.Keyring
	key  string
}

// OpenKeyring opens the system keyring, falling back to an encrypted file
// below fileDir where no keyring daemon is available.
func OpenKeyring(service, key, fileDir, filePassword string) (*Keyring, error) {
	if service == "" {
		service = DefaultKeyringService
	}
	ring, err := keyring.Open(keyring.Config{
		ServiceName: service,
		AllowedBackends: []keyring.BackendType{
			keyring.SecretServiceBackend,
			keyring.KWalletBackend,
			keyring.KeychainBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  fileDir,
		FilePasswordFunc:         keyring.FixedStringPrompt(filePassword),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "opening keyring")
	}
	return NewKeyring(ring, key), nil
}

func NewKeyring(ring keyring.Keyring, key string) *Keyring {
	return &Keyring{ring: ring, key: key}
}

func (k *Keyring) Token(context.Context) (string, error) {
	item, err := k.ring.Get(k.key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", ErrMissing
	}
	if err != nil {
		return "", errors.Wrapf(err, "getting credential %q", k.key)
	}
	if len(item.Data) == 0 {
		return "", ErrMissing
	}
	return string(item.Data), nil
}

func (k *Keyring) Store(token string) error {
	err := k.ring.Set(keyring.Item{
		Key:   k.key,
		Data:  []byte(token),
		Label: "dashnotify dashboard token",
	})
	return errors.Wrapf(err, "setting credential %q", k.key)
}

func (k *Keyring) Remove() error {
	err := k.ring.Remove(k.key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return nil
	}
	return errors.Wrapf(err, "deleting credential %q", k.key)
}
