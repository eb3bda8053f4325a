package connectors

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"iadetakip/internal"
)

// MailStoreService keeps raw messages on disk under their content hash.
// A message whose file already exists has been seen before.
type MailStoreService struct {
	rawMailDir string
}

func NewMailStoreService(rawMailDir string) *MailStoreService {
	return &MailStoreService{rawMailDir: rawMailDir}
}

type StoredMail struct {
	Hash    string
	RawPath string
	New     bool
}

func (s *MailStoreService) Store(msg internal.FetchedMailMessage) (StoredMail, error) {
	hashBytes := sha256.Sum256(msg.Raw)
	hash := hex.EncodeToString(hashBytes[:])

	if err := os.MkdirAll(s.rawMailDir, 0o755); err != nil {
		return StoredMail{}, err
	}

	out := StoredMail{Hash: hash, RawPath: filepath.Join(s.rawMailDir, hash+".eml")}
	if _, err := os.Stat(out.RawPath); errors.Is(err, fs.ErrNotExist) {
		if err := os.WriteFile(out.RawPath, msg.Raw, 0o644); err != nil {
			return StoredMail{}, err
		}
		out.New = true
	} else if err != nil {
		return StoredMail{}, err
	}
	return out, nil
}

// Forget removes a stored message so the next fetch treats it as new.
func (s *MailStoreService) Forget(m StoredMail) error {
	err := os.Remove(m.RawPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
