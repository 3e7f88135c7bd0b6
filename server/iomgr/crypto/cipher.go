// Package crypto provides the cipher registry and the per-database
// encryption contexts used by the file factory for transparent ciphertext
// translation.
package crypto

import (
	"sync"

	"github.com/juju/errors"
)

// NoCipherID disables encryption when used as a cipher id.
const NoCipherID = "none"

// Cipher creates encryption and decryption contexts for a fixed key size.
type Cipher interface {
	// CipherID returns the cipher identifier, e.g. "aes128".
	CipherID() string

	// KeySizeBits returns the key size in bits.
	KeySizeBits() int

	// BlockSizeBits returns the cipher block size in bits.
	BlockSizeBits() int

	// CreateEncryptionContext returns a context for encrypting data blocks.
	CreateEncryptionContext(key []byte) (CipherContext, error)

	// CreateDecryptionContext returns a context for decrypting data blocks.
	CreateDecryptionContext(key []byte) (CipherContext, error)
}

// CipherContext transforms a single storage block in place. The
// transformation is length-preserving; blockIndex makes the keystream
// position-dependent so that equal plaintext blocks do not produce equal
// ciphertext blocks.
type CipherContext interface {
	Transform(blockIndex uint64, data []byte)
}

var (
	ciphersMu sync.RWMutex
	ciphers   = make(map[string]Cipher)
)

func addCipher(c Cipher) {
	ciphersMu.Lock()
	defer ciphersMu.Unlock()
	ciphers[c.CipherID()] = c
}

// InitializeBuiltInCiphers registers the built-in cipher set. Calling it more
// than once is harmless.
func InitializeBuiltInCiphers() {
	addCipher(newAesCipher(128))
	addCipher(newAesCipher(192))
	addCipher(newAesCipher(256))
}

// GetCipher returns the cipher registered under cipherId. NoCipherID yields
// a nil cipher and no error, which callers treat as "plaintext database".
func GetCipher(cipherID string) (Cipher, error) {
	if cipherID == NoCipherID {
		return nil, nil
	}
	ciphersMu.RLock()
	defer ciphersMu.RUnlock()
	if c, ok := ciphers[cipherID]; ok {
		return c, nil
	}
	return nil, errors.Errorf("unknown cipher '%s'", cipherID)
}

func validateKeyLength(c Cipher, key []byte) error {
	if len(key) != c.KeySizeBits()/8 {
		return errors.Errorf("invalid key length %d for cipher '%s'", len(key), c.CipherID())
	}
	return nil
}
