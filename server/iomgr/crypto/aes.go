package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/binary"
	"fmt"
)

type aesCipher struct {
	id          string
	keySizeBits int
}

func newAesCipher(keySizeBits int) *aesCipher {
	return &aesCipher{
		id:          fmt.Sprintf("aes%d", keySizeBits),
		keySizeBits: keySizeBits,
	}
}

func (c *aesCipher) CipherID() string {
	return c.id
}

func (c *aesCipher) KeySizeBits() int {
	return c.keySizeBits
}

func (c *aesCipher) BlockSizeBits() int {
	return aes.BlockSize * 8
}

func (c *aesCipher) CreateEncryptionContext(key []byte) (CipherContext, error) {
	return c.createContext(key)
}

func (c *aesCipher) CreateDecryptionContext(key []byte) (CipherContext, error) {
	return c.createContext(key)
}

func (c *aesCipher) createContext(key []byte) (CipherContext, error) {
	if err := validateKeyLength(c, key); err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return &aesContext{block: block}, nil
}

// aesContext applies a CTR keystream whose IV is derived from the storage
// block index. CTR is an involution, so the same context type serves both
// encryption and decryption.
type aesContext struct {
	block cipher.Block
}

func (ctx *aesContext) Transform(blockIndex uint64, data []byte) {
	var iv [aes.BlockSize]byte
	binary.BigEndian.PutUint64(iv[aes.BlockSize-8:], blockIndex)
	stream := cipher.NewCTR(ctx.block, iv[:])
	stream.XORKeyStream(data, data)
}
