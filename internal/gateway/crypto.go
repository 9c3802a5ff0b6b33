package gateway

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/base64"
	"fmt"
	"sync/atomic"

	sqlite3 "github.com/mattn/go-sqlite3"
)

// Encrypted columns are read and written through SQL-level functions so
// the plaintext never appears in generated statements: the persistence
// engine projects rec_decrypt(col) and binds values through
// rec_encrypt(?). The functions are registered on every connection via
// the driver's ConnectHook.

var driverSeq atomic.Int64

// registerDriver registers a sqlite3 driver variant whose connections
// carry the rec_encrypt/rec_decrypt functions, and returns its name.
// Driver names must be unique per registration, hence the sequence.
func registerDriver(key string) string {
	name := fmt.Sprintf("sqlite3_gorecord_%d", driverSeq.Add(1))
	encrypt, decrypt := cipherFuncs(key)

	sql.Register(name, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			// encrypt uses a random nonce, so it is not pure.
			if err := conn.RegisterFunc("rec_encrypt", encrypt, false); err != nil {
				return fmt.Errorf("register rec_encrypt: %w", err)
			}
			if err := conn.RegisterFunc("rec_decrypt", decrypt, true); err != nil {
				return fmt.Errorf("register rec_decrypt: %w", err)
			}
			return nil
		},
	})
	return name
}

// cipherFuncs builds the SQL function pair for the given passphrase.
// An empty passphrase yields identity passthroughs.
func cipherFuncs(key string) (encrypt, decrypt func(string) string) {
	if key == "" {
		identity := func(s string) string { return s }
		return identity, identity
	}

	// AES-256-GCM with a key derived by SHA-256 from the passphrase.
	sum := sha256.Sum256([]byte(key))
	block, err := aes.NewCipher(sum[:])
	if err != nil {
		// aes.NewCipher only fails on bad key sizes; SHA-256 output
		// is always 32 bytes.
		panic(fmt.Sprintf("gateway: cipher init: %v", err))
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		panic(fmt.Sprintf("gateway: gcm init: %v", err))
	}

	encrypt = func(plain string) string {
		nonce := make([]byte, gcm.NonceSize())
		if _, err := rand.Read(nonce); err != nil {
			return ""
		}
		sealed := gcm.Seal(nonce, nonce, []byte(plain), nil)
		return base64.StdEncoding.EncodeToString(sealed)
	}
	decrypt = func(stored string) string {
		data, err := base64.StdEncoding.DecodeString(stored)
		if err != nil || len(data) < gcm.NonceSize() {
			return ""
		}
		nonce, sealed := data[:gcm.NonceSize()], data[gcm.NonceSize():]
		plain, err := gcm.Open(nil, nonce, sealed, nil)
		if err != nil {
			return ""
		}
		return string(plain)
	}
	return encrypt, decrypt
}
