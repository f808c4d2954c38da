package webpush

import (
	"bytes"
	"crypto/ecdh"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// VAPID key sizes for the P-256 curve.
const (
	vapidPrivateKeySize = 32
	vapidPublicKeySize  = 65
)

var (
	// ErrInvalidVAPIDKeys is returned when a key pair cannot be decoded or does not match.
	ErrInvalidVAPIDKeys = errors.New("invalid VAPID key pair")

	// ErrVAPIDConflict is returned when a different key pair is already registered.
	ErrVAPIDConflict = errors.New("a different VAPID key pair is already registered")
)

// VAPIDKeys is a validated application server key pair, base64url encoded.
type VAPIDKeys struct {
	PublicKey  string
	PrivateKey string
}

var (
	vapidMu         sync.Mutex
	registeredVAPID *VAPIDKeys
)

// RegisterVAPID validates the key pair and makes it the process-wide signing
// identity. Registering the same pair again is a no-op that reports
// alreadyRegistered=true.
func RegisterVAPID(publicKey, privateKey string) (alreadyRegistered bool, err error) {
	keys, err := ParseVAPIDKeys(publicKey, privateKey)
	if err != nil {
		return false, err
	}

	vapidMu.Lock()
	defer vapidMu.Unlock()

	if registeredVAPID != nil {
		if *registeredVAPID == keys {
			return true, nil
		}
		return false, ErrVAPIDConflict
	}

	registeredVAPID = &keys
	return false, nil
}

// RegisteredVAPID returns the registered key pair, if any.
func RegisteredVAPID() (VAPIDKeys, bool) {
	vapidMu.Lock()
	defer vapidMu.Unlock()

	if registeredVAPID == nil {
		return VAPIDKeys{}, false
	}
	return *registeredVAPID, true
}

// ParseVAPIDKeys decodes both keys and checks that the public key belongs to
// the private key. Keys are accepted in any base64 alphabet, with or without
// padding, and returned in unpadded base64url form.
func ParseVAPIDKeys(publicKey, privateKey string) (VAPIDKeys, error) {
	priv, err := decodeKey(privateKey)
	if err != nil {
		return VAPIDKeys{}, fmt.Errorf("%w: private key: %v", ErrInvalidVAPIDKeys, err)
	}
	if len(priv) > vapidPrivateKeySize {
		return VAPIDKeys{}, fmt.Errorf("%w: private key is %d bytes", ErrInvalidVAPIDKeys, len(priv))
	}
	// Big-endian scalars may lose leading zero bytes when serialized.
	if len(priv) < vapidPrivateKeySize {
		priv = append(make([]byte, vapidPrivateKeySize-len(priv)), priv...)
	}

	pub, err := decodeKey(publicKey)
	if err != nil {
		return VAPIDKeys{}, fmt.Errorf("%w: public key: %v", ErrInvalidVAPIDKeys, err)
	}
	if len(pub) != vapidPublicKeySize {
		return VAPIDKeys{}, fmt.Errorf("%w: public key is %d bytes", ErrInvalidVAPIDKeys, len(pub))
	}

	key, err := ecdh.P256().NewPrivateKey(priv)
	if err != nil {
		return VAPIDKeys{}, fmt.Errorf("%w: %v", ErrInvalidVAPIDKeys, err)
	}
	if !bytes.Equal(key.PublicKey().Bytes(), pub) {
		return VAPIDKeys{}, fmt.Errorf("%w: public key does not match private key", ErrInvalidVAPIDKeys)
	}

	return VAPIDKeys{
		PublicKey:  base64.RawURLEncoding.EncodeToString(pub),
		PrivateKey: base64.RawURLEncoding.EncodeToString(priv),
	}, nil
}

func decodeKey(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errors.New("empty key")
	}

	encodings := []*base64.Encoding{
		base64.RawURLEncoding,
		base64.URLEncoding,
		base64.RawStdEncoding,
		base64.StdEncoding,
	}
	for _, enc := range encodings {
		if b, err := enc.DecodeString(s); err == nil {
			return b, nil
		}
	}
	return nil, errors.New("not valid base64")
}
