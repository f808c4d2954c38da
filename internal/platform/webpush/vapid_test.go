package webpush

import (
	"encoding/base64"
	"sync"
	"testing"

	webpushgo "github.com/SherClockHolmes/webpush-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	sharedKeysOnce sync.Once
	sharedPublic   string
	sharedPrivate  string
)

// testVAPIDKeys returns one key pair per test binary, since the registry is process-wide.
func testVAPIDKeys(t *testing.T) (public, private string) {
	t.Helper()
	var err error
	sharedKeysOnce.Do(func() {
		sharedPrivate, sharedPublic, err = webpushgo.GenerateVAPIDKeys()
	})
	require.NoError(t, err)
	require.NotEmpty(t, sharedPublic)
	return sharedPublic, sharedPrivate
}

func TestParseVAPIDKeys(t *testing.T) {
	public, private := testVAPIDKeys(t)
	otherPrivate, otherPublic, err := webpushgo.GenerateVAPIDKeys()
	require.NoError(t, err)

	rawPub, err := base64.RawURLEncoding.DecodeString(public)
	require.NoError(t, err)

	tests := []struct {
		name    string
		public  string
		private string
		wantErr bool
	}{
		{name: "matching pair", public: public, private: private},
		{name: "padded std encoding", public: base64.StdEncoding.EncodeToString(rawPub), private: private},
		{name: "mismatched pair", public: otherPublic, private: private, wantErr: true},
		{name: "swapped keys", public: private, private: public, wantErr: true},
		{name: "not base64", public: "%%%", private: otherPrivate, wantErr: true},
		{name: "empty", public: "", private: "", wantErr: true},
		{name: "short public key", public: base64.RawURLEncoding.EncodeToString(rawPub[:33]), private: private, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			keys, err := ParseVAPIDKeys(tt.public, tt.private)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidVAPIDKeys)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, public, keys.PublicKey)
		})
	}
}

func TestRegisterVAPID_Idempotent(t *testing.T) {
	public, private := testVAPIDKeys(t)

	// The first call in the binary may already have happened in another test.
	_, err := RegisterVAPID(public, private)
	require.NoError(t, err)

	already, err := RegisterVAPID(public, private)
	require.NoError(t, err)
	assert.True(t, already, "repeat registration reports already registered")

	keys, ok := RegisteredVAPID()
	require.True(t, ok)
	assert.Equal(t, public, keys.PublicKey)

	otherPrivate, otherPublic, err := webpushgo.GenerateVAPIDKeys()
	require.NoError(t, err)
	_, err = RegisterVAPID(otherPublic, otherPrivate)
	assert.ErrorIs(t, err, ErrVAPIDConflict)

	_, err = RegisterVAPID("bogus", "bogus")
	assert.ErrorIs(t, err, ErrInvalidVAPIDKeys)
}

func TestRegisterVAPID_Concurrent(t *testing.T) {
	public, private := testVAPIDKeys(t)

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := RegisterVAPID(public, private)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
}
