package cookie

import (
	"crypto/pbkdf2"
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"github.com/go-playground/errors/v5"
	"github.com/gorilla/securecookie"
)

const minKeyLen = 64

// NewSecureCookie derives the hash and block keys from a base64 encoded cookieKey. An empty
// key generates a random one, which invalidates every cookie on restart.
func NewSecureCookie(cookieKey string) (*securecookie.SecureCookie, error) {
	if cookieKey == "" {
		rKey := securecookie.GenerateRandomKey(minKeyLen)
		if rKey == nil {
			return nil, errors.New("failed to generate random key")
		}
		cookieKey = base64.StdEncoding.EncodeToString(rKey)

		fmt.Printf("Using random CookieKey: %s\n", cookieKey)
	}

	k, err := base64.StdEncoding.DecodeString(cookieKey)
	if err != nil {
		return nil, errors.Wrap(err, "base64.StdEncoding.DecodeString()")
	}
	if len(k) < minKeyLen {
		return nil, errors.Newf("CookieKey to short. Expect minimum of %d bytes. (%d bytes when base64 encoded)", minKeyLen, base64.StdEncoding.EncodedLen(minKeyLen))
	}

	// The hash and block keys are derived from disjoint halves of k.
	hash, err := pbkdf2.Key(sha256.New, string(k[:24]), k[24:32], 4096+int(k[5]), 64)
	if err != nil {
		return nil, errors.Wrap(err, "pbkdf2.Key()")
	}

	block, err := pbkdf2.Key(sha256.New, string(k[32:56]), k[56:64], 4096+int(k[41]), 32)
	if err != nil {
		return nil, errors.Wrap(err, "pbkdf2.Key()")
	}

	return securecookie.New(hash, block).MaxLength(MirrorChunkSize * MaxMirrorChunks), nil
}
