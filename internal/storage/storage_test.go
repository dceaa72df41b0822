package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docvault/internal/config"
)

func TestAddressForDigest(t *testing.T) {
	sum := sha256.Sum256([]byte("hello world"))
	addr, err := AddressForDigest(hex.EncodeToString(sum[:]))
	require.NoError(t, err)

	c, err := cid.Decode(addr)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), c.Version())
	assert.Equal(t, uint64(cid.Raw), c.Type())

	decoded, err := multihash.Decode(c.Hash())
	require.NoError(t, err)
	assert.Equal(t, uint64(multihash.SHA2_256), decoded.Code)
	assert.Equal(t, sum[:], decoded.Digest)
}

func TestAddressForDigest_Invalid(t *testing.T) {
	_, err := AddressForDigest("not-hex")
	assert.Error(t, err)
}

func TestParseAddress(t *testing.T) {
	sum := sha256.Sum256([]byte("x"))
	addr, err := AddressForDigest(hex.EncodeToString(sum[:]))
	require.NoError(t, err)

	got, err := ParseAddress(addr)
	require.NoError(t, err)
	assert.Equal(t, addr, got)

	for _, bad := range []string{"", "hello", "Qm123"} {
		_, err := ParseAddress(bad)
		assert.ErrorIs(t, err, ErrInvalidAddress, bad)
	}
}

func TestOpen(t *testing.T) {
	t.Run("ipfs backend", func(t *testing.T) {
		cfg := &config.AppConfig{ContentStore: config.ContentStoreConfig{
			Backend:     config.BackendIPFS,
			IPFSAPIURL:  "http://127.0.0.1:5001",
			CallTimeout: 1,
		}}
		s, err := Open(cfg, zerolog.Nop())
		require.NoError(t, err)
		assert.IsType(t, &ipfsStore{}, s)
	})

	t.Run("invalid config", func(t *testing.T) {
		cfg := &config.AppConfig{ContentStore: config.ContentStoreConfig{Backend: "tape"}}
		_, err := Open(cfg, zerolog.Nop())
		assert.Error(t, err)
	})
}
