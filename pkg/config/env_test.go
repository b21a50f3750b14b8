package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"
)

func TestLoadEnv(t *testing.T) {
	t.Run("missing file is not an error", func(t *testing.T) {
		require.NoError(t, LoadEnv(filepath.Join(t.TempDir(), "nope.env")))
	})

	t.Run("parses and does not clobber", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), ".env")
		content := "# comment\n\nFOO_FROM_FILE=bar\nALREADY_SET=from-file\nmalformed line\n"
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

		t.Setenv("ALREADY_SET", "from-env")
		t.Setenv("FOO_FROM_FILE", "")

		require.NoError(t, LoadEnv(path))
		require.Equal(t, "bar", os.Getenv("FOO_FROM_FILE"))
		require.Equal(t, "from-env", os.Getenv("ALREADY_SET"))
	})
}

func TestGetRPCEndpoints(t *testing.T) {
	t.Setenv("RPC_ENDPOINTS", " https://a.example.com , https://b.example.com ,")
	require.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, GetRPCEndpoints())

	t.Setenv("RPC_ENDPOINTS", "")
	require.Nil(t, GetRPCEndpoints())
}

func TestGetAddress(t *testing.T) {
	t.Run("unset reads as the zero address", func(t *testing.T) {
		t.Setenv("ROUTER_OWNER", "")
		addr, err := GetAddress("ROUTER_OWNER")
		require.NoError(t, err)
		require.True(t, addr.IsZero())
	})

	t.Run("valid base58", func(t *testing.T) {
		want := solana.NewWallet().PublicKey()
		t.Setenv("ROUTER_OWNER", want.String())
		addr, err := GetAddress("ROUTER_OWNER")
		require.NoError(t, err)
		require.True(t, addr.Equals(want))
	})

	t.Run("invalid base58", func(t *testing.T) {
		t.Setenv("ROUTER_OWNER", "not-base58-0OIl")
		_, err := GetAddress("ROUTER_OWNER")
		require.Error(t, err)
	})

	t.Run("wrong length", func(t *testing.T) {
		t.Setenv("ROUTER_OWNER", "abc")
		_, err := GetAddress("ROUTER_OWNER")
		require.Error(t, err)
	})
}

func TestGetReferrerFeeBps(t *testing.T) {
	t.Setenv("REFERRER_FEE_BPS", "")
	bps, err := GetReferrerFeeBps()
	require.NoError(t, err)
	require.Zero(t, bps)

	t.Setenv("REFERRER_FEE_BPS", "250")
	bps, err = GetReferrerFeeBps()
	require.NoError(t, err)
	require.Equal(t, uint32(250), bps)

	t.Setenv("REFERRER_FEE_BPS", "many")
	_, err = GetReferrerFeeBps()
	require.Error(t, err)
}
