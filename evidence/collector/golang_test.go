package collector

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/semaudit/evidence"
)

const keychainSource = `package vault

import (
	"io"
	"time"
)

// SessionTTL is how long an issued session stays valid.
const SessionTTL = 30 * time.Minute

const internalRetries = 3

const UndocumentedLimit = 10

// Keychain stores encrypted credentials for a workspace.
// audit:security
type Keychain struct {
	path string
}

// Open unlocks the keychain with the master passphrase.
// audit:security
func (k *Keychain) Open(passphrase string) error {
	return nil
}

// Close locks the keychain.
func (k *Keychain) Close() error { return nil }

func (k *Keychain) rotate() {}

// Debug dumps raw entries to stdout.
// audit:ignore
func Debug() {}

// NewKeychain creates a keychain rooted at dir.
func NewKeychain(dir string) *Keychain { return &Keychain{path: dir} }

// audit:fact credentials can be exported to an encrypted archive
func Export(w io.Writer) error { return nil }
`

func collectGoSource(t *testing.T, source string) []evidence.Fact {
	t.Helper()

	path := filepath.Join(t.TempDir(), "keychain.go")
	require.NoError(t, os.WriteFile(path, []byte(source), 0o644))

	facts, err := NewGoCollector().CollectFile(context.Background(), path, "vault/keychain.go", "credentials")
	require.NoError(t, err)
	return facts
}

func TestGoCollector_CollectFile(t *testing.T) {
	facts := collectGoSource(t, keychainSource)
	require.Len(t, facts, 6)

	want := []evidence.Fact{
		{
			FeatureKey:  "credentials",
			Description: "is how long an issued session stays valid",
			Location:    "vault/keychain.go:9",
		},
		{
			FeatureKey:       "credentials",
			Description:      "stores encrypted credentials for a workspace",
			Location:         "vault/keychain.go:17",
			SecurityRelevant: true,
		},
		{
			FeatureKey:       "credentials",
			Description:      "unlocks the keychain with the master passphrase",
			Location:         "vault/keychain.go:23",
			SecurityRelevant: true,
		},
		{
			FeatureKey:  "credentials",
			Description: "locks the keychain",
			Location:    "vault/keychain.go:28",
		},
		{
			FeatureKey:  "credentials",
			Description: "creates a keychain rooted at dir",
			Location:    "vault/keychain.go:37",
		},
		{
			FeatureKey:  "credentials",
			Description: "credentials can be exported to an encrypted archive",
			Location:    "vault/keychain.go:40",
		},
	}
	assert.Equal(t, want, facts)
}

func TestGoCollector_SkipsTestFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keychain_test.go")
	require.NoError(t, os.WriteFile(path, []byte(keychainSource), 0o644))

	facts, err := NewGoCollector().CollectFile(context.Background(), path, "vault/keychain_test.go", "credentials")
	require.NoError(t, err)
	assert.Empty(t, facts)
}

func TestGoCollector_GroupedConstDoc(t *testing.T) {
	facts := collectGoSource(t, `package vault

// Supported key derivation functions.
const (
	// KDFArgon2 derives keys with argon2id.
	KDFArgon2 = "argon2id"
	KDFScrypt = "scrypt"
)
`)

	require.Len(t, facts, 2)
	assert.Equal(t, "derives keys with argon2id", facts[0].Description)
	assert.Equal(t, "vault/keychain.go:6", facts[0].Location)
	assert.Equal(t, "Supported key derivation functions", facts[1].Description)
	assert.Equal(t, "vault/keychain.go:7", facts[1].Location)
}

func TestGoCollector_ParseError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.go")
	require.NoError(t, os.WriteFile(path, []byte("package vault\nfunc {"), 0o644))

	_, err := NewGoCollector().CollectFile(context.Background(), path, "vault/broken.go", "credentials")
	assert.ErrorContains(t, err, "parse file")
}

func TestGoCollector_MissingFile(t *testing.T) {
	_, err := NewGoCollector().CollectFile(context.Background(), filepath.Join(t.TempDir(), "gone.go"), "gone.go", "credentials")
	assert.ErrorContains(t, err, "read file")
}

func TestGoCollector_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewGoCollector().CollectFile(ctx, "any.go", "any.go", "credentials")
	assert.ErrorIs(t, err, context.Canceled)
}
