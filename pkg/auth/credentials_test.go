package auth

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func TestManagerStoreAndRetrieve(t *testing.T) {
	manager, store := NewMockManager()

	account := &Account{Username: "collector", Mail: "c@example.com", Password: "s3cret-pass"}
	require.NoError(t, manager.Store(account))
	assert.Equal(t, 1, store.Count())
	assert.False(t, account.LastModified.IsZero())

	got, err := manager.Retrieve("collector")
	require.NoError(t, err)
	assert.Equal(t, "c@example.com", got.Mail)
	assert.Equal(t, "s3cret-pass", got.Password)

	_, err = manager.Retrieve("nobody")
	assert.ErrorIs(t, err, ErrCredentialsNotFound)
}

func TestManagerStoreValidation(t *testing.T) {
	manager, _ := NewMockManager()

	assert.Error(t, manager.Store(&Account{Password: "x"}))
	assert.Error(t, manager.Store(&Account{Username: "x"}))
	assert.Error(t, manager.Store(nil))
}

func TestManagerFallsBackToNextStore(t *testing.T) {
	broken := NewMockStore()
	broken.StoreError = errors.New("keyring locked")
	working := NewMockStore()

	manager := NewManagerWithStores(broken, working)
	require.NoError(t, manager.Store(&Account{Username: "a", Password: "b"}))

	assert.Equal(t, 0, broken.Count())
	assert.Equal(t, 1, working.Count())
}

func TestManagerRetrieveDefaultPicksNewest(t *testing.T) {
	first := NewMockStore()
	second := NewMockStore()
	now := time.Now()

	require.NoError(t, first.Store(&Account{Username: "old", Password: "p", LastModified: now.Add(-time.Hour)}))
	require.NoError(t, second.Store(&Account{Username: "new", Password: "p", LastModified: now}))

	manager := NewManagerWithStores(first, second)
	account, err := manager.RetrieveDefault()
	require.NoError(t, err)
	assert.Equal(t, "new", account.Username)

	accounts, err := manager.List()
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, "new", accounts[0].Username)
	assert.Equal(t, "old", accounts[1].Username)
}

func TestManagerRetrieveDefaultEmpty(t *testing.T) {
	manager, _ := NewMockManager()
	_, err := manager.RetrieveDefault()
	assert.ErrorIs(t, err, ErrCredentialsNotFound)
}

func TestManagerDelete(t *testing.T) {
	manager, store := NewMockManager()
	require.NoError(t, manager.Store(&Account{Username: "gone", Password: "p"}))

	require.NoError(t, manager.Delete("gone"))
	assert.Equal(t, 0, store.Count())

	err := manager.Delete("gone")
	assert.ErrorIs(t, err, ErrCredentialsNotFound)
}

func TestSanitizeAccount(t *testing.T) {
	account := &Account{Username: "u", Password: "correct-horse-battery", TOTPSecret: "JBSWY3DPEHPK3PXP"}
	clean := SanitizeAccount(account)

	assert.Equal(t, "u", clean.Username)
	assert.Equal(t, "co...ry", clean.Password)
	assert.Equal(t, "JB...XP", clean.TOTPSecret)
	assert.Equal(t, "correct-horse-battery", account.Password, "original must be untouched")
	assert.Equal(t, "********", maskString("short"))
	assert.Nil(t, SanitizeAccount(nil))
}

func TestEncryptedFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vault", "credentials.enc")
	store, err := NewEncryptedFileStore(path, "passphrase")
	require.NoError(t, err)

	require.NoError(t, store.Store(&Account{Username: "one", Password: "pw1"}))
	require.NoError(t, store.Store(&Account{Username: "two", Password: "pw2", TOTPSecret: "ABC"}))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "pw1")

	reopened, err := NewEncryptedFileStore(path, "passphrase")
	require.NoError(t, err)
	got, err := reopened.Retrieve("two")
	require.NoError(t, err)
	assert.Equal(t, "pw2", got.Password)
	assert.Equal(t, "ABC", got.TOTPSecret)

	all, err := reopened.List()
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, reopened.Delete("one"))
	require.NoError(t, reopened.Delete("two"))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "empty vault should be removed")
}

func TestEncryptedFileStoreWrongPassphrase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.enc")
	store, err := NewEncryptedFileStore(path, "right")
	require.NoError(t, err)
	require.NoError(t, store.Store(&Account{Username: "u", Password: "p"}))

	wrong, err := NewEncryptedFileStore(path, "wrong")
	require.NoError(t, err)
	_, err = wrong.Retrieve("u")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wrong passphrase")
}

func TestLoadPassphrase(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(PassphraseEnv, "")

	first, err := LoadPassphrase(dir)
	require.NoError(t, err)
	assert.NotEmpty(t, first)

	second, err := LoadPassphrase(dir)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	t.Setenv(PassphraseEnv, "from-env")
	fromEnv, err := LoadPassphrase(dir)
	require.NoError(t, err)
	assert.Equal(t, "from-env", fromEnv)
}

func TestKeyringStoreWithMockBackend(t *testing.T) {
	keyring.MockInit()

	store, err := NewKeyringStore()
	require.NoError(t, err)

	require.NoError(t, store.Store(&Account{Username: "bob", Password: "pw"}))
	require.NoError(t, store.Store(&Account{Username: "alice", Password: "pw"}))

	accounts, err := store.List()
	require.NoError(t, err)
	assert.Len(t, accounts, 2)

	got, err := store.Retrieve("bob")
	require.NoError(t, err)
	assert.Equal(t, "pw", got.Password)

	require.NoError(t, store.Delete("bob"))
	_, err = store.Retrieve("bob")
	assert.ErrorIs(t, err, ErrCredentialsNotFound)

	accounts, err = store.List()
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "alice", accounts[0].Username)
}

func TestNoPrompter(t *testing.T) {
	_, err := NoPrompter{}.PromptSecret("Password")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "password not provided")
}
