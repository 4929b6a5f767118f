package access

import (
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPolicy(t *testing.T) {
	r, err := NewDefault()
	require.NoError(t, err)

	assert.True(t, r.Can("satgas", "attendance", "submit"))
	assert.True(t, r.Can("satgas", "members", "export"))
	assert.False(t, r.Can("satgas", "satgas_requests", "view"))
	assert.False(t, r.Can("satgas", "card_print", "update"))

	assert.True(t, r.Can("admin", "satgas_requests", "approve"))
	assert.True(t, r.Can("admin", "card_print", "pdf"))
	assert.True(t, r.Can("admin", "dashboard", "view"), "admin inherits satgas")

	assert.False(t, r.Can("", "dashboard", "view"))
	assert.False(t, r.Can("guest", "dashboard", "view"))
}

func TestRolesInheritance(t *testing.T) {
	r, err := NewDefault()
	require.NoError(t, err)

	roles := r.Roles("admin")
	sort.Strings(roles)
	assert.Equal(t, []string{"admin", "satgas"}, roles)
	assert.Equal(t, []string{"satgas"}, r.Roles("satgas"))
}

func TestLoadPolicyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
default_role: viewer
roles:
  viewer:
    permissions:
      - resource: dashboard
        actions: [view]
  root:
    permissions:
      - resource: "*"
        actions: ["*"]
`), 0o600))

	r, err := Load(path)
	require.NoError(t, err)
	assert.True(t, r.Can("", "dashboard", "view"))
	assert.False(t, r.Can("", "members", "view"))
	assert.True(t, r.Can("root", "anything", "delete"))

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestReloadClearsCache(t *testing.T) {
	r, err := NewDefault()
	require.NoError(t, err)
	assert.True(t, r.Can("satgas", "cards", "request"))

	require.NoError(t, r.Parse([]byte("roles:\n  satgas:\n    permissions: []\n")))
	assert.False(t, r.Can("satgas", "cards", "request"))
}

func TestNoPolicyDenies(t *testing.T) {
	assert.False(t, New().Can("admin", "dashboard", "view"))
}

func TestConcurrentCan(t *testing.T) {
	r, err := NewDefault()
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.True(t, r.Can("admin", "card_print", "view"))
			assert.False(t, r.Can("satgas", "card_print", "view"))
		}()
	}
	wg.Wait()
}
