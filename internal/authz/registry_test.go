package authz

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryWellFormed(t *testing.T) {
	reg := Registry()
	require.NotEmpty(t, reg)

	for code, desc := range reg {
		assert.NotEmpty(t, desc, "description for %s", code)
		parts := strings.SplitN(code, ":", 2)
		require.Len(t, parts, 2, "code %q must be module:action", code)
		assert.NotEmpty(t, parts[0], "module of %q", code)
		assert.NotEmpty(t, parts[1], "action of %q", code)
		assert.Equal(t, code, strings.ToLower(code), "codes are lowercase")
	}
}

func TestRegistryReturnsCopy(t *testing.T) {
	reg := Registry()
	reg["forged:code"] = "forged"
	assert.False(t, Exists("forged:code"))
}

func TestCodesSortedAndComplete(t *testing.T) {
	codes := Codes()
	assert.Len(t, codes, len(Registry()))
	for i := 1; i < len(codes); i++ {
		assert.Less(t, codes[i-1], codes[i], "codes must be sorted")
	}
}

func TestExists(t *testing.T) {
	assert.True(t, Exists("users:create"))
	assert.True(t, Exists("tenants:delete"))
	assert.False(t, Exists("users:frobnicate"))
	assert.False(t, Exists(""))
}

func TestDescribe(t *testing.T) {
	desc, ok := Describe("patients:view")
	assert.True(t, ok)
	assert.NotEmpty(t, desc)

	_, ok = Describe("nope:nope")
	assert.False(t, ok)
}

func TestModule(t *testing.T) {
	assert.Equal(t, "users", Module("users:list"))
	assert.Equal(t, "lab-cases", Module("lab-cases:status-update"))
	assert.Equal(t, "oddball", Module("oddball"))
}

func TestGroupsPartitionTheRegistry(t *testing.T) {
	groups := Groups()
	total := 0
	for module, codes := range groups {
		require.NotEmpty(t, codes, "module %s", module)
		for _, code := range codes {
			assert.Equal(t, module, Module(code))
			assert.True(t, Exists(code))
		}
		total += len(codes)
	}
	assert.Equal(t, len(Registry()), total)
}
