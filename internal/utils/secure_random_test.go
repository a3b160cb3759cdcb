package utils_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mzwallet/mz_wallet_backend/internal/utils"
)

func TestGenerateOTPCode(t *testing.T) {
	code, err := utils.GenerateOTPCode(6)
	require.NoError(t, err)
	assert.Len(t, code, 6)
	for _, ch := range code {
		assert.True(t, ch >= '0' && ch <= '9', "code %q contains non-digit", code)
	}

	_, err = utils.GenerateOTPCode(0)
	assert.Error(t, err)
}

func TestGenerateSecureRandomString(t *testing.T) {
	s, err := utils.GenerateSecureRandomString(8)
	require.NoError(t, err)
	assert.Len(t, s, 16) // hex encoding doubles the byte length

	other, err := utils.GenerateSecureRandomString(8)
	require.NoError(t, err)
	assert.NotEqual(t, s, other)
}
