package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndComparePassword(t *testing.T) {
	hash, err := HashPassword("s3cure-enough1")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cure-enough1", hash)

	assert.NoError(t, ComparePassword(hash, "s3cure-enough1"))
	assert.Error(t, ComparePassword(hash, "wrong-password1"))
}

func TestHashPassword_Empty(t *testing.T) {
	_, err := HashPassword("")
	assert.Error(t, err)
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"valid", "correcthorse1", false},
		{"too short", "ab1", true},
		{"common", "password123", true},
		{"no digit", "onlyletters", true},
		{"no letter", "1234567890", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
