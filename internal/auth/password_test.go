package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPasswordHasher_Roundtrip(t *testing.T) {
	hasher := NewPasswordHasher(10)

	hash, err := hasher.Hash("S3cure-pass!")
	assert.NoError(t, err)
	assert.NotEqual(t, "S3cure-pass!", hash)

	assert.True(t, hasher.Verify("S3cure-pass!", hash))
	assert.False(t, hasher.Verify("s3cure-pass!", hash))
	assert.False(t, hasher.Verify("", hash))
}

func TestPasswordHasher_SaltsEveryHash(t *testing.T) {
	hasher := NewPasswordHasher(10)

	first, err := hasher.Hash("same-password-A1!")
	assert.NoError(t, err)
	second, err := hasher.Hash("same-password-A1!")
	assert.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.True(t, hasher.Verify("same-password-A1!", first))
	assert.True(t, hasher.Verify("same-password-A1!", second))
}

func TestPasswordHasher_MalformedHash(t *testing.T) {
	hasher := NewPasswordHasher(10)

	assert.False(t, hasher.Verify("whatever", ""))
	assert.False(t, hasher.Verify("whatever", "not-a-bcrypt-hash"))
}
