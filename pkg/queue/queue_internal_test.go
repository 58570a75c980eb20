package queue

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTruncate(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abc", truncate("abcdef", 3))

	// "é" is two bytes; cutting in the middle must back off to a rune start.
	s := strings.Repeat("é", 5)
	got := truncate(s, 5)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, "éé", got)
}

func TestErrorText(t *testing.T) {
	t.Parallel()

	assert.Empty(t, errorText(nil))
	assert.Equal(t, "boom", errorText(errors.New("boom")))

	long := errorText(errors.New(strings.Repeat("x", maxErrorLength+500)))
	assert.Len(t, long, maxErrorLength)
}

func TestStorageError(t *testing.T) {
	t.Parallel()

	assert.NoError(t, storageError(nil))
	assert.Same(t, ErrNoJob, storageError(ErrNoJob))
	assert.Same(t, ErrJobNotFound, storageError(ErrJobNotFound))

	cause := errors.New("disk full")
	err := storageError(cause)
	assert.ErrorIs(t, err, ErrStorage)
	assert.ErrorIs(t, err, cause)
}

func TestStatus(t *testing.T) {
	t.Parallel()

	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusReserved.Terminal())
	assert.True(t, StatusDone.Terminal())
	assert.True(t, StatusDead.Terminal())

	assert.True(t, StatusReserved.Valid())
	assert.False(t, Status("archived").Valid())
}

func TestPayloadSchemas(t *testing.T) {
	t.Parallel()

	schemas, err := compileSchemas(map[string]string{
		"sms.dispatch": `{
			"type": "object",
			"required": ["phone", "text"],
			"properties": {
				"phone": {"type": "string", "minLength": 5},
				"text": {"type": "string"}
			}
		}`,
	})
	require.NoError(t, err)

	assert.NoError(t, schemas.validate("sms.dispatch", []byte(`{"phone":"+15550100","text":"hi"}`)))
	assert.NoError(t, schemas.validate("other.kind", []byte(`42`)), "kinds without a schema are not checked")

	err = schemas.validate("sms.dispatch", []byte(`{"phone":"1"}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "text")
}

func TestCompileSchemas_Invalid(t *testing.T) {
	t.Parallel()

	_, err := compileSchemas(map[string]string{"bad": `{"type": 12}`})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
