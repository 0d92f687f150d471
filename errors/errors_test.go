package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	err := New("test error")
	require.NotNil(t, err)
	assert.Equal(t, "test error", err.Error())
}

func TestWrap(t *testing.T) {
	original := New("original")
	wrapped := Wrap(original, "wrapped")

	assert.Contains(t, wrapped.Error(), "wrapped")
	assert.Contains(t, wrapped.Error(), "original")
	assert.True(t, Is(wrapped, original))
}

func TestWithHint(t *testing.T) {
	err := New("error")
	withHint := WithHint(err, "try this fix")

	hints := GetAllHints(withHint)
	require.Len(t, hints, 1)
	assert.Equal(t, "try this fix", hints[0])
}

func TestStackTrace(t *testing.T) {
	err := New("with stack")

	detailed := fmt.Sprintf("%+v", err)
	assert.Contains(t, detailed, "errors_test.go")
}

func TestNilHandling(t *testing.T) {
	assert.Nil(t, Wrap(nil, "context"))
	assert.False(t, IsFatal(nil))
	assert.Equal(t, "", Kind(nil))
}

func TestModuleNotFound(t *testing.T) {
	err := NewModuleNotFound("Aspire.Hosting.Redis", []string{"/a", "/b"})

	assert.True(t, Is(err, ErrModuleNotFound))
	assert.True(t, IsFatal(err))
	assert.Equal(t, "ModuleNotFound", Kind(err))
	assert.Contains(t, err.Error(), "Aspire.Hosting.Redis")
	assert.Contains(t, err.Error(), "/b")
	assert.NotEmpty(t, GetAllHints(err))
}

func TestTypeResolution_WrapsCause(t *testing.T) {
	cause := NewModuleNotFound("Missing", nil)
	err := NewTypeResolution("Aspire.Hosting.Redis", "Missing::Foo.Bar", cause)

	assert.True(t, Is(err, ErrTypeResolution))
	assert.Equal(t, "TypeResolutionFailure", Kind(err))
	assert.Contains(t, err.Error(), "Missing::Foo.Bar")
	assert.Contains(t, err.Error(), "Aspire.Hosting.Redis")
}

func TestMarkedWrapSurvives(t *testing.T) {
	err := Mark(Newf("capability %s declared twice", "a/b@1"), ErrDuplicateCapability)
	wrapped := Wrap(err, "assembling model")

	assert.True(t, Is(wrapped, ErrDuplicateCapability))
	assert.False(t, Is(wrapped, ErrProxyNameCollision))
	assert.Equal(t, "DuplicateCapabilityIdentifier", Kind(wrapped))
}

func TestDegradationsAreNotFatal(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind string
	}{
		{"unrepresentable parameter", Mark(New("skip"), ErrUnrepresentableParameter), "UnrepresentableRequiredParameter"},
		{"context attribute", Mark(New("skip"), ErrContextAttributeUnresolved), "ContextAttributeUnresolved"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, IsFatal(tt.err))
			assert.Equal(t, tt.kind, Kind(tt.err))
		})
	}
}

func TestUnclassified(t *testing.T) {
	err := New("plain")
	assert.False(t, IsFatal(err))
	assert.Equal(t, "", Kind(err))
}
