package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilderBasics(t *testing.T) {
	err := Newf("fetch failed for %s", "US-NC-063").
		Category(CategoryNetwork).
		Component("ebird").
		Context("region_code", "US-NC-063").
		Build()

	require.NotNil(t, err)
	assert.Equal(t, "fetch failed for US-NC-063", err.Error())
	assert.Equal(t, CategoryNetwork, err.Category)
	assert.Equal(t, "ebird", err.GetComponent())
	assert.Equal(t, "US-NC-063", err.GetContext()["region_code"])
	assert.False(t, err.GetTimestamp().IsZero())
}

func TestBuilderDefaults(t *testing.T) {
	err := New(NewStd("plain")).Build()

	assert.Equal(t, CategoryGeneric, err.Category)
	assert.NotEmpty(t, err.GetComponent())
}

func TestUnwrapAndIs(t *testing.T) {
	base := NewStd("base failure")
	wrapped := New(fmt.Errorf("outer: %w", base)).Category(CategoryDatabase).Build()

	assert.True(t, Is(wrapped, base))
	assert.True(t, IsCategory(wrapped, CategoryDatabase))
	assert.False(t, IsCategory(wrapped, CategoryNetwork))

	var target *EnhancedError
	require.True(t, As(wrapped, &target))
	assert.Equal(t, CategoryDatabase, target.Category)
}

func TestIsNotFound(t *testing.T) {
	err := Newf("species not found: %s", "nswowl").Category(CategoryNotFound).Build()

	assert.True(t, IsNotFound(err))
	assert.False(t, IsNotFound(NewStd("other")))
}

func TestContextIsCopied(t *testing.T) {
	err := Newf("boom").Context("key", "value").Build()

	ctx := err.GetContext()
	ctx["key"] = "mutated"

	assert.Equal(t, "value", err.GetContext()["key"])
}
