package validator

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct{ name string }

func (i item) Validate() error { return NotEmpty(i.name, "name") }

func TestAllReturnsFirstError(t *testing.T) {
	first := errors.New("first")
	assert.NoError(t, All(nil, nil))
	assert.Equal(t, first, All(nil, first, errors.New("second")))
}

func TestEachAndMap(t *testing.T) {
	err := Each([]item{{"a"}, {""}}, "jobs")
	require.Error(t, err)
	assert.Equal(t, "jobs[1]: name must not be empty", err.Error())

	err = Map([]string{"x", ""}, NotEmpty, "contexts")
	require.Error(t, err)
	assert.Equal(t, "contexts[1] must not be empty", err.Error())
}

func TestMapDictIsOrdered(t *testing.T) {
	err := MapDict(map[string]string{"b": "", "a": ""}, func(_ string, v, desc string) error {
		return NotEmpty(v, desc)
	}, "vars")
	require.Error(t, err)
	assert.Equal(t, `vars["a"] must not be empty`, err.Error())
}

func TestNoDuplicatesAndAllowed(t *testing.T) {
	assert.NoError(t, NoDuplicates([]string{"a", "b"}, "outputs"))
	assert.ErrorContains(t, NoDuplicates([]string{"a", "a"}, "outputs"), "duplicate value: a")
	assert.NoError(t, MatchesAllowed("native", []string{"native", "starlark"}, "evaluator"))
	assert.ErrorContains(t, SliceHasElements([]string{"native", "lua"}, []string{"native", "starlark"}, "evaluator"), "got lua")
}

func TestInRangeAndDelimiter(t *testing.T) {
	assert.NoError(t, InRange(32, 1, 1024, "depth"))
	assert.Error(t, InRange(0, 1, 1024, "depth"))
	for _, ok := range []string{"$", "%", "@", "|"} {
		assert.NoError(t, Delimiter(ok, "delimiter"), ok)
	}
	for _, bad := range []string{"", "$$", "a", " ", "é"} {
		err := Delimiter(bad, "delimiter")
		if assert.Error(t, err, bad) {
			assert.True(t, strings.HasPrefix(err.Error(), "delimiter must be"))
		}
	}
}
