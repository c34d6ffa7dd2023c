package contextfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatOf(t *testing.T) {
	for path, want := range map[string]Format{
		"a.yaml": YAML, "b.YML": YAML, "c.json": JSON, "d.cbor": CBOR,
	} {
		got, err := FormatOf(path)
		require.NoError(t, err)
		assert.Equal(t, want, got, path)
	}
	_, err := FormatOf("e.toml")
	assert.ErrorContains(t, err, "unsupported context file")
}

func TestParseYAMLAndJSON(t *testing.T) {
	ctxs, err := Parse([]byte("title: Docs\npages: [a, b]\nn: 3\n"), YAML)
	require.NoError(t, err)
	require.Len(t, ctxs, 1)
	assert.Equal(t, "Docs", ctxs[0]["title"])
	assert.Equal(t, []any{"a", "b"}, ctxs[0]["pages"])
	assert.Equal(t, 3, ctxs[0]["n"])

	ctxs, err = Parse([]byte(`[{"n": 1, "f": 1.5}, {"n": 2, "nested": {"m": 10}}]`), JSON)
	require.NoError(t, err)
	require.Len(t, ctxs, 2)
	assert.Equal(t, int64(1), ctxs[0]["n"])
	assert.Equal(t, 1.5, ctxs[0]["f"])
	assert.Equal(t, map[string]any{"m": int64(10)}, ctxs[1]["nested"])

	ctxs, err = Parse(nil, YAML)
	require.NoError(t, err)
	assert.Equal(t, []map[string]any{{}}, ctxs)

	_, err = Parse([]byte("[1, 2]"), JSON)
	assert.ErrorContains(t, err, "want a mapping")
	_, err = Parse([]byte(`"text"`), JSON)
	assert.ErrorContains(t, err, "top level is string")
}

func TestParseCBOR(t *testing.T) {
	b, err := cbor.Marshal(map[string]any{"name": "ada", "tags": []string{"x"}, "meta": map[string]any{"n": 3}})
	require.NoError(t, err)
	ctxs, err := Parse(b, CBOR)
	require.NoError(t, err)
	require.Len(t, ctxs, 1)
	assert.Equal(t, "ada", ctxs[0]["name"])
	assert.Equal(t, []any{"x"}, ctxs[0]["tags"])
	meta, ok := ctxs[0]["meta"].(map[string]any)
	require.True(t, ok, "nested maps decode as map[string]any, got %T", ctxs[0]["meta"])
	assert.EqualValues(t, 3, meta["n"])
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ctx.yml")
	require.NoError(t, os.WriteFile(path, []byte("- a: 1\n- a: 2\n"), 0o644))
	ctxs, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, ctxs, 2)

	_, err = Load(filepath.Join(dir, "missing.json"))
	assert.ErrorContains(t, err, "reading context")
}

func TestMergeAndSet(t *testing.T) {
	dst := map[string]any{"site": map[string]any{"name": "a", "lang": "en"}, "n": 1}
	Merge(dst, map[string]any{"site": map[string]any{"name": "b"}, "n": 2})
	assert.Equal(t, map[string]any{"site": map[string]any{"name": "b", "lang": "en"}, "n": 2}, dst)

	require.NoError(t, Set(dst, "site.owner.email=x@y.z"))
	require.NoError(t, Set(dst, "count=3"))
	require.NoError(t, Set(dst, "draft=true"))
	require.NoError(t, Set(dst, "title=a: b"))
	require.NoError(t, Set(dst, "empty="))
	assert.Equal(t, "x@y.z", dst["site"].(map[string]any)["owner"].(map[string]any)["email"])
	assert.Equal(t, 3, dst["count"])
	assert.Equal(t, true, dst["draft"])
	assert.Equal(t, "a: b", dst["title"])
	assert.Nil(t, dst["empty"])

	assert.Error(t, Set(dst, "novalue"))
	assert.Error(t, Set(dst, "=x"))
}

func TestSchema(t *testing.T) {
	s, err := CompileSchema("page.json", []byte(`{
		"type": "object",
		"required": ["title"],
		"properties": {"title": {"type": "string"}, "n": {"type": "integer"}}
	}`))
	require.NoError(t, err)
	assert.NoError(t, s.Validate(map[string]any{"title": "x", "n": 3}))
	assert.Error(t, s.Validate(map[string]any{"n": 3}))
	assert.Error(t, s.Validate(map[string]any{"title": 1}))

	dir := t.TempDir()
	path := filepath.Join(dir, "schema.yaml")
	require.NoError(t, os.WriteFile(path, []byte("type: object\nrequired: [name]\n"), 0o644))
	ys, err := LoadSchema(path)
	require.NoError(t, err)
	assert.Error(t, ys.Validate(map[string]any{}))
	assert.NoError(t, ys.Validate(map[string]any{"name": "n"}))
}
