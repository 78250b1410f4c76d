package frontmatter

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleInstinct = `---
name: build-retry
confidence: 0.4
count: 3
enabled: TRUE
category: workflow
tool: Bash
---

When a build fails with a flaky network error, retry once before debugging.
`

func TestDecode(t *testing.T) {
	rec := Decode(sampleInstinct)

	assert.Equal(t, []string{"name", "confidence", "count", "enabled", "category", "tool"}, rec.Meta.Keys())

	name, ok := rec.Meta.Get("name")
	require.True(t, ok)
	assert.Equal(t, KindString, name.Kind())
	assert.Equal(t, "build-retry", name.String())

	conf, _ := rec.Meta.Get("confidence")
	assert.Equal(t, KindFloat, conf.Kind())
	f, _ := conf.Float64()
	assert.InDelta(t, 0.4, f, 1e-9)

	count, _ := rec.Meta.Get("count")
	assert.Equal(t, KindInt, count.Kind())
	n, ok := count.Int64()
	require.True(t, ok)
	assert.Equal(t, int64(3), n)

	enabled, _ := rec.Meta.Get("enabled")
	b, ok := enabled.Bool()
	require.True(t, ok)
	assert.True(t, b)

	assert.Equal(t, "When a build fails with a flaky network error, retry once before debugging.", rec.Body)
}

func TestDecodeNumericCoercion(t *testing.T) {
	rec := Decode("---\nconfidence: 0.5\ncount: 3\nwhole: 1.0\nneg: -2\n---\nbody")

	conf, _ := rec.Meta.Get("confidence")
	assert.Equal(t, Float(0.5), conf)

	count, _ := rec.Meta.Get("count")
	assert.Equal(t, Int(3), count)

	whole, _ := rec.Meta.Get("whole")
	assert.Equal(t, Int(1), whole, "integral floats collapse to int")

	neg, _ := rec.Meta.Get("neg")
	assert.Equal(t, Int(-2), neg)
}

func TestDecodeNoFrontmatter(t *testing.T) {
	inputs := []string{
		"just some notes\nwith lines\n",
		"  leading space is kept  \n",
		"",
		"----\nname: four-dashes\n---\nbody",
	}
	for _, in := range inputs {
		rec := Decode(in)
		assert.Equal(t, 0, rec.Meta.Len(), "input %q", in)
		assert.Equal(t, in, rec.Body, "input %q", in)
	}
}

func TestDecodeUnterminated(t *testing.T) {
	in := "---\nname: dangling\nno closing delimiter"
	rec := Decode(in)
	assert.Equal(t, 0, rec.Meta.Len())
	assert.Equal(t, in, rec.Body)
}

func TestDecodeIgnoresLinesWithoutColon(t *testing.T) {
	rec := Decode("---\nname: x\njust words\nurl: http://example.com:8080/a\n---\n\nbody\n")

	assert.Equal(t, []string{"name", "url"}, rec.Meta.Keys())
	url, _ := rec.Meta.Get("url")
	assert.Equal(t, "http://example.com:8080/a", url.String(), "only the first colon splits")
}

func TestDecodeDuplicateKeyKeepsFirstPosition(t *testing.T) {
	rec := Decode("---\na: 1\nb: 2\na: 3\n---\n")
	assert.Equal(t, []string{"a", "b"}, rec.Meta.Keys())
	a, _ := rec.Meta.Get("a")
	assert.Equal(t, Int(3), a)
}

func TestEncode(t *testing.T) {
	var meta Metadata
	meta.Set("name", String("build-retry"))
	meta.Set("confidence", Float(0.45))
	meta.Set("count", Int(4))
	meta.Set("enabled", Bool(false))

	got := Encode(meta, "Retry once.")
	want := "---\nname: build-retry\nconfidence: 0.45\ncount: 4\nenabled: false\n---\n\nRetry once.\n"
	assert.Equal(t, want, got)
}

func TestEncodeEmptyMetadata(t *testing.T) {
	got := Encode(Metadata{}, "body")
	assert.Equal(t, "---\n---\n\nbody\n", got)

	rec := Decode(got)
	assert.Equal(t, 0, rec.Meta.Len())
	assert.Equal(t, "body", rec.Body)
}

func TestRoundTrip(t *testing.T) {
	var meta Metadata
	meta.Set("name", String("prefer-table-tests"))
	meta.Set("confidence", Float(0.72))
	meta.Set("seen", Int(12))
	meta.Set("negative", Int(-7))
	meta.Set("tiny", Float(0.00001))
	meta.Set("huge", Float(1e300))
	meta.Set("active", Bool(true))
	meta.Set("note", String("uses: colons, and spaces"))
	body := "Write table-driven tests.\n\n- one\n- two\n\n---\n\nTrailing section after a rule."

	rec := Decode(Encode(meta, body))

	assert.True(t, meta.Equal(rec.Meta), "metadata differs: %v vs %v", meta.Keys(), rec.Meta.Keys())
	assert.Equal(t, body, rec.Body)

	again := Decode(rec.Encode())
	assert.True(t, rec.Meta.Equal(again.Meta))
	assert.Equal(t, rec.Body, again.Body)
}

func TestRoundTripNormalizesIntegralFloat(t *testing.T) {
	var meta Metadata
	meta.Set("score", Float(1))

	text := Encode(meta, "")
	assert.Contains(t, text, "score: 1\n")

	score, _ := Decode(text).Meta.Get("score")
	assert.Equal(t, Int(1), score)
}

func TestCoerce(t *testing.T) {
	cases := []struct {
		raw  string
		want Value
	}{
		{"42", Int(42)},
		{" 0.25 ", Float(0.25)},
		{"1e3", Int(1000)},
		{"-0", Int(0)},
		{"true", Bool(true)},
		{"False", Bool(false)},
		{"yes", String("yes")},
		{"nan", String("nan")},
		{"inf", String("inf")},
		{"0x10", String("0x10")},
		{"1_000", String("1_000")},
		{"", String("")},
		{"1e20", Float(1e20)},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Coerce(tc.raw), "Coerce(%q)", tc.raw)
	}
}

func TestValueString(t *testing.T) {
	assert.Equal(t, "0.1", Float(0.1).String())
	assert.Equal(t, "0.85", Float(0.85).String())
	assert.Equal(t, "1e+20", Float(1e20).String())
	assert.Equal(t, "0", Float(0).String())
	assert.Equal(t, "true", Bool(true).String())
	assert.Equal(t, "-3", Int(-3).String())
}

func TestMetadataJSONKeepsOrder(t *testing.T) {
	var meta Metadata
	meta.Set("zeta", String("z"))
	meta.Set("alpha", Int(1))
	meta.Set("mid", Float(0.5))
	meta.Set("flag", Bool(true))

	data, err := json.Marshal(meta)
	require.NoError(t, err)
	assert.Equal(t, `{"zeta":"z","alpha":1,"mid":0.5,"flag":true}`, string(data))
}

func TestMetadataSetDelete(t *testing.T) {
	var meta Metadata
	meta.Set("a", Int(1))
	meta.Set("b", Int(2))
	meta.Set("a", Int(10))
	meta.Delete("b")
	meta.Delete("missing")

	assert.Equal(t, []string{"a"}, meta.Keys())
	assert.False(t, meta.Has("b"))

	clone := meta.Clone()
	clone.Set("c", Int(3))
	assert.Equal(t, 1, meta.Len())
	assert.Equal(t, 2, clone.Len())
}
