package value

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_ClassifiesLinks(t *testing.T) {
	t.Parallel()
	doc := `{"sys":{"id":"e1","type":"Entry"},"fields":{"author":{"en":{"sys":{"type":"Link","linkType":"Entry","id":"a1"}}},"tags":[{"sys":{"type":"Link","linkType":"Tag","id":"t1"}},"plain"]}}`
	v, err := Parse([]byte(doc))
	require.NoError(t, err)

	obj, ok := v.(*Object)
	require.True(t, ok, "record must parse as object, got %T", v)
	assert.Equal(t, "Entry", obj.Str("sys", "type"))

	author, ok := obj.Lookup("fields", "author", "en")
	require.True(t, ok)
	link, ok := author.(*Link)
	require.True(t, ok, "expected *Link, got %T", author)
	assert.Equal(t, "Entry", link.LinkType)
	assert.Equal(t, "a1", link.ID)

	tags, ok := obj.Lookup("fields", "tags")
	require.True(t, ok)
	arr := tags.(*Array)
	require.Len(t, arr.Items, 2)
	assert.IsType(t, &Link{}, arr.Items[0])
	assert.IsType(t, Scalar{}, arr.Items[1])
}

func TestParse_SysWithoutLinkTypeIsObject(t *testing.T) {
	t.Parallel()
	v, err := Parse([]byte(`{"sys":{"type":"Entry","id":"x"}}`))
	require.NoError(t, err)
	assert.IsType(t, &Object{}, v)

	v, err = Parse([]byte(`{"sys":"Link"}`))
	require.NoError(t, err)
	assert.IsType(t, &Object{}, v)
}

func TestMarshal_PreservesKeyOrderAndLiterals(t *testing.T) {
	t.Parallel()
	doc := `{"z":1,"a":"two","m":[true,null,1.5],"o":{"k":-3}}`
	v, err := Parse([]byte(doc))
	require.NoError(t, err)
	out, err := json.Marshal(v)
	require.NoError(t, err)
	assert.Equal(t, doc, string(out))
}

func TestRef_MarshalsAsLinkStub(t *testing.T) {
	t.Parallel()
	a := NewObject()
	b := NewObject()
	a.Set("ref", &Ref{Link: NewLink("Bar", "1"), Target: b})
	b.Set("ref", &Ref{Link: NewLink("Foo", "0"), Target: a})

	out, err := json.Marshal(a)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ref":{"sys":{"type":"Link","linkType":"Bar","id":"1"}}}`, string(out))
	assert.Same(t, b, a.Target("ref"))
	assert.Same(t, a, b.Target("ref").(*Object).Target("ref").(*Object).Target("ref"))
}

func TestObject_SetDeleteClone(t *testing.T) {
	t.Parallel()
	o := NewObject()
	o.Set("a", Int(1))
	o.Set("b", Int(2))
	o.Set("a", Int(3))
	assert.Equal(t, []string{"a", "b"}, o.Keys())

	c := o.Clone()
	c.Delete("a")
	assert.Equal(t, []string{"b"}, c.Keys())
	assert.Equal(t, 2, o.Len(), "clone must not alias keys")

	n, ok := o.fields["a"].(Scalar).Int()
	require.True(t, ok)
	assert.Equal(t, 3, n)
}

func TestParse_Errors(t *testing.T) {
	t.Parallel()
	_, err := Parse([]byte(`{"a":1} {"b":2}`))
	assert.ErrorIs(t, err, ErrTrailingData)

	_, err = Parse([]byte(`{bad json`))
	assert.Error(t, err)

	_, err = ParseObject([]byte(`[1,2]`))
	assert.Error(t, err)
}

func TestDecodeInto(t *testing.T) {
	t.Parallel()
	v, err := FromAny(map[string]any{"name": "n", "n": 2})
	require.NoError(t, err)
	var dst struct {
		Name string `json:"name"`
		N    int    `json:"n"`
	}
	require.NoError(t, DecodeInto(v, &dst))
	assert.Equal(t, "n", dst.Name)
	assert.Equal(t, 2, dst.N)
}

func TestDeepClone_SharesNoContainers(t *testing.T) {
	t.Parallel()
	orig, err := ParseObject([]byte(`{"fields":{"tags":{"en":[{"a":1}]}}}`))
	require.NoError(t, err)
	cp := orig.DeepClone()

	tags, _ := cp.Lookup("fields", "tags")
	tags.(*Object).Set("de", String("neu"))
	en, _ := cp.Lookup("fields", "tags", "en")
	en.(*Array).Items[0] = Null

	out, err := json.Marshal(orig)
	require.NoError(t, err)
	assert.JSONEq(t, `{"fields":{"tags":{"en":[{"a":1}]}}}`, string(out))
}

func TestKeepUnknown(t *testing.T) {
	t.Parallel()
	parse := func(doc string) *Object {
		obj, err := ParseObject([]byte(doc))
		require.NoError(t, err)
		return obj
	}
	raw := parse(`{"name":"Post","metadata":{"tags":[]},"fields":[
		{"id":"title","type":"Symbol","validations":[{"unique":true}]},
		{"id":"body","type":"Text","defaultValue":{"en-US":"x"}}]}`)
	known := parse(`{"name":"Post","fields":[{"id":"title","type":"Symbol"},{"id":"body","type":"Text"}]}`)
	// The view renamed the type, reordered the fields and dropped nothing
	// it did not know about.
	out := parse(`{"name":"Article","fields":[{"id":"body","type":"Text"},{"id":"title","type":"Symbol"},{"id":"new","type":"Integer"}]}`)

	merged := KeepUnknown(raw, known, out)
	b, err := json.Marshal(merged)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Article","metadata":{"tags":[]},"fields":[
		{"id":"body","type":"Text","defaultValue":{"en-US":"x"}},
		{"id":"title","type":"Symbol","validations":[{"unique":true}]},
		{"id":"new","type":"Integer"}]}`, string(b))
}

func TestKeepUnknown_RemovedKnownKeyStaysRemoved(t *testing.T) {
	t.Parallel()
	raw, _ := ParseObject([]byte(`{"name":"n","description":"d","extra":true}`))
	known, _ := ParseObject([]byte(`{"name":"n","description":"d"}`))
	out, _ := ParseObject([]byte(`{"name":"n"}`))

	b, err := json.Marshal(KeepUnknown(raw, known, out))
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"n","extra":true}`, string(b))
}
