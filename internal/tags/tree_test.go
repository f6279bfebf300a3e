package tags

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tagview/tagview-server/internal/metatree"
)

func TestTree_Layout(t *testing.T) {
	bag := &RawTagBag{
		Common: Common{
			Title:   Some("Song"),
			Track:   Some(4),
			Picture: Some(Picture{MIMEType: "image/jpeg", Data: []byte{0xFF}}),
		},
		Native: []NativeGroup{{Format: "MP4", Tags: []NativeTag{
			{ID: "cnid", Value: Number(1440)},
			{ID: "covr", Value: Structured(Field{Key: "data", Value: Binary([]byte{1})})},
		}}},
		Format:   FormatInfo{Container: "M4A", TagFormat: "MP4", Duration: Some(12.5)},
		FileInfo: FileInfo{Name: "a.m4a", Size: 10, MIMEType: "audio/mp4", LastModified: time.UnixMilli(1700000000000)},
	}

	tree := bag.Tree()
	assert.Equal(t, []string{"format", "common", "native", "fileInfo"}, tree.Keys())

	common, _ := tree.Get("common")
	assert.Equal(t, []string{"title", "track", "picture"}, common.(metatree.Object).Keys())

	b, err := json.Marshal(metatree.Redact(tree))
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"format": {"container": "M4A", "tagTypes": ["MP4"], "duration": 12.5},
		"common": {"title": "Song", "track": {"no": 4}, "picture": [{"format": "image/jpeg", "description": "", "data": "Image binary data hidden for convenience"}]},
		"native": {"MP4": [
			{"id": "cnid", "value": 1440},
			{"id": "covr", "value": {"data": "Image binary data hidden for convenience"}}
		]},
		"fileInfo": {"name": "a.m4a", "size": 10, "type": "audio/mp4", "lastModified": 1700000000000}
	}`, string(b))
}

func TestTree_EmptyBag(t *testing.T) {
	b, err := json.Marshal((&RawTagBag{}).Tree())
	require.NoError(t, err)
	assert.Contains(t, string(b), `"common":{}`)
	assert.Contains(t, string(b), `"native":{}`)
}

func TestOptional(t *testing.T) {
	none := None[string]()
	assert.False(t, none.IsSet())
	assert.Equal(t, "fallback", none.OrElse("fallback"))

	v, ok := Some(3).Get()
	assert.True(t, ok)
	assert.Equal(t, 3, v)
}
