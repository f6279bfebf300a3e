package tags

import (
	"github.com/tagview/tagview-server/internal/metatree"
)

// Tree renders the bag as an ordered metadata tree: format, common, native, fileInfo.
// Binary payloads stay in the tree as []byte; callers redact before display.
func (b *RawTagBag) Tree() metatree.Object {
	return metatree.Object{
		{Key: "format", Value: b.formatTree()},
		{Key: "common", Value: b.commonTree()},
		{Key: "native", Value: b.nativeTree()},
		{Key: "fileInfo", Value: metatree.Object{
			{Key: "name", Value: b.FileInfo.Name},
			{Key: "size", Value: b.FileInfo.Size},
			{Key: "type", Value: b.FileInfo.MIMEType},
			{Key: "lastModified", Value: b.FileInfo.LastModified.UnixMilli()},
		}},
	}
}

func (b *RawTagBag) formatTree() metatree.Object {
	obj := metatree.Object{
		{Key: "container", Value: b.Format.Container},
		{Key: "tagTypes", Value: metatree.Array{b.Format.TagFormat}},
	}
	if d, ok := b.Format.Duration.Get(); ok {
		obj = append(obj, metatree.Field{Key: "duration", Value: d})
	}
	return obj
}

func (b *RawTagBag) commonTree() metatree.Object {
	c := b.Common
	var obj metatree.Object
	addString := func(key string, o Optional[string]) {
		if v, ok := o.Get(); ok {
			obj = append(obj, metatree.Field{Key: key, Value: v})
		}
	}
	addList := func(key string, vals []string) {
		if len(vals) == 0 {
			return
		}
		arr := make(metatree.Array, len(vals))
		for i, v := range vals {
			arr[i] = v
		}
		obj = append(obj, metatree.Field{Key: key, Value: arr})
	}

	addString("title", c.Title)
	addString("artist", c.Artist)
	addList("artists", c.Artists)
	addString("album", c.Album)
	if y, ok := c.Year.Get(); ok {
		obj = append(obj, metatree.Field{Key: "year", Value: y})
	}
	addList("genre", c.Genre)
	addList("composer", c.Composer)
	addString("copyright", c.Copyright)
	addString("label", c.Label)
	addString("isrc", c.ISRC)
	if n, ok := c.Track.Get(); ok {
		obj = append(obj, metatree.Field{Key: "track", Value: metatree.Object{{Key: "no", Value: n}}})
	}
	if p, ok := c.Picture.Get(); ok {
		obj = append(obj, metatree.Field{Key: "picture", Value: metatree.Array{metatree.Object{
			{Key: "format", Value: p.MIMEType},
			{Key: "description", Value: p.Description},
			{Key: "data", Value: p.Data},
		}}})
	}
	if obj == nil {
		obj = metatree.Object{}
	}
	return obj
}

func (b *RawTagBag) nativeTree() metatree.Object {
	obj := metatree.Object{}
	for _, g := range b.Native {
		arr := make(metatree.Array, 0, len(g.Tags))
		for _, t := range g.Tags {
			arr = append(arr, metatree.Object{
				{Key: "id", Value: t.ID},
				{Key: "value", Value: valueTree(t.Value)},
			})
		}
		obj = append(obj, metatree.Field{Key: g.Format, Value: arr})
	}
	return obj
}

func valueTree(v TagValue) any {
	switch v.Kind() {
	case KindNumber:
		n, _ := v.AsNumber()
		return n
	case KindBinary:
		b, _ := v.AsBinary()
		return b
	case KindStructured:
		obj := make(metatree.Object, 0, len(v.Fields()))
		for _, f := range v.Fields() {
			obj = append(obj, metatree.Field{Key: f.Key, Value: valueTree(f.Value)})
		}
		return obj
	default:
		s, _ := v.AsText()
		return s
	}
}
