package tags

import (
	"bytes"
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dhowden/tag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tagview/tagview-server/internal/errors"
)

// id3v23 builds a minimal ID3v2.3 tag from ISO-8859-1 text frames.
func id3v23(frames map[string]string, order []string) []byte {
	var body bytes.Buffer
	for _, id := range order {
		data := append([]byte{0x00}, []byte(frames[id])...)
		body.WriteString(id)
		size := make([]byte, 4)
		binary.BigEndian.PutUint32(size, uint32(len(data)))
		body.Write(size)
		body.Write([]byte{0x00, 0x00})
		body.Write(data)
	}

	n := body.Len()
	header := []byte{'I', 'D', '3', 0x03, 0x00, 0x00,
		byte(n >> 21 & 0x7f), byte(n >> 14 & 0x7f), byte(n >> 7 & 0x7f), byte(n & 0x7f)}
	return append(header, body.Bytes()...)
}

func sampleID3() []byte {
	return id3v23(map[string]string{
		"TIT2": "Some Song",
		"TPE1": "Some Artist",
		"TALB": "Some Album",
		"TSRC": "USRC17607839",
		"TCOP": "2014 Some Label",
		"TRCK": "3",
	}, []string{"TIT2", "TPE1", "TALB", "TSRC", "TCOP", "TRCK"})
}

func TestReader_ReadBody(t *testing.T) {
	r := NewReader(nil)

	bag, err := r.Read(context.Background(), Upload{Name: "song.mp3", Body: bytes.NewReader(sampleID3())})
	require.NoError(t, err)

	assert.Equal(t, Some("Some Song"), bag.Common.Title)
	assert.Equal(t, Some("Some Artist"), bag.Common.Artist)
	assert.Equal(t, []string{"Some Artist"}, bag.Common.Artists)
	assert.Equal(t, Some("Some Album"), bag.Common.Album)
	assert.Equal(t, Some("USRC17607839"), bag.Common.ISRC)
	assert.Equal(t, Some("2014 Some Label"), bag.Common.Copyright)
	assert.Equal(t, Some(3), bag.Common.Track)
	assert.False(t, bag.Common.Label.IsSet())

	assert.Equal(t, "song.mp3", bag.FileInfo.Name)
	assert.Equal(t, int64(len(sampleID3())), bag.FileInfo.Size)
	assert.Equal(t, "audio/mpeg", bag.FileInfo.MIMEType)
	assert.Equal(t, "ID3v2.3", bag.Format.TagFormat)
}

func TestReader_NativeTagsSortedByID(t *testing.T) {
	bag, err := NewReader(nil).Read(context.Background(), Upload{Name: "song.mp3", Body: bytes.NewReader(sampleID3())})
	require.NoError(t, err)

	require.Len(t, bag.Native, 1)
	var ids []string
	for _, nt := range bag.Native[0].Tags {
		ids = append(ids, nt.ID)
	}
	assert.Contains(t, ids, "TSRC")
	assert.IsNonDecreasing(t, ids)
}

func TestReader_ReadPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "track.mp3")
	require.NoError(t, os.WriteFile(path, sampleID3(), 0o600))

	bag, err := NewReader(nil).Read(context.Background(), Upload{Path: path})
	require.NoError(t, err)
	assert.Equal(t, "track.mp3", bag.FileInfo.Name)
	assert.False(t, bag.FileInfo.LastModified.IsZero())
}

func TestReader_RejectsUntaggedData(t *testing.T) {
	_, err := NewReader(nil).Read(context.Background(), Upload{Name: "noise.bin", Body: strings.NewReader(strings.Repeat("x", 256))})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrUnsupported))
}

func TestReader_RequiresContent(t *testing.T) {
	_, err := NewReader(nil).Read(context.Background(), Upload{Name: "empty.mp3"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrValidation))
}

func TestReader_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewReader(nil).Read(ctx, Upload{Name: "song.mp3", Body: bytes.NewReader(sampleID3())})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRawValue_Variants(t *testing.T) {
	ufid := rawValue(&tag.UFID{Provider: "http://musicbrainz.org", Identifier: []byte("GBAYE0000351")})
	require.Equal(t, KindStructured, ufid.Kind())
	id, ok := ufid.Field("identifier")
	require.True(t, ok)
	s, _ := id.AsText()
	assert.Equal(t, "GBAYE0000351", s)

	n, ok := rawValue(1440).AsNumber()
	assert.True(t, ok)
	assert.Equal(t, int64(1440), n)

	pic := rawValue(&tag.Picture{MIMEType: "image/png", Data: []byte{1, 2}})
	data, ok := pic.Field("data")
	require.True(t, ok)
	assert.Equal(t, KindBinary, data.Kind())

	txt, ok := rawValue("plain").AsText()
	assert.True(t, ok)
	assert.Equal(t, "plain", txt)
}

func TestAtomName(t *testing.T) {
	assert.Equal(t, "©wrt", atomName("\xa9wrt"))
	assert.Equal(t, "cprt", atomName("cprt"))
}

func TestSplitMulti(t *testing.T) {
	assert.Equal(t, []string{"A", "B"}, splitMulti("A\x00 B \x00"))
	assert.Nil(t, splitMulti(""))
}

func TestRawValue_TrimsFreeformLocale(t *testing.T) {
	s, ok := rawValue("\x00\x00\x00\x00USRC17607839").AsText()
	require.True(t, ok)
	assert.Equal(t, "USRC17607839", s)

	assert.Equal(t, "USRC17607839", rawText(map[string]interface{}{"ISRC": "\x00\x00\x00\x00USRC17607839"}, "isrc"))
}

func TestMergeMP4Items(t *testing.T) {
	raw := map[string]interface{}{
		"\xa9nam": "From Library",
		"ISRC":    "\x00\x00\x00\x00USRC17607839",
	}
	mergeMP4Items(raw, []mp4Item{
		{Key: "\xa9nam", Value: "From Walk"},
		{Key: "cnID", Value: int64(1337)},
		{Key: "----:com.apple.iTunes:ISRC", Bare: "ISRC", Value: "USRC17607839"},
	})

	assert.Equal(t, map[string]interface{}{
		"\xa9nam":                    "From Library",
		"cnID":                       int64(1337),
		"----:com.apple.iTunes:ISRC": "USRC17607839",
	}, raw)
}

func TestBEInt(t *testing.T) {
	tests := []struct {
		in   []byte
		want int64
		ok   bool
	}{
		{in: []byte{0x05}, want: 5, ok: true},
		{in: []byte{0xff, 0xfe}, want: -2, ok: true},
		{in: []byte{0x00, 0x00, 0x05, 0x39}, want: 1337, ok: true},
		{in: []byte{0, 0, 0, 0, 0x55, 0xd4, 0xa8, 0x01}, want: 1440000001, ok: true},
		{in: []byte{1, 2, 3}, ok: false},
	}
	for _, tt := range tests {
		got, ok := beInt(tt.in)
		assert.Equal(t, tt.ok, ok)
		assert.Equal(t, tt.want, got)
	}
}

func TestReadMP4Items_NoItemList(t *testing.T) {
	items, err := readMP4Items(bytes.NewReader([]byte("\x00\x00\x00\x0cftypM4A ")), 12)
	require.NoError(t, err)
	assert.Empty(t, items)
}
