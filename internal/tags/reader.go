package tags

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dhowden/tag"
	"github.com/dustin/go-humanize"
	"github.com/simonhull/audiometa"

	"github.com/tagview/tagview-server/internal/errors"
)

// Upload is one audio file handed to the Reader. Either Path names a file on
// disk or Body supplies its bytes.
type Upload struct {
	Name         string
	MIMEType     string
	LastModified time.Time
	Path         string
	Body         io.Reader
}

// Reader parses audio files into RawTagBags.
type Reader struct {
	logger *slog.Logger
}

// NewReader creates a Reader.
func NewReader(logger *slog.Logger) *Reader {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Reader{logger: logger}
}

// Read parses the upload. Tags come from dhowden/tag; the duration comes from
// audiometa and is left unset when the container can't be opened. Any tag
// parse failure is returned as an error and no bag is produced.
func (r *Reader) Read(ctx context.Context, up Upload) (*RawTagBag, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := up.Path
	if path == "" {
		if up.Body == nil {
			return nil, errors.Validation("upload has no content")
		}
		spooled, err := spool(up)
		if err != nil {
			return nil, err
		}
		defer os.Remove(spooled)
		path = spooled
	}

	f, err := os.Open(path) //#nosec G304 -- path is the upload being inspected
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "failed to open upload")
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "failed to stat upload")
	}

	m, err := tag.ReadFrom(f)
	if err != nil {
		if errors.Is(err, tag.ErrNoTagsFound) {
			return nil, errors.Wrap(err, errors.CodeUnsupported, "no tags found in file")
		}
		return nil, errors.Wrap(err, errors.CodeUnsupported, "failed to parse tags")
	}

	name := up.Name
	if name == "" {
		name = filepath.Base(path)
	}
	modified := up.LastModified
	if modified.IsZero() {
		modified = info.ModTime()
	}

	raw := make(map[string]interface{}, len(m.Raw()))
	for k, v := range m.Raw() {
		raw[k] = v
	}
	if m.Format() == tag.MP4 {
		items, err := readMP4Items(f, info.Size())
		if err != nil {
			r.logger.Debug("item list walk failed", "file", name, "error", err)
		}
		mergeMP4Items(raw, items)
	}

	bag := &RawTagBag{
		Common: commonFrom(m, raw),
		Native: nativeFrom(m.Format(), raw),
		Format: FormatInfo{
			Container: string(m.FileType()),
			TagFormat: string(m.Format()),
			Duration:  r.readDuration(ctx, path, name),
		},
		FileInfo: FileInfo{
			Name:         name,
			Size:         info.Size(),
			MIMEType:     mimeType(up.MIMEType, name, m.FileType()),
			LastModified: modified,
		},
	}

	r.logger.Debug("parsed tags",
		"file", name,
		"size", humanize.Bytes(uint64(info.Size())), //#nosec G115 -- file sizes are non-negative
		"format", bag.Format.TagFormat,
		"native_tags", len(raw),
	)

	return bag, nil
}

func (r *Reader) readDuration(ctx context.Context, path, name string) Optional[float64] {
	file, err := audiometa.OpenContext(ctx, path)
	if err != nil {
		r.logger.Debug("duration read failed", "file", name, "error", err)
		return None[float64]()
	}
	defer file.Close()

	if file.Audio.Duration <= 0 {
		return None[float64]()
	}
	return Some(file.Audio.Duration.Seconds())
}

// spool writes the upload body to a temp file; audiometa only reads from disk.
func spool(up Upload) (string, error) {
	tmp, err := os.CreateTemp("", "tagview-*"+filepath.Ext(up.Name))
	if err != nil {
		return "", errors.Wrap(err, errors.CodeInternal, "failed to create temp file")
	}
	if _, err := io.Copy(tmp, up.Body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", errors.Wrap(err, errors.CodeInternal, "failed to buffer upload")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", errors.Wrap(err, errors.CodeInternal, "failed to buffer upload")
	}
	return tmp.Name(), nil
}

// Freeform iTunes atoms as keyed by mergeMP4Items.
const (
	itunesISRC  = "----:com.apple.iTunes:ISRC"
	itunesLabel = "----:com.apple.iTunes:LABEL"
)

func commonFrom(m tag.Metadata, raw map[string]interface{}) Common {
	c := Common{
		Title:     nonEmpty(m.Title()),
		Album:     nonEmpty(m.Album()),
		Artists:   splitMulti(m.Artist()),
		Genre:     splitMulti(m.Genre()),
		Composer:  splitMulti(m.Composer()),
		Copyright: nonEmpty(rawText(raw, "TCOP", "TCR", "cprt", "copyright")),
		Label:     nonEmpty(rawText(raw, "TPUB", "TPB", "label", "organization", "publisher", itunesLabel)),
		ISRC:      nonEmpty(rawText(raw, "TSRC", "TRC", "isrc", itunesISRC)),
	}
	if len(c.Artists) > 0 {
		c.Artist = Some(strings.Join(c.Artists, ", "))
	}
	if y := m.Year(); y > 0 {
		c.Year = Some(y)
	}
	if n, _ := m.Track(); n > 0 {
		c.Track = Some(n)
	}
	if p := m.Picture(); p != nil && len(p.Data) > 0 {
		c.Picture = Some(Picture{MIMEType: p.MIMEType, Description: p.Description, Data: p.Data})
	}
	return c
}

func nativeFrom(format tag.Format, raw map[string]interface{}) []NativeGroup {
	if len(raw) == 0 {
		return nil
	}

	ids := make([]string, 0, len(raw))
	for k := range raw {
		ids = append(ids, k)
	}
	sort.Strings(ids)

	group := NativeGroup{Format: string(format), Tags: make([]NativeTag, 0, len(ids))}
	for _, k := range ids {
		group.Tags = append(group.Tags, NativeTag{ID: atomName(k), Value: rawValue(raw[k])})
	}
	return []NativeGroup{group}
}

// atomName rewrites the Latin-1 copyright byte that prefixes iTunes atom
// names (0xA9) into "©".
func atomName(k string) string {
	if strings.HasPrefix(k, "\xa9") {
		return "©" + k[1:]
	}
	return k
}

func rawValue(v interface{}) TagValue {
	switch t := v.(type) {
	case string:
		return Text(trimLocale(t))
	case int:
		return Number(int64(t))
	case int64:
		return Number(t)
	case uint32:
		return Number(int64(t))
	case []byte:
		return Binary(t)
	case *tag.Picture:
		return Structured(
			Field{Key: "format", Value: Text(t.MIMEType)},
			Field{Key: "type", Value: Text(t.Type)},
			Field{Key: "description", Value: Text(t.Description)},
			Field{Key: "data", Value: Binary(t.Data)},
		)
	case *tag.Comm:
		return Structured(
			Field{Key: "language", Value: Text(t.Language)},
			Field{Key: "description", Value: Text(t.Description)},
			Field{Key: "text", Value: Text(t.Text)},
		)
	case *tag.UFID:
		return Structured(
			Field{Key: "owner_identifier", Value: Text(t.Provider)},
			Field{Key: "identifier", Value: Text(string(t.Identifier))},
		)
	default:
		return Text(fmt.Sprint(v))
	}
}

// rawText returns the first textual raw tag among keys, compared case-insensitively.
func rawText(raw map[string]interface{}, keys ...string) string {
	for _, want := range keys {
		for k, v := range raw {
			if !strings.EqualFold(k, want) {
				continue
			}
			if s, ok := v.(string); ok {
				if s = strings.TrimSpace(trimLocale(s)); s != "" {
					return s
				}
			}
		}
	}
	return ""
}

// trimLocale drops the NUL locale bytes the MP4 reader leaves in front of
// freeform atom text.
func trimLocale(s string) string {
	return strings.TrimLeft(s, "\x00")
}

// splitMulti splits NUL separated multi-value frames (ID3v2.4).
func splitMulti(s string) []string {
	var out []string
	for _, part := range strings.Split(s, "\x00") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func nonEmpty(s string) Optional[string] {
	if s = strings.TrimSpace(s); s == "" {
		return None[string]()
	}
	return Some(s)
}

func mimeType(given, name string, ft tag.FileType) string {
	if given != "" {
		return given
	}
	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); byExt != "" {
		return byExt
	}
	switch ft {
	case tag.MP3:
		return "audio/mpeg"
	case tag.M4A, tag.M4B, tag.M4P, tag.ALAC:
		return "audio/mp4"
	case tag.FLAC:
		return "audio/flac"
	case tag.OGG:
		return "audio/ogg"
	default:
		return "application/octet-stream"
	}
}
