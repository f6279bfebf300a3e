// Package tags adapts third-party tag parsers into a RawTagBag: common
// shortcut fields plus every format-native tag in a stable order.
package tags

import "time"

// Optional holds a value that may be absent.
type Optional[T any] struct {
	value T
	ok    bool
}

// Some returns a present Optional.
func Some[T any](v T) Optional[T] {
	return Optional[T]{value: v, ok: true}
}

// None returns an absent Optional.
func None[T any]() Optional[T] {
	return Optional[T]{}
}

// Get returns the value and whether it is present.
func (o Optional[T]) Get() (T, bool) {
	return o.value, o.ok
}

// IsSet reports whether a value is present.
func (o Optional[T]) IsSet() bool {
	return o.ok
}

// OrElse returns the value, or def when absent.
func (o Optional[T]) OrElse(def T) T {
	if o.ok {
		return o.value
	}
	return def
}

// Picture is an embedded cover image.
type Picture struct {
	MIMEType    string
	Description string
	Data        []byte
}

// Common holds the cross-format shortcut fields. A field is set only when the
// source carried a non-empty value.
type Common struct {
	Title     Optional[string]
	Artist    Optional[string]
	Artists   []string
	Album     Optional[string]
	Year      Optional[int]
	Genre     []string
	Composer  []string
	Copyright Optional[string]
	Label     Optional[string]
	ISRC      Optional[string]
	Track     Optional[int]
	Picture   Optional[Picture]
}

// NativeTag is one raw tag as stored by its container format.
type NativeTag struct {
	ID    string
	Value TagValue
}

// NativeGroup is the ordered list of tags for one tag format (ID3v2.4, MP4, VORBIS...).
type NativeGroup struct {
	Format string
	Tags   []NativeTag
}

// FormatInfo describes the container.
type FormatInfo struct {
	Container string
	TagFormat string
	// Duration in seconds.
	Duration Optional[float64]
}

// FileInfo describes the uploaded file itself.
type FileInfo struct {
	Name         string
	Size         int64
	MIMEType     string
	LastModified time.Time
}

// RawTagBag is the unnormalized parse result of one audio file.
type RawTagBag struct {
	Common   Common
	Native   []NativeGroup
	Format   FormatInfo
	FileInfo FileInfo
}
