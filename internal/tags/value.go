package tags

import "strconv"

// Kind identifies which variant a TagValue holds.
type Kind int

// TagValue variants.
const (
	KindText Kind = iota
	KindNumber
	KindStructured
	KindBinary
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindNumber:
		return "number"
	case KindStructured:
		return "structured"
	case KindBinary:
		return "binary"
	default:
		return "unknown(" + strconv.Itoa(int(k)) + ")"
	}
}

// Field is a named member of a structured value.
type Field struct {
	Key   string
	Value TagValue
}

// TagValue is a tagged union over the shapes a native tag value can take.
// The zero value is an empty text value.
type TagValue struct {
	kind   Kind
	text   string
	number int64
	fields []Field
	binary []byte
}

// Text builds a textual value.
func Text(s string) TagValue { return TagValue{kind: KindText, text: s} }

// Number builds a numeric value.
func Number(n int64) TagValue { return TagValue{kind: KindNumber, number: n} }

// Structured builds a value made of ordered named fields.
func Structured(fields ...Field) TagValue { return TagValue{kind: KindStructured, fields: fields} }

// Binary builds an opaque byte payload.
func Binary(b []byte) TagValue { return TagValue{kind: KindBinary, binary: b} }

// Kind returns the variant held.
func (v TagValue) Kind() Kind { return v.kind }

// AsText returns the string when v is textual.
func (v TagValue) AsText() (string, bool) {
	return v.text, v.kind == KindText
}

// AsNumber returns the integer when v is numeric.
func (v TagValue) AsNumber() (int64, bool) {
	return v.number, v.kind == KindNumber
}

// AsBinary returns the payload when v is binary.
func (v TagValue) AsBinary() ([]byte, bool) {
	return v.binary, v.kind == KindBinary
}

// Fields returns the members of a structured value, nil otherwise.
func (v TagValue) Fields() []Field {
	if v.kind != KindStructured {
		return nil
	}
	return v.fields
}

// Field looks up a member of a structured value by key.
func (v TagValue) Field(key string) (TagValue, bool) {
	for _, f := range v.Fields() {
		if f.Key == key {
			return f.Value, true
		}
	}
	return TagValue{}, false
}
