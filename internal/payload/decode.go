package payload

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/url"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Value is a decoded request payload: nil, bool, json.Number, string,
// Object, []Value or Buffer.
type Value = any

// Field is a single key of an Object.
type Field struct {
	Key   string
	Value Value
}

// Object is a JSON object that keeps the caller's key order.
type Object []Field

// Buffer holds a body that is neither structured nor text.
type Buffer []byte

// MaxDepth bounds the nesting of decoded documents.
const MaxDepth = 10000

var (
	errTrailingData = errors.New("payload: trailing data after JSON value")
	errTooDeep      = errors.New("payload: exceeded max depth")
)

// Get returns the value stored under key.
func (o Object) Get(key string) (Value, bool) {
	for _, field := range o {
		if field.Key == key {
			return field.Value, true
		}
	}
	return nil, false
}

// Set stores value under key. An existing key keeps its position.
func (o Object) Set(key string, value Value) Object {
	for i := range o {
		if o[i].Key == key {
			o[i].Value = value
			return o
		}
	}
	return append(o, Field{Key: key, Value: value})
}

// Decode turns a raw request body into a Value. It never fails: bodies that
// cannot be decoded as declared are kept as text, or as a Buffer when they
// are not text at all.
func Decode(contentType string, body []byte) Value {
	if len(bytes.TrimSpace(body)) == 0 {
		return Object{}
	}

	switch mediaType := parseMediaType(contentType); {
	case isJSONMediaType(mediaType):
		if value, err := DecodeJSON(body); err == nil {
			return value
		}
		return string(body)
	case mediaType == "application/x-www-form-urlencoded":
		if value, err := DecodeForm(body); err == nil {
			return value
		}
		return string(body)
	}

	if looksLikeJSON(body) {
		if value, err := DecodeJSON(body); err == nil {
			return value
		}
	}

	if isText(mimetype.Detect(body)) {
		return string(body)
	}
	return Buffer(body)
}

// DecodeJSON decodes a single JSON document, keeping object key order.
func DecodeJSON(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	value, err := decodeValue(dec, 0)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errTrailingData
	}
	return value, nil
}

// DecodeForm decodes an urlencoded body. Repeated keys collect into a list.
func DecodeForm(data []byte) (Value, error) {
	obj := Object{}
	for _, pair := range strings.Split(string(data), "&") {
		if pair == "" {
			continue
		}
		rawKey, rawValue, _ := strings.Cut(pair, "=")
		key, err := url.QueryUnescape(rawKey)
		if err != nil {
			return nil, fmt.Errorf("payload: form key %q: %w", rawKey, err)
		}
		value, err := url.QueryUnescape(rawValue)
		if err != nil {
			return nil, fmt.Errorf("payload: form value for %q: %w", key, err)
		}

		existing, ok := obj.Get(key)
		if !ok {
			obj = obj.Set(key, value)
			continue
		}
		if list, isList := existing.([]Value); isList {
			obj = obj.Set(key, append(list, value))
			continue
		}
		obj = obj.Set(key, []Value{existing, value})
	}
	return obj, nil
}

func decodeValue(dec *json.Decoder, depth int) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	delim, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}
	if depth >= MaxDepth {
		return nil, errTooDeep
	}
	switch delim {
	case '{':
		return decodeObject(dec, depth+1)
	case '[':
		return decodeArray(dec, depth+1)
	default:
		return nil, fmt.Errorf("payload: unexpected delimiter %q", delim)
	}
}

func decodeObject(dec *json.Decoder, depth int) (Value, error) {
	obj := Object{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("payload: object key must be a string, got %T", tok)
		}
		value, err := decodeValue(dec, depth)
		if err != nil {
			return nil, err
		}
		obj = obj.Set(key, value)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return obj, nil
}

func decodeArray(dec *json.Decoder, depth int) (Value, error) {
	list := []Value{}
	for dec.More() {
		value, err := decodeValue(dec, depth)
		if err != nil {
			return nil, err
		}
		list = append(list, value)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return list, nil
}

func parseMediaType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	}
	return mediaType
}

func isJSONMediaType(mediaType string) bool {
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

func looksLikeJSON(body []byte) bool {
	trimmed := bytes.TrimSpace(body)
	return len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[')
}

func isText(detected *mimetype.MIME) bool {
	for m := detected; m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return true
		}
	}
	return false
}
