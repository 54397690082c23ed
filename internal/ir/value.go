package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"time"
	"unicode/utf16"

	"github.com/shopspring/decimal"
)

// DateLayout is the textual form of an IRDate.
const DateLayout = "2006-01-02"

// IRValue is a sealed interface representing constrained value types.
// Only IRNull, IRString, IRNumber, IRBool, IRDate, IRArray, and IRObject
// implement it.
type IRValue interface {
	irValue() // Sealed - only these types implement it
}

// IRNull represents an absent value.
// Using an explicit type ensures all IRValues satisfy the sealed interface.
type IRNull struct{}

func (IRNull) irValue() {}

// MarshalJSON implements json.Marshaler for IRNull.
func (IRNull) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

// IRString represents a string value.
type IRString string

func (IRString) irValue() {}

// IRNumber represents a decimal number. Integers are IRNumbers with a zero
// exponent; there is no separate integer kind.
type IRNumber struct {
	decimal.Decimal
}

func (IRNumber) irValue() {}

// IRBool represents a boolean value.
type IRBool bool

func (IRBool) irValue() {}

// IRDate represents a calendar date (no time of day).
type IRDate struct {
	time.Time
}

func (IRDate) irValue() {}

// String formats the date as YYYY-MM-DD.
func (d IRDate) String() string {
	return d.Format(DateLayout)
}

// IRArray represents an array of IRValue elements.
type IRArray []IRValue

func (IRArray) irValue() {}

// IRObject represents a map of property names to IRValue elements.
// Use SortedKeys() for deterministic iteration.
type IRObject map[string]IRValue

func (IRObject) irValue() {}

// NewIRString creates an IRString value.
func NewIRString(s string) IRString {
	return IRString(s)
}

// NewIRNumber wraps a decimal.
func NewIRNumber(d decimal.Decimal) IRNumber {
	return IRNumber{Decimal: d}
}

// NewIRInt creates an integral IRNumber.
func NewIRInt(n int64) IRNumber {
	return IRNumber{Decimal: decimal.NewFromInt(n)}
}

// ParseIRNumber parses a decimal literal such as "12.50".
func ParseIRNumber(s string) (IRNumber, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return IRNumber{}, fmt.Errorf("invalid number %q: %w", s, err)
	}
	return IRNumber{Decimal: d}, nil
}

// MustIRNumber is like ParseIRNumber but panics on error.
// Use only in tests or with constant input.
func MustIRNumber(s string) IRNumber {
	n, err := ParseIRNumber(s)
	if err != nil {
		panic(err)
	}
	return n
}

// NewIRBool creates an IRBool value.
func NewIRBool(b bool) IRBool {
	return IRBool(b)
}

// NewIRDate creates a date at UTC midnight.
func NewIRDate(year int, month time.Month, day int) IRDate {
	return IRDate{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar date in t's own location.
func DateOf(t time.Time) IRDate {
	return NewIRDate(t.Year(), t.Month(), t.Day())
}

// ParseIRDate parses YYYY-MM-DD, or an RFC 3339 timestamp whose date part is kept.
func ParseIRDate(s string) (IRDate, error) {
	if t, err := time.Parse(DateLayout, s); err == nil {
		return DateOf(t), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return IRDate{}, fmt.Errorf("invalid date %q: expected %s", s, DateLayout)
	}
	return DateOf(t), nil
}

// MustIRDate is like ParseIRDate but panics on error.
func MustIRDate(s string) IRDate {
	d, err := ParseIRDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// NewIRArray creates an IRArray from values.
func NewIRArray(vals ...IRValue) IRArray {
	return IRArray(vals)
}

// IsNull reports whether v is absent: a nil interface or IRNull.
func IsNull(v IRValue) bool {
	if v == nil {
		return true
	}
	_, ok := v.(IRNull)
	return ok
}

// IRPair represents a key-value pair for typed IRObject construction.
type IRPair struct {
	Key   string
	Value IRValue
}

// NewIRObjectFromPairs creates an IRObject from typed key-value pairs.
// Example: NewIRObjectFromPairs(O("Id", NewIRString("1")), O("Active", NewIRBool(true)))
func NewIRObjectFromPairs(pairs ...IRPair) IRObject {
	obj := make(IRObject, len(pairs))
	for _, p := range pairs {
		obj[p.Key] = p.Value
	}
	return obj
}

// O is a shorthand for IRPair for ergonomic construction.
func O(key string, value IRValue) IRPair {
	return IRPair{Key: key, Value: value}
}

// Get returns the value stored under name. A missing key or a nil entry
// both report IRNull; ok is false only when the key is absent.
func (obj IRObject) Get(name string) (IRValue, bool) {
	v, ok := obj[name]
	if !ok {
		return IRNull{}, false
	}
	if v == nil {
		return IRNull{}, true
	}
	return v, true
}

// Clone returns a shallow copy. Values are immutable so this is sufficient
// for everything except nested IRObject/IRArray values, which are copied too.
func (obj IRObject) Clone() IRObject {
	if obj == nil {
		return nil
	}
	out := make(IRObject, len(obj))
	for k, v := range obj {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v IRValue) IRValue {
	switch val := v.(type) {
	case IRObject:
		return val.Clone()
	case IRArray:
		arr := make(IRArray, len(val))
		for i, e := range val {
			arr[i] = cloneValue(e)
		}
		return arr
	default:
		return v
	}
}

// SortedKeys returns keys in RFC 8785 canonical order (UTF-16 code units).
// CRITICAL: Go's sort.Strings uses UTF-8 which produces DIFFERENT order.
func (obj IRObject) SortedKeys() []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysRFC8785)
	return keys
}

// compareKeysRFC8785 compares strings using UTF-16 code unit ordering
// as required by RFC 8785 (Canonical JSON).
func compareKeysRFC8785(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	minLen := min(len(a16), len(b16))
	for i := 0; i < minLen; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}

	// If all compared units are equal, shorter string comes first
	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	}
	return 0
}

// UnmarshalJSON implements json.Unmarshaler for IRObject.
// Numbers become IRNumber without passing through float64; dates stay
// strings until a field declaration converts them.
func (obj *IRObject) UnmarshalJSON(data []byte) error {
	v, err := UnmarshalIRValue(data)
	if err != nil {
		return err
	}
	o, ok := v.(IRObject)
	if !ok {
		return fmt.Errorf("expected JSON object, got %T", v)
	}
	*obj = o
	return nil
}

// UnmarshalJSON implements json.Unmarshaler for IRArray.
func (arr *IRArray) UnmarshalJSON(data []byte) error {
	v, err := UnmarshalIRValue(data)
	if err != nil {
		return err
	}
	a, ok := v.(IRArray)
	if !ok {
		return fmt.Errorf("expected JSON array, got %T", v)
	}
	*arr = a
	return nil
}

// MarshalJSON implements json.Marshaler for IRObject with sorted keys (RFC 8785 ordering).
// NOTE: This is NOT canonical marshaling - may have HTML escaping. Use
// MarshalCanonical for hashing and golden output.
func (obj IRObject) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	for i, k := range obj.SortedKeys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyBytes, err := json.Marshal(k)
		if err != nil {
			return nil, fmt.Errorf("marshal key %q: %w", k, err)
		}
		buf.Write(keyBytes)
		buf.WriteByte(':')

		valBytes, err := MarshalIRValue(obj[k])
		if err != nil {
			return nil, fmt.Errorf("marshal value for key %q: %w", k, err)
		}
		buf.Write(valBytes)
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalJSON implements json.Marshaler for IRArray.
func (arr IRArray) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')

	for i, elem := range arr {
		if i > 0 {
			buf.WriteByte(',')
		}
		elemBytes, err := MarshalIRValue(elem)
		if err != nil {
			return nil, fmt.Errorf("array[%d]: %w", i, err)
		}
		buf.Write(elemBytes)
	}

	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// MarshalIRValue marshals an IRValue to JSON bytes.
// Numbers are written as JSON numbers with their exact decimal digits.
func MarshalIRValue(v IRValue) ([]byte, error) {
	switch val := v.(type) {
	case nil, IRNull:
		return []byte("null"), nil
	case IRString:
		return json.Marshal(string(val))
	case IRNumber:
		return []byte(val.String()), nil
	case IRBool:
		return json.Marshal(bool(val))
	case IRDate:
		return json.Marshal(val.String())
	case IRArray:
		return val.MarshalJSON()
	case IRObject:
		return val.MarshalJSON()
	default:
		return nil, fmt.Errorf("unknown IRValue type: %T", v)
	}
}

// UnmarshalIRValue deserializes JSON into an IRValue.
// Uses json.Decoder with UseNumber() so decimals keep every digit.
func UnmarshalIRValue(data []byte) (IRValue, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}

	return FromGo(raw)
}

// FromGo recursively converts a decoded Go value (from encoding/json or
// yaml.v3) into an IRValue.
func FromGo(v any) (IRValue, error) {
	switch val := v.(type) {
	case nil:
		return IRNull{}, nil
	case IRValue:
		return val, nil
	case bool:
		return IRBool(val), nil
	case string:
		return IRString(val), nil
	case json.Number:
		return ParseIRNumber(string(val))
	case int:
		return NewIRInt(int64(val)), nil
	case int64:
		return NewIRInt(val), nil
	case uint64:
		return NewIRNumber(decimal.NewFromUint64(val)), nil
	case float64:
		// yaml.v3 decodes 12.5 as float64; NewFromFloat keeps the shortest
		// decimal representation so 12.5 stays 12.5.
		return NewIRNumber(decimal.NewFromFloat(val)), nil
	case decimal.Decimal:
		return NewIRNumber(val), nil
	case time.Time:
		return DateOf(val), nil
	case []any:
		arr := make(IRArray, len(val))
		for i, elem := range val {
			irElem, err := FromGo(elem)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			arr[i] = irElem
		}
		return arr, nil
	case map[string]any:
		obj := make(IRObject, len(val))
		for k, elem := range val {
			irElem, err := FromGo(elem)
			if err != nil {
				return nil, fmt.Errorf("object[%q]: %w", k, err)
			}
			obj[k] = irElem
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("unsupported type: %T", v)
	}
}

// ObjectFromGo converts a decoded map into an IRObject.
func ObjectFromGo(m map[string]any) (IRObject, error) {
	v, err := FromGo(m)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return IRObject{}, nil
	}
	return v.(IRObject), nil
}

// Text renders a value for human-readable output. Null renders as "null".
func Text(v IRValue) string {
	switch val := v.(type) {
	case nil, IRNull:
		return "null"
	case IRString:
		return string(val)
	case IRNumber:
		return val.String()
	case IRBool:
		if val {
			return "true"
		}
		return "false"
	case IRDate:
		return val.String()
	default:
		b, err := MarshalIRValue(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(b)
	}
}
