// Package shape normalizes loosely structured JSON payloads.
//
// Portal payloads carry the same data under different container shapes depending on the
// deployment and the record: a bare object, a list of objects, a list of lists, or a list
// holding one wrapper object whose single key holds the real list. Of classifies a value into
// a tagged variant and Records flattens every one of those shapes into one canonical list, so
// extraction code never branches on shape itself.
package shape

// Kind tags the container shape of a decoded JSON value.
type Kind uint8

// Shapes a decoded value can take.
const (
	Absent Kind = iota
	Scalar
	Single
	List
)

func (k Kind) String() string {
	switch k {
	case Scalar:
		return "scalar"
	case Single:
		return "single"
	case List:
		return "list"
	default:
		return "absent"
	}
}

// Value is the tagged variant produced by Of.
type Value struct {
	Kind   Kind
	Scalar any
	// Items holds the objects of a Single or List value. Nested lists are flattened and
	// non-object elements dropped.
	Items []map[string]any
}

// Of classifies v.
func Of(v any) Value {
	switch t := v.(type) {
	case nil:
		return Value{Kind: Absent}
	case map[string]any:
		return Value{Kind: Single, Items: []map[string]any{t}}
	case []any:
		return Value{Kind: List, Items: flatten(t, nil)}
	default:
		return Value{Kind: Scalar, Scalar: t}
	}
}

func flatten(list []any, out []map[string]any) []map[string]any {
	for _, el := range list {
		switch t := el.(type) {
		case map[string]any:
			out = append(out, t)
		case []any:
			out = flatten(t, out)
		}
	}
	return out
}

// Records returns the canonical list of objects held by v. When an item carries one of the
// wrapper keys, the item is replaced by the records found under that key.
func Records(v any, wrappers ...string) []map[string]any {
	items := Of(v).Items
	if len(items) == 0 {
		return nil
	}
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if inner, ok := unwrap(item, wrappers); ok {
			out = append(out, Records(inner, wrappers...)...)
			continue
		}
		out = append(out, item)
	}
	return out
}

func unwrap(item map[string]any, wrappers []string) (any, bool) {
	for _, key := range wrappers {
		if inner, ok := item[key]; ok {
			return inner, true
		}
	}
	return nil, false
}
