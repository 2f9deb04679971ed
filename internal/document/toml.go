package document

import (
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"

	"github.com/dshills/mutwatch/internal/object"
)

// ErrTOMLRoot is returned when encoding a value whose root is not a record.
var ErrTOMLRoot = errors.New("toml document root must be a record")

func decodeTOML(data []byte) (object.Value, error) {
	var tree map[string]any
	if err := toml.Unmarshal(data, &tree); err != nil {
		return nil, errors.Wrap(err, "decoding toml")
	}
	return object.FromGo(normalizeTOML(tree)), nil
}

// normalizeTOML replaces date and time values with their TOML text form.
func normalizeTOML(v any) any {
	switch val := v.(type) {
	case map[string]any:
		for k, e := range val {
			val[k] = normalizeTOML(e)
		}
		return val
	case []any:
		for i, e := range val {
			val[i] = normalizeTOML(e)
		}
		return val
	case time.Time:
		return val.Format(time.RFC3339Nano)
	case toml.LocalDate:
		return val.String()
	case toml.LocalTime:
		return val.String()
	case toml.LocalDateTime:
		return val.String()
	default:
		return v
	}
}

func encodeTOML(v object.Value) ([]byte, error) {
	o, ok := object.AsObject(v)
	if !ok || o.Kind() != object.KindRecord {
		return nil, ErrTOMLRoot
	}

	tree, err := object.ToGo(o)
	if err != nil {
		return nil, errors.Wrap(err, "encoding toml")
	}

	out, err := toml.Marshal(dropNils(tree))
	return out, errors.Wrap(err, "encoding toml")
}

// dropNils removes nil map entries and sequence elements, which TOML cannot
// represent.
func dropNils(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, e := range val {
			if e != nil {
				out[k] = dropNils(e)
			}
		}
		return out
	case []any:
		out := make([]any, 0, len(val))
		for _, e := range val {
			if e != nil {
				out = append(out, dropNils(e))
			}
		}
		return out
	default:
		return v
	}
}
