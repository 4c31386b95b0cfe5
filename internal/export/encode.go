package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// rowEncoder renders rows as compact JSON objects in column order into one
// reused buffer.
type rowEncoder struct {
	buf  bytes.Buffer
	val  bytes.Buffer
	enc  *json.Encoder
	peak int
}

func newRowEncoder() *rowEncoder {
	e := &rowEncoder{}
	e.enc = json.NewEncoder(&e.val)
	e.enc.SetEscapeHTML(false)
	return e
}

// encode renders row, prefixed with a comma when sep is set. The returned
// slice is only valid until the next call.
func (e *rowEncoder) encode(row Row, sep bool) ([]byte, error) {
	e.buf.Reset()
	if sep {
		e.buf.WriteByte(',')
	}
	e.buf.WriteByte('{')

	i := 0
	for k, v := range row.AllFromFront() {
		if i > 0 {
			e.buf.WriteByte(',')
		}
		if err := e.writeValue(k); err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
		e.buf.WriteByte(':')
		if err := e.writeValue(normalize(v)); err != nil {
			return nil, fmt.Errorf("value for key %q: %w", k, err)
		}
		i++
	}
	e.buf.WriteByte('}')

	if e.buf.Len() > e.peak {
		e.peak = e.buf.Len()
	}
	return e.buf.Bytes(), nil
}

func (e *rowEncoder) writeValue(v any) error {
	e.val.Reset()
	if err := e.enc.Encode(v); err != nil {
		return err
	}
	e.buf.Write(bytes.TrimSuffix(e.val.Bytes(), []byte("\n")))
	return nil
}

// normalize converts driver values into JSON scalars: numerics become
// numbers, timestamps RFC 3339 strings in UTC, byte slices strings.
// Values JSON cannot represent become null.
func normalize(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case pgtype.Numeric:
		if !val.Valid {
			return nil
		}
		f, err := val.Float64Value()
		if err != nil || !f.Valid {
			return nil
		}
		return finite(f.Float64)
	case float64:
		return finite(val)
	case float32:
		return finite(float64(val))
	case time.Time:
		return val.UTC().Format(time.RFC3339Nano)
	case []byte:
		return string(val)
	case [16]byte:
		return fmt.Sprintf("%x-%x-%x-%x-%x", val[0:4], val[4:6], val[6:8], val[8:10], val[10:16])
	default:
		return val
	}
}

func finite(f float64) any {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return f
}

func marshalWithoutHTMLEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
