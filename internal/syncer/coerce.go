package syncer

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/fernledger/fern/internal/entity"
	"github.com/fernledger/fern/internal/store"
	"github.com/fernledger/fern/internal/sync"
	"github.com/shopspring/decimal"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04:05"
)

// Columns converts a client payload into SQL column values using the
// entity's field schema. Unknown fields are ignored. Malformed values are
// skipped and returned by name so the caller can log them without failing
// the whole change.
func Columns(spec entity.Spec, data map[string]any) (map[string]any, []string) {
	cols := make(map[string]any, len(data))
	var skipped []string
	for _, f := range spec.Fields {
		raw, ok := data[f.Name]
		if !ok {
			continue
		}
		v, err := coerceValue(f, raw)
		if err != nil {
			skipped = append(skipped, f.Name)
			continue
		}
		cols[f.Name] = v
	}
	return cols, skipped
}

// coerceValue converts one JSON-decoded payload value into its SQL
// representation for the field's kind.
func coerceValue(f entity.Field, raw any) (any, error) {
	if raw == nil {
		return nil, nil
	}

	switch f.Kind {
	case entity.KindString, entity.KindID:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("field %s: want string, got %T", f.Name, raw)
		}
		return s, nil

	case entity.KindDecimal:
		switch v := raw.(type) {
		case string:
			d, err := decimal.NewFromString(v)
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", f.Name, err)
			}
			return d.String(), nil
		case float64:
			return decimal.NewFromFloat(v).String(), nil
		default:
			return nil, fmt.Errorf("field %s: want decimal, got %T", f.Name, raw)
		}

	case entity.KindInt:
		switch v := raw.(type) {
		case float64:
			return int64(v), nil
		case string:
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", f.Name, err)
			}
			return n, nil
		default:
			return nil, fmt.Errorf("field %s: want integer, got %T", f.Name, raw)
		}

	case entity.KindFloat:
		switch v := raw.(type) {
		case float64:
			return v, nil
		case string:
			x, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", f.Name, err)
			}
			return x, nil
		default:
			return nil, fmt.Errorf("field %s: want float, got %T", f.Name, raw)
		}

	case entity.KindBool:
		switch v := raw.(type) {
		case bool:
			if v {
				return int64(1), nil
			}
			return int64(0), nil
		case float64:
			if v == 0 {
				return int64(0), nil
			}
			return int64(1), nil
		default:
			return nil, fmt.Errorf("field %s: want bool, got %T", f.Name, raw)
		}

	case entity.KindDate:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("field %s: want date string, got %T", f.Name, raw)
		}
		if _, err := time.Parse(dateLayout, s); err == nil {
			return s, nil
		}
		// Some clients send a full timestamp for date columns.
		t, err := store.ParseTime(s)
		if err != nil {
			return nil, fmt.Errorf("field %s: invalid date %q", f.Name, s)
		}
		return t.UTC().Format(dateLayout), nil

	case entity.KindTime:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("field %s: want time string, got %T", f.Name, raw)
		}
		if _, err := time.Parse(timeLayout, s); err != nil {
			return nil, fmt.Errorf("field %s: invalid time %q", f.Name, s)
		}
		return s, nil

	case entity.KindTimestamp:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("field %s: want timestamp string, got %T", f.Name, raw)
		}
		t, err := store.ParseTime(s)
		if err != nil {
			return nil, fmt.Errorf("field %s: invalid timestamp %q", f.Name, s)
		}
		return store.FormatTime(t), nil

	case entity.KindStringList, entity.KindJSON:
		if s, ok := raw.(string); ok {
			if !json.Valid([]byte(s)) {
				return nil, fmt.Errorf("field %s: invalid JSON text", f.Name)
			}
			return s, nil
		}
		b, err := json.Marshal(raw)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Name, err)
		}
		return string(b), nil

	default:
		return nil, fmt.Errorf("field %s: unhandled kind %d", f.Name, f.Kind)
	}
}

// WireData serializes a stored row into its flat wire form, the inverse
// of Columns. NULL columns are omitted.
func WireData(spec entity.Spec, row store.Row) sync.EntityData {
	out := make(sync.EntityData, len(spec.Fields)+3)
	out["id"] = row["id"]
	for _, f := range spec.Fields {
		v, ok := row[f.Name]
		if !ok || v == nil {
			continue
		}
		out[f.Name] = wireValue(f, v)
	}
	if v := row.String("created_at"); v != "" {
		out["created_at"] = v
	}
	if v := row.String("updated_at"); v != "" {
		out["updated_at"] = v
	}
	return out
}

func wireValue(f entity.Field, v any) any {
	switch f.Kind {
	case entity.KindBool:
		if n, ok := v.(int64); ok {
			return n != 0
		}
	case entity.KindStringList, entity.KindJSON:
		if s, ok := v.(string); ok {
			var decoded any
			if err := json.Unmarshal([]byte(s), &decoded); err == nil {
				return decoded
			}
		}
	}
	// Strings, identifiers, decimals (exact text), dates, times,
	// timestamps, ints and floats travel as stored.
	return v
}
