// Package normalize turns heterogeneous webhook records into model.Listing values.
package normalize

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"listings_dashboard/internal/model"
)

// Source field names as emitted by the scraper workflow.
const (
	FieldPostID       = "PostID"
	FieldRowNumber    = "row_number"
	FieldCleanPrice   = "CleanPrice"
	FieldPrice        = "Price"
	FieldIsOwner      = "IsOwner"
	FieldListingType  = "ListingType"
	FieldPropertyType = "PropertyType"
	FieldProjectName  = "ProjectName"
	FieldRawText      = "RawText"
	FieldRawTextAlt   = "Rawtext"
	FieldURL          = "URL"
	FieldPostDate     = "PostDate"
)

// Decode parses a webhook body into raw records. A JSON array yields one
// record per element, a single JSON object yields one record. Top-level keys
// are trimmed in source order, so a later duplicate wins. Bodies that are not
// JSON are tried as RSS, Atom or JSON Feed documents.
func Decode(body []byte) ([]map[string]any, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("decode listings: empty body")
	}

	switch trimmed[0] {
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("decode listings: %w", err)
		}
		records := make([]map[string]any, 0, len(items))
		for _, item := range items {
			rec, err := decodeRecord(item)
			if err != nil {
				return nil, fmt.Errorf("decode listing %d: %w", len(records), err)
			}
			records = append(records, rec)
		}
		return records, nil
	case '{':
		if !json.Valid(trimmed) {
			return nil, fmt.Errorf("decode listings: invalid json object")
		}
		rec, err := decodeRecord(trimmed)
		if err != nil {
			return nil, fmt.Errorf("decode listings: %w", err)
		}
		return []map[string]any{rec}, nil
	}

	records, err := decodeFeed(trimmed)
	if err != nil {
		return nil, fmt.Errorf("decode listings: body is neither json nor a feed: %w", err)
	}
	return records, nil
}

// decodeRecord reads one JSON value. Objects keep their members in source
// order with trimmed keys; any other value becomes an empty record.
func decodeRecord(data json.RawMessage) (map[string]any, error) {
	rec := map[string]any{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return rec, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v", tok)
		}
		var v any
		if err := dec.Decode(&v); err != nil {
			return nil, err
		}
		rec[strings.TrimSpace(key)] = v
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return rec, nil
}

// Normalize converts raw input into listings. A slice yields one listing per
// element, a single map yields one listing and anything else yields none.
// It never fails.
func Normalize(raw any) []model.Listing {
	switch v := raw.(type) {
	case []map[string]any:
		out := make([]model.Listing, 0, len(v))
		for i, rec := range v {
			out = append(out, NormalizeRecord(rec, i))
		}
		return out
	case []any:
		out := make([]model.Listing, 0, len(v))
		for i, item := range v {
			rec, _ := item.(map[string]any)
			out = append(out, NormalizeRecord(rec, i))
		}
		return out
	case map[string]any:
		return []model.Listing{NormalizeRecord(v, 0)}
	default:
		return []model.Listing{}
	}
}

// NormalizeRecord converts one raw record found at position index.
func NormalizeRecord(raw map[string]any, index int) model.Listing {
	fields := trimKeys(raw)

	l := model.Listing{
		Price:        coercePrice(firstTruthy(fields[FieldCleanPrice], fields[FieldPrice])),
		IsOwner:      coerceBool(fields[FieldIsOwner]),
		ListingType:  coerceString(fields[FieldListingType]),
		PropertyType: coerceString(fields[FieldPropertyType]),
		ProjectName:  coerceString(fields[FieldProjectName]),
		RawText:      coerceString(firstTruthy(fields[FieldRawText], fields[FieldRawTextAlt])),
		URL:          coerceString(fields[FieldURL]),
		PostDate:     coerceString(fields[FieldPostDate]),
		Fields:       fields,
	}

	l.Identifier = int64(index)
	for _, key := range []string{FieldPostID, FieldRowNumber} {
		if id, ok := coerceInt(fields[key]); ok && id != 0 {
			l.Identifier = id
			break
		}
	}
	return l
}

// trimKeys copies raw with whitespace-trimmed keys. When two keys collide
// after trimming, the one that was already trimmed wins; otherwise the
// lexically greater original key wins, keeping the result deterministic.
func trimKeys(raw map[string]any) map[string]any {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(map[string]any, len(raw))
	exact := make(map[string]bool, len(raw))
	for _, k := range keys {
		t := strings.TrimSpace(k)
		if exact[t] {
			continue
		}
		out[t] = raw[k]
		if t == k {
			exact[t] = true
		}
	}
	return out
}

// firstTruthy returns the first value that is present and not zero-like.
func firstTruthy(values ...any) any {
	for _, v := range values {
		switch x := v.(type) {
		case nil:
			continue
		case string:
			if x == "" {
				continue
			}
		case bool:
			if !x {
				continue
			}
		case json.Number:
			if f, err := x.Float64(); err == nil && f == 0 {
				continue
			}
		case float64:
			if x == 0 || math.IsNaN(x) {
				continue
			}
		case int:
			if x == 0 {
				continue
			}
		case int64:
			if x == 0 {
				continue
			}
		}
		return v
	}
	return nil
}

func coerceFloat(v any) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case json.Number:
		parsed, err := strconv.ParseFloat(x.String(), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0, false
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case int32:
		f = float64(x)
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func coercePrice(v any) float64 {
	f, ok := coerceFloat(v)
	if !ok || f < 0 {
		return 0
	}
	return f
}

func coerceInt(v any) (int64, bool) {
	if n, ok := v.(json.Number); ok {
		if i, err := n.Int64(); err == nil {
			return i, true
		}
	}
	f, ok := coerceFloat(v)
	if !ok || f > math.MaxInt64 || f < math.MinInt64 {
		return 0, false
	}
	return int64(f), true
}

func coerceBool(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case string:
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "true", "1", "yes":
			return true
		}
		return false
	default:
		f, ok := coerceFloat(v)
		return ok && f != 0
	}
}

func coerceString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}
