package normalize

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xelth-com/magebridge/internal/storefront"
)

const remoteTimeLayout = "2006-01-02 15:04:05"

// text reads a field as a trimmed string. XML-RPC false and nil read as empty.
func text(rec storefront.Record, key string) string {
	switch v := rec[key].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case bool:
		if !v {
			return ""
		}
		return "1"
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// number reads a field as a decimal; ok is false when it is absent, empty or not numeric
func number(rec storefront.Record, key string) (decimal.Decimal, bool) {
	switch v := rec[key].(type) {
	case int:
		return decimal.NewFromInt(int64(v)), true
	case int64:
		return decimal.NewFromInt(v), true
	case float64:
		return decimal.NewFromFloat(v), true
	case decimal.Decimal:
		return v, true
	}
	s := text(rec, key)
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// numberOr reads a decimal field with a default
func numberOr(rec storefront.Record, key string, def decimal.Decimal) decimal.Decimal {
	if d, ok := number(rec, key); ok {
		return d
	}
	return def
}

// integer reads a field as an int; absent or malformed values read as 0
func integer(rec storefront.Record, key string) int {
	d, ok := number(rec, key)
	if !ok {
		return 0
	}
	return int(d.IntPart())
}

func flag(rec storefront.Record, key string) bool {
	switch text(rec, key) {
	case "", "0", "false":
		return false
	}
	return true
}

func timestamp(rec storefront.Record, key string) time.Time {
	if t, ok := rec[key].(time.Time); ok {
		return t.UTC()
	}
	t, err := time.Parse(remoteTimeLayout, text(rec, key))
	if err != nil {
		return time.Time{}
	}
	return t
}

// nested reads a field holding a struct
func nested(rec storefront.Record, key string) (storefront.Record, bool) {
	switch v := rec[key].(type) {
	case storefront.Record:
		return v, len(v) > 0
	case map[string]interface{}:
		return storefront.Record(v), len(v) > 0
	}
	return nil, false
}

// list reads a field holding an array of structs
func list(rec storefront.Record, key string) ([]storefront.Record, bool) {
	switch v := rec[key].(type) {
	case []storefront.Record:
		return v, true
	case []interface{}:
		out := make([]storefront.Record, 0, len(v))
		for _, item := range v {
			switch m := item.(type) {
			case storefront.Record:
				out = append(out, m)
			case map[string]interface{}:
				out = append(out, storefront.Record(m))
			}
		}
		return out, true
	}
	return nil, false
}

// firstInt reads the first element of an array of ids
func firstInt(rec storefront.Record, key string) int {
	var first interface{}
	switch v := rec[key].(type) {
	case []interface{}:
		if len(v) > 0 {
			first = v[0]
		}
	case []string:
		if len(v) > 0 {
			first = v[0]
		}
	case []int:
		if len(v) > 0 {
			first = v[0]
		}
	}
	if first == nil {
		return 0
	}
	return integer(storefront.Record{"v": first}, "v")
}
