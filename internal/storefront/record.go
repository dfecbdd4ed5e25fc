package storefront

import "fmt"

// Record is a raw storefront payload. It never travels past the normalizer.
type Record map[string]interface{}

// Filter is a storefront list filter, e.g. {"state": {"in": []string{"new"}}}
type Filter map[string]map[string]interface{}

func toRecord(v interface{}) (Record, error) {
	switch m := v.(type) {
	case Record:
		return m, nil
	case map[string]interface{}:
		return Record(m), nil
	case nil:
		return Record{}, nil
	default:
		return nil, fmt.Errorf("unexpected storefront payload %T", v)
	}
}

func toRecords(v interface{}) ([]Record, error) {
	items, ok := v.([]interface{})
	if !ok {
		if v == nil {
			return nil, nil
		}
		return nil, fmt.Errorf("unexpected storefront list payload %T", v)
	}
	out := make([]Record, 0, len(items))
	for _, item := range items {
		rec, err := toRecord(item)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}
