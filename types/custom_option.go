package types

// DictionaryItem is one key/value pair of a flat configuration list, as
// passed across the reader/writer construction boundary (spec: "parameter
// pairs").
type DictionaryItem struct {
	Key   string `yaml:"key"`
	Value string `yaml:"value"`
}

type DictionaryItems []DictionaryItem

// Deduplicate collapses repeated keys, keeping the last value seen for each
// key and the position of its last occurrence.
func (items DictionaryItems) Deduplicate() DictionaryItems {
	lastIdx := make(map[string]int, len(items))
	for idx, item := range items {
		lastIdx[item.Key] = idx
	}
	result := make(DictionaryItems, 0, len(lastIdx))
	for idx, item := range items {
		if lastIdx[item.Key] != idx {
			continue
		}
		result = append(result, item)
	}
	return result
}

// Pairs flattens the list back into an alternating key/value sequence, the
// shape the reader/writer construction boundary accepts.
func (items DictionaryItems) Pairs() []string {
	out := make([]string, 0, len(items)*2)
	for _, item := range items {
		out = append(out, item.Key, item.Value)
	}
	return out
}

// ParsePairs validates and converts a flat alternating key/value sequence
// into DictionaryItems. Returns an error if the sequence has odd length.
func ParsePairs(pairs []string) (DictionaryItems, error) {
	if len(pairs)%2 != 0 {
		return nil, errInvalidParametersSize
	}
	items := make(DictionaryItems, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		items = append(items, DictionaryItem{Key: pairs[i], Value: pairs[i+1]})
	}
	return items, nil
}
