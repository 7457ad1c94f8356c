package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Class identifies one of the independent cache classes.
type Class string

const (
	// ClassStatic holds static hotel descriptors.
	ClassStatic Class = "static"

	// ClassSearch holds live search results.
	ClassSearch Class = "search"

	// ClassAutocomplete holds region autocomplete results.
	ClassAutocomplete Class = "autocomplete"
)

// Default TTLs per cache class.
const (
	TTLStatic       = 7 * 24 * time.Hour
	TTLAutocomplete = 7 * 24 * time.Hour
	TTLSearch       = 6 * time.Hour
)

// Key identifies a cached entry. Keys are deterministic: the same fields
// always produce the same key string regardless of insertion order.
type Key struct {
	// Class is the cache class the entry belongs to.
	Class Class

	// Fields are the identity components (e.g. hotel id and language).
	Fields map[string]string
}

// String generates the Redis key for this cache key.
// Format: etg:<class>:field1=val1:field2=val2 with fields sorted for
// determinism. Search keys hash the field string instead, since search
// parameter sets are long and must collide only when semantically identical.
//
// Example:
//
//	etg:static:id=test_hotel:language=en
//	etg:search:ab54d9e8...
func (k Key) String() string {
	parts := []string{"etg", string(k.Class)}

	fieldKeys := make([]string, 0, len(k.Fields))
	for key := range k.Fields {
		fieldKeys = append(fieldKeys, key)
	}
	sort.Strings(fieldKeys)

	for _, key := range fieldKeys {
		parts = append(parts, fmt.Sprintf("%s=%s", key, k.Fields[key]))
	}

	if k.Class == ClassSearch {
		sum := sha256.Sum256([]byte(strings.Join(parts, ":")))
		return fmt.Sprintf("etg:%s:%s", k.Class, hex.EncodeToString(sum[:]))
	}

	return strings.Join(parts, ":")
}

// StaticKey builds the key for a static hotel descriptor.
func StaticKey(hotelID, language string) Key {
	return Key{
		Class: ClassStatic,
		Fields: map[string]string{
			"id":       hotelID,
			"language": normalizeLanguage(language),
		},
	}
}

// AutocompleteKey builds the key for a multicomplete query.
func AutocompleteKey(query, language string) Key {
	return Key{
		Class: ClassAutocomplete,
		Fields: map[string]string{
			"query":    strings.ToLower(strings.TrimSpace(query)),
			"language": normalizeLanguage(language),
		},
	}
}

// SearchKey builds the key for a search-result entry from the full set of
// search parameters. Guest composition must already be serialized into a
// canonical string (see guest encoding in the client package) so that
// semantically identical searches hit the same entry.
func SearchKey(fields map[string]string) Key {
	normalized := make(map[string]string, len(fields))
	for key, value := range fields {
		normalized[key] = strings.TrimSpace(value)
	}
	if lang, ok := normalized["language"]; ok {
		normalized["language"] = normalizeLanguage(lang)
	}
	if res, ok := normalized["residency"]; ok {
		normalized["residency"] = strings.ToUpper(res)
	}
	return Key{Class: ClassSearch, Fields: normalized}
}

func normalizeLanguage(language string) string {
	language = strings.ToLower(strings.TrimSpace(language))
	if language == "" {
		return "en"
	}
	return language
}
