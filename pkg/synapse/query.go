package synapse

import (
	"strconv"
	"strings"
)

// QueryMap represents URL query parameters flattened to one value per key
type QueryMap map[string]string

// Get returns the value for the given key, or empty string if not found
func (q QueryMap) Get(key string) string {
	return q[key]
}

// GetDefault returns the value for the given key, or the default value if not found
func (q QueryMap) GetDefault(key, defaultValue string) string {
	if value := q[key]; value != "" {
		return value
	}
	return defaultValue
}

// GetInt returns the value for the given key as an integer, or 0 if not found/invalid
func (q QueryMap) GetInt(key string) int {
	return q.GetIntDefault(key, 0)
}

// GetIntDefault returns the value for the given key as an integer, or the default if not found/invalid
func (q QueryMap) GetIntDefault(key string, defaultValue int) int {
	if value := q[key]; value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

// GetBool returns the value for the given key as a boolean
// Accepts: "true", "1", "yes", "on" (case insensitive) as true
func (q QueryMap) GetBool(key string) bool {
	value := strings.ToLower(q[key])
	return value == "true" || value == "1" || value == "yes" || value == "on"
}

// Has returns true if the key exists in the query parameters
func (q QueryMap) Has(key string) bool {
	_, exists := q[key]
	return exists
}

// Keys returns all query parameter keys
func (q QueryMap) Keys() []string {
	keys := make([]string, 0, len(q))
	for key := range q {
		keys = append(keys, key)
	}
	return keys
}

// ToMap converts the query map to a generic map, the shape schemas validate
func (q QueryMap) ToMap() map[string]any {
	out := make(map[string]any, len(q))
	for k, v := range q {
		out[k] = v
	}
	return out
}
