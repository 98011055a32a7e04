package synapse

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueryMap(t *testing.T) {
	q := QueryMap{"name": "tom", "age": "3", "bad": "x", "flag": "ON", "empty": ""}

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"get", q.Get("name"), "tom"},
		{"get missing", q.Get("nope"), ""},
		{"default used when missing", q.GetDefault("nope", "d"), "d"},
		{"default used when empty", q.GetDefault("empty", "d"), "d"},
		{"default ignored when set", q.GetDefault("name", "d"), "tom"},
		{"int", q.GetInt("age"), 3},
		{"int invalid", q.GetInt("bad"), 0},
		{"int default", q.GetIntDefault("nope", 7), 7},
		{"int default on invalid", q.GetIntDefault("bad", 7), 7},
		{"bool", q.GetBool("flag"), true},
		{"bool false", q.GetBool("name"), false},
		{"has empty", q.Has("empty"), true},
		{"has missing", q.Has("nope"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}

	assert.ElementsMatch(t, []string{"name", "age", "bad", "flag", "empty"}, q.Keys())
	assert.Equal(t, map[string]any{"name": "tom", "age": "3", "bad": "x", "flag": "ON", "empty": ""}, q.ToMap())
}
