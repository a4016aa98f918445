package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRepairJSON(t *testing.T) {
	cases := []struct {
		name    string
		in      string
		want    string
		changed bool
	}{
		{"already valid", `{"a":1}`, `{"a":1}`, false},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`, true},
		{"bare fence", "```\n[1]\n```", `[1]`, true},
		{"surrounding prose", "Here you go: {\"a\":1} hope it helps", `{"a":1}`, true},
		{"array", "prefix [1,2,3] suffix", `[1,2,3]`, true},
		{"no json", "sunny and warm", "sunny and warm", false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, changed := RepairJSON(c.in)
			assert.Equal(t, c.want, got)
			assert.Equal(t, c.changed, changed)
		})
	}
}

func TestRepairJSON_BracesInsideStrings(t *testing.T) {
	got, _ := RepairJSON(`result: {"note":"use } carefully","n":[1,{"x":2}]} trailing }`)
	assert.Equal(t, `{"note":"use } carefully","n":[1,{"x":2}]}`, got)
}
