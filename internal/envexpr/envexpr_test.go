package envexpr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpand(t *testing.T) {
	env := map[string]string{"FOO": "bar", "A": "1", "B": "2", "X": "x", "ACCT": "/var/acct"}
	lookup := func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
	testCases := []struct {
		name   string
		input  string
		expect string
	}{
		{name: "no expressions", input: "slots: 64", expect: "slots: 64"},
		{name: "single", input: "value is ${env.FOO}", expect: "value is bar"},
		{name: "multiple", input: "${env.A}-${env.B}-${env.A}", expect: "1-2-1"},
		{name: "unset becomes empty", input: "unset=${env.NOTSET}-end", expect: "unset=-end"},
		{name: "missing closing brace", input: "start ${env.X and ${env.Y} end", expect: "start ${env.X and  end"},
		{name: "empty key", input: "oops ${env.} done", expect: "oops  done"},
		{name: "unclosed at end", input: "url: ${env.ACCT", expect: "url: ${env.ACCT"},
		{name: "yaml value", input: "url: ${env.ACCT}/kproc", expect: "url: /var/acct/kproc"},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			assert.Equal(t, testCase.expect, Expand(testCase.input, lookup))
		})
	}
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("KPROC_POLICY", "mlfq")
	assert.Equal(t, "name: mlfq", ExpandEnv("name: ${env.KPROC_POLICY}"))
}
