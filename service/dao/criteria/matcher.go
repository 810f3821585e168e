// Package criteria evaluates dao.Parameter filters against entity fields.
package criteria

import (
	"github.com/viant/kproc/service/dao"
)

// Match reports whether actual satisfies every parameter named name.
// Parameters with other names do not constrain the result.
func Match(name, actual string, parameters []*dao.Parameter) bool {
	for _, parameter := range parameters {
		if parameter == nil || parameter.Name != name {
			continue
		}
		if !matchValue(actual, parameter.Value) {
			return false
		}
	}
	return true
}

// MatchAll reports whether fields satisfy every parameter that names one
// of them.
func MatchAll(fields map[string]string, parameters []*dao.Parameter) bool {
	for name, actual := range fields {
		if !Match(name, actual, parameters) {
			return false
		}
	}
	return true
}

func matchValue(actual string, value interface{}) bool {
	switch expect := value.(type) {
	case string:
		return actual == expect
	case []string:
		for _, candidate := range expect {
			if actual == candidate {
				return true
			}
		}
		return false
	}
	return true
}
