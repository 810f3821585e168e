package dao

import "strconv"

// Parameter is a named List filter. Value holds a string or a []string; a
// record matches a []string when its field equals any element.
type Parameter struct {
	Name  string
	Value interface{}
}

// NewParameter creates a filter on name.
func NewParameter(name string, values ...string) *Parameter {
	if len(values) == 1 {
		return &Parameter{Name: name, Value: values[0]}
	}
	return &Parameter{Name: name, Value: values}
}

// NewIntParameter creates a filter on an integer field.
func NewIntParameter(name string, values ...int) *Parameter {
	text := make([]string, len(values))
	for i, v := range values {
		text[i] = strconv.Itoa(v)
	}
	return NewParameter(name, text...)
}
