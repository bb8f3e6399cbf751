package model

import "fmt"

// Symbol pairs the provider-agnostic canonical ID used internally with the raw
// ticker it was resolved from.
type Symbol struct {
	Canonical string
	Raw       string
}

func (s Symbol) String() string {
	return fmt.Sprintf("%s (%s)", s.Canonical, s.Raw)
}
