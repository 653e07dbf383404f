package specs

import (
	"github.com/onsi/gomega/gcustom"
	"github.com/onsi/gomega/types"
)

// HaveClass succeeds when the element carries class in its class attribute
func HaveClass(class string) types.GomegaMatcher {
	return gcustom.MakeMatcher(func(e Element) (bool, error) {
		return e.Page.HasClass(e.Selector, class), nil
	}).WithTemplate("Expected {{.Actual.Selector}} with class {{printf \"%q\" (.Actual.Page.Classes .Actual.Selector)}}\n{{.To}} have class {{printf \"%q\" .Data}}", class)
}
