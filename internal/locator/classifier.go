// internal/locator/classifier.go
package locator

import (
	"strings"

	"github.com/chatdrop/chatdrop/api/schemas"
)

// Classifier tags controls that carry a particular style role. Matching is
// deliberately a pluggable heuristic: adapting to changed target markup
// means supplying a new classifier, not rewriting the locator.
type Classifier struct {
	// Name labels the classifier in logs and diagnostics.
	Name string
	// Match reports whether the control carries this classification.
	Match func(schemas.Control) bool
}

// PrimaryClassifier tags controls styled as the primary/affirmative action:
// any class name containing one of the markers.
func PrimaryClassifier(markers []string) Classifier {
	return Classifier{
		Name:  "primary",
		Match: func(c schemas.Control) bool { return hasClassMarker(c, markers) },
	}
}

// GenericClassifier tags anything that renders as a plain button: a button
// tag, a button ARIA role, or a class name containing one of the markers.
func GenericClassifier(markers []string) Classifier {
	return Classifier{
		Name: "generic-button",
		Match: func(c schemas.Control) bool {
			if strings.EqualFold(c.TagName, "button") || strings.EqualFold(c.Role, "button") {
				return true
			}
			return hasClassMarker(c, markers)
		},
	}
}

func hasClassMarker(c schemas.Control, markers []string) bool {
	for _, class := range c.Classes {
		lc := strings.ToLower(class)
		for _, marker := range markers {
			if marker != "" && strings.Contains(lc, strings.ToLower(marker)) {
				return true
			}
		}
	}
	return false
}
