package sequence

import "slices"

// Element is one node on the path from a clicked element to the document
// root, reduced to the attributes landmark rules look at.
type Element struct {
	Classes []string `json:"classes,omitempty"`
	Href    string   `json:"href,omitempty"`
}

// Landmark maps elements carrying Class (and Href, when set) to Token.
type Landmark struct {
	Token Token  `yaml:"token"`
	Class string `yaml:"class"`
	Href  string `yaml:"href,omitempty"`
}

func (l Landmark) matches(el Element) bool {
	if l.Class != "" && !slices.Contains(el.Classes, l.Class) {
		return false
	}
	if l.Href != "" && el.Href != l.Href {
		return false
	}
	return l.Class != "" || l.Href != ""
}

// Classifier turns click paths into tokens.
type Classifier struct {
	landmarks []Landmark
}

// NewClassifier builds a classifier. Rules are tried in order.
func NewClassifier(landmarks []Landmark) *Classifier {
	return &Classifier{landmarks: append([]Landmark(nil), landmarks...)}
}

// Classify returns the token of the first landmark found on the path, the
// clicked element first. Clicks outside every landmark yield NoMatch.
func (c *Classifier) Classify(path []Element) Token {
	for _, lm := range c.landmarks {
		for _, el := range path {
			if lm.matches(el) {
				return lm.Token
			}
		}
	}
	return NoMatch
}
