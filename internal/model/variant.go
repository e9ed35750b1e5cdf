package model

// VariantSelection is one A/B hook configuration: the identifier the
// tracker tags events with plus the display fields the landing page
// renders. The display texts are opaque to this module.
type VariantSelection struct {
	// ID is the variant identifier, conventionally "A" or "B".
	ID string `json:"id"`

	// Label is a short human-readable name for reporting.
	Label string `json:"label,omitempty"`

	// TagText is the hero tag line shown above the headline.
	TagText string `json:"tagText,omitempty"`

	// HeroHeading is the main headline markup.
	HeroHeading string `json:"heroHeading,omitempty"`

	// HighlightedMessage is the emphasized message below the headline.
	HighlightedMessage string `json:"highlightedMessage,omitempty"`

	// PersonalizeHeading indicates the headline should be prefixed with
	// the visitor's name when one is known.
	PersonalizeHeading bool `json:"personalizeHeading,omitempty"`
}
