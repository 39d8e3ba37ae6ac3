package models

// StepType identifies the browser action a step performs.
type StepType string

const (
	StepTypeNavigate   StepType = "navigate"
	StepTypeClick      StepType = "click"
	StepTypeInput      StepType = "input"
	StepTypeWait       StepType = "wait"
	StepTypeVerify     StepType = "verify"
	StepTypeScreenshot StepType = "screenshot"
)

// SelectorType is the element location strategy.
type SelectorType string

const (
	SelectorCSS             SelectorType = "css"
	SelectorXPath           SelectorType = "xpath"
	SelectorID              SelectorType = "id"
	SelectorName            SelectorType = "name"
	SelectorClass           SelectorType = "class"
	SelectorTag             SelectorType = "tag"
	SelectorLinkText        SelectorType = "link_text"
	SelectorPartialLinkText SelectorType = "partial_link_text"
)

// Valid reports whether s is a known selector strategy.
func (s SelectorType) Valid() bool {
	switch s {
	case SelectorCSS, SelectorXPath, SelectorID, SelectorName, SelectorClass,
		SelectorTag, SelectorLinkText, SelectorPartialLinkText:
		return true
	default:
		return false
	}
}

// Action is an element interaction understood by the session pool.
type Action string

const (
	ActionClick        Action = "click"
	ActionInput        Action = "input"
	ActionClear        Action = "clear"
	ActionGetText      Action = "get_text"
	ActionGetAttribute Action = "get_attribute"
)

const DefaultStepTimeoutSeconds = 10

// TestStep is one entry of an execution plan.
type TestStep struct {
	StepNumber     int          `json:"step_number"               validate:"gte=1"`
	Type           StepType     `json:"step_type"                 validate:"required,oneof=navigate click input wait verify screenshot"`
	Description    string       `json:"description"`
	Selector       string       `json:"selector,omitempty"        validate:"required_if=Type click,required_if=Type input,required_if=Type verify"`
	SelectorType   SelectorType `json:"selector_type,omitempty"`
	InputText      string       `json:"input_text,omitempty"      validate:"required_if=Type input"`
	ExpectedText   string       `json:"expected_text,omitempty"`
	URL            string       `json:"url,omitempty"             validate:"required_if=Type navigate"`
	WaitSeconds    float64      `json:"wait_seconds,omitempty"    validate:"gte=0"`
	TimeoutSeconds int          `json:"timeout_seconds"           validate:"gte=1"`
}
