package notify

import (
	"regexp"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// InputType is the kind of input field a message box may carry.
type InputType string

const (
	InputText     InputType = "text"
	InputPassword InputType = "password"
	InputSelect   InputType = "select"
)

// colorPattern accepts hex colors, CSS color names and rgb()/rgba().
var colorPattern = regexp.MustCompile(`^(#[0-9a-fA-F]{3,8}|[a-zA-Z]+|rgba?\([0-9., %]+\))$`)

// Input describes the optional message box input field.
type Input struct {
	Type        InputType `json:"type"`
	Placeholder string    `json:"placeholder,omitempty"`
	// Value is the initial value (text inputs only).
	Value string `json:"value,omitempty"`
	// Options lists the choices of a select input.
	Options []string `json:"options,omitempty"`
}

// Validate implements validation.Validatable.
func (in *Input) Validate() error {
	return validation.ValidateStruct(in,
		validation.Field(&in.Type,
			validation.Required,
			validation.In(InputText, InputPassword, InputSelect).Error("input type is not handled"),
		),
		validation.Field(&in.Options,
			validation.When(in.Type == InputSelect,
				validation.Required.Error("options are required for a select input"),
			),
		),
	)
}

// Validate implements validation.Validatable.
func (c ColorStop) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Color, validation.Required, validation.Match(colorPattern)),
		validation.Field(&c.Hold, validation.Min(time.Duration(0))),
	)
}

// MessageBoxOptions configures a modal message box.
type MessageBoxOptions struct {
	Title   string
	Content string
	// Buttons are the action labels, left to right. Empty means a single
	// "Accept" button.
	Buttons []string
	Input   *Input
	Silent  bool
	Origin  Origin
}

// Validate implements validation.Validatable.
func (o *MessageBoxOptions) Validate() error {
	if err := validation.ValidateStruct(o,
		validation.Field(&o.Buttons, validation.Each(validation.Required)),
	); err != nil {
		return err
	}
	if o.Input != nil {
		if err := o.Input.Validate(); err != nil {
			return validation.Errors{"input": err}
		}
	}
	return nil
}

// BigBoxOptions configures a corner big box.
type BigBoxOptions struct {
	Title   string
	Content string
	Icon    string
	Number  string
	Color   string
	Colors  []ColorStop
	// ColorTime is the color cycle period. Zero uses the manager default.
	ColorTime time.Duration
	// Timeout auto-dismisses the box. Zero uses the manager default and
	// NoTimeout keeps the box until it is dismissed.
	Timeout time.Duration
	Silent  bool
	Origin  Origin
}

// Validate implements validation.Validatable.
func (o *BigBoxOptions) Validate() error {
	return validateBox(&o.Color, &o.Colors, &o.ColorTime, &o.Timeout, o)
}

// SmallBoxOptions configures a stacked small box.
type SmallBoxOptions struct {
	Title     string
	Content   string
	Icon      string
	SmallIcon string
	Color     string
	Colors    []ColorStop
	ColorTime time.Duration
	Timeout   time.Duration
	Silent    bool
	Origin    Origin
}

// Validate implements validation.Validatable.
func (o *SmallBoxOptions) Validate() error {
	return validateBox(&o.Color, &o.Colors, &o.ColorTime, &o.Timeout, o)
}

func validateBox(color *string, colors *[]ColorStop, colorTime, timeout *time.Duration, structPtr any) error {
	return validation.ValidateStruct(structPtr,
		validation.Field(color, validation.Match(colorPattern)),
		validation.Field(colors),
		validation.Field(colorTime, validation.Min(time.Duration(0))),
		validation.Field(timeout, validation.Min(NoTimeout)),
	)
}

// NoTimeout disables the timed dismissal of a box.
const NoTimeout time.Duration = -1

// defaultButtons is what a message box shows without explicit buttons.
var defaultButtons = []string{"Accept"}
