package engine

import (
	"fmt"
	"strconv"
	"strings"
)

// Option is one engine setting exposed to the host. The value lives in the
// engine's settings; the option only points at it.
type Option struct {
	Name, Type string

	BoolValue   *bool
	BoolDefault bool

	IntValue                   *int
	IntDefault, IntMin, IntMax int

	StringValue   *string
	StringDefault string

	// OnChange applies a new value. On error the previous value is restored.
	OnChange func() error
}

func newBoolOption(name string, value *bool, defaultValue bool, onChange func() error) *Option {
	*value = defaultValue
	return &Option{
		Name:        name,
		Type:        "check",
		BoolValue:   value,
		BoolDefault: defaultValue,
		OnChange:    onChange,
	}
}

func newIntOption(name string, value *int, defaultValue, min, max int, onChange func() error) *Option {
	*value = defaultValue
	return &Option{
		Name:       name,
		Type:       "spin",
		IntValue:   value,
		IntDefault: defaultValue,
		IntMin:     min,
		IntMax:     max,
		OnChange:   onChange,
	}
}

func newStringOption(name string, value *string, defaultValue string, onChange func() error) *Option {
	*value = defaultValue
	return &Option{
		Name:          name,
		Type:          "string",
		StringValue:   value,
		StringDefault: defaultValue,
		OnChange:      onChange,
	}
}

// USI formats the option declaration sent in reply to "usi".
func (o *Option) USI() string {
	switch o.Type {
	case "check":
		return fmt.Sprintf("option name %s type check default %t", o.Name, o.BoolDefault)
	case "spin":
		return fmt.Sprintf("option name %s type spin default %d min %d max %d", o.Name, o.IntDefault, o.IntMin, o.IntMax)
	}
	def := o.StringDefault
	if def == "" {
		def = "<empty>"
	}
	return fmt.Sprintf("option name %s type string default %s", o.Name, def)
}

// Value returns the current value as text.
func (o *Option) Value() string {
	switch o.Type {
	case "check":
		return strconv.FormatBool(*o.BoolValue)
	case "spin":
		return strconv.Itoa(*o.IntValue)
	}
	return *o.StringValue
}

// set parses and applies value.
func (o *Option) set(value string) error {
	old := o.Value()
	if err := o.assign(value); err != nil {
		return err
	}
	if o.OnChange == nil {
		return nil
	}
	if err := o.OnChange(); err != nil {
		_ = o.assign(old)
		return fmt.Errorf("option %s: %w", o.Name, err)
	}
	return nil
}

func (o *Option) assign(value string) error {
	switch o.Type {
	case "check":
		v, err := strconv.ParseBool(strings.ToLower(value))
		if err != nil {
			return fmt.Errorf("option %s: %q: %w", o.Name, value, ErrInvalidOptionValue)
		}
		*o.BoolValue = v
	case "spin":
		v, err := strconv.Atoi(value)
		if err != nil || v < o.IntMin || v > o.IntMax {
			return fmt.Errorf("option %s: %q not in [%d, %d]: %w", o.Name, value, o.IntMin, o.IntMax, ErrInvalidOptionValue)
		}
		*o.IntValue = v
	default:
		if value == "<empty>" {
			value = ""
		}
		*o.StringValue = value
	}
	return nil
}

// findOption looks an option up by name, ignoring case as hosts differ.
func findOption(options []*Option, name string) (*Option, bool) {
	for _, o := range options {
		if strings.EqualFold(o.Name, name) {
			return o, true
		}
	}
	return nil, false
}
