package metadata

import (
	"fmt"
	"strconv"
	"strings"
)

/**
 * @brief Policy for mapping source samples into the 8-bit display range.
 * One concrete type per mode, each carrying its own parameters:
 * LinearRange, UserRange, QuantileRange, GreyLevelRange, GreyLevelAutoRange.
 */
type DynamicRange interface {
	isDynamicRange()
	String() string
	// Validate reports parameters the mode cannot work with.
	Validate() error
}

/**
 * @brief Identity mapping. 8-bit data is uploaded unchanged, 16-bit data is
 * scaled from [0, 65535] and float samples are clamped to [0, 255].
 */
type LinearRange struct{}

/** @brief Maps [Min, Max], in source sample units, onto [0, 255]. */
type UserRange struct {
	Min float64
	Max float64
}

/** @brief Maps the [Low, High] sample quantiles (fractions in [0, 1]) onto [0, 255]. */
type QuantileRange struct {
	Low  float64
	High float64
}

/** @brief Maps Level to mid-grey, so [0, 2*Level] spans the output range. */
type GreyLevelRange struct {
	Level float64
}

/** @brief Like GreyLevelRange with Level set to the mean colour sample. */
type GreyLevelAutoRange struct{}

func (LinearRange) isDynamicRange()        {}
func (UserRange) isDynamicRange()          {}
func (QuantileRange) isDynamicRange()      {}
func (GreyLevelRange) isDynamicRange()     {}
func (GreyLevelAutoRange) isDynamicRange() {}

func (LinearRange) Validate() error        { return nil }
func (GreyLevelAutoRange) Validate() error { return nil }

func (r UserRange) Validate() error {
	if !(r.Max > r.Min) {
		return fmt.Errorf("dynamic range %s: max must exceed min", r)
	}
	return nil
}

func (r QuantileRange) Validate() error {
	if !(r.Low >= 0 && r.High <= 1 && r.High > r.Low) {
		return fmt.Errorf("dynamic range %s: want 0 <= low < high <= 1", r)
	}
	return nil
}

func (r GreyLevelRange) Validate() error {
	if !(r.Level >= 0) {
		return fmt.Errorf("dynamic range %s: level must not be negative", r)
	}
	return nil
}

func (LinearRange) String() string { return "linear" }

func (r UserRange) String() string {
	return fmt.Sprintf("user(%g,%g)", r.Min, r.Max)
}

func (r QuantileRange) String() string {
	return fmt.Sprintf("quantile(%g,%g)", r.Low, r.High)
}

func (r GreyLevelRange) String() string {
	return fmt.Sprintf("greylevel(%g)", r.Level)
}

func (GreyLevelAutoRange) String() string { return "greylevel-auto" }

// ScaleOffset returns the affine map out = (in - offset) * scale.
func (r UserRange) ScaleOffset() (scale, offset float64) {
	if r.Max <= r.Min {
		return 0, r.Min
	}
	return 255 / (r.Max - r.Min), r.Min
}

// ParseDynamicRange parses the textual form used in configuration files:
// "linear", "user(min,max)", "quantile(low,high)", "greylevel(level)" and
// "greylevel-auto".
func ParseDynamicRange(s string) (DynamicRange, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	name, args, err := splitCall(s)
	if err != nil {
		return nil, err
	}
	switch name {
	case "", "linear":
		return LinearRange{}, checkArgs(s, args, 0)
	case "greylevel-auto":
		return GreyLevelAutoRange{}, checkArgs(s, args, 0)
	case "greylevel":
		if err := checkArgs(s, args, 1); err != nil {
			return nil, err
		}
		return validated(GreyLevelRange{Level: args[0]})
	case "user":
		if err := checkArgs(s, args, 2); err != nil {
			return nil, err
		}
		return validated(UserRange{Min: args[0], Max: args[1]})
	case "quantile":
		if err := checkArgs(s, args, 2); err != nil {
			return nil, err
		}
		return validated(QuantileRange{Low: args[0], High: args[1]})
	}
	return nil, fmt.Errorf("unknown dynamic range mode %q", s)
}

func validated(r DynamicRange) (DynamicRange, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

func splitCall(s string) (string, []float64, error) {
	open := strings.IndexByte(s, '(')
	if open < 0 {
		return s, nil, nil
	}
	if !strings.HasSuffix(s, ")") {
		return "", nil, fmt.Errorf("dynamic range %q: missing ')'", s)
	}
	var args []float64
	for _, f := range strings.Split(s[open+1:len(s)-1], ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return "", nil, fmt.Errorf("dynamic range %q: %w", s, err)
		}
		args = append(args, v)
	}
	return s[:open], args, nil
}

func checkArgs(s string, args []float64, n int) error {
	if len(args) != n {
		return fmt.Errorf("dynamic range %q: want %d arguments, have %d", s, n, len(args))
	}
	return nil
}
