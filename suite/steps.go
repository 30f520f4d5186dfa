package suite

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"

	"go.alt-gnome.ru/lesst"
)

type caseOptions struct {
	Dir string   `mapstructure:"dir"`
	Env []string `mapstructure:"env"`
}

type waitForArgs struct {
	Text    string `mapstructure:"text"`
	Regexp  string `mapstructure:"regexp"`
	Timeout any    `mapstructure:"timeout"`
}

type assertArgs struct {
	Contains       []string `mapstructure:"contains"`
	NotContains    []string `mapstructure:"notContains"`
	Equals         *string  `mapstructure:"equals"`
	Regexp         string   `mapstructure:"regexp"`
	Empty          bool     `mapstructure:"empty"`
	StderrContains []string `mapstructure:"stderrContains"`
	StderrRegexp   string   `mapstructure:"stderrRegexp"`
	StderrEmpty    bool     `mapstructure:"stderrEmpty"`
}

var durationType = reflect.TypeOf(time.Duration(0))

// millisecondsHook reads bare numbers as milliseconds, the unit suite
// authors know from wait(ms).
func millisecondsHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to != durationType {
		return data, nil
	}
	switch from.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return time.Duration(reflect.ValueOf(data).Int()) * time.Millisecond, nil
	case reflect.Float32, reflect.Float64:
		return time.Duration(reflect.ValueOf(data).Float() * float64(time.Millisecond)), nil
	}
	return data, nil
}

func decode(input any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			millisecondsHook,
			mapstructure.StringToTimeDurationHookFunc(),
		),
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}

func decodeOptions(raw map[string]any) ([]lesst.CmdOption, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var o caseOptions
	if err := decode(raw, &o); err != nil {
		return nil, err
	}
	var opts []lesst.CmdOption
	if o.Dir != "" {
		opts = append(opts, lesst.WithDir(o.Dir))
	}
	if len(o.Env) > 0 {
		opts = append(opts, lesst.WithEnv(o.Env...))
	}
	return opts, nil
}

func duration(v any) (time.Duration, error) {
	if v == nil {
		return 0, nil
	}
	var holder struct {
		D time.Duration `mapstructure:"d"`
	}
	if err := decode(map[string]any{"d": v}, &holder); err != nil {
		return 0, fmt.Errorf("invalid duration %v", v)
	}
	return holder.D, nil
}

// optionalDuration maps an omitted argument to no duration, so the driver
// applies its default, and anything else (0 included) to exactly one.
func optionalDuration(v any) ([]time.Duration, error) {
	if v == nil {
		return nil, nil
	}
	d, err := duration(v)
	if err != nil {
		return nil, err
	}
	return []time.Duration{d}, nil
}

type stepFunc func(s *lesst.Script, arg any) error

var steps = map[string]stepFunc{
	"begin":          noArg(func(s *lesst.Script) { s.Begin() }),
	"keep":           noArg(func(s *lesst.Script) { s.Keep() }),
	"enter":          noArg(func(s *lesst.Script) { s.Enter() }),
	"interrupt":      noArg(func(s *lesst.Script) { s.Interrupt() }),
	"wait":           durationArg((*lesst.Script).Wait),
	"waitForData":    durationArg((*lesst.Script).WaitForData),
	"waitExit":       durationArg((*lesst.Script).WaitExit),
	"writeIn":        writeInStep,
	"writeKey":       writeKeyStep,
	"channel":        channelStep,
	"waitFor":        waitForStep,
	"assert":         assertStep,
	"assertExitCode": assertExitCodeStep,
}

// StepNames lists the step keywords a suite may use.
func StepNames() []string {
	names := make([]string, 0, len(steps))
	for name := range steps {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// addStep decodes one list item: either a bare keyword ("begin") or a
// single-key mapping ("writeIn: Nancy").
func addStep(s *lesst.Script, raw any) error {
	var (
		name string
		arg  any
	)
	switch v := raw.(type) {
	case string:
		name = v
	case map[string]any:
		if len(v) != 1 {
			return fmt.Errorf("a step must have exactly one key, got %d", len(v))
		}
		for k, a := range v {
			name, arg = k, a
		}
	default:
		return fmt.Errorf("unexpected step %v", raw)
	}
	fn, ok := steps[name]
	if !ok {
		return fmt.Errorf("unknown step %q (known: %s)", name, strings.Join(StepNames(), ", "))
	}
	if err := fn(s, arg); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

func noArg(fn func(s *lesst.Script)) stepFunc {
	return func(s *lesst.Script, arg any) error {
		if arg != nil {
			if b, ok := arg.(bool); !ok || !b {
				return errors.New("takes no argument")
			}
		}
		fn(s)
		return nil
	}
}

func durationArg(fn func(s *lesst.Script, d ...time.Duration) *lesst.Script) stepFunc {
	return func(s *lesst.Script, arg any) error {
		d, err := optionalDuration(arg)
		if err != nil {
			return err
		}
		fn(s, d...)
		return nil
	}
}

func writeInStep(s *lesst.Script, arg any) error {
	var line string
	if err := decode(arg, &line); err != nil {
		return err
	}
	s.WriteIn(line)
	return nil
}

func writeKeyStep(s *lesst.Script, arg any) error {
	var names []string
	if err := decode(arg, &names); err != nil {
		return err
	}
	if len(names) == 0 {
		return errors.New("at least one key is required")
	}
	keys := make([]lesst.Key, 0, len(names))
	for _, n := range names {
		k, err := lesst.KeyByName(n)
		if err != nil {
			return err
		}
		keys = append(keys, k)
	}
	s.WriteKey(keys...)
	return nil
}

func channelStep(s *lesst.Script, arg any) error {
	var name string
	if err := decode(arg, &name); err != nil {
		return err
	}
	ch, err := lesst.ParseChannel(name)
	if err != nil {
		return err
	}
	s.SelectChannel(ch)
	return nil
}

func waitForStep(s *lesst.Script, arg any) error {
	if pattern, ok := arg.(string); ok {
		return waitFor(s, lesst.Pattern(pattern), nil)
	}
	var a waitForArgs
	if err := decode(arg, &a); err != nil {
		return err
	}
	timeout, err := optionalDuration(a.Timeout)
	if err != nil {
		return err
	}
	switch {
	case a.Text != "" && a.Regexp != "":
		return errors.New("text and regexp are mutually exclusive")
	case a.Text != "":
		return waitFor(s, lesst.Text(a.Text), timeout)
	case a.Regexp != "":
		return waitFor(s, lesst.Pattern(a.Regexp), timeout)
	}
	return errors.New("text or regexp is required")
}

func waitFor(s *lesst.Script, target lesst.Target, timeout []time.Duration) error {
	if err := target.Err(); err != nil {
		return err
	}
	s.WaitFor(target, timeout...)
	return nil
}

func assertStep(s *lesst.Script, arg any) error {
	var a assertArgs
	if err := decode(arg, &a); err != nil {
		return err
	}
	var fns []lesst.AssertFunc
	for _, sub := range a.Contains {
		fns = append(fns, lesst.Contains(sub))
	}
	for _, sub := range a.NotContains {
		fns = append(fns, lesst.NotContains(sub))
	}
	if a.Equals != nil {
		fns = append(fns, lesst.Equals(*a.Equals))
	}
	if a.Regexp != "" {
		fns = append(fns, lesst.Matches(a.Regexp))
	}
	if a.Empty {
		fns = append(fns, lesst.Empty())
	}
	for _, sub := range a.StderrContains {
		fns = append(fns, lesst.StderrContains(sub))
	}
	if a.StderrRegexp != "" {
		fns = append(fns, lesst.StderrMatches(a.StderrRegexp))
	}
	if a.StderrEmpty {
		fns = append(fns, lesst.StderrEmpty())
	}
	if len(fns) == 0 {
		return errors.New("no checks given")
	}
	s.Assert(lesst.All(fns...))
	return nil
}

func assertExitCodeStep(s *lesst.Script, arg any) error {
	var code int
	if err := decode(arg, &code); err != nil {
		return err
	}
	s.AssertExitCode(code)
	return nil
}
