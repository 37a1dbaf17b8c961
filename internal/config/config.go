package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"unicode"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// EnvPrefix is prepended to every `env` tag when reading environment overrides.
const EnvPrefix = "MAGNIFIER_"

// option is one settable field of an options struct and where its value may come from.
type option struct {
	flag  string
	path  string // dotted TOML key
	env   string // without EnvPrefix
	value reflect.Value
}

// LoadConfig fills opts from the TOML file named by its Config field and from
// MAGNIFIER_* environment variables. Precedence is CLI flag > env > file: any
// flag the user set on cmd leaves its field untouched. A missing file is not
// an error; malformed TOML and unparsable env values are.
func LoadConfig(opts any, cmd *cobra.Command) error {
	v := reflect.ValueOf(opts)
	if v.Kind() != reflect.Pointer || v.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("config: options must be a struct pointer, got %T", opts)
	}
	fields := collectOptions(v.Elem())
	fields = withoutFlagsSet(fields, cmd)

	var configPath string
	if f := v.Elem().FieldByName("Config"); f.IsValid() && f.Kind() == reflect.String {
		configPath = f.String()
	}

	doc, err := readTOML(configPath)
	if err != nil {
		return err
	}

	var errs []error
	for _, o := range fields {
		if o.path != "" && doc != nil {
			if raw := lookupPath(doc, o.path); raw != nil {
				if err := assignValue(o.value, raw); err != nil {
					errs = append(errs, fmt.Errorf("%s: %w", o.path, err))
				}
			}
		}
		if o.env == "" {
			continue
		}
		if raw := os.Getenv(EnvPrefix + o.env); raw != "" {
			if err := assignString(o.value, raw); err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, o.env, err))
			}
		}
	}
	return errors.Join(errs...)
}

func collectOptions(v reflect.Value) []option {
	t := v.Type()
	out := make([]option, 0, t.NumField())
	for i := range t.NumField() {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		out = append(out, option{
			flag:  fieldNameToFlag(sf.Name),
			path:  sf.Tag.Get("toml"),
			env:   sf.Tag.Get("env"),
			value: v.Field(i),
		})
	}
	return out
}

// withoutFlagsSet drops options whose flag was given explicitly on the command line.
func withoutFlagsSet(opts []option, cmd *cobra.Command) []option {
	if cmd == nil {
		return opts
	}
	set := map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { set[f.Name] = true })
	if len(set) == 0 {
		return opts
	}

	kept := opts[:0]
	for _, o := range opts {
		if !set[o.flag] {
			kept = append(kept, o)
		}
	}
	return kept
}

func readTOML(path string) (map[string]any, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	var doc map[string]any
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse TOML config: %w", err)
	}
	return doc, nil
}

// fieldNameToFlag converts a struct field name to its kebab-case flag name.
// Acronyms stay together: "CaptureFPS" -> "capture-fps", "UIQueueSize" -> "ui-queue-size".
func fieldNameToFlag(fieldName string) string {
	runes := []rune(fieldName)
	var b strings.Builder
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prevLower := unicode.IsLower(runes[i-1])
			acronymEnd := unicode.IsUpper(runes[i-1]) && i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if prevLower || acronymEnd {
				b.WriteByte('-')
			}
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// lookupPath walks a decoded TOML document along a dotted key.
func lookupPath(doc map[string]any, path string) any {
	var cur any = doc
	for part := range strings.SplitSeq(path, ".") {
		table, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = table[part]
	}
	return cur
}

// assignValue stores a decoded TOML value into field.
func assignValue(field reflect.Value, raw any) error {
	if !field.CanSet() {
		return nil
	}
	mismatch := fmt.Errorf("cannot use %T as %s", raw, field.Kind())

	switch field.Kind() {
	case reflect.String:
		s, ok := raw.(string)
		if !ok {
			return mismatch
		}
		field.SetString(s)
	case reflect.Bool:
		b, ok := raw.(bool)
		if !ok {
			return mismatch
		}
		field.SetBool(b)
	case reflect.Int, reflect.Int64:
		switch n := raw.(type) {
		case int64:
			field.SetInt(n)
		case int:
			field.SetInt(int64(n))
		default:
			return mismatch
		}
	case reflect.Float64:
		switch n := raw.(type) {
		case float64:
			field.SetFloat(n)
		case int64:
			field.SetFloat(float64(n))
		default:
			return mismatch
		}
	case reflect.Slice:
		items, ok := raw.([]any)
		if !ok || field.Type().Elem().Kind() != reflect.String {
			return mismatch
		}
		out := make([]string, 0, len(items))
		for _, item := range items {
			s, isStr := item.(string)
			if !isStr {
				return fmt.Errorf("cannot use %T in a string list", item)
			}
			out = append(out, s)
		}
		field.Set(reflect.ValueOf(out))
	default:
		return mismatch
	}
	return nil
}

// assignString parses an environment value into field. Lists are comma separated.
func assignString(field reflect.Value, raw string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(raw)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return err
		}
		field.SetBool(b)
	case reflect.Int, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(n)
	case reflect.Float64:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported list type %s", field.Type())
		}
		parts := strings.Split(raw, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		field.Set(reflect.ValueOf(parts))
	default:
		return fmt.Errorf("unsupported kind %s", field.Kind())
	}
	return nil
}
