package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

var durationType = reflect.TypeOf(time.Duration(0))

type envField struct {
	key   string
	value reflect.Value
}

// collectEnvFields flattens settable leaf fields of v with the variable name each one reads.
func collectEnvFields(v reflect.Value, prefix string, out []envField) []envField {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		fv := v.Field(i)
		if !fv.CanSet() {
			continue
		}
		if sf.Anonymous && fv.Kind() == reflect.Struct {
			out = collectEnvFields(fv, prefix, out)
			continue
		}

		tag := sf.Tag.Get("env")
		if tag == "-" {
			continue
		}
		key := envKey(prefix, sf.Name)
		if tag != "" {
			key = envKey("", tag)
		}

		if fv.Kind() == reflect.Struct && fv.Type() != durationType {
			out = collectEnvFields(fv, key, out)
			continue
		}
		out = append(out, envField{key: key, value: fv})
	}
	return out
}

func applyEnv(fields []envField) error {
	var errs []error
	for _, f := range fields {
		raw, ok := os.LookupEnv(f.key)
		if !ok {
			continue
		}
		if err := setFromString(f.value, raw); err != nil {
			errs = append(errs, fmt.Errorf("config: parse %s: %w", f.key, err))
		}
	}
	return errors.Join(errs...)
}

func envKey(prefix, name string) string {
	name = strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
	if prefix == "" {
		return name
	}
	return prefix + "_" + name
}

func setFromString(field reflect.Value, raw string) error {
	if field.Type() == durationType {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return err
		}
		field.SetInt(int64(d))
		return nil
	}

	switch kind := field.Kind(); {
	case kind == reflect.String:
		field.SetString(raw)
	case kind == reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return err
		}
		field.SetBool(b)
	case kind >= reflect.Int && kind <= reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetInt(n)
	case kind >= reflect.Uint && kind <= reflect.Uint64:
		n, err := strconv.ParseUint(raw, 10, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetUint(n)
	case kind == reflect.Float32 || kind == reflect.Float64:
		f, err := strconv.ParseFloat(raw, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetFloat(f)
	case kind == reflect.Slice && field.Type().Elem().Kind() == reflect.String:
		items := make([]string, 0)
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				items = append(items, part)
			}
		}
		field.Set(reflect.ValueOf(items))
	default:
		return fmt.Errorf("unsupported field type %s", field.Type())
	}
	return nil
}
