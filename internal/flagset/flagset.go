// Package flagset implements a "SuperFlag" mini-DSL (key=val; key2=val2)
// for parsing a handful of pool settings out of one string, the way
// ristretto's z.SuperFlag lets a binary config a Cache with a single flag
// value.
package flagset

import (
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Set is a parsed "key=val; key2=val2" string.
type Set struct {
	m map[string]string
}

// Parse splits s on ';' and '=' into a Set. Keys are lower-cased and
// underscores are normalized to hyphens. An entry with no '=' is a format
// error.
func Parse(s string) (*Set, error) {
	m := make(map[string]string)
	for _, kv := range strings.Split(s, ";") {
		kv = strings.TrimSpace(kv)
		if kv == "" {
			continue
		}
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) != 2 {
			return nil, errors.Errorf("flagset: %q has no '=' separator", kv)
		}
		key := strings.ToLower(strings.TrimSpace(parts[0]))
		key = strings.ReplaceAll(key, "_", "-")
		m[key] = strings.TrimSpace(parts[1])
	}
	return &Set{m: m}, nil
}

// Has reports whether opt was present and non-empty.
func (s *Set) Has(opt string) bool {
	return s.GetString(opt) != ""
}

// GetString returns the raw string value, or "" if absent.
func (s *Set) GetString(opt string) string {
	if s == nil {
		return ""
	}
	return s.m[opt]
}

// GetDuration parses opt as a time.Duration, including an "Nd" days
// extension.
func (s *Set) GetDuration(opt string) (time.Duration, error) {
	val := s.GetString(opt)
	if val == "" {
		return 0, nil
	}
	if strings.HasSuffix(val, "d") {
		days, err := strconv.ParseUint(strings.TrimSuffix(val, "d"), 10, 64)
		if err != nil {
			return 0, errors.Wrapf(err, "flagset: %s as duration-in-days", opt)
		}
		return time.Hour * 24 * time.Duration(days), nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, errors.Wrapf(err, "flagset: %s as duration", opt)
	}
	return d, nil
}

// GetInt returns opt parsed as an int, or 0 if absent.
func (s *Set) GetInt(opt string) (int, error) {
	val := s.GetString(opt)
	if val == "" {
		return 0, nil
	}
	i, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "flagset: %s as int", opt)
	}
	return int(i), nil
}

// GetUint64 returns opt parsed as a uint64, or 0 if absent.
func (s *Set) GetUint64(opt string) (uint64, error) {
	val := s.GetString(opt)
	if val == "" {
		return 0, nil
	}
	u, err := strconv.ParseUint(val, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "flagset: %s as uint64", opt)
	}
	return u, nil
}

// GetBool returns opt parsed as a bool, or false if absent.
func (s *Set) GetBool(opt string) (bool, error) {
	val := s.GetString(opt)
	if val == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, errors.Wrapf(err, "flagset: %s as bool", opt)
	}
	return b, nil
}
