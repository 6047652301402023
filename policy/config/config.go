// Package config implements the Config reader seam the replacement
// policies use at construction time: the four per-owner-array keys of spec
// section 6 (srrip/bits, srrip/max_value, srrip/db_threshold, srrip/case).
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

// Reader mirrors the source's Sim()->getCfg()->getIntArray(key, core_id):
// every key is an integer, indexed per owner/core.
type Reader interface {
	IntArray(key string, coreID int) (int, error)
}

// Env is a Reader backed by the process environment. Keys of the form
// "a/b/c" are looked up as "A_B_C_<coreID>" (e.g. "srrip/bits" for core 1
// becomes "SRRIP_BITS_1"), so a .env file loaded with Load can drive an
// entire two-core configuration with four lines per owner.
type Env struct{}

// Load reads path with godotenv and merges its keys into the process
// environment, the way cmd/llcsim's config flag does at startup. A missing
// file is not an error: falling back to whatever is already in the
// environment is expected for ad hoc runs.
func Load(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrapf(err, "loading config file %q", path)
	}
	return nil
}

func envName(key string, coreID int) string {
	out := make([]byte, 0, len(key)+4)
	for i := 0; i < len(key); i++ {
		c := key[i]
		switch {
		case c == '/':
			out = append(out, '_')
		case c >= 'a' && c <= 'z':
			out = append(out, c-'a'+'A')
		default:
			out = append(out, c)
		}
	}
	return fmt.Sprintf("%s_%d", out, coreID)
}

// IntArray implements Reader.
func (Env) IntArray(key string, coreID int) (int, error) {
	name := envName(key, coreID)
	raw, ok := os.LookupEnv(name)
	if !ok {
		return 0, errors.Errorf("required config key missing: %s (core %d)", key, coreID)
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.Wrapf(err, "config key %s is not an integer", name)
	}
	return v, nil
}

// Static is a Reader backed by an in-memory table, used by tests and by
// callers that already have resolved configuration (e.g. from a flag-driven
// CLI run rather than a .env file).
type Static map[string]map[int]int

// IntArray implements Reader.
func (s Static) IntArray(key string, coreID int) (int, error) {
	byCore, ok := s[key]
	if !ok {
		return 0, errors.Errorf("required config key missing: %s (core %d)", key, coreID)
	}
	v, ok := byCore[coreID]
	if !ok {
		return 0, errors.Errorf("required config key missing: %s (core %d)", key, coreID)
	}
	return v, nil
}
