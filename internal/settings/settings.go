// Package settings persists user preferences in a bbolt key-value file.
//
// Each preference is one key holding a JSON value. Keys never written
// fall back to Defaults.
package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/alvarorichard/hianime/internal/util"
	bolt "go.etcd.io/bbolt"
)

var bucketSettings = []byte("settings")

var (
	// ErrUnknownKey is returned when a key is not a known preference
	ErrUnknownKey = errors.New("unknown setting")
	// ErrOutOfRange is returned for a countdown outside its bounds
	ErrOutOfRange = errors.New("setting out of range")
)

// Autoplay countdown bounds, in seconds
const (
	MinAutoplayCountdown = 5
	MaxAutoplayCountdown = 30
)

// CheckCountdown rejects countdowns outside MinAutoplayCountdown..MaxAutoplayCountdown
func CheckCountdown(seconds int) error {
	if seconds < MinAutoplayCountdown || seconds > MaxAutoplayCountdown {
		return fmt.Errorf("%w: autoplay countdown must be %d to %d seconds, got %d",
			ErrOutOfRange, MinAutoplayCountdown, MaxAutoplayCountdown, seconds)
	}
	return nil
}

// Settings are the user preferences
type Settings struct {
	Theme               string `json:"theme"`
	DefaultQuality      string `json:"defaultQuality"`
	AutoplayNext        bool   `json:"autoplayNext"`
	AutoplayCountdown   int    `json:"autoplayCountdown"`
	DefaultSubtitleLang string `json:"defaultSubtitleLang"`
	SubtitleSize        string `json:"subtitleSize"`
	DownloadDirectory   string `json:"downloadDirectory"`
	DownloadQuality     string `json:"downloadQuality"`
	Notifications       bool   `json:"notifications"`
}

// Defaults returns the preferences of a fresh install
func Defaults() Settings {
	return Settings{
		Theme:               "dark",
		DefaultQuality:      "auto",
		AutoplayNext:        true,
		AutoplayCountdown:   10,
		DefaultSubtitleLang: "en",
		SubtitleSize:        "medium",
		DownloadDirectory:   "",
		DownloadQuality:     "1080p",
		Notifications:       false,
	}
}

// Store is the settings file
type Store struct {
	db *bolt.DB
}

// Open opens (creating if needed) the settings file at path
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating data directory failed: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketSettings)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating settings bucket failed: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the settings file
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Keys lists every known preference key, sorted
func Keys() []string {
	fields := defaultFields()
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func defaultFields() map[string]json.RawMessage {
	data, _ := json.Marshal(Defaults())
	fields := make(map[string]json.RawMessage)
	_ = json.Unmarshal(data, &fields)
	return fields
}

// Get returns the stored text of key: strings unquoted, other values as
// their JSON literal. The bool is false when key was never set.
func (s *Store) Get(key string) (string, bool, error) {
	raw, err := s.getRaw(key)
	if err != nil || raw == nil {
		return "", false, err
	}

	var str string
	if json.Unmarshal(raw, &str) == nil {
		return str, true, nil
	}
	return string(raw), true, nil
}

func (s *Store) getRaw(key string) ([]byte, error) {
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(bucketSettings).Get([]byte(key)); v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reading setting %q failed: %w", key, err)
	}
	return data, nil
}

// Set stores value under key as JSON
func (s *Store) Set(key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding setting %q failed: %w", key, err)
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSettings).Put([]byte(key), data)
	})
	if err != nil {
		return fmt.Errorf("writing setting %q failed: %w", key, err)
	}
	return nil
}

// SetFromString parses text with the type of the key's default and stores it
func (s *Store) SetFromString(key, text string) error {
	def, ok := defaultFields()[key]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}

	var kind any
	_ = json.Unmarshal(def, &kind)

	switch kind.(type) {
	case bool:
		v, err := strconv.ParseBool(text)
		if err != nil {
			return fmt.Errorf("setting %q expects true or false: %w", key, err)
		}
		return s.Set(key, v)
	case float64:
		v, err := strconv.Atoi(text)
		if err != nil {
			return fmt.Errorf("setting %q expects a number: %w", key, err)
		}
		if key == "autoplayCountdown" {
			if err := CheckCountdown(v); err != nil {
				return err
			}
		}
		return s.Set(key, v)
	default:
		return s.Set(key, text)
	}
}

// Load merges the stored values over Defaults. A stored value of the
// wrong type is skipped and its default kept.
func (s *Store) Load() (Settings, error) {
	settings := Defaults()

	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSettings).ForEach(func(k, v []byte) error {
			field, err := json.Marshal(map[string]json.RawMessage{string(k): v})
			if err != nil {
				util.Warn("Skipping stored setting", "key", string(k), "error", err)
				return nil
			}
			if err := json.Unmarshal(field, &settings); err != nil {
				util.Warn("Skipping stored setting", "key", string(k), "error", err)
			}
			return nil
		})
	})
	if err != nil {
		return Defaults(), fmt.Errorf("reading settings failed: %w", err)
	}
	return settings, nil
}

// Save writes every field of settings
func (s *Store) Save(settings Settings) error {
	if err := CheckCountdown(settings.AutoplayCountdown); err != nil {
		return err
	}

	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encoding settings failed: %w", err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("encoding settings failed: %w", err)
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSettings)
		for k, v := range fields {
			if err := b.Put([]byte(k), v); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("writing settings failed: %w", err)
	}
	return nil
}

// Reset drops every stored value so Load returns Defaults again
func (s *Store) Reset() error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(bucketSettings); err != nil && !errors.Is(err, bolt.ErrBucketNotFound) {
			return err
		}
		_, err := tx.CreateBucket(bucketSettings)
		return err
	})
	if err != nil {
		return fmt.Errorf("resetting settings failed: %w", err)
	}
	return nil
}
