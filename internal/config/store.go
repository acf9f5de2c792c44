package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/99designs/keyring"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	defaultProfile = "default"
	profilePrefix  = "profile/"
	indexKey       = "index"
)

// ErrNotConfigured is returned when no credentials are stored or exported.
var ErrNotConfigured = errors.New("mastodon credentials not configured - run 'tusk auth login' first")

// index records the known profiles and which one is active.
type index struct {
	Current  string   `json:"current,omitempty"`
	Profiles []string `json:"profiles"`
}

func (idx index) current() string {
	if idx.Current == "" {
		return defaultProfile
	}
	return idx.Current
}

func (idx *index) add(name string) {
	if !slices.Contains(idx.Profiles, name) {
		idx.Profiles = append(idx.Profiles, name)
	}
}

// remove drops name. When it was active the first remaining profile takes
// over.
func (idx *index) remove(name string) {
	idx.Profiles = slices.DeleteFunc(idx.Profiles, func(p string) bool { return p == name })
	if idx.Current == name {
		idx.Current = ""
		if len(idx.Profiles) > 0 {
			idx.Current = idx.Profiles[0]
		}
	}
}

// store is one open keyring session.
type store struct {
	ring keyring.Keyring
}

func openStore() (*store, error) {
	ring, err := openKeyring(keyringConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to open keyring: %w", err)
	}
	return &store{ring: ring}, nil
}

func profileName(name string) string {
	if name = strings.TrimSpace(name); name == "" {
		return defaultProfile
	}
	return name
}

func (s *store) index() (index, error) {
	item, err := s.ring.Get(indexKey)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return index{}, nil
	}
	if err != nil {
		return index{}, fmt.Errorf("failed to read profile index: %w", err)
	}
	var idx index
	if err := json.Unmarshal(item.Data, &idx); err != nil {
		return index{}, fmt.Errorf("failed to decode profile index: %w", err)
	}
	return idx, nil
}

func (s *store) saveIndex(idx index) error {
	if idx.Profiles == nil {
		idx.Profiles = []string{}
	}
	data, err := json.Marshal(idx)
	if err != nil {
		return fmt.Errorf("failed to encode profile index: %w", err)
	}
	if err := s.ring.Set(keyring.Item{Key: indexKey, Data: data}); err != nil {
		return fmt.Errorf("failed to write profile index: %w", err)
	}
	return nil
}

func (s *store) load(name string) (Account, error) {
	item, err := s.ring.Get(profilePrefix + name)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return Account{}, ErrNotConfigured
	}
	if err != nil {
		return Account{}, fmt.Errorf("failed to read profile %q: %w", name, err)
	}
	var account Account
	if err := json.Unmarshal(item.Data, &account); err != nil {
		return Account{}, fmt.Errorf("failed to decode profile %q: %w", name, err)
	}
	return account, nil
}

// LoadAccount resolves credentials from the environment, then TUSK_PROFILE,
// then the current keyring profile.
func LoadAccount() (Account, error) {
	if account, ok, err := accountFromEnv(); ok || err != nil {
		return account, err
	}
	if profile := envValue(envProfile); profile != "" {
		return LoadProfile(profile)
	}

	s, err := openStore()
	if err != nil {
		return Account{}, err
	}
	idx, err := s.index()
	if err != nil {
		return Account{}, err
	}
	return s.load(idx.current())
}

// LoadProfile retrieves credentials for a named profile.
func LoadProfile(name string) (Account, error) {
	s, err := openStore()
	if err != nil {
		return Account{}, err
	}
	return s.load(profileName(name))
}

// SaveProfile stores the account under a named profile and makes it current.
func SaveProfile(name string, account Account) error {
	name = profileName(name)
	if err := account.Validate(); err != nil {
		return err
	}

	s, err := openStore()
	if err != nil {
		return err
	}

	data, err := json.Marshal(account)
	if err != nil {
		return fmt.Errorf("failed to encode profile %q: %w", name, err)
	}
	if err := s.ring.Set(keyring.Item{
		Key:         profilePrefix + name,
		Data:        data,
		Label:       serviceName + " " + name,
		Description: account.APIURL,
	}); err != nil {
		return fmt.Errorf("failed to write profile %q: %w", name, err)
	}

	idx, err := s.index()
	if err != nil {
		return err
	}
	idx.add(name)
	idx.Current = name
	return s.saveIndex(idx)
}

// DeleteProfile removes a stored profile. Removing a missing profile is not
// an error.
func DeleteProfile(name string) error {
	name = profileName(name)

	s, err := openStore()
	if err != nil {
		return err
	}
	if err := s.ring.Remove(profilePrefix + name); err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("failed to remove profile %q: %w", name, err)
	}

	idx, err := s.index()
	if err != nil {
		return err
	}
	idx.remove(name)
	return s.saveIndex(idx)
}

// ListProfiles returns the stored profile names in the order they were added.
func ListProfiles() ([]string, error) {
	s, err := openStore()
	if err != nil {
		return nil, err
	}
	idx, err := s.index()
	if err != nil {
		return nil, err
	}
	return idx.Profiles, nil
}

// CurrentProfile returns the active profile name, "default" when none is set.
func CurrentProfile() (string, error) {
	s, err := openStore()
	if err != nil {
		return "", err
	}
	idx, err := s.index()
	if err != nil {
		return "", err
	}
	return idx.current(), nil
}

// SetCurrentProfile makes a stored profile active.
func SetCurrentProfile(name string) error {
	name = profileName(name)

	s, err := openStore()
	if err != nil {
		return err
	}
	idx, err := s.index()
	if err != nil {
		return err
	}
	if !slices.Contains(idx.Profiles, name) {
		return fmt.Errorf("profile %q: %w", name, ErrNotConfigured)
	}
	idx.Current = name
	return s.saveIndex(idx)
}
