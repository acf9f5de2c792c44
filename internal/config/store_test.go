package config

import (
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/99designs/keyring"

	"github.com/skullzarmy/Tusk/internal/api"
)

func TestIndexRemove(t *testing.T) {
	idx := index{Current: "b", Profiles: []string{"a", "b", "c"}}

	idx.remove("b")
	if idx.Current != "a" || !slices.Equal(idx.Profiles, []string{"a", "c"}) {
		t.Fatalf("after removing current: %+v", idx)
	}

	idx.remove("c")
	if idx.Current != "a" {
		t.Fatalf("removing another profile changed current: %+v", idx)
	}

	idx.remove("a")
	if idx.Current != "" || idx.current() != defaultProfile || len(idx.Profiles) != 0 {
		t.Fatalf("after removing last: %+v", idx)
	}
}

func TestIndexAddIsIdempotent(t *testing.T) {
	var idx index
	idx.add("work")
	idx.add("work")
	if !slices.Equal(idx.Profiles, []string{"work"}) {
		t.Fatalf("Profiles = %v", idx.Profiles)
	}
}

func TestSaveAndLoadProfile(t *testing.T) {
	clearEnv(t)
	ring := keyring.NewArrayKeyring(nil)
	withMockKeyring(t, ring)

	account := testAccount()
	account.TrustedCertFingerprints = []string{"AB:CD"}
	if err := SaveProfile(" work ", account); err != nil {
		t.Fatalf("SaveProfile: %v", err)
	}

	loaded, err := LoadProfile("work")
	if err != nil {
		t.Fatalf("LoadProfile: %v", err)
	}
	if loaded.AccessToken != "token-1" || loaded.TrustedCertFingerprints[0] != "AB:CD" {
		t.Errorf("loaded = %+v", loaded)
	}

	current, err := CurrentProfile()
	if err != nil || current != "work" {
		t.Errorf("CurrentProfile() = %q, %v; want work", current, err)
	}

	item, err := ring.Get(profilePrefix + "work")
	if err != nil {
		t.Fatalf("ring.Get: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(item.Data, &raw); err != nil {
		t.Fatalf("stored data not JSON: %v", err)
	}
	if raw["api_url"] != "https://example.social/api/v1/" {
		t.Errorf("api_url = %v", raw["api_url"])
	}
	if _, ok := raw["consumer_key"]; ok {
		t.Error("empty consumer_key should be omitted")
	}
}

func TestSaveProfileDefaultName(t *testing.T) {
	clearEnv(t)
	withMockKeyring(t, keyring.NewArrayKeyring(nil))

	if err := SaveProfile("", testAccount()); err != nil {
		t.Fatal(err)
	}
	account, err := LoadAccount()
	if err != nil || account.AccessToken != "token-1" {
		t.Fatalf("LoadAccount() = %+v, %v", account, err)
	}
	profiles, _ := ListProfiles()
	if !slices.Equal(profiles, []string{defaultProfile}) {
		t.Errorf("profiles = %v", profiles)
	}
}

func TestSaveProfileRejectsInvalidAccount(t *testing.T) {
	withMockKeyring(t, keyring.NewArrayKeyring(nil))

	err := SaveProfile("work", Account{APIURL: "https://example.social/api/v1/"})
	if !errors.Is(err, api.ErrMissingAccessToken) {
		t.Fatalf("error = %v, want ErrMissingAccessToken", err)
	}
}

func TestLoadProfileNotFound(t *testing.T) {
	withMockKeyring(t, keyring.NewArrayKeyring(nil))

	if _, err := LoadProfile("missing"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("error = %v, want ErrNotConfigured", err)
	}
}

func TestCorruptKeyringData(t *testing.T) {
	withMockKeyring(t, keyring.NewArrayKeyring([]keyring.Item{
		{Key: profilePrefix + defaultProfile, Data: []byte("nope")},
		{Key: indexKey, Data: []byte("{")},
	}))

	if _, err := LoadProfile(""); err == nil || !strings.Contains(err.Error(), "decode profile") {
		t.Errorf("LoadProfile error = %v, want decode failure", err)
	}
	if _, err := ListProfiles(); err == nil || !strings.Contains(err.Error(), "decode profile index") {
		t.Errorf("ListProfiles error = %v, want index decode failure", err)
	}
}

func TestKeyringErrors(t *testing.T) {
	clearEnv(t)
	withFailingKeyring(t, errors.New("locked"))

	checks := map[string]error{
		"SaveProfile":       SaveProfile("x", testAccount()),
		"DeleteProfile":     DeleteProfile("x"),
		"SetCurrentProfile": SetCurrentProfile("x"),
	}
	_, checks["LoadAccount"] = LoadAccount()
	_, checks["LoadProfile"] = LoadProfile("x")
	_, checks["ListProfiles"] = ListProfiles()
	_, checks["CurrentProfile"] = CurrentProfile()

	for name, err := range checks {
		if err == nil || !strings.Contains(err.Error(), "failed to open keyring") {
			t.Errorf("%s error = %v, want open failure", name, err)
		}
	}
}

func TestDeleteProfileSwitchesCurrentProfile(t *testing.T) {
	clearEnv(t)
	withMockKeyring(t, keyring.NewArrayKeyring(nil))

	for _, name := range []string{"home", "work"} {
		if err := SaveProfile(name, testAccount()); err != nil {
			t.Fatal(err)
		}
	}
	if err := DeleteProfile("work"); err != nil {
		t.Fatalf("DeleteProfile: %v", err)
	}

	if current, _ := CurrentProfile(); current != "home" {
		t.Errorf("current = %q, want home", current)
	}
	if profiles, _ := ListProfiles(); !slices.Equal(profiles, []string{"home"}) {
		t.Errorf("profiles = %v, want [home]", profiles)
	}
	if _, err := LoadProfile("work"); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("deleted profile still loads: %v", err)
	}

	if err := DeleteProfile("home"); err != nil {
		t.Fatal(err)
	}
	if current, _ := CurrentProfile(); current != defaultProfile {
		t.Errorf("current = %q, want %s", current, defaultProfile)
	}
}

func TestDeleteMissingProfile(t *testing.T) {
	withMockKeyring(t, keyring.NewArrayKeyring(nil))

	if err := DeleteProfile("ghost"); err != nil {
		t.Fatalf("DeleteProfile of missing profile: %v", err)
	}
}

func TestSetCurrentProfile(t *testing.T) {
	clearEnv(t)
	withMockKeyring(t, keyring.NewArrayKeyring(nil))

	for _, name := range []string{"home", "work"} {
		if err := SaveProfile(name, testAccount()); err != nil {
			t.Fatal(err)
		}
	}

	if err := SetCurrentProfile("home"); err != nil {
		t.Fatalf("SetCurrentProfile: %v", err)
	}
	if current, _ := CurrentProfile(); current != "home" {
		t.Errorf("current = %q, want home", current)
	}

	if err := SetCurrentProfile("ghost"); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("unknown profile error = %v, want ErrNotConfigured", err)
	}
}
