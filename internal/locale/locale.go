/**
 * @description
 * This package resolves and persists the user's interface language. Only
 * the preference lives here; translated strings belong to the front-end.
 *
 * @dependencies
 * - golang.org/x/text/language: BCP-47 parsing and matching.
 */
package locale

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/text/language"

	"github.com/nsa09-nsa09/splitup-frontend/internal/domain"
)

// Default is used whenever no supported preference can be resolved.
const Default = "ru"

// Supported lists the locales the product ships, Default first.
var Supported = []string{"ru", "kk", "be", "uz", "az", "hy", "ky", "tg"}

var matcher = func() language.Matcher {
	tags := make([]language.Tag, len(Supported))
	for i, code := range Supported {
		tags[i] = language.MustParse(code)
	}
	return language.NewMatcher(tags)
}()

// Resolve maps an Accept-Language value or a single BCP-47 tag onto a
// supported locale, falling back to Default.
func Resolve(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Default
	}
	tags, _, err := language.ParseAcceptLanguage(raw)
	if err != nil || len(tags) == 0 {
		return Default
	}
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No || idx < 0 || idx >= len(Supported) {
		return Default
	}
	return Supported[idx]
}

// IsSupported reports whether code is exactly one of Supported.
func IsSupported(code string) bool {
	code = strings.ToLower(strings.TrimSpace(code))
	for _, s := range Supported {
		if s == code {
			return true
		}
	}
	return false
}

type preferenceFile struct {
	Locale string `json:"locale"`
}

// Preferences keeps the chosen locale in a small JSON file, separate from
// the session so logging out does not reset the language.
type Preferences struct {
	mu     sync.RWMutex
	path   string
	locale string
}

func NewPreferences(path string) *Preferences {
	return &Preferences{path: path, locale: Default}
}

// Load reads the stored preference. A missing file or an unsupported value
// leaves Default in place.
func (p *Preferences) Load() error {
	raw, err := os.ReadFile(p.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read locale preference: %w", err)
	}
	var stored preferenceFile
	if err := json.Unmarshal(raw, &stored); err != nil {
		return fmt.Errorf("failed to decode locale preference: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if IsSupported(stored.Locale) {
		p.locale = strings.ToLower(strings.TrimSpace(stored.Locale))
	} else {
		p.locale = Default
	}
	return nil
}

// Locale implements apiclient.LocaleSource.
func (p *Preferences) Locale() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.locale
}

// Set validates and persists a new preference.
func (p *Preferences) Set(code string) error {
	code = strings.ToLower(strings.TrimSpace(code))
	if !IsSupported(code) {
		return domain.NewValidationError("locale", fmt.Sprintf("must be one of %s", strings.Join(Supported, ", ")))
	}

	raw, err := json.Marshal(preferenceFile{Locale: code})
	if err != nil {
		return fmt.Errorf("failed to encode locale preference: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(p.path), 0o700); err != nil {
		return fmt.Errorf("failed to create preference directory: %w", err)
	}
	if err := os.WriteFile(p.path, raw, 0o600); err != nil {
		return fmt.Errorf("failed to write locale preference: %w", err)
	}

	p.mu.Lock()
	p.locale = code
	p.mu.Unlock()
	return nil
}
