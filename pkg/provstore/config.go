package provstore

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

const (
	// DefaultBaseURL is the public ProvStore API.
	DefaultBaseURL = "https://provenance.ecs.soton.ac.uk/store/api/v0"

	envUsername = "PROVSTORE_USERNAME"
	envAPIKey   = "PROVSTORE_API_KEY"
	envBaseURL  = "PROVSTORE_API_URL"

	authScheme = "ApiKey"
)

// Config identifies a ProvStore endpoint and the credentials used with it.
// Empty credential fields are filled from PROVSTORE_USERNAME and
// PROVSTORE_API_KEY when a Client is constructed.
type Config struct {
	BaseURL  string
	Username string
	APIKey   string
}

// resolve applies defaults and the environment fallback.
func (c Config) resolve() Config {
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Username == "" {
		c.Username = strings.TrimSpace(os.Getenv(envUsername))
	}
	if c.APIKey == "" {
		c.APIKey = strings.TrimSpace(os.Getenv(envAPIKey))
	}
	return c
}

// Validate checks the configuration.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.BaseURL, validation.Required, is.RequestURL, validation.By(httpScheme)),
		validation.Field(&c.Username, validation.By(noColon)),
	)
}

// HasCredentials reports whether both halves of the credential are set.
func (c Config) HasCredentials() bool {
	return c.Username != "" && c.APIKey != ""
}

// Headers returns the headers attached to every request. Authorization is
// only present when both username and API key are configured.
func (c Config) Headers() http.Header {
	h := make(http.Header)
	h.Set("Accept", "application/json")
	if c.HasCredentials() {
		h.Set("Authorization", fmt.Sprintf("%s %s:%s", authScheme, c.Username, c.APIKey))
	}
	return h
}

// Equal reports whether both configurations point at the same store.
func (c Config) Equal(other Config) bool {
	return strings.TrimRight(c.BaseURL, "/") == strings.TrimRight(other.BaseURL, "/")
}

func httpScheme(value any) error {
	s, _ := value.(string)
	u, err := url.Parse(s)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("must use http or https")
	}
	return nil
}

func noColon(value any) error {
	s, _ := value.(string)
	if strings.Contains(s, ":") {
		return errors.New("must not contain ':'")
	}
	return nil
}
