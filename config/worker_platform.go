package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"exchange_calendar/core/domain"

	"gopkg.in/yaml.v3"
)

const (
	BackendEWS   = "ews"
	BackendGraph = "graph"

	defaultMinTimeBetweenUpdates = 5 * time.Minute
	defaultLookahead             = 15 * 24 * time.Hour
)

var ErrInvalidPlatform = errors.New("invalid platform configuration")

// Duration reads Go duration strings ("5m", "360h") from YAML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	d.Duration = parsed
	return nil
}

// Platform is the calendar platform section, keyed like the integration's
// configuration.yaml entry.
type Platform struct {
	Server    string              `yaml:"server"`
	Username  string              `yaml:"username"`
	Password  string              `yaml:"password"`
	VerifySSL *bool               `yaml:"verify_ssl"`
	Calendars []domain.SearchSpec `yaml:"-"`

	Backend       string `yaml:"backend"`
	AuthType      string `yaml:"auth_type"`
	Mailbox       string `yaml:"mailbox"`
	TenantID      string `yaml:"tenant_id"`
	ClientID      string `yaml:"client_id"`
	ClientSecret  string `yaml:"client_secret"`
	ServerVersion string `yaml:"server_version"`
	PageSize      int    `yaml:"page_size"`

	TimeZone              string   `yaml:"time_zone"`
	OffsetMarker          *string  `yaml:"offset_marker"`
	IsOverPolicy          string   `yaml:"is_over_policy"`
	MinTimeBetweenUpdates Duration `yaml:"min_time_between_updates"`
	Lookahead             Duration `yaml:"lookahead"`

	location      *time.Location
	missingSearch []int
}

type calendarEntry struct {
	Name   string  `yaml:"name"`
	Search *string `yaml:"search"`
}

// UnmarshalYAML decodes calendars separately so that an empty search
// ("no filter") can be told apart from a missing one.
func (p *Platform) UnmarshalYAML(node *yaml.Node) error {
	type plain Platform
	if err := node.Decode((*plain)(p)); err != nil {
		return err
	}

	var raw struct {
		Calendars []calendarEntry `yaml:"calendars"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}

	p.Calendars, p.missingSearch = nil, nil
	if raw.Calendars != nil {
		p.Calendars = make([]domain.SearchSpec, 0, len(raw.Calendars))
	}
	for i, c := range raw.Calendars {
		spec := domain.SearchSpec{Name: c.Name}
		if c.Search == nil {
			p.missingSearch = append(p.missingSearch, i)
		} else {
			spec.Search = *c.Search
		}
		p.Calendars = append(p.Calendars, spec)
	}
	return nil
}

// LoadPlatform reads, defaults and validates the YAML file at path. Secrets
// from the environment replace the file's values.
func LoadPlatform(path string, env *Config) (*Platform, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read platform config: %w", err)
	}
	return ParsePlatform(data, env)
}

func ParsePlatform(data []byte, env *Config) (*Platform, error) {
	var p Platform
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse platform config: %w", err)
	}

	if env != nil {
		if env.ExchangePassword != "" {
			p.Password = env.ExchangePassword
		}
		if env.ExchangeClientSecret != "" {
			p.ClientSecret = env.ExchangeClientSecret
		}
	}

	p.applyDefaults()
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

func (p *Platform) applyDefaults() {
	if p.VerifySSL == nil {
		v := true
		p.VerifySSL = &v
	}
	if p.Calendars == nil {
		p.Calendars = []domain.SearchSpec{}
	}
	if p.Backend == "" {
		p.Backend = BackendEWS
	}
	if p.AuthType == "" {
		p.AuthType = "ntlm"
	}
	if p.OffsetMarker == nil {
		m := "!!"
		p.OffsetMarker = &m
	}
	if p.IsOverPolicy == "" {
		p.IsOverPolicy = "date_aware"
	}
	if p.MinTimeBetweenUpdates.Duration == 0 {
		p.MinTimeBetweenUpdates.Duration = defaultMinTimeBetweenUpdates
	}
	if p.Lookahead.Duration == 0 {
		p.Lookahead.Duration = defaultLookahead
	}
}

// Validate enforces the platform schema and resolves the time zone.
func (p *Platform) Validate() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if strings.TrimSpace(p.Server) == "" {
		fail("server is required")
	}
	if (p.Username == "") != (p.Password == "") {
		fail("username and password must be given together")
	}
	for i, c := range p.Calendars {
		if c.Name == "" {
			fail("calendars[%d]: name is required", i)
		}
	}
	for _, i := range p.missingSearch {
		fail("calendars[%d]: search is required", i)
	}

	switch p.Backend {
	case BackendEWS:
		switch p.AuthType {
		case "ntlm", "basic":
		case "oauth2":
			if p.TenantID == "" || p.ClientID == "" || p.ClientSecret == "" {
				fail("auth_type oauth2 requires tenant_id, client_id and client_secret")
			}
		default:
			fail("unknown auth_type %q", p.AuthType)
		}
	case BackendGraph:
		if p.TenantID == "" || p.ClientID == "" || p.ClientSecret == "" || p.Mailbox == "" {
			fail("backend graph requires tenant_id, client_id, client_secret and mailbox")
		}
	default:
		fail("unknown backend %q", p.Backend)
	}

	switch p.IsOverPolicy {
	case "date_aware", "instant":
	default:
		fail("unknown is_over_policy %q", p.IsOverPolicy)
	}
	if p.MinTimeBetweenUpdates.Duration < 0 || p.Lookahead.Duration < 0 {
		fail("durations must not be negative")
	}
	if p.PageSize < 0 || p.PageSize > 1000 {
		fail("page_size must be between 0 and 1000")
	}

	loc := time.Local
	if p.TimeZone != "" {
		l, err := time.LoadLocation(p.TimeZone)
		if err != nil {
			fail("time_zone: %v", err)
		} else {
			loc = l
		}
	}
	p.location = loc

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidPlatform, errors.Join(errs...))
	}
	return nil
}

// Location returns the resolved time zone, time.Local when unset.
func (p *Platform) Location() *time.Location {
	if p.location == nil {
		return time.Local
	}
	return p.location
}

// VerifyTLS reports whether server certificates are checked.
func (p *Platform) VerifyTLS() bool {
	return p.VerifySSL == nil || *p.VerifySSL
}
