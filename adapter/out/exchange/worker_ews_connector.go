package exchange

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"exchange_calendar/core/port/out"
	"exchange_calendar/pkg/httputil"
	"exchange_calendar/pkg/resilience"

	"github.com/Azure/go-ntlmssp"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	AuthNTLM   = "ntlm"
	AuthBasic  = "basic"
	AuthOAuth2 = "oauth2"

	ewsOAuthScope = "https://outlook.office365.com/.default"
)

var ErrMissingOAuthConfig = errors.New("exchange: oauth2 requires tenant_id, client_id and client_secret")

// Config holds the EWS connection settings.
type Config struct {
	Server        string
	Username      string
	Password      string
	VerifySSL     bool
	AuthType      string // ntlm (default), basic, oauth2
	Mailbox       string // explicit mailbox; impersonated with oauth2
	TenantID      string
	ClientID      string
	ClientSecret  string
	TokenURL      string // overrides the Azure AD token endpoint
	ServerVersion string
	Location      *time.Location
	PageSize      int
}

// Connector opens EWS sessions and resolves the default calendar folder.
type Connector struct {
	cfg     Config
	log     zerolog.Logger
	breaker *gobreaker.CircuitBreaker

	// HTTPClient overrides the transport built from cfg.
	HTTPClient *http.Client
}

var _ out.MailboxConnector = (*Connector)(nil)

func NewConnector(cfg Config, log zerolog.Logger) *Connector {
	return &Connector{
		cfg: cfg,
		log: log.With().Str("component", "ews").Logger(),
	}
}

// NewClient builds the SOAP client for the configured server and auth type.
func (c *Connector) NewClient(ctx context.Context) (*Client, error) {
	version := c.cfg.ServerVersion
	if version == "" {
		version = DefaultServerVersion
	}

	client := &Client{
		endpoint: EndpointURL(c.cfg.Server),
		version:  version,
		cb:       resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("ews"), c.log),
		log:      c.log,
	}

	httpCfg := httputil.ExchangeClientConfig(c.cfg.VerifySSL)
	base := c.HTTPClient
	if base == nil {
		base = httputil.NewClient(httpCfg, nil)
	}

	switch c.cfg.AuthType {
	case "", AuthNTLM:
		if c.cfg.Username == "" {
			client.httpClient = base
			break
		}
		client.httpClient = &http.Client{
			Transport: ntlmssp.Negotiator{RoundTripper: roundTripper(base)},
			Timeout:   base.Timeout,
		}
		client.username, client.password = c.cfg.Username, c.cfg.Password

	case AuthBasic:
		client.httpClient = base
		client.username, client.password = c.cfg.Username, c.cfg.Password

	case AuthOAuth2:
		if c.cfg.TenantID == "" || c.cfg.ClientID == "" || c.cfg.ClientSecret == "" {
			return nil, ErrMissingOAuthConfig
		}
		tokenURL := c.cfg.TokenURL
		if tokenURL == "" {
			tokenURL = fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/token", c.cfg.TenantID)
		}
		oauthCfg := clientcredentials.Config{
			ClientID:     c.cfg.ClientID,
			ClientSecret: c.cfg.ClientSecret,
			TokenURL:     tokenURL,
			Scopes:       []string{ewsOAuthScope},
		}
		// 토큰 요청도 같은 TLS 설정을 따른다
		tokenCtx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
		client.httpClient = oauthCfg.Client(tokenCtx)
		client.httpClient.Timeout = base.Timeout
		client.impersonate = c.cfg.Mailbox

	default:
		return nil, fmt.Errorf("exchange: unknown auth_type %q", c.cfg.AuthType)
	}

	return client, nil
}

// Connect authenticates and resolves the default calendar folder.
func (c *Connector) Connect(ctx context.Context) (out.CalendarFolder, error) {
	client, err := c.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	c.breaker = client.cb

	folderRef := &distinguishedFolderID{ID: "calendar"}
	if c.cfg.Mailbox != "" {
		folderRef.Mailbox = &emailMailbox{EmailAddress: c.cfg.Mailbox}
	}

	res, err := client.call(ctx, "GetFolder", body{GetFolder: &getFolderRequest{
		FolderShape: folderShape{BaseShape: "Default"},
		FolderIds:   folderIds{DistinguishedFolderID: folderRef},
	}})
	if err != nil {
		return nil, err
	}
	if res.GetFolderResponse == nil || len(res.GetFolderResponse.Messages) == 0 {
		return nil, fmt.Errorf("GetFolder: %w", ErrUnexpectedBody)
	}

	msg := res.GetFolderResponse.Messages[0]
	if err := msg.err(); err != nil {
		return nil, fmt.Errorf("GetFolder: %w", err)
	}
	if len(msg.Folders) == 0 {
		return nil, fmt.Errorf("GetFolder: %w", ErrUnexpectedBody)
	}

	folder := msg.Folders[0]
	c.log.Info().
		Str("endpoint", client.endpoint).
		Str("folder", folder.DisplayName).
		Msg("connected to exchange calendar")

	return &Folder{
		client:   client,
		id:       folderID{ID: folder.FolderID.ID, ChangeKey: folder.FolderID.ChangeKey},
		name:     folder.DisplayName,
		loc:      c.cfg.Location,
		pageSize: c.cfg.PageSize,
	}, nil
}

// Breaker returns the circuit breaker of the connected client, or nil.
func (c *Connector) Breaker() *gobreaker.CircuitBreaker {
	return c.breaker
}

func roundTripper(client *http.Client) http.RoundTripper {
	if client.Transport != nil {
		return client.Transport
	}
	return http.DefaultTransport
}
