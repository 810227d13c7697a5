package paramstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"

	"election-agent/internal/domain"
)

// ErrNotFound is returned when the named parameter does not exist.
var ErrNotFound = errors.New("paramstore: parameter not found")

// ssmAPI is the subset of *ssm.Client used here.
type ssmAPI interface {
	GetParameter(ctx context.Context, in *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

type tokenPayload struct {
	Token string `json:"token"`
}

// Client resolves provider API keys. Keys supplied from the environment win;
// otherwise the key is read from the SecureString "<prefix>/<provider>-api-key",
// whose value is a JSON document of the form {"token": "..."}.
//
// A missing parameter or an empty token leaves the provider unconfigured.
type Client struct {
	api    ssmAPI
	prefix string
	static map[domain.Provider]string
}

type Option func(*Client)

// WithPrefix sets the parameter path prefix. Without one, only static keys
// are served.
func WithPrefix(prefix string) Option {
	return func(c *Client) {
		c.prefix = strings.TrimRight(strings.TrimSpace(prefix), "/")
	}
}

// WithStaticKeys sets keys that take precedence over Parameter Store.
func WithStaticKeys(keys map[domain.Provider]string) Option {
	return func(c *Client) {
		for p, v := range keys {
			c.static[p] = strings.TrimSpace(v)
		}
	}
}

func New(api ssmAPI, opts ...Option) (*Client, error) {
	if api == nil {
		return nil, errors.New("paramstore: api must not be nil")
	}
	return newClient(api, opts), nil
}

// Static returns a Client that never calls Parameter Store.
func Static(keys map[domain.Provider]string) *Client {
	return newClient(nil, []Option{WithStaticKeys(keys)})
}

func newClient(api ssmAPI, opts []Option) *Client {
	c := &Client{api: api, static: make(map[domain.Provider]string)}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) ParameterName(p domain.Provider) string {
	return c.prefix + "/" + string(p) + "-api-key"
}

// APIKey returns the key for p, or "" when p is not configured.
func (c *Client) APIKey(ctx context.Context, p domain.Provider) (string, error) {
	if v := c.static[p]; v != "" {
		return v, nil
	}
	if c.api == nil || c.prefix == "" {
		return "", nil
	}

	raw, err := c.GetParameter(ctx, c.ParameterName(p))
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	var tp tokenPayload
	if err := json.Unmarshal([]byte(raw), &tp); err != nil {
		return "", fmt.Errorf("paramstore: unmarshal %s token value as JSON: %w", p, err)
	}
	return strings.TrimSpace(tp.Token), nil
}

// GetParameter reads one decrypted parameter value.
func (c *Client) GetParameter(ctx context.Context, name string) (string, error) {
	if c.api == nil {
		return "", errors.New("paramstore: client not initialized")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("paramstore: name is required")
	}

	out, err := c.api.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(true),
	})
	var notFound *types.ParameterNotFound
	switch {
	case errors.As(err, &notFound):
		return "", fmt.Errorf("%w: %q", ErrNotFound, name)
	case err != nil:
		return "", fmt.Errorf("paramstore: get parameter %q: %w", name, err)
	}
	if out == nil || out.Parameter == nil || out.Parameter.Value == nil {
		return "", fmt.Errorf("paramstore: parameter %q missing value", name)
	}
	return aws.ToString(out.Parameter.Value), nil
}
