// Package pubsub wraps the Pub/Sub v2 client with the project's topic and
// subscription naming.
package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/config"
	"github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/logger"
)

type kind string

const (
	topics        kind = "topics"
	subscriptions kind = "subscriptions"
)

var (
	errNoProject    = errors.New("gcp project id is required")
	errNoTopic      = errors.New("pubsub domain topic is required")
	errNoSubName    = errors.New("pubsub subscription name is required")
	errNotConnected = errors.New("pubsub client not initialized")
)

type Client struct {
	client    *gcppubsub.Client
	projectID string
	cfg       config.PubSubConfig
}

// NewClient connects to Pub/Sub, or to the emulator when
// PUBSUB_EMULATOR_HOST is set.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger) (*Client, error) {
	project := strings.TrimSpace(gcp.ProjectID)
	if project == "" {
		return nil, errNoProject
	}
	if strings.TrimSpace(cfg.DomainTopic) == "" {
		return nil, errNoTopic
	}
	conn, err := gcppubsub.NewClient(ctx, project, dialOptions(gcp)...)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}
	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"project": project,
			"topic":   cfg.DomainTopic,
		}), "pubsub client initialized")
	}
	return &Client{client: conn, projectID: project, cfg: cfg}, nil
}

func dialOptions(gcp config.GCPConfig) []option.ClientOption {
	if host := strings.TrimSpace(gcp.PubSubEmulatorHost); host != "" {
		return []option.ClientOption{
			option.WithEndpoint(host),
			option.WithoutAuthentication(),
			option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		}
	}
	if raw := strings.TrimSpace(gcp.CredentialsJSON); raw != "" {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(raw))}
	}
	if path := strings.TrimSpace(gcp.ApplicationCredentials); path != "" {
		return []option.ClientOption{option.WithCredentialsFile(path)}
	}
	return nil
}

// EnsureTopic fails when the domain topic is missing.
func (c *Client) EnsureTopic(ctx context.Context) error {
	name := c.resolve(topics, c.cfg.DomainTopic)
	if name == "" {
		return errNoTopic
	}
	_, err := c.client.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: name})
	return existence("topic", c.cfg.DomainTopic, err)
}

// EnsureSubscription fails when the named subscription is missing.
func (c *Client) EnsureSubscription(ctx context.Context, sub string) error {
	name := c.resolve(subscriptions, sub)
	if name == "" {
		return errNoSubName
	}
	_, err := c.client.SubscriptionAdminClient.GetSubscription(ctx, &pubsubpb.GetSubscriptionRequest{Subscription: name})
	return existence("subscription", sub, err)
}

func existence(what, name string, err error) error {
	switch {
	case err == nil:
		return nil
	case status.Code(err) == codes.NotFound:
		return fmt.Errorf("%s %q does not exist", what, name)
	default:
		return fmt.Errorf("checking %s %q: %w", what, name, err)
	}
}

// Subscription accepts a short id or a full resource name. It returns nil
// when the client is not connected or the name is blank.
func (c *Client) Subscription(sub string) *gcppubsub.Subscriber {
	name := c.resolve(subscriptions, sub)
	if name == "" || c.client == nil {
		return nil
	}
	return c.client.Subscriber(name)
}

func (c *Client) AnalyticsSubscription() *gcppubsub.Subscriber {
	return c.Subscription(c.cfg.AnalyticsSubscription)
}

func (c *Client) NotificationsSubscription() *gcppubsub.Subscriber {
	return c.Subscription(c.cfg.NotificationsSubscription)
}

// Publisher accepts a short topic id or a full resource name.
func (c *Client) Publisher(topic string) *gcppubsub.Publisher {
	name := c.resolve(topics, topic)
	if name == "" || c.client == nil {
		return nil
	}
	return c.client.Publisher(name)
}

// Ping checks connectivity by looking up the domain topic.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errNotConnected
	}
	return c.EnsureTopic(ctx)
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// resolve expands a short id into projects/<project>/<kind>/<id>. Names
// already qualified for kind pass through unchanged.
func (c *Client) resolve(k kind, id string) string {
	if c == nil {
		return ""
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return ""
	}
	if strings.HasPrefix(id, "projects/") && strings.Contains(id, "/"+string(k)+"/") {
		return id
	}
	if c.projectID == "" {
		return ""
	}
	return "projects/" + c.projectID + "/" + string(k) + "/" + id
}
