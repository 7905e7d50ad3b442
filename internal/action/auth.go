package action

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// authApplier decorates outgoing requests according to the step's auth
// config. OAuth2 token sources and AWS configs are cached so repeated
// steps against the same endpoint do not re-negotiate credentials.
type authApplier struct {
	logger *slog.Logger
	signer *v4.Signer

	mu           sync.Mutex
	tokenSources map[string]oauth2.TokenSource
	awsConfigs   map[string]aws.Config
}

func newAuthApplier(logger *slog.Logger) *authApplier {
	return &authApplier{
		logger:       logger,
		signer:       v4.NewSigner(),
		tokenSources: make(map[string]oauth2.TokenSource),
		awsConfigs:   make(map[string]aws.Config),
	}
}

// apply dispatches on auth.type: basic, bearer, oauth2 (client
// credentials flow) or aws_sigv4 (default credential chain).
func (a *authApplier) apply(ctx context.Context, req *http.Request, auth map[string]interface{}, body []byte) error {
	authType := stringValue(auth, "type", "")
	switch authType {
	case "basic":
		username := stringValue(auth, "username", "")
		if username == "" {
			return fmt.Errorf("basic auth requires a username")
		}
		req.SetBasicAuth(username, stringValue(auth, "password", ""))
		return nil

	case "bearer":
		token := stringValue(auth, "token", "")
		if token == "" {
			return fmt.Errorf("bearer auth requires a token")
		}
		req.Header.Set("Authorization", "Bearer "+token)
		return nil

	case "oauth2":
		return a.applyOAuth2(req, auth)

	case "aws_sigv4":
		return a.applySigV4(ctx, req, auth, body)

	case "":
		return fmt.Errorf("auth config requires a type")

	default:
		return fmt.Errorf("unsupported auth type %q", authType)
	}
}

func (a *authApplier) applyOAuth2(req *http.Request, auth map[string]interface{}) error {
	tokenURL := stringValue(auth, "token_url", "")
	clientID := stringValue(auth, "client_id", "")
	clientSecret := stringValue(auth, "client_secret", "")
	if tokenURL == "" || clientID == "" || clientSecret == "" {
		return fmt.Errorf("oauth2 auth requires token_url, client_id and client_secret")
	}

	var scopes []string
	if raw, ok := auth["scopes"].([]interface{}); ok {
		for _, s := range raw {
			if scope, ok := s.(string); ok {
				scopes = append(scopes, scope)
			}
		}
	}

	token, err := a.tokenSource(tokenURL, clientID, clientSecret, scopes).Token()
	if err != nil {
		return fmt.Errorf("acquiring oauth2 token: %w", err)
	}
	token.SetAuthHeader(req)
	return nil
}

// tokenSource returns the cached token source for a token endpoint,
// creating it on first use. The source itself refreshes expired tokens.
func (a *authApplier) tokenSource(tokenURL, clientID, clientSecret string, scopes []string) oauth2.TokenSource {
	key := tokenURL + "|" + clientID

	a.mu.Lock()
	defer a.mu.Unlock()

	if source, ok := a.tokenSources[key]; ok {
		return source
	}

	cfg := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     tokenURL,
		Scopes:       scopes,
	}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, &http.Client{
		Timeout: DefaultHTTPTimeout,
	})
	source := cfg.TokenSource(ctx)
	a.tokenSources[key] = source

	a.logger.Debug("oauth2 token source created", slog.String("token_url", tokenURL))
	return source
}

func (a *authApplier) applySigV4(ctx context.Context, req *http.Request, auth map[string]interface{}, body []byte) error {
	service := stringValue(auth, "service", "")
	region := stringValue(auth, "region", "")
	if service == "" || region == "" {
		return fmt.Errorf("aws_sigv4 auth requires service and region")
	}

	awsCfg, err := a.awsConfig(ctx, region)
	if err != nil {
		return err
	}

	creds, err := awsCfg.Credentials.Retrieve(ctx)
	if err != nil {
		return fmt.Errorf("resolving AWS credentials: %w", err)
	}

	payloadHash := hashPayload(body)
	req.Header.Set("X-Amz-Content-Sha256", payloadHash)

	if err := a.signer.SignHTTP(ctx, creds, req, payloadHash, service, region, time.Now()); err != nil {
		return fmt.Errorf("signing request: %w", err)
	}
	return nil
}

// awsConfig loads the default credential chain for a region once and
// validates it with STS GetCallerIdentity before caching.
func (a *authApplier) awsConfig(ctx context.Context, region string) (aws.Config, error) {
	a.mu.Lock()
	cached, ok := a.awsConfigs[region]
	a.mu.Unlock()
	if ok {
		return cached, nil
	}

	loadCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	cfg, err := awsconfig.LoadDefaultConfig(loadCtx, awsconfig.WithRegion(region))
	if err != nil {
		return aws.Config{}, fmt.Errorf("loading AWS configuration: %w", err)
	}

	validateCtx, cancelValidate := context.WithTimeout(ctx, 5*time.Second)
	defer cancelValidate()

	stsClient := sts.NewFromConfig(cfg)
	if _, err := stsClient.GetCallerIdentity(validateCtx, &sts.GetCallerIdentityInput{}); err != nil {
		return aws.Config{}, fmt.Errorf("AWS credential validation failed: %w", err)
	}

	a.mu.Lock()
	a.awsConfigs[region] = cfg
	a.mu.Unlock()

	a.logger.Debug("aws credentials validated", slog.String("region", region))
	return cfg, nil
}

func hashPayload(body []byte) string {
	if body == nil {
		body = []byte{}
	}
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}
