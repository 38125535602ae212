package bitableclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	lark "github.com/larksuite/oapi-sdk-go/v3"
	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	"go.uber.org/zap"

	"github.com/jakechorley/category-allocator/pkg/recordstore"
)

const requestTimeout = 30 * time.Second

// Options configures a Bitable client
type Options struct {
	// Endpoint is the Open API host, e.g. https://open.larksuite.com or
	// https://open.feishu.cn. A trailing /open-apis is accepted and dropped.
	Endpoint  string
	AppID     string
	AppSecret string
	BatchSize int
	// HTTPClient is the transport the SDK sends requests with
	HTTPClient *http.Client
	// Logger receives the SDK's own log output; discarded when nil
	Logger *zap.Logger
}

// Client reads and writes Lark/Feishu Bitable tables through the Open API SDK.
// The SDK fetches the tenant access token and caches it until it expires.
type Client struct {
	lark      *lark.Client
	batchSize int
}

// APIError is returned when the Open API answers with a non-zero code
type APIError struct {
	Op   string
	Code int
	Msg  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: bitable api error %d: %s", e.Op, e.Code, e.Msg)
}

// NewClient creates a Bitable client for a self-built app
func NewClient(ctx context.Context, opts Options) (*Client, error) {
	if opts.AppID == "" || opts.AppSecret == "" {
		return nil, errors.New("bitable app ID and app secret are required")
	}
	if _, err := url.ParseRequestURI(opts.Endpoint); err != nil {
		return nil, fmt.Errorf("invalid bitable endpoint %q: %w", opts.Endpoint, err)
	}
	baseURL := strings.TrimSuffix(strings.TrimRight(opts.Endpoint, "/"), "/open-apis")

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: requestTimeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = recordstore.DefaultBatchSize
	}

	logLevel := larkcore.LogLevelWarn
	if logger.Core().Enabled(zap.DebugLevel) {
		logLevel = larkcore.LogLevelDebug
	}

	client := lark.NewClient(opts.AppID, opts.AppSecret,
		lark.WithOpenBaseUrl(baseURL),
		lark.WithHttpClient(httpClient),
		lark.WithEnableTokenCache(true),
		lark.WithLogger(sdkLogger{logger.Sugar()}),
		lark.WithLogLevel(logLevel),
	)

	return &Client{
		lark:      client,
		batchSize: batchSize,
	}, nil
}

// sdkLogger forwards the SDK's log calls to zap
type sdkLogger struct {
	log *zap.SugaredLogger
}

func (l sdkLogger) Debug(_ context.Context, args ...interface{}) { l.log.Debug(args...) }
func (l sdkLogger) Info(_ context.Context, args ...interface{})  { l.log.Info(args...) }
func (l sdkLogger) Warn(_ context.Context, args ...interface{})  { l.log.Warn(args...) }
func (l sdkLogger) Error(_ context.Context, args ...interface{}) { l.log.Error(args...) }

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
