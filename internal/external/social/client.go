package social

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/streakhq/curator/internal/contracts"
	"github.com/streakhq/curator/pkg/httputil"
	"github.com/streakhq/curator/pkg/logger"
)

// Client reads trend snapshots from an HTTP trends feed.
// Without a feed URL it reports a fixed snapshot per topic so the
// social pipeline stays exercised in development.
// ⭐ SSOT: 소셜 트렌드 조회는 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	trendsURL  string
}

// NewClient creates a trends client
func NewClient(httpClient *httputil.Client, log *logger.Logger, trendsURL string) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     log.WithComponent("social"),
		trendsURL:  trendsURL,
	}
}

var _ contracts.TrendSource = (*Client)(nil)

type trendsResponse struct {
	Trends []contracts.Trend `json:"trends"`
}

// Static snapshot values used when no feed is configured
const (
	staticMentions   = 15000
	staticGrowthRate = 3.5
	staticPlatform   = "Twitter"
)

// FetchTrends returns trends for the given topics, fastest-growing first
func (c *Client) FetchTrends(ctx context.Context, topics []string) ([]contracts.Trend, error) {
	if c.trendsURL == "" {
		return staticTrends(topics), nil
	}

	params := url.Values{}
	if len(topics) > 0 {
		params.Set("topics", strings.Join(topics, ","))
	}
	target := c.trendsURL
	if encoded := params.Encode(); encoded != "" {
		sep := "?"
		if strings.Contains(target, "?") {
			sep = "&"
		}
		target += sep + encoded
	}

	var resp trendsResponse
	if err := c.httpClient.GetJSON(ctx, target, &resp); err != nil {
		return nil, fmt.Errorf("fetch trends: %w", err)
	}

	trends := filterTopics(resp.Trends, topics)
	sort.SliceStable(trends, func(i, j int) bool {
		return trends[i].GrowthRate > trends[j].GrowthRate
	})

	c.logger.WithField("count", len(trends)).Debug("Fetched social trends")
	return trends, nil
}

func staticTrends(topics []string) []contracts.Trend {
	out := make([]contracts.Trend, 0, len(topics))
	for _, topic := range topics {
		out = append(out, contracts.Trend{
			Topic:      topic,
			Mentions:   staticMentions,
			GrowthRate: staticGrowthRate,
			Platform:   staticPlatform,
		})
	}
	return out
}

// filterTopics keeps trends matching one of topics (case-insensitive); no topics keeps all
func filterTopics(trends []contracts.Trend, topics []string) []contracts.Trend {
	if len(topics) == 0 {
		return trends
	}
	want := make(map[string]bool, len(topics))
	for _, t := range topics {
		want[strings.ToLower(t)] = true
	}
	out := trends[:0:0]
	for _, tr := range trends {
		if want[strings.ToLower(tr.Topic)] {
			out = append(out, tr)
		}
	}
	return out
}
