package main

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultGraphBaseURL = "https://graph.facebook.com/v18.0"

// Graph API error code for application-level rate limiting.
const graphRateLimitCode = 4

// GraphPublisher posts through the Instagram Graph API for business
// accounts: a media container is created from a public image URL, then
// published after a short processing pause.
type GraphPublisher struct {
	client       *resty.Client
	accessToken  string
	accountID    string
	publishPause time.Duration
	sleep        func(context.Context, time.Duration) error

	mu       sync.Mutex
	loggedIn bool
	user     *UserProfile
}

func NewGraphPublisher(accessToken, accountID string) *GraphPublisher {
	client := resty.New()
	client.SetBaseURL(defaultGraphBaseURL)
	client.SetTimeout(30 * time.Second)

	return &GraphPublisher{
		client:       client,
		accessToken:  accessToken,
		accountID:    accountID,
		publishPause: 5 * time.Second,
		sleep:        sleepCtx,
	}
}

// graphResponse covers the Graph API's success and error shapes.
type graphResponse struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Permalink string `json:"permalink"`
	Error     *struct {
		Message   string `json:"message"`
		Code      int    `json:"code"`
		Subcode   int    `json:"error_subcode"`
		Transient bool   `json:"is_transient"`
	} `json:"error"`
}

// Login validates the configured token against the business account.
// Username and password are ignored; token auth has no credential step.
func (g *GraphPublisher) Login(ctx context.Context, _, _ string) (*LoginResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.accessToken == "" || g.accountID == "" {
		return nil, &AuthError{Reason: "graph access token and account id are required"}
	}

	var body graphResponse
	resp, err := g.client.R().
		SetContext(ctx).
		SetQueryParam("fields", "id,username").
		SetQueryParam("access_token", g.accessToken).
		SetResult(&body).
		SetError(&body).
		Get("/" + g.accountID)
	if err != nil {
		return nil, &AuthError{Reason: fmt.Sprintf("validating access token: %v", err)}
	}
	if resp.IsError() || body.Error != nil {
		return nil, &AuthError{Reason: graphErrorMessage(&body, resp.StatusCode())}
	}

	g.loggedIn = true
	g.user = &UserProfile{UserID: body.ID, Username: body.Username}
	return &LoginResult{Success: true, User: g.user}, nil
}

// VerifyTwoFactor is not part of token-based business auth.
func (g *GraphPublisher) VerifyTwoFactor(_ context.Context, _ string) (*LoginResult, error) {
	return nil, &AuthError{Reason: "two-factor verification is not supported for business accounts"}
}

// PostOne creates and publishes a media container. The image must be a
// publicly reachable URL; the Graph API fetches it server-side.
func (g *GraphPublisher) PostOne(ctx context.Context, post Post) (*PostResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.loggedIn {
		return nil, &AuthError{Reason: "not logged in to Instagram"}
	}
	if !strings.HasPrefix(post.ImageURL, "http://") && !strings.HasPrefix(post.ImageURL, "https://") {
		return &PostResult{
			Error:     "graph publishing requires a publicly reachable image URL",
			Timestamp: time.Now(),
		}, nil
	}

	caption := post.Caption + "\n\n" + post.Hashtags

	var container graphResponse
	resp, err := g.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"image_url":    post.ImageURL,
			"caption":      caption,
			"access_token": g.accessToken,
		}).
		SetResult(&container).
		SetError(&container).
		Post("/" + g.accountID + "/media")
	if err != nil {
		return &PostResult{Error: fmt.Sprintf("creating media container: %v", err), Timestamp: time.Now()}, nil
	}
	if graphRateLimited(&container) {
		return g.rateLimitedResult(), nil
	}
	if resp.IsError() || container.Error != nil {
		return &PostResult{Error: graphErrorMessage(&container, resp.StatusCode()), Timestamp: time.Now()}, nil
	}

	// The container needs a moment of server-side processing before it can
	// be published.
	if err := g.sleep(ctx, g.publishPause); err != nil {
		return &PostResult{Error: err.Error(), Timestamp: time.Now()}, nil
	}

	var published graphResponse
	resp, err = g.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"creation_id":  container.ID,
			"access_token": g.accessToken,
		}).
		SetResult(&published).
		SetError(&published).
		Post("/" + g.accountID + "/media_publish")
	if err != nil {
		return &PostResult{Error: fmt.Sprintf("publishing media: %v", err), Timestamp: time.Now()}, nil
	}
	if graphRateLimited(&published) {
		return g.rateLimitedResult(), nil
	}
	if resp.IsError() || published.Error != nil {
		return &PostResult{Error: graphErrorMessage(&published, resp.StatusCode()), Timestamp: time.Now()}, nil
	}

	result := &PostResult{
		Success:   true,
		PostID:    published.ID,
		Timestamp: time.Now(),
	}

	// Permalink lookup is best effort; the publish already succeeded.
	var media graphResponse
	resp, err = g.client.R().
		SetContext(ctx).
		SetQueryParam("fields", "permalink").
		SetQueryParam("access_token", g.accessToken).
		SetResult(&media).
		Get("/" + published.ID)
	if err == nil && resp.IsSuccess() && media.Permalink != "" {
		result.PostURL = media.Permalink
	}

	return result, nil
}

// PostMany posts sequentially with delayMinutes between successes and stops
// immediately on the first rate-limited result.
func (g *GraphPublisher) PostMany(ctx context.Context, posts []Post, delayMinutes int) []PostOutcome {
	return postSequence(ctx, g, posts, delayMinutes, g.sleep)
}

func (g *GraphPublisher) Status(_ context.Context) (*UserProfile, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.loggedIn {
		return nil, false
	}
	return g.user, true
}

func (g *GraphPublisher) Logout() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.loggedIn = false
	g.user = nil
}

func (g *GraphPublisher) rateLimitedResult() *PostResult {
	return &PostResult{
		RateLimited: true,
		Error:       "Instagram rate limit reached. Please wait before posting again.",
		Timestamp:   time.Now(),
	}
}

func graphRateLimited(body *graphResponse) bool {
	return body.Error != nil && body.Error.Code == graphRateLimitCode
}

func graphErrorMessage(body *graphResponse, status int) string {
	if body.Error != nil && body.Error.Message != "" {
		return body.Error.Message
	}
	return fmt.Sprintf("graph API error: HTTP %d", status)
}
