package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultInstagramBaseURL = "https://i.instagram.com"

const instagramUserAgent = "Instagram 275.0.0.27.98 Android (33/13; 420dpi; 1080x2219; Google; Pixel 7; panther; en_US)"

// Login state machine: loggedOut → awaitingTwoFactor → loggedIn.
type loginState int

const (
	stateLoggedOut loginState = iota
	stateAwaitingTwoFactor
	stateLoggedIn
)

// InstagramPublisher posts through the private mobile API with a
// per-session device identity. Sessions are independent; no platform state
// is shared between instances.
type InstagramPublisher struct {
	client     *resty.Client
	contentDir string
	sessionDir string
	sleep      func(context.Context, time.Duration) error

	mu          sync.Mutex
	state       loginState
	username    string
	deviceID    string
	twoFactorID string
	userID      string
	user        *UserProfile
}

func NewInstagramPublisher(contentDir, sessionDir string) *InstagramPublisher {
	client := resty.New()
	client.SetBaseURL(defaultInstagramBaseURL)
	client.SetHeader("User-Agent", instagramUserAgent)
	client.SetTimeout(30 * time.Second)

	return &InstagramPublisher{
		client:     client,
		contentDir: contentDir,
		sessionDir: sessionDir,
		sleep:      sleepCtx,
	}
}

// igUser is the platform's user payload.
type igUser struct {
	PK            int64  `json:"pk"`
	Username      string `json:"username"`
	FullName      string `json:"full_name"`
	ProfilePicURL string `json:"profile_pic_url"`
}

func (u *igUser) profile() *UserProfile {
	return &UserProfile{
		UserID:         strconv.FormatInt(u.PK, 10),
		Username:       u.Username,
		FullName:       u.FullName,
		ProfilePicture: u.ProfilePicURL,
	}
}

// igResponse covers the private API's login, two-factor, and publish
// response shapes.
type igResponse struct {
	Status            string `json:"status"`
	Message           string `json:"message"`
	ErrorType         string `json:"error_type"`
	TwoFactorRequired bool   `json:"two_factor_required"`
	TwoFactorInfo     struct {
		TwoFactorIdentifier string `json:"two_factor_identifier"`
	} `json:"two_factor_info"`
	LoggedInUser *igUser `json:"logged_in_user"`
	User         *igUser `json:"user"`
	Media        struct {
		ID   string `json:"id"`
		Code string `json:"code"`
	} `json:"media"`
}

// Login authenticates with username and password. A checkpoint or
// two-factor challenge moves the session to awaitingTwoFactor and reports
// RequiresVerification without establishing the login.
func (p *InstagramPublisher) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.username = username
	p.deviceID = generateDeviceID(username)

	var body igResponse
	resp, err := p.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"username":            username,
			"password":            password,
			"device_id":           p.deviceID,
			"login_attempt_count": "0",
		}).
		SetResult(&body).
		SetError(&body).
		Post("/api/v1/accounts/login/")
	if err != nil {
		return nil, &AuthError{Reason: fmt.Sprintf("login request failed: %v", err)}
	}

	switch {
	case body.TwoFactorRequired:
		p.state = stateAwaitingTwoFactor
		p.twoFactorID = body.TwoFactorInfo.TwoFactorIdentifier
		return &LoginResult{
			RequiresVerification: true,
			Error:                "Two-factor verification required",
		}, nil

	case body.ErrorType == "checkpoint_challenge_required" || body.Message == "checkpoint_required":
		p.state = stateAwaitingTwoFactor
		return &LoginResult{
			RequiresVerification: true,
			Error:                "Instagram checkpoint required. Please verify your account.",
		}, nil

	case body.ErrorType == "bad_password" || body.ErrorType == "invalid_user":
		return nil, &AuthError{Reason: "invalid username or password"}

	case resp.IsSuccess() && body.Status == "ok" && body.LoggedInUser != nil:
		p.state = stateLoggedIn
		p.user = body.LoggedInUser.profile()
		p.userID = p.user.UserID
		p.saveSession()
		return &LoginResult{Success: true, User: p.user}, nil
	}

	reason := body.Message
	if reason == "" {
		reason = fmt.Sprintf("login failed: HTTP %d", resp.StatusCode())
	}
	return nil, &AuthError{Reason: reason}
}

// VerifyTwoFactor completes a pending challenge. A rejected code returns
// *InvalidCodeError and leaves the session awaiting verification.
func (p *InstagramPublisher) VerifyTwoFactor(ctx context.Context, code string) (*LoginResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != stateAwaitingTwoFactor {
		return nil, &AuthError{Reason: "no verification pending"}
	}

	var body igResponse
	resp, err := p.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"username":              p.username,
			"verification_code":     code,
			"two_factor_identifier": p.twoFactorID,
			"verification_method":   "1",
			"trust_this_device":     "1",
			"device_id":             p.deviceID,
		}).
		SetResult(&body).
		SetError(&body).
		Post("/api/v1/accounts/two_factor_login/")
	if err != nil {
		return nil, &InvalidCodeError{}
	}

	if !resp.IsSuccess() || body.Status != "ok" || body.LoggedInUser == nil {
		return nil, &InvalidCodeError{}
	}

	p.state = stateLoggedIn
	p.user = body.LoggedInUser.profile()
	p.userID = p.user.UserID
	p.twoFactorID = ""
	p.saveSession()
	return &LoginResult{Success: true, User: p.user}, nil
}

// PostOne publishes a single post: the image is fetched and re-encoded to
// the platform band, then uploaded and configured with the caption and
// hashtags joined by a blank line. Rate limiting is reported via the
// RateLimited flag, not a generic error.
func (p *InstagramPublisher) PostOne(ctx context.Context, post Post) (*PostResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != stateLoggedIn {
		return nil, &AuthError{Reason: "not logged in to Instagram"}
	}

	raw, err := p.loadImage(ctx, post.ImageURL)
	if err != nil {
		return &PostResult{Error: err.Error(), Timestamp: time.Now()}, nil
	}

	prepared, err := prepareImage(raw)
	if err != nil {
		return &PostResult{Error: err.Error(), Timestamp: time.Now()}, nil
	}

	uploadID := strconv.FormatInt(time.Now().UnixMilli(), 10)
	uploadName := fmt.Sprintf("%s_0_%d", uploadID, post.SequenceID)

	resp, err := p.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/octet-stream").
		SetHeader("X-Entity-Name", uploadName).
		SetHeader("X-Instagram-Rupload-Params", fmt.Sprintf(`{"upload_id":%q,"media_type":1}`, uploadID)).
		SetBody(prepared).
		Post("/rupload_igphoto/" + uploadName)
	if err != nil {
		return &PostResult{Error: fmt.Sprintf("uploading photo: %v", err), Timestamp: time.Now()}, nil
	}
	if rateLimited(resp, nil) {
		return p.rateLimitedResult(), nil
	}
	if resp.IsError() {
		return &PostResult{Error: fmt.Sprintf("uploading photo: HTTP %d", resp.StatusCode()), Timestamp: time.Now()}, nil
	}

	caption := post.Caption + "\n\n" + post.Hashtags

	var body igResponse
	resp, err = p.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"upload_id": uploadID,
			"caption":   caption,
			"device_id": p.deviceID,
		}).
		SetResult(&body).
		SetError(&body).
		Post("/api/v1/media/configure/")
	if err != nil {
		return &PostResult{Error: fmt.Sprintf("configuring media: %v", err), Timestamp: time.Now()}, nil
	}
	if rateLimited(resp, &body) {
		return p.rateLimitedResult(), nil
	}
	if resp.IsError() || body.Status != "ok" {
		msg := body.Message
		if msg == "" {
			msg = fmt.Sprintf("configuring media: HTTP %d", resp.StatusCode())
		}
		return &PostResult{Error: msg, Timestamp: time.Now()}, nil
	}

	return &PostResult{
		Success:   true,
		PostID:    body.Media.ID,
		PostCode:  body.Media.Code,
		PostURL:   fmt.Sprintf("https://www.instagram.com/p/%s/", body.Media.Code),
		Timestamp: time.Now(),
	}, nil
}

// PostMany posts sequentially with delayMinutes between successes and stops
// immediately on the first rate-limited result.
func (p *InstagramPublisher) PostMany(ctx context.Context, posts []Post, delayMinutes int) []PostOutcome {
	return postSequence(ctx, p, posts, delayMinutes, p.sleep)
}

// Status reports whether the session is logged in and, when it is,
// refreshes the profile from the platform (best effort).
func (p *InstagramPublisher) Status(ctx context.Context) (*UserProfile, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != stateLoggedIn {
		return nil, false
	}

	var body igResponse
	resp, err := p.client.R().
		SetContext(ctx).
		SetResult(&body).
		Get("/api/v1/users/" + p.userID + "/info/")
	if err == nil && resp.IsSuccess() && body.User != nil {
		p.user = body.User.profile()
	}

	return p.user, true
}

// Logout discards all login state.
func (p *InstagramPublisher) Logout() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = stateLoggedOut
	p.user = nil
	p.userID = ""
	p.twoFactorID = ""
}

func (p *InstagramPublisher) rateLimitedResult() *PostResult {
	return &PostResult{
		RateLimited: true,
		Error:       "Instagram rate limit reached. Please wait before posting again.",
		Timestamp:   time.Now(),
	}
}

// rateLimited detects the platform's posting-frequency rejection distinctly
// from generic failures.
func rateLimited(resp *resty.Response, body *igResponse) bool {
	if resp.StatusCode() == http.StatusTooManyRequests {
		return true
	}
	if body != nil && (body.Message == "feedback_required" || body.ErrorType == "feedback_required") {
		return true
	}
	return false
}

// loadImage resolves a post's image reference: absolute URLs are
// downloaded, /generated/ paths are read from the local content area, and
// anything else is treated as a filesystem path.
func (p *InstagramPublisher) loadImage(ctx context.Context, imageURL string) ([]byte, error) {
	switch {
	case strings.HasPrefix(imageURL, "http://") || strings.HasPrefix(imageURL, "https://"):
		resp, err := p.client.R().SetContext(ctx).Get(imageURL)
		if err != nil {
			return nil, fmt.Errorf("downloading image: %w", err)
		}
		if resp.IsError() {
			return nil, fmt.Errorf("downloading image: HTTP %d", resp.StatusCode())
		}
		return resp.Body(), nil

	case strings.HasPrefix(imageURL, "/generated/"):
		name := strings.TrimPrefix(imageURL, "/generated/")
		data, err := os.ReadFile(filepath.Join(p.contentDir, filepath.Clean(name)))
		if err != nil {
			return nil, fmt.Errorf("reading generated image: %w", err)
		}
		return data, nil

	default:
		data, err := os.ReadFile(imageURL)
		if err != nil {
			return nil, fmt.Errorf("reading image file: %w", err)
		}
		return data, nil
	}
}

// instagramSession is the persisted session file shape.
type instagramSession struct {
	Username string       `json:"username"`
	DeviceID string       `json:"deviceId"`
	UserID   string       `json:"userId"`
	User     *UserProfile `json:"user"`
}

// saveSession persists login identity for reuse across restarts. Failures
// are swallowed; persistence is best effort.
func (p *InstagramPublisher) saveSession() {
	if p.sessionDir == "" || p.username == "" {
		return
	}
	if err := os.MkdirAll(p.sessionDir, 0755); err != nil {
		return
	}
	data, err := json.Marshal(instagramSession{
		Username: p.username,
		DeviceID: p.deviceID,
		UserID:   p.userID,
		User:     p.user,
	})
	if err != nil {
		return
	}
	_ = os.WriteFile(filepath.Join(p.sessionDir, p.username+".json"), data, 0600)
}

// LoadSession restores a previously saved session file.
func (p *InstagramPublisher) LoadSession(username string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	data, err := os.ReadFile(filepath.Join(p.sessionDir, username+".json"))
	if err != nil {
		return fmt.Errorf("reading session file: %w", err)
	}
	var session instagramSession
	if err := json.Unmarshal(data, &session); err != nil {
		return fmt.Errorf("parsing session file: %w", err)
	}

	p.username = session.Username
	p.deviceID = session.DeviceID
	p.userID = session.UserID
	p.user = session.User
	p.state = stateLoggedIn
	return nil
}

// generateDeviceID derives a stable device identity from the username.
func generateDeviceID(username string) string {
	sum := sha256.Sum256([]byte(username))
	return "android-" + hex.EncodeToString(sum[:8])
}
