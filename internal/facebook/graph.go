// Package facebook is a minimal Graph API client covering the calls the
// service needs: profiles, pictures, app tokens and invitable friends.
package facebook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Provider is the provider name stored on users who log in through Facebook.
const Provider = "facebook"

// ErrUpstream wraps every transport or non-2xx failure returned by the Graph API.
var ErrUpstream = errors.New("facebook graph unavailable")

type Location struct {
	Street string `json:"street"`
	City   string `json:"city"`
	State  string `json:"state"`
	Zip    string `json:"zip"`
}

// Object is the subset of a Graph node the service reads. Users fill ID and
// Name; pages additionally carry Mission and Location.
type Object struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Mission  string    `json:"mission"`
	Location *Location `json:"location"`
}

// Friend is one entry of an invitable_friends connection.
type Friend struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Picture struct {
		Data struct {
			URL string `json:"url"`
		} `json:"data"`
	} `json:"picture"`
}

// FriendsPage is one page of a paginated connection. After is empty on the last page.
type FriendsPage struct {
	Friends []Friend
	After   string
}

type Client struct {
	baseURL   string
	appID     string
	appSecret string
	http      *http.Client
}

// NewClient builds a Graph client. timeout bounds every request.
func NewClient(baseURL, appID, appSecret string, timeout time.Duration) *Client {
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		appID:     appID,
		appSecret: appSecret,
		http:      &http.Client{Timeout: timeout},
	}
}

type graphError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	u := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build graph request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		var ge graphError
		_ = json.NewDecoder(resp.Body).Decode(&ge)
		return fmt.Errorf("%w: GET %s: status %d: %s", ErrUpstream, path, resp.StatusCode, ge.Error.Message)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s: %v", ErrUpstream, path, err)
	}
	return nil
}

// AppAccessToken exchanges the app credentials for an app access token.
func (c *Client) AppAccessToken(ctx context.Context) (string, error) {
	var out struct {
		AccessToken string `json:"access_token"`
	}
	params := url.Values{
		"client_id":     {c.appID},
		"client_secret": {c.appSecret},
		"grant_type":    {"client_credentials"},
	}
	if err := c.get(ctx, "oauth/access_token", params, &out); err != nil {
		return "", err
	}
	return out.AccessToken, nil
}

// GetObject fetches a node by id ("me" resolves to the token's user).
func (c *Client) GetObject(ctx context.Context, token, id string) (*Object, error) {
	params := url.Values{
		"access_token": {token},
		"fields":       {"id,name,mission,location"},
	}
	var obj Object
	if err := c.get(ctx, id, params, &obj); err != nil {
		return nil, err
	}
	return &obj, nil
}

// GetPicture resolves the picture URL of a node. size is a Graph picture
// type such as "normal" or "large"; empty uses the Graph default.
func (c *Client) GetPicture(ctx context.Context, token, id, size string) (string, error) {
	params := url.Values{
		"access_token": {token},
		"redirect":     {"false"},
	}
	if size != "" {
		params.Set("type", size)
	}
	var out struct {
		Data struct {
			URL          string `json:"url"`
			IsSilhouette bool   `json:"is_silhouette"`
		} `json:"data"`
	}
	if err := c.get(ctx, id+"/picture", params, &out); err != nil {
		return "", err
	}
	return out.Data.URL, nil
}

// InvitableFriends reads one page of the user's invitable_friends connection
// starting after the given cursor.
func (c *Client) InvitableFriends(ctx context.Context, token, after string) (*FriendsPage, error) {
	params := url.Values{
		"access_token": {token},
		"fields":       {"id,name,picture"},
	}
	if after != "" {
		params.Set("after", after)
	}
	var out struct {
		Data   []Friend `json:"data"`
		Paging struct {
			Cursors struct {
				After string `json:"after"`
			} `json:"cursors"`
			Next string `json:"next"`
		} `json:"paging"`
	}
	if err := c.get(ctx, "me/invitable_friends", params, &out); err != nil {
		return nil, err
	}
	page := &FriendsPage{Friends: out.Data}
	if out.Paging.Next != "" {
		page.After = out.Paging.Cursors.After
	}
	return page, nil
}
