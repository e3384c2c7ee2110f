package xtream

import (
	"net/url"
	"strings"
)

const apiPath = "/player_api.php"

// Param is one extra query parameter. Params keep insertion order.
type Param struct {
	Key   string
	Value string
}

// query builds an ordered query string. url.Values sorts keys on Encode,
// which would break the stable username, password, action order.
type query struct {
	keys   []string
	values map[string]string
}

func newQuery() *query {
	return &query{values: make(map[string]string)}
}

// set adds key unless it is already present; the first value wins.
func (q *query) set(key, value string) {
	if _, ok := q.values[key]; ok {
		return
	}
	q.keys = append(q.keys, key)
	q.values[key] = value
}

func (q *query) encode() string {
	var b strings.Builder
	for i, k := range q.keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(k))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(q.values[k]))
	}
	return b.String()
}

// BuildURL returns the player_api URL for action. The username, password
// and action parameters come first and cannot be overridden by extra.
// An uninitialized client yields "".
func (c *Client) BuildURL(action string, extra ...Param) string {
	if c == nil || !c.session.initialized {
		return ""
	}
	q := newQuery()
	q.set("username", c.session.username)
	q.set("password", c.session.password)
	q.set("action", action)
	for _, p := range extra {
		q.set(p.Key, p.Value)
	}
	return c.session.serverBase + apiPath + "?" + q.encode()
}

// authURL is the bare player_api URL without an action.
func (c *Client) authURL() string {
	q := newQuery()
	q.set("username", c.session.username)
	q.set("password", c.session.password)
	return c.session.serverBase + apiPath + "?" + q.encode()
}

// BuildMovieURL returns the direct media URL of a VOD item.
func (c *Client) BuildMovieURL(id, ext string) string {
	return c.mediaURL("movie", id, ext)
}

// BuildSeriesURL returns the direct media URL of a series episode.
func (c *Client) BuildSeriesURL(id, ext string) string {
	return c.mediaURL("series", id, ext)
}

// BuildLiveURL returns the direct media URL of a live channel.
func (c *Client) BuildLiveURL(id, ext string) string {
	return c.mediaURL("live", id, ext)
}

func (c *Client) mediaURL(kind, id, ext string) string {
	if c == nil || !c.session.initialized {
		return ""
	}
	return c.session.serverBase + "/" + kind + "/" +
		url.PathEscape(c.session.username) + "/" +
		url.PathEscape(c.session.password) + "/" +
		url.PathEscape(id) + "." + url.PathEscape(ext)
}

// safeHost returns only the host portion of a URL for log output.
func safeHost(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "[unparseable]"
	}
	return u.Host
}

// actionOf extracts the action parameter of a player_api URL for logs and
// metrics. The bare authentication URL reports "authenticate".
func actionOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "unknown"
	}
	if action := u.Query().Get("action"); action != "" {
		return action
	}
	if strings.HasSuffix(u.Path, apiPath) {
		return "authenticate"
	}
	return "unknown"
}
