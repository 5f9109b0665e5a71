package server

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"

	"github.com/zenazn/goji/web"

	"github.com/isoterra/sculpt/sculpt"
)

// blockList refuses requests from misbehaving hosts.  Lines are "u=<user>[,note]" or
// "ip=<address>[,note]" where any dotted part of the address may be "*".  Blank lines
// and lines starting with "#" are skipped.
type blockList struct {
	users map[string]string // user id key, note value
	ips   map[string]string // ip match key, note value
}

func addBlock(blockMap map[string]string, data string) error {
	parts := strings.Split(data, ",")
	switch {
	case parts[0] == "":
		return fmt.Errorf("empty blocklist key")
	case len(parts) == 1:
		blockMap[parts[0]] = ""
	case len(parts) == 2:
		blockMap[parts[0]] = strings.TrimSpace(parts[1])
	default:
		return fmt.Errorf("bad blocklist line")
	}
	return nil
}

func loadBlockListFile(filename string) (*blockList, error) {
	if len(filename) == 0 {
		return nil, nil
	}
	sculpt.Infof("Blocklist (%s) found.\n", filename)
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parseBlockList(f)
}

func parseBlockList(r io.Reader) (*blockList, error) {
	bl := &blockList{
		users: make(map[string]string),
		ips:   make(map[string]string),
	}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "" || strings.HasPrefix(line, "#"):
		case strings.HasPrefix(line, "u="):
			if err := addBlock(bl.users, line[2:]); err != nil {
				return nil, fmt.Errorf("bad user blocklist line: %s", line)
			}
		case strings.HasPrefix(line, "ip="):
			if err := addBlock(bl.ips, line[3:]); err != nil {
				return nil, fmt.Errorf("bad ip blocklist line: %s", line)
			}
		default:
			return nil, fmt.Errorf("bad line in blocklist: %s", line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(bl.users) == 0 && len(bl.ips) == 0 {
		return nil, nil
	}
	return bl, nil
}

// blocked is middleware answering 429 for blocked users and source addresses.  The
// user comes from a verified token if auth is on, else from the "u" query string.
func (bl *blockList) blocked(c *web.C, h http.Handler) http.Handler {
	fn := func(w http.ResponseWriter, r *http.Request) {
		user := r.URL.Query().Get("u")
		if u, ok := c.Env["user"].(string); ok {
			user = u
		}
		if note, found := bl.users[user]; found && user != "" {
			http.Error(w, fmt.Sprintf("User %q is blocked: %s", user, note), http.StatusTooManyRequests)
			return
		}
		if len(bl.ips) > 0 {
			ip, err := requestSourceIP(r)
			if err != nil {
				sculpt.Errorf("Error getting source IP for request: %v\n", err)
			} else if note, found := bl.blockedIP(ip); found {
				http.Error(w, fmt.Sprintf("IP %q is blocked: %s", ip, note), http.StatusTooManyRequests)
				return
			}
		}
		h.ServeHTTP(w, r)
	}
	return http.HandlerFunc(fn)
}

func (bl *blockList) blockedIP(ip string) (string, bool) {
	targetParts := strings.Split(ip, ".")
	for blockIP, note := range bl.ips {
		parts := strings.Split(blockIP, ".")
		if len(parts) != len(targetParts) {
			continue
		}
		match := true
		for i, part := range parts {
			if part != "*" && part != targetParts[i] {
				match = false
				break
			}
		}
		if match {
			return note, true
		}
	}
	return "", false
}

// requestSourceIP prefers proxy headers over the connection's remote address.
func requestSourceIP(r *http.Request) (string, error) {
	if forwarded := r.Header.Get("Forwarded"); forwarded != "" {
		first := strings.TrimSpace(strings.Split(forwarded, ",")[0])
		for _, part := range strings.Split(first, ";") {
			part = strings.ToLower(strings.TrimSpace(part))
			if strings.HasPrefix(part, "for=") {
				return strings.Trim(part[4:], `"`), nil
			}
		}
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return strings.TrimSpace(strings.Split(xff, ",")[0]), nil
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return "", err
	}
	return host, nil
}
