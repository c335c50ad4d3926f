package protocol

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const joinPath = "/whiteboard"

// Link is what a shareable join URL carries.
type Link struct {
	Name   string
	Room   string
	Rounds int // 0 when absent
}

// JoinLink builds <base>/whiteboard?name=..&room=..[&rounds=..].
func JoinLink(base string, l Link) (string, error) {
	if err := ValidateRoomCode(l.Room); err != nil {
		return "", err
	}
	u, err := url.Parse(strings.TrimSuffix(base, "/") + joinPath)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	q := url.Values{}
	if l.Name != "" {
		q.Set("name", l.Name)
	}
	q.Set("room", l.Room)
	if l.Rounds > 0 {
		q.Set("rounds", strconv.Itoa(l.Rounds))
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// ParseJoinLink extracts and validates the query parameters of a join URL.
func ParseJoinLink(raw string) (Link, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Link{}, fmt.Errorf("parse join link: %w", err)
	}
	q := u.Query()
	l := Link{Room: strings.ToUpper(q.Get("room"))}
	if l.Name, err = ValidateName(q.Get("name")); err != nil {
		return Link{}, err
	}
	if err := ValidateRoomCode(l.Room); err != nil {
		return Link{}, err
	}
	if r := q.Get("rounds"); r != "" {
		n, err := strconv.Atoi(r)
		if err != nil {
			return Link{}, ErrInvalidRounds
		}
		if err := ValidateRounds(n); err != nil {
			return Link{}, err
		}
		l.Rounds = n
	}
	return l, nil
}
