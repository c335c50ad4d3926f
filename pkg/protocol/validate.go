package protocol

import (
	"crypto/rand"
	"errors"
	"math/big"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	RoomCodeLength = 6
	MaxNameLength  = 16
	roomCharset    = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

var (
	ErrInvalidName     = errors.New("please enter your name")
	ErrNameTooLong     = errors.New("name is too long")
	ErrInvalidRoomCode = errors.New("please enter a valid 6-character room code (e.g., AB12CD)")
	ErrInvalidRounds   = errors.New("please enter a valid number of rounds")
)

var roomCodePattern = regexp.MustCompile(`^[A-Z0-9]{6}$`)

// ValidateName trims name and checks it is usable as a display name.
func ValidateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrInvalidName
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return "", ErrNameTooLong
	}
	return name, nil
}

func ValidateRoomCode(code string) error {
	if !roomCodePattern.MatchString(code) {
		return ErrInvalidRoomCode
	}
	return nil
}

func ValidateRounds(rounds int) error {
	if rounds < 1 {
		return ErrInvalidRounds
	}
	return nil
}

// Validate checks a join request and returns it with the name trimmed.
func (j JoinRoom) Validate() (JoinRoom, error) {
	name, err := ValidateName(j.Name)
	if err != nil {
		return j, err
	}
	if err := ValidateRoomCode(j.RoomID); err != nil {
		return j, err
	}
	j.Name = name
	return j, nil
}

// GenerateRoomCode returns a random code matching [A-Z0-9]{6}. Collisions
// are possible and accepted.
func GenerateRoomCode() (string, error) {
	code := make([]byte, RoomCodeLength)
	for i := range code {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(roomCharset))))
		if err != nil {
			return "", err
		}
		code[i] = roomCharset[num.Int64()]
	}
	return string(code), nil
}
