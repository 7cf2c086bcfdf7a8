// Package moneytag reads and writes the legacy "[MONEY:<receive|give>:<n>]"
// prefix that older proposal messages used to carry a cash top-up. New rows
// store the term in dedicated columns; this codec keeps historical messages
// readable and strips the tag before anything is shown to a user.
package moneytag

import (
	"fmt"
	"strconv"
	"strings"
)

const prefix = "[MONEY:"

type Direction string

const (
	DirectionNone    Direction = ""
	DirectionReceive Direction = "receive"
	DirectionGive    Direction = "give"
)

// Term is an optional cash adjustment attached to an offer.
type Term struct {
	Direction Direction
	Amount    int
}

func (t Term) IsZero() bool {
	return t.Direction == DirectionNone
}

// Decode extracts a money term from the head of a message and returns the
// message with the tag stripped. Missing or malformed tags yield a zero Term
// and the message untouched; a valid direction with an unparsable amount
// keeps the direction and defaults the amount to 0, matching how these
// messages were historically read.
func Decode(message string) (Term, string) {
	if !strings.HasPrefix(message, prefix) {
		return Term{}, message
	}
	end := strings.Index(message, "]")
	if end < 0 {
		return Term{}, message
	}
	parts := strings.Split(message[len(prefix):end], ":")
	if len(parts) != 2 {
		return Term{}, message
	}
	dir := Direction(parts[0])
	if dir != DirectionReceive && dir != DirectionGive {
		return Term{}, message
	}
	amount, err := strconv.Atoi(parts[1])
	if err != nil || amount < 0 {
		amount = 0
	}
	return Term{Direction: dir, Amount: amount}, strings.TrimSpace(message[end+1:])
}

// Encode prepends the tag for a non-zero term with a positive amount;
// otherwise it returns the message unchanged.
func Encode(t Term, message string) string {
	if t.IsZero() || t.Amount <= 0 {
		return message
	}
	tag := fmt.Sprintf("%s%s:%d] ", prefix, t.Direction, t.Amount)
	return strings.TrimSpace(tag + message)
}
