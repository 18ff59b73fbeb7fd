package session

import (
	"strings"

	"github.com/oklog/ulid/v2"
)

// ID generation. ULIDs sort lexicographically in creation order, which
// keeps storage listings chronological for free.

func newSessionID() string {
	return "ses_" + strings.ToLower(ulid.Make().String())
}

func newMessageID() string {
	return "msg_" + strings.ToLower(ulid.Make().String())
}

func newQuestionID() string {
	return "q_" + strings.ToLower(ulid.Make().String())
}
