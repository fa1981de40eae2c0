package api

import (
	"crypto/rand"
	"math/big"
)

const (
	idLength = 24
	charset  = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	completionIDPrefix = "chatcmpl-"
	messageIDPrefix    = "msg_"
	responseIDPrefix   = "resp_"
)

// NewCompletionID generates an ID for Chat-Completions-shaped responses,
// "chatcmpl-" followed by 24 random alphanumeric characters.
func NewCompletionID() string {
	return completionIDPrefix + randomAlphanumeric(idLength)
}

// NewMessageID generates an ID for Claude-Messages-shaped responses.
func NewMessageID() string {
	return messageIDPrefix + randomAlphanumeric(idLength)
}

// NewResponseID generates an ID for Responses-shaped responses.
func NewResponseID() string {
	return responseIDPrefix + randomAlphanumeric(idLength)
}

func randomAlphanumeric(n int) string {
	max := big.NewInt(int64(len(charset)))
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic("crypto/rand failed: " + err.Error())
		}
		b[i] = charset[idx.Int64()]
	}
	return string(b)
}
