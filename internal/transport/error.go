package transport

import (
	"fmt"
	"io"
	"net/http"
	"strings"
)

// maxErrorBody bounds how much of a provider error body is retained.
const maxErrorBody = 2048

// Error is a provider HTTP rejection: the non-success status plus whatever
// body the provider sent, kept for diagnostics and batch error lists.
type Error struct {
	Status int
	Body   string
}

func (e *Error) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("provider returned status %d", e.Status)
	}
	return fmt.Sprintf("provider returned status %d: %s", e.Status, e.Body)
}

// FromResponse drains resp's body into an *Error. The caller decides which
// statuses warrant it.
func FromResponse(resp *http.Response) *Error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &Error{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
}
