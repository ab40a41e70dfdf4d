// Package identity parses the bot-issued credential payload: a
// query-string-shaped blob whose "user" parameter carries a URL-encoded JSON
// profile. The user id becomes the account's session name.
package identity

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"xstar_farm/internal/model"
)

// ParseError reports which part of the payload could not be handled.
type ParseError struct {
	Stage string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse credential (%s): %v", e.Stage, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Parse extracts the embedded profile from a raw credential payload.
func Parse(raw string) (model.Identity, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return model.Identity{}, &ParseError{Stage: "payload", Err: fmt.Errorf("empty payload")}
	}

	values, err := url.ParseQuery(raw)
	if err != nil {
		return model.Identity{}, &ParseError{Stage: "query", Err: err}
	}
	userJSON := values.Get("user")
	if userJSON == "" {
		return model.Identity{}, &ParseError{Stage: "query", Err: fmt.Errorf("missing user field")}
	}

	// The id arrives as a bare JSON number; everything downstream keys on it
	// as a string.
	var payload struct {
		ID        json.Number `json:"id"`
		FirstName string      `json:"first_name"`
		LastName  string      `json:"last_name"`
	}
	if err := json.Unmarshal([]byte(userJSON), &payload); err != nil {
		return model.Identity{}, &ParseError{Stage: "user", Err: err}
	}
	id := payload.ID.String()
	if id == "" {
		return model.Identity{}, &ParseError{Stage: "user", Err: fmt.Errorf("missing id")}
	}

	return model.Identity{
		ID:        id,
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
	}, nil
}
