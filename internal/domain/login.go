// Package domain provides the request and response models of the observable API.
package domain

import "github.com/rs/zerolog"

// LoginRequest is the credential payload accepted by the login endpoint.
// It is never validated or stored.
type LoginRequest struct {
	UserName string `json:"UserName"`
	Password string `json:"Password"`
}

// MarshalZerologObject logs the user name verbatim and masks the password.
// The logged object therefore differs from the raw request payload: a
// non-empty password always appears as "***".
func (r LoginRequest) MarshalZerologObject(e *zerolog.Event) {
	e.Str("UserName", r.UserName)
	if r.Password != "" {
		e.Str("Password", "***")
	} else {
		e.Str("Password", "")
	}
}
