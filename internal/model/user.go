package model

import "time"

// User represents a row of the `userr` table. The `password` column holds
// a bcrypt hash; plaintext passwords are never stored.
//
// Fields:
//
//	Username     – primary key.
//	PasswordHash – userr.password, bcrypt.
//	Email        – contact address, required at registration.
//	DOB          – date of birth; nullable and never set by registration.
type User struct {
	Username     string     // userr.username
	PasswordHash string     // userr.password
	Email        string     // userr.email
	DOB          *time.Time // userr.dob (nullable)
}

// Identity is the caller resolved for one request. The zero value is the
// anonymous caller.
type Identity struct {
	Username string
}

func (i Identity) IsAnonymous() bool { return i.Username == "" }

// Anonymous is the identity of a caller without a valid session.
var Anonymous = Identity{}
