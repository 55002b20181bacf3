/*
Package user contains core data structures related to user identity.

It defines the basic representation of a forum member as the chat engine sees one:
the local identity established at login and the roster entries loaded from the
persistence collaborator.
*/
package user

// User represents the basic identity information of a forum member.
// Fields use JSON tags matching the persistence API's roster responses.
type User struct {

	// ID is the unique numeric identifier for the user.
	ID int `json:"id"`

	// Nickname is the unique display name. Presence events carry only this key,
	// so it doubles as the join key between the roster and the online set.
	Nickname string `json:"nickname"`
}
