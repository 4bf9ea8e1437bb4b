package entity

// ClientIdentity is the caller authenticated by the token middleware.
type ClientIdentity struct {
	ID   string
	Name string
}
