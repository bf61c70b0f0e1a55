package session

import "fmt"

const DefaultKeyPrefix = "mercadotiendas"

// KeySpace names the storage keys of a session under a fixed namespace,
// the way the browser build prefixed its localStorage entries.
type KeySpace struct {
	Prefix string
}

func NewKeySpace(prefix string) KeySpace {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return KeySpace{Prefix: prefix}
}

func (k KeySpace) AccessToken(sessionID string) string {
	return fmt.Sprintf("%s:%s:token", k.Prefix, sessionID)
}

func (k KeySpace) RefreshToken(sessionID string) string {
	return fmt.Sprintf("%s:%s:refresh_token", k.Prefix, sessionID)
}

func (k KeySpace) User(sessionID string) string {
	return fmt.Sprintf("%s:%s:user", k.Prefix, sessionID)
}

func (k KeySpace) State(sessionID string) string {
	return fmt.Sprintf("%s:%s:state", k.Prefix, sessionID)
}

func (k KeySpace) Lock(sessionID, name string) string {
	return fmt.Sprintf("%s:%s:lock:%s", k.Prefix, sessionID, name)
}

// All lists the keys that make up the authenticated part of a session.
func (k KeySpace) All(sessionID string) []string {
	return []string{k.AccessToken(sessionID), k.RefreshToken(sessionID), k.User(sessionID)}
}
