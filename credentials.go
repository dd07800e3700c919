package connpool

// Configuration keys passed through to openers.
const (
	KeyDriver   = "driver"
	KeyURL      = "url"
	KeyUsername = "username"
	KeyPassword = "password"
)

// legacyPrefix is accepted in front of the opener keys so that existing
// jdbc-style property files keep working.
const legacyPrefix = "jdbc."

// Credentials holds the values that identify a database endpoint.
type Credentials struct {
	Driver   string
	URL      string
	Username string
	Password string
}

// CredentialsFrom extracts the opener keys from a resolved configuration.
func CredentialsFrom(cfg map[string]string) Credentials {
	return Credentials{
		Driver:   lookup(cfg, KeyDriver),
		URL:      lookup(cfg, KeyURL),
		Username: lookup(cfg, KeyUsername),
		Password: lookup(cfg, KeyPassword),
	}
}

func lookup(cfg map[string]string, key string) string {
	if v, ok := cfg[key]; ok {
		return v
	}
	return cfg[legacyPrefix+key]
}

// GetId identifies the endpoint. The password is left out so ids can be
// logged.
func (cr Credentials) GetId() string {
	return cr.Driver + "|" + cr.Username + "@" + cr.URL
}
