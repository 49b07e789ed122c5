package models

// ProxyConfig holds the forward proxy endpoint and the credential header
// presented to it. AuthHeader is sent as Proxy-Authorization verbatim.
type ProxyConfig struct {
	Address    string `json:"address" toml:"address" yaml:"address" validate:"required,url"`
	AuthHeader string `json:"auth_header,omitempty" toml:"auth_header" yaml:"auth_header"`
}

// Profile is a network identity bundle assigned to a scraping session.
// Both fields are optional; absent fields leave the outgoing request untouched.
// Profiles are immutable once loaded.
type Profile struct {
	Name      string       `json:"name" toml:"-" yaml:"-"`
	Proxy     *ProxyConfig `json:"proxy,omitempty" toml:"proxy" yaml:"proxy"`
	UserAgent string       `json:"user_agent,omitempty" toml:"user_agent" yaml:"user_agent"`
}

// HasProxy reports whether the profile carries proxy settings.
func (p Profile) HasProxy() bool {
	return p.Proxy != nil && p.Proxy.Address != ""
}

// HasUserAgent reports whether the profile carries a user agent.
func (p Profile) HasUserAgent() bool {
	return p.UserAgent != ""
}
