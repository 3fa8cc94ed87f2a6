// Package netrc resolves per-host basic-auth credentials from a
// netrc-style credential file.
package netrc

import (
	"bufio"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
)

// Credentials is one host entry of the credential store.
type Credentials struct {
	Login    string
	Password string
}

// Provider looks up credentials by host name.
type Provider interface {
	// Lookup returns the credentials for host, or false if the store
	// has no matching entry.
	Lookup(host string) (Credentials, bool)
}

// Static is an in-memory provider keyed by host name.
type Static map[string]Credentials

// Lookup returns the credentials for host from the map.
func (s Static) Lookup(host string) (Credentials, bool) {
	c, ok := s[host]
	return c, ok
}

// File is a provider backed by a parsed netrc file.
type File struct {
	machines map[string]Credentials
	def      *Credentials
}

// Load reads the credential file from $NETRC, falling back to
// ~/.netrc.
func Load() (*File, error) {
	path := os.Getenv("NETRC")
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolving home directory: %w", err)
		}
		path = filepath.Join(home, ".netrc")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening credential file: %w", err)
	}
	defer f.Close()
	parsed, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return parsed, nil
}

// Parse reads netrc tokens from r. Only the machine, default, login
// and password directives are understood; macdef blocks are rejected.
func Parse(r io.Reader) (*File, error) {
	scanner := bufio.NewScanner(r)
	scanner.Split(bufio.ScanWords)

	var tokens []string
	for scanner.Scan() {
		tokens = append(tokens, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	file := &File{machines: make(map[string]Credentials)}
	host := "" // current machine, "" while inside a default block
	inDefault := false

	set := func(apply func(*Credentials)) {
		if inDefault {
			if file.def == nil {
				file.def = &Credentials{}
			}
			apply(file.def)
			return
		}
		if host == "" {
			return // directive before any machine, ignore like netrc(5) readers do
		}
		c := file.machines[host]
		apply(&c)
		file.machines[host] = c
	}

	for i := 0; i < len(tokens); i++ {
		switch tokens[i] {
		case "machine":
			i++
			if i >= len(tokens) {
				return nil, fmt.Errorf("machine directive without a host name")
			}
			host = tokens[i]
			inDefault = false
			file.machines[host] = Credentials{}
		case "default":
			inDefault = true
			file.def = &Credentials{}
		case "login":
			i++
			if i >= len(tokens) {
				return nil, fmt.Errorf("login directive without a value")
			}
			v := tokens[i]
			set(func(c *Credentials) { c.Login = v })
		case "password":
			i++
			if i >= len(tokens) {
				return nil, fmt.Errorf("password directive without a value")
			}
			v := tokens[i]
			set(func(c *Credentials) { c.Password = v })
		case "macdef":
			return nil, fmt.Errorf("macdef directives are not supported")
		}
	}
	return file, nil
}

// Lookup returns the credentials for host, consulting the default
// entry when no machine matches.
func (f *File) Lookup(host string) (Credentials, bool) {
	if c, ok := f.machines[host]; ok {
		return c, true
	}
	if f.def != nil {
		return *f.def, true
	}
	return Credentials{}, false
}

// Require verifies the provider has an entry for every given URL's
// host. Used at startup so a missing entry fails before any request.
func Require(p Provider, rawURLs ...string) error {
	for _, raw := range rawURLs {
		if raw == "" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("parsing host URL %q: %w", raw, err)
		}
		host := u.Hostname()
		if host == "" {
			return fmt.Errorf("host URL %q has no host component", raw)
		}
		if _, ok := p.Lookup(host); !ok {
			return fmt.Errorf("no credentials for host %s in the credential file", host)
		}
	}
	return nil
}
