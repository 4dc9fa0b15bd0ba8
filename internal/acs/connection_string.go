package acs

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
)

// ConnectionString holds the parsed parts of an Azure Communication
// Services connection string ("endpoint=https://...;accesskey=...").
type ConnectionString struct {
	Endpoint  string // https://<resource>.communication.azure.com, no trailing slash
	AccessKey []byte // decoded HMAC key
}

// ParseConnectionString parses and validates a connection string
func ParseConnectionString(raw string) (*ConnectionString, error) {
	var endpoint, key string
	for _, part := range strings.Split(raw, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, value, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("acs: malformed connection string segment %q", name)
		}
		switch strings.ToLower(name) {
		case "endpoint":
			endpoint = strings.TrimRight(value, "/")
		case "accesskey":
			key = value
		}
	}

	if endpoint == "" {
		return nil, fmt.Errorf("acs: connection string is missing endpoint")
	}
	if key == "" {
		return nil, fmt.Errorf("acs: connection string is missing accesskey")
	}

	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("acs: connection string endpoint %q is not a valid URL", endpoint)
	}

	decoded, err := base64.StdEncoding.DecodeString(key)
	if err != nil {
		return nil, fmt.Errorf("acs: connection string accesskey is not valid base64: %w", err)
	}

	return &ConnectionString{Endpoint: endpoint, AccessKey: decoded}, nil
}
