package httpclient

import (
	"encoding/base64"
	"net/url"
	"os"
	"strconv"

	"golang.org/x/net/http/httpproxy"
)

// proxyFromEnvironment resolves a proxy URL from HTTP_PROXY /
// HTTPS_PROXY / NO_PROXY using golang.org/x/net/http/httpproxy, the
// same package net/http's own ProxyFromEnvironment delegates to,
// instead of a hand-rolled NO_PROXY matcher.
func proxyFromEnvironment(r *Request) (*ProxyConfig, error) {
	cfg := httpproxy.FromEnvironment()
	scheme := "http"
	if r.Secure {
		scheme = "https"
	}
	target := &url.URL{Scheme: scheme, Host: joinHostPort(r.Host, r.Port)}
	u, err := cfg.ProxyFunc()(target)
	if err != nil {
		return nil, &InvalidProxyEnvironmentVariableKind{Name: proxyEnvName(scheme), Value: proxyEnvValue(scheme)}
	}
	if u == nil {
		return nil, nil
	}
	if u.Scheme != "" && u.Scheme != "http" {
		return nil, &InvalidProxySettingsKind{Text: "unsupported proxy scheme: " + u.Scheme}
	}
	pc := &ProxyConfig{Host: u.Hostname()}
	if p, err := strconv.Atoi(u.Port()); err == nil {
		pc.Port = p
	} else {
		pc.Port = 80
	}
	if u.User != nil {
		pc.Auth = basicAuthHeader(u.User)
	}
	return pc, nil
}

func proxyEnvName(scheme string) string {
	if scheme == "https" {
		return "HTTPS_PROXY"
	}
	return "HTTP_PROXY"
}

func proxyEnvValue(scheme string) string {
	name := proxyEnvName(scheme)
	if v := os.Getenv(name); v != "" {
		return v
	}
	return os.Getenv(envLower(name))
}

func envLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

func joinHostPort(host string, port int) string {
	return host + ":" + strconv.Itoa(port)
}

func basicAuthHeader(u *url.Userinfo) string {
	user := u.Username()
	pass, _ := u.Password()
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+pass))
}
