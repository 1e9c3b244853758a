// Package csp assembles the Content-Security-Policy header served with every
// response.
package csp

import "strings"

// HeaderName is the response header carrying the policy
const HeaderName = "Content-Security-Policy"

// Directive is one named CSP rule. EnvVar, when set, names the environment
// variable that overrides Default.
type Directive struct {
	Name    string
	EnvVar  string
	Default string
}

// directives is the fixed policy in output order. Some clients treat the
// first matching directive as authoritative, so the order must not change.
var directives = []Directive{
	{Name: "default-src", Default: "'self'"},
	{Name: "script-src", EnvVar: "NEXT_PUBLIC_CSP_SCRIPT_SRC", Default: "'self' 'unsafe-inline' 'unsafe-eval'"},
	{Name: "style-src", EnvVar: "NEXT_PUBLIC_CSP_STYLE_SRC", Default: "'self' 'unsafe-inline'"},
	{Name: "img-src", EnvVar: "NEXT_PUBLIC_CSP_IMG_SRC", Default: "'self' blob: data:"},
	{Name: "font-src", Default: "'self'"},
	{Name: "connect-src", EnvVar: "NEXT_PUBLIC_CSP_CONNECT_SRC", Default: "'self'"},
	{Name: "object-src", Default: "'none'"},
	{Name: "base-uri", Default: "'self'"},
	{Name: "form-action", Default: "'self'"},
	{Name: "frame-ancestors", Default: "'none'"},
	{Name: "upgrade-insecure-requests"},
}

// Directives returns a copy of the directive table in output order
func Directives() []Directive {
	out := make([]Directive, len(directives))
	copy(out, directives)
	return out
}

// EnvVars returns the environment variables that can override a directive
func EnvVars() []string {
	vars := []string{}
	for _, d := range directives {
		if d.EnvVar != "" {
			vars = append(vars, d.EnvVar)
		}
	}
	return vars
}

// Resolve returns the value of d for env: the override when it is
// non-blank, otherwise the default
func (d Directive) Resolve(env map[string]string) string {
	if d.EnvVar != "" {
		if v := strings.TrimSpace(env[d.EnvVar]); v != "" {
			return v
		}
	}
	return d.Default
}

// BuildHeader renders the policy as "<directive> <value>; ..." in
// declaration order. Directives with an empty value are rendered bare.
func BuildHeader(env map[string]string) string {
	parts := make([]string, 0, len(directives))
	for _, d := range directives {
		value := d.Resolve(env)
		if value == "" {
			parts = append(parts, d.Name)
			continue
		}
		parts = append(parts, d.Name+" "+value)
	}
	return strings.Join(parts, "; ")
}
