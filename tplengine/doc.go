// Package tplengine provides Recorder, a small template engine for the rwe host.
//
// The host assigns module variables and exception details to it; Display renders a
// text/template file with them and Render dumps them as a table, JSON or YAML.
package tplengine
