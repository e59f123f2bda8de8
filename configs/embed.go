// Package configs provides embedded configuration templates for songbook.
//
// Templates are embedded at build time so that every distribution of the
// binary can write them out:
//   - cmd/songbook/cmd/config.go creates the user config at
//     ~/.config/songbook/config.yaml
//   - cmd/songbook/cmd/config.go (--project) creates .songbook.yaml in the
//     project root
//
// Configuration hierarchy (see internal/config/config.go Load()):
//  1. Hardcoded defaults (internal/config/config.go NewConfig())
//  2. User config (~/.config/songbook/config.yaml)
//  3. Project config (.songbook.yaml)
//  4. Environment variables (SONGBOOK_*)
package configs

import _ "embed"

// UserConfigTemplate is the template for the user/global configuration.
// Contains reader preferences and machine-specific paths such as the
// offline cache location.
//
//go:embed user-config.example.yaml
var UserConfigTemplate string

// ProjectConfigTemplate is the template for a project-level configuration.
// Contains the corpus location and search settings that travel with a
// songbook checkout.
//
//go:embed project-config.example.yaml
var ProjectConfigTemplate string
