// Package config loads runner configuration from ~/.jobrunner/config.yaml
// and JOBRUNNER_* environment variables, and edits single keys in that file.
package config
