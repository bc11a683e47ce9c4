// Package config loads service configuration with viper.
//
// Values resolve in this order: defaults applied by the config struct, the
// YAML file, a .env file (never overriding variables already set), then
// environment variables. Environment keys are the upper-cased mapstructure path
// joined with underscores and prefixed with the service name, so
// backends.openai.model is MEETSCRIBE_BACKENDS_OPENAI_MODEL.
package config
