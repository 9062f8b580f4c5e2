// Package config loads service configuration from a config.yml, an optional
// .env file and the process environment using Viper.
//
// Environment variables override file values. A variable such as
// DATABASE_DSN or SPEAKERID_DATABASE_DSN is bound to the nested key
// database.dsn.
//
//	var cfg app.Config
//	if err := config.LoadConfig("speakerid", &cfg); err != nil { ... }
package config
