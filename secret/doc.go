// Package secret resolves credentials referenced from telemetry
// configuration.
//
// OTLP collectors are commonly fronted by authenticated gateways, so
// exporter headers and resource attributes may carry API keys. This
// package keeps those keys out of configuration literals:
//   - Strict environment expansion (see ExpandEnvStrict)
//   - Pluggable secret providers (see Provider)
//   - Reference resolution in configuration values (see Resolver)
//
// References use the prefix "secretref:":
//   - Full value:  secretref:env:HONEYCOMB_API_KEY
//   - Inline use:  x-honeycomb-team=secretref:env:HONEYCOMB_API_KEY
package secret
