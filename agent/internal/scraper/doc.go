// Package scraper reads charge controller telemetry into pipeline Samples.
//
// The only Source implemented today polls a Prometheus text exposition
// endpoint (prometheus.go), typically a Modbus-to-metrics exporter sitting
// next to the controller. Each metric family becomes one Sample field; the
// config's fields map renames families to the names the monitor reads
// (adc_vl_f, adc_il_f, ping, led_state).
//
// Authentication (mTLS, API key, bearer token, basic) is handled by the shared
// authRoundTripper in base.go.
package scraper
