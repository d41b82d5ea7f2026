// Package notify delivers finished notification text over a configured channel.
//
// Notifier is the capability every channel implements. Null only logs; Webhook
// POSTs {"text": msg} to a chat webhook whose secret URL suffix is read from a
// local credentials file (INI, or TOML when the file ends in .toml) with a
// [channel] section mapping channel names to suffixes.
//
// Each Send is a single attempt; failures are reported, never retried.
package notify
