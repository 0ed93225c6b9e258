// Package alert delivers operator notifications raised by lock-protected git
// operations. The Notifier interface is the narrow sink the operation layer
// depends on; implementations route alerts to the structured log or to an
// HTTP webhook.
package alert
