// Package notifications delivers batch events via ntfy.
//
// The ntfy implementation publishes to the topic URL configured under
// [notifications] and degrades to a no-op when no topic is set. Callers
// depend only on the Service interface.
package notifications
