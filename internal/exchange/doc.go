// Package exchange coordinates the pending-question cache with the
// persistent record store: it accepts question notifications, finalizes
// answers, and resolves the status queries built on both.
package exchange
