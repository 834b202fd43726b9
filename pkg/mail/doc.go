// Package mail provides email notification functionality for the SLA
// engine, including SMTP sending with retry logic, HTML template rendering,
// and a background mail queue for reporting-manager notifications.
package mail
