// Package mail composes and delivers meetslots notification emails.
//
// Compose renders a Message as RFC 5322 bytes; messages describing a booked
// meeting carry an iCalendar REQUEST part so mail clients can add the event
// directly. Delivery goes through a Sender: GmailSender uses the Gmail API,
// SMTPSender speaks SMTP with STARTTLS, and LogSender only logs.
package mail
