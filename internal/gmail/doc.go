// Package gmail sends prepared messages through the Gmail API.
//
// Messages are composed elsewhere (see the mail package) and handed to
// SendRaw as RFC 5322 bytes. Authentication uses the per-account tokens of
// the google package; the account needs the gmail.send scope.
package gmail
