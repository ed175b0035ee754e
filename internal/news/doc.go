// Package news manages articles and the daily digest email.
//
// Saving an article with a main image derives a JPEG preview that fits in
// 200x200. SendDigest is the job run by the scheduler at EMAIL_SEND_TIME: it mails
// the titles of the articles published today to EMAIL_RECIPIENTS.
package news
