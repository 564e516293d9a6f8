// Package transport assembles and delivers outbound mail.
//
// BuildMessage produces the RFC 5322 bytes for a send request with fixed
// header order and CRLF line endings, so the DKIM body hash is stable no
// matter which transport carries the message. SESTransport ships the raw
// signed bytes through AWS SES v2; LogTransport is the development
// fallback that logs instead of sending.
package transport
