// Package views registers the HTTP API of the comment service.
//
// [Info] reports how the current request was resolved. [Comments] serves
// threads, creates comments and lets authors edit or delete what they
// posted. Edit rights travel in a signed cookie named after the comment id;
// the token carries the id and a digest of the text it was issued for.
package views
